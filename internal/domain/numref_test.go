package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextRef(t *testing.T) {
	now := time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		lastRef string
		want    string
	}{
		{name: "First record starts at 1", lastRef: "", want: "03250001"},
		{name: "Continues the previous suffix", lastRef: "03250041", want: "03250042"},
		{name: "Sequence is global across prefixes", lastRef: "12240107", want: "03250108"},
		{name: "Garbage suffix restarts", lastRef: "abc", want: "03250001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextRef(tt.lastRef, now))
		})
	}
}

func TestNextRef_StrictlyIncreasing(t *testing.T) {
	now := time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC)

	ref := ""
	for i := 0; i < 25; i++ {
		next := NextRef(ref, now)
		assert.Greater(t, next, ref)
		ref = next
	}
	assert.Equal(t, "11250025", ref)
}

func TestDerogationRefs(t *testing.T) {
	prefix := RefPrefix(time.Date(2026, time.January, 31, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, "0126", prefix)

	ref := DerogationRef(prefix, 0)
	assert.Equal(t, "0126-0001", ref)
	assert.Equal(t, "0126-0013", DerogationRef(prefix, 12))

	assert.Equal(t, "0126-0001-01", DerogationLineRef(ref, 0))
	assert.Equal(t, "0126-0001-10", DerogationLineRef(ref, 9))
}
