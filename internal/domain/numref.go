package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Sequence names passed to Store.LockSequence
const (
	SequenceMajorBudgetLine = "major_budget_lines"
	SequenceBudgetLineName  = "budget_line_names"
	SequenceBudgetLineOf    = "budget_line_ofs"
	SequenceBreakdown       = "breakdown_budget_line_ofs"
	SequenceDerogation      = "derogations"
)

// RefPrefix returns the MMYY prefix for now
func RefPrefix(now time.Time) string {
	return fmt.Sprintf("%02d%02d", int(now.Month()), now.Year()%100)
}

// NextRef computes the reference number that follows lastRef.
// The sequence is global: it continues from the trailing four digits of the most
// recently created record whatever its prefix, and restarts at 1 when lastRef is
// empty or has no numeric suffix.
func NextRef(lastRef string, now time.Time) string {
	next := 1
	if len(lastRef) >= 4 {
		if n, err := strconv.Atoi(lastRef[len(lastRef)-4:]); err == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%04d", RefPrefix(now), next)
}

// DerogationRef builds a derogation number from the MMYY prefix and the number of
// derogations already carrying that prefix. Derogations use a dash separator.
func DerogationRef(prefix string, existing int) string {
	return fmt.Sprintf("%s-%04d", prefix, existing+1)
}

// DerogationLineRef numbers the line at the 0-based index within its derogation
func DerogationLineRef(derogationRef string, index int) string {
	return fmt.Sprintf("%s-%02d", derogationRef, index+1)
}
