package events

import (
	"encoding/json"

	"github.com/simaogato/budgetline-backend/internal/domain"
)

// ContentType of every published body
const ContentType = "application/json"

// EncodeEvent converts the event to its wire form
func EncodeEvent(event domain.DerogationEvent) ([]byte, error) {
	return json.Marshal(event)
}

// DecodeEvent parses a body produced by EncodeEvent
func DecodeEvent(data []byte) (*domain.DerogationEvent, error) {
	var event domain.DerogationEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
