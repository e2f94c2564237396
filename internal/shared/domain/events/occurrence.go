package events

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Occurrence is one raw domain event as captured from the commerce
// application, before any catalog decision is made.
type Occurrence struct {
	Code string         `json:"code"`
	Data map[string]any `json:"data"`
}

// DecodeOccurrence parses a JSON occurrence. Numbers are kept as json.Number
// so large integer ids survive unchanged.
func DecodeOccurrence(data []byte) (*Occurrence, error) {
	var occ Occurrence
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&occ); err != nil {
		return nil, err
	}
	return &occ, nil
}

// Validate checks that the occurrence names an event.
func (o *Occurrence) Validate() error {
	if o.Code == "" {
		return fmt.Errorf("%w: code is required", ErrValidation)
	}
	if o.Data == nil {
		return fmt.Errorf("%w: data is required", ErrValidation)
	}
	return nil
}
