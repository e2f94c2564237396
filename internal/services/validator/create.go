package validator

import (
	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// RuleVerifier evaluates a definition's rules against a payload.
type RuleVerifier interface {
	Verify(def *events.Definition, data map[string]any) (bool, error)
}

// CreateEvent decides whether a stored event should be created for a payload.
type CreateEvent struct {
	enabled  func() bool
	code     Validator
	verifier RuleVerifier
}

// NewCreateEvent creates a new CreateEvent validator. enabled reports the
// global publishing switch.
func NewCreateEvent(enabled func() bool, code Validator, verifier RuleVerifier) *CreateEvent {
	return &CreateEvent{enabled: enabled, code: code, verifier: verifier}
}

// Validate returns false without error when publishing is disabled or a rule
// does not match. Validator and operator failures are returned as errors.
func (v *CreateEvent) Validate(def *events.Definition, data map[string]any) (bool, error) {
	if !v.enabled() {
		return false, nil
	}

	if err := v.code.Validate(def, false); err != nil {
		return false, err
	}

	return v.verifier.Verify(def, data)
}
