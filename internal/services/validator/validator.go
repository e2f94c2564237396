// Package validator holds the checks a definition must pass before it can be
// subscribed to or used to create a stored event.
package validator

import (
	"fmt"

	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// Validator checks a single aspect of a definition.
type Validator interface {
	Validate(def *events.Definition, force bool) error
}

// SupportedEvents answers whether a plugin code was discovered as supported.
type SupportedEvents interface {
	Contains(code string) (bool, error)
}

// OperatorNames lists the known rule operators.
type OperatorNames interface {
	Has(name string) bool
}

// EventCodeSupported rejects plugin events that are not in the supported list.
// Observer events always pass.
type EventCodeSupported struct {
	supported SupportedEvents
}

// NewEventCodeSupported creates a new EventCodeSupported validator.
func NewEventCodeSupported(supported SupportedEvents) *EventCodeSupported {
	return &EventCodeSupported{supported: supported}
}

// Validate implements Validator. The force flag does not relax the check.
func (v *EventCodeSupported) Validate(def *events.Definition, force bool) error {
	code := events.StripPrefix(def.SourceCode())

	kind, _ := events.SplitType(code)
	if kind != events.TypePlugin {
		return nil
	}

	ok, err := v.supported.Contains(code)
	if err != nil {
		return fmt.Errorf("failed to load supported events: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: Event %q is not defined in the list of supported events", events.ErrValidation, code)
	}
	return nil
}

// EventRule rejects definitions whose rules use an unknown operator.
type EventRule struct {
	operators OperatorNames
}

// NewEventRule creates a new EventRule validator.
func NewEventRule(operators OperatorNames) *EventRule {
	return &EventRule{operators: operators}
}

// Validate implements Validator.
func (v *EventRule) Validate(def *events.Definition, force bool) error {
	for _, rule := range def.Rules {
		if !v.operators.Has(rule.Operator) {
			return fmt.Errorf("%w: %q is an invalid event rule operator name", events.ErrValidation, rule.Operator)
		}
	}
	return nil
}

// Chain runs validators in order and stops at the first error.
type Chain []Validator

// Validate implements Validator.
func (c Chain) Validate(def *events.Definition, force bool) error {
	for _, v := range c {
		if err := v.Validate(def, force); err != nil {
			return err
		}
	}
	return nil
}
