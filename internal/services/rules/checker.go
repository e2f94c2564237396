package rules

import (
	"fmt"

	"github.com/cornjacket/commerce-events/internal/services/filter"
	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// Checker decides whether a payload satisfies every rule of a definition.
type Checker struct {
	registry *Registry
}

// NewChecker creates a new Checker.
func NewChecker(registry *Registry) *Checker {
	return &Checker{registry: registry}
}

// Verify returns true when the definition has no rules or when all of its
// rules pass against data. Operator failures are returned, not swallowed.
func (c *Checker) Verify(def *events.Definition, data map[string]any) (bool, error) {
	for _, rule := range def.Rules {
		op, err := c.registry.Get(rule.Operator)
		if err != nil {
			return false, err
		}

		ok, err := op.Verify(rule.Value, filter.GetNested(data, rule.Field))
		if err != nil {
			return false, fmt.Errorf("rule on field %q: %w", rule.Field, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
