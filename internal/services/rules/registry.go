package rules

import (
	"fmt"
	"sort"

	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// Operator names accepted in rules.
const (
	OperatorEqual = "equal"
	OperatorRegex = "regex"
)

// Registry maps operator names to implementations.
type Registry struct {
	operators map[string]Operator
}

// NewRegistry creates a registry holding the built-in operators.
func NewRegistry() *Registry {
	return &Registry{
		operators: map[string]Operator{
			OperatorEqual: Equal{},
			OperatorRegex: &Regex{},
		},
	}
}

// Register adds or replaces an operator.
func (r *Registry) Register(name string, op Operator) {
	r.operators[name] = op
}

// Get returns the operator registered under name.
func (r *Registry) Get(name string) (Operator, error) {
	op, ok := r.operators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q is an invalid event rule operator name", events.ErrValidation, name)
	}
	return op, nil
}

// Names returns the registered operator names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.operators))
	for name := range r.operators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether an operator is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.operators[name]
	return ok
}
