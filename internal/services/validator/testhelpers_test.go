package validator

import "github.com/cornjacket/commerce-events/internal/shared/domain/events"

// mockValidator implements Validator for testing.
type mockValidator struct {
	ValidateFn func(def *events.Definition, force bool) error
}

func (m *mockValidator) Validate(def *events.Definition, force bool) error {
	return m.ValidateFn(def, force)
}

// mockRuleVerifier implements RuleVerifier for testing.
type mockRuleVerifier struct {
	VerifyFn func(def *events.Definition, data map[string]any) (bool, error)
}

func (m *mockRuleVerifier) Verify(def *events.Definition, data map[string]any) (bool, error) {
	return m.VerifyFn(def, data)
}

// mockSupported implements SupportedEvents for testing.
type mockSupported struct {
	ContainsFn func(code string) (bool, error)
}

func (m *mockSupported) Contains(code string) (bool, error) {
	return m.ContainsFn(code)
}

func supportedOf(codes ...string) *mockSupported {
	return &mockSupported{
		ContainsFn: func(code string) (bool, error) {
			for _, c := range codes {
				if c == code {
					return true, nil
				}
			}
			return false, nil
		},
	}
}
