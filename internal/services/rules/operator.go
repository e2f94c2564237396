// Package rules evaluates the conditional rules attached to event definitions.
package rules

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// Operator compares a rule value against a payload field value.
type Operator interface {
	Verify(ruleValue string, fieldValue any) (bool, error)
}

// Equal matches when the field value, coerced to a string, equals the rule value.
type Equal struct{}

// Verify implements Operator.
func (Equal) Verify(ruleValue string, fieldValue any) (bool, error) {
	s, err := toString(fieldValue)
	if err != nil {
		return false, err
	}
	return s == ruleValue, nil
}

// Regex matches when the delimited pattern in the rule value matches the
// field value coerced to a string. Patterns use the "/expr/flags" form.
type Regex struct {
	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

// Verify implements Operator.
func (r *Regex) Verify(ruleValue string, fieldValue any) (bool, error) {
	s, err := toString(fieldValue)
	if err != nil {
		return false, err
	}

	re, err := r.compile(ruleValue)
	if err != nil {
		return false, fmt.Errorf("%w: Regex operation failed: %v", events.ErrOperator, err)
	}
	return re.MatchString(s), nil
}

func (r *Regex) compile(pattern string) (*regexp.Regexp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if re, ok := r.cache[pattern]; ok {
		return re, nil
	}

	expr, err := translatePattern(pattern)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}

	if r.cache == nil {
		r.cache = make(map[string]*regexp.Regexp)
	}
	r.cache[pattern] = re
	return re, nil
}

var closingDelimiters = map[byte]byte{'(': ')', '[': ']', '{': '}', '<': '>'}

// translatePattern converts a delimited pattern with trailing flags into
// the RE2 syntax with an inline flag group.
func translatePattern(pattern string) (string, error) {
	pattern = strings.TrimLeft(pattern, " \t\n\r\v\f")
	if pattern == "" {
		return "", fmt.Errorf("empty regular expression")
	}

	open := pattern[0]
	if isAlnum(open) || open == '\\' {
		return "", fmt.Errorf("delimiter must not be alphanumeric or backslash")
	}
	closing := open
	if c, ok := closingDelimiters[open]; ok {
		closing = c
	}

	end := strings.LastIndexByte(pattern[1:], closing)
	if end < 0 {
		return "", fmt.Errorf("no ending delimiter %q found", closing)
	}
	end++

	expr := pattern[1:end]
	var flags strings.Builder
	for _, m := range pattern[end+1:] {
		switch m {
		case 'i', 'm', 's', 'U':
			flags.WriteRune(m)
		case 'u', 'D', '\n', '\r', ' ':
		default:
			return "", fmt.Errorf("unknown modifier %q", m)
		}
	}

	if flags.Len() > 0 {
		expr = "(?" + flags.String() + ")" + expr
	}
	return expr, nil
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// toString coerces a scalar payload value the way rule values are written:
// booleans become "1" or "", nil becomes "".
func toString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		if t {
			return "1", nil
		}
		return "", nil
	case int:
		return strconv.Itoa(t), nil
	case int32:
		return strconv.FormatInt(int64(t), 10), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint:
		return strconv.FormatUint(uint64(t), 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil
	case float32:
		return formatFloat(float64(t)), nil
	case float64:
		return formatFloat(t), nil
	case json.Number:
		return t.String(), nil
	case fmt.Stringer:
		return t.String(), nil
	default:
		return "", fmt.Errorf("%w: Input data must be in string format or can be converted to string", events.ErrOperator)
	}
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
