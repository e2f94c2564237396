package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"time"

	"github.com/joho/godotenv"
)

// Test is one registered e2e scenario.
type Test struct {
	Name        string
	Description string
	Run         func(ctx context.Context, cfg *Config) error
}

// Config holds test runner configuration.
type Config struct {
	CaptureURL string
	QueryURL   string
	// EventCode must be subscribed on the instance under test.
	EventCode string
	Env       string
	Timeout   time.Duration
	// DeliveryTimeout bounds how long a test waits for the sender. Zero
	// skips tests that need a working sender.
	DeliveryTimeout time.Duration
}

// Outcome of a single test.
type Outcome string

const (
	Passed  Outcome = "PASS"
	Failed  Outcome = "FAIL"
	Skipped Outcome = "SKIP"
)

// Result is the outcome of a test run.
type Result struct {
	Test     *Test
	Outcome  Outcome
	Duration time.Duration
	Error    error
}

var errSkip = errors.New("skipped")

// Skip returns an error that marks the running test skipped.
func Skip(reason string) error {
	return fmt.Errorf("%w: %s", errSkip, reason)
}

var registry = make(map[string]*Test)

// Register adds a test to the registry. Tests call it from init.
func Register(t *Test) {
	if _, exists := registry[t.Name]; exists {
		panic(fmt.Sprintf("test %q already registered", t.Name))
	}
	registry[t.Name] = t
}

// Tests returns the registered tests whose name matches pattern, sorted by
// name. An empty pattern matches all.
func Tests(pattern string) ([]*Test, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid test pattern: %w", err)
	}

	tests := make([]*Test, 0, len(registry))
	for _, t := range registry {
		if re.MatchString(t.Name) {
			tests = append(tests, t)
		}
	}
	sort.Slice(tests, func(i, j int) bool {
		return tests[i].Name < tests[j].Name
	})
	return tests, nil
}

// RunTest executes t under cfg.Timeout.
func RunTest(ctx context.Context, t *Test, cfg *Config) *Result {
	start := time.Now()

	testCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	err := t.Run(testCtx, cfg)

	r := &Result{Test: t, Duration: time.Since(start), Error: err}
	switch {
	case err == nil:
		r.Outcome = Passed
	case errors.Is(err, errSkip):
		r.Outcome = Skipped
	default:
		r.Outcome = Failed
	}
	return r
}

// Run executes tests in order, reporting each result to out as it finishes.
// It stops early when ctx is cancelled.
func Run(ctx context.Context, tests []*Test, cfg *Config, out io.Writer) []*Result {
	results := make([]*Result, 0, len(tests))
	for _, t := range tests {
		if ctx.Err() != nil {
			break
		}
		r := RunTest(ctx, t, cfg)
		results = append(results, r)
		printResult(out, r)
	}
	return results
}

func printResult(out io.Writer, r *Result) {
	fmt.Fprintf(out, "%s  %-25s  (%v)\n", r.Outcome, r.Test.Name, r.Duration.Round(time.Millisecond))
	if r.Error != nil {
		fmt.Fprintf(out, "      %v\n", r.Error)
	}
}

// Summary counts results by outcome.
type Summary struct {
	Passed, Failed, Skipped int
	Duration                time.Duration
}

// Summarize counts results.
func Summarize(results []*Result) Summary {
	var s Summary
	for _, r := range results {
		s.Duration += r.Duration
		switch r.Outcome {
		case Passed:
			s.Passed++
		case Failed:
			s.Failed++
		case Skipped:
			s.Skipped++
		}
	}
	return s
}

// PrintSummary writes totals and the failed tests to out.
func PrintSummary(out io.Writer, results []*Result) {
	s := Summarize(results)

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Total: %d  Passed: %d  Failed: %d  Skipped: %d  Duration: %v\n",
		len(results), s.Passed, s.Failed, s.Skipped, s.Duration.Round(time.Millisecond))

	if s.Failed > 0 {
		fmt.Fprintln(out, "\nFailed tests:")
		for _, r := range results {
			if r.Outcome == Failed {
				fmt.Fprintf(out, "  - %s: %v\n", r.Test.Name, r.Error)
			}
		}
	}
}

// LoadConfig builds a Config from E2E_* environment variables, after
// loading .env.e2e when it exists.
func LoadConfig(env string) (*Config, error) {
	if err := godotenv.Load(".env.e2e"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env.e2e: %w", err)
	}

	cfg := &Config{
		Env:             env,
		Timeout:         30 * time.Second,
		DeliveryTimeout: 20 * time.Second,
		CaptureURL:      os.Getenv("E2E_CAPTURE_URL"),
		QueryURL:        os.Getenv("E2E_QUERY_URL"),
		EventCode:       os.Getenv("E2E_EVENT_CODE"),
	}

	if cfg.EventCode == "" {
		cfg.EventCode = "observer.catalog_product_save_after"
	}
	if v := os.Getenv("E2E_DELIVERY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid E2E_DELIVERY_TIMEOUT: %w", err)
		}
		cfg.SetDeliveryTimeout(d)
	}

	if env == "local" {
		if cfg.CaptureURL == "" {
			cfg.CaptureURL = "http://localhost:8080"
		}
		if cfg.QueryURL == "" {
			cfg.QueryURL = "http://localhost:8081"
		}
	}

	if cfg.CaptureURL == "" || cfg.QueryURL == "" {
		return nil, fmt.Errorf("E2E_CAPTURE_URL and E2E_QUERY_URL are required in the %s environment", env)
	}
	return cfg, nil
}

// SetDeliveryTimeout sets d and widens Timeout so a delivery wait fits.
func (c *Config) SetDeliveryTimeout(d time.Duration) {
	c.DeliveryTimeout = d
	c.Timeout = max(c.Timeout, d+10*time.Second)
}
