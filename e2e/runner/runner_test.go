package runner

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTest_Outcomes(t *testing.T) {
	cfg := &Config{Timeout: time.Second}

	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"pass", nil, Passed},
		{"fail", errors.New("boom"), Failed},
		{"skip", Skip("no sender"), Skipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := RunTest(context.Background(), &Test{
				Name: tt.name,
				Run:  func(ctx context.Context, cfg *Config) error { return tt.err },
			}, cfg)
			assert.Equal(t, tt.want, r.Outcome)
		})
	}
}

func TestRun_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	tests := []*Test{
		{Name: "a", Run: func(context.Context, *Config) error { calls++; cancel(); return nil }},
		{Name: "b", Run: func(context.Context, *Config) error { calls++; return nil }},
	}

	var out bytes.Buffer
	results := Run(ctx, tests, &Config{Timeout: time.Second}, &out)

	assert.Len(t, results, 1)
	assert.Equal(t, 1, calls)
	assert.Contains(t, out.String(), "PASS")
}

func TestSummarize(t *testing.T) {
	s := Summarize([]*Result{
		{Outcome: Passed, Duration: time.Second},
		{Outcome: Failed, Duration: time.Second},
		{Outcome: Skipped},
		{Outcome: Passed},
	})
	assert.Equal(t, Summary{Passed: 2, Failed: 1, Skipped: 1, Duration: 2 * time.Second}, s)
}

func TestTests_Pattern(t *testing.T) {
	registry = map[string]*Test{
		"capture-event": {Name: "capture-event"},
		"full-flow":     {Name: "full-flow"},
		"query-events":  {Name: "query-events"},
	}

	all, err := Tests("")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "capture-event", all[0].Name)

	some, err := Tests("^(capture|query)")
	require.NoError(t, err)
	assert.Len(t, some, 2)

	_, err = Tests("(")
	require.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("E2E_CAPTURE_URL", "")
	t.Setenv("E2E_QUERY_URL", "")
	t.Setenv("E2E_EVENT_CODE", "")
	t.Setenv("E2E_DELIVERY_TIMEOUT", "45s")

	cfg, err := LoadConfig("local")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.CaptureURL)
	assert.Equal(t, "http://localhost:8081", cfg.QueryURL)
	assert.Equal(t, "observer.catalog_product_save_after", cfg.EventCode)
	assert.Equal(t, 45*time.Second, cfg.DeliveryTimeout)
	assert.Equal(t, 55*time.Second, cfg.Timeout)

	_, err = LoadConfig("staging")
	require.Error(t, err)

	t.Setenv("E2E_DELIVERY_TIMEOUT", "soon")
	_, err = LoadConfig("local")
	require.Error(t, err)
}
