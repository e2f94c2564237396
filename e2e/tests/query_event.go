package tests

import (
	"context"
	"fmt"

	"github.com/cornjacket/commerce-events/e2e/client"
	"github.com/cornjacket/commerce-events/e2e/runner"
)

func init() {
	runner.Register(&runner.Test{
		Name:        "query-events",
		Description: "Verify stored events can be listed by status and fetched by id",
		Run:         runQueryEventsTest,
	})
}

func runQueryEventsTest(ctx context.Context, cfg *runner.Config) error {
	c := &client.Config{
		CaptureURL: cfg.CaptureURL,
		QueryURL:   cfg.QueryURL,
	}

	if err := client.CheckHealth(ctx, c.QueryURL); err != nil {
		return fmt.Errorf("query service unhealthy: %w", err)
	}

	// 1. Listing each status succeeds and respects the limit
	for _, status := range []string{"waiting", "success", "failure", "sending"} {
		list, err := client.ListEvents(ctx, c, status, 5, 0)
		if err != nil {
			return fmt.Errorf("failed to list %s events: %w", status, err)
		}
		if list.Limit != 5 {
			return fmt.Errorf("expected limit 5, got %d", list.Limit)
		}
		if len(list.Events) > 5 {
			return fmt.Errorf("expected at most 5 %s events, got %d", status, len(list.Events))
		}
		for _, e := range list.Events {
			if e.Status != status {
				return fmt.Errorf("listed event %d has status %s, expected %s", e.ID, e.Status, status)
			}
		}
	}

	// 2. Unknown statuses are rejected
	if _, err := client.ListEvents(ctx, c, "pending", 5, 0); err == nil {
		return fmt.Errorf("expected an error for an unknown status")
	}

	// 3. A missing event is reported as not found
	event, err := client.GetEvent(ctx, c, 1<<62)
	if err != nil {
		return fmt.Errorf("failed to get missing event: %w", err)
	}
	if event != nil {
		return fmt.Errorf("expected no event, got %d", event.ID)
	}

	return nil
}
