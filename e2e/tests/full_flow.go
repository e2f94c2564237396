package tests

import (
	"context"
	"fmt"

	"github.com/cornjacket/commerce-events/e2e/client"
	"github.com/cornjacket/commerce-events/e2e/runner"
)

func init() {
	runner.Register(&runner.Test{
		Name:        "full-flow",
		Description: "Complete flow: capture an event and wait for the sender to process it",
		Run:         runFullFlowTest,
	})
}

func runFullFlowTest(ctx context.Context, cfg *runner.Config) error {
	if cfg.DeliveryTimeout == 0 {
		return runner.Skip("delivery timeout is zero")
	}

	c := &client.Config{
		CaptureURL: cfg.CaptureURL,
		QueryURL:   cfg.QueryURL,
	}

	// 1. Capture two occurrences
	var ids []int64
	for i := 0; i < 2; i++ {
		resp, err := client.CaptureEvent(ctx, c, &client.CaptureRequest{
			Code: cfg.EventCode,
			Data: map[string]any{
				"sku":   client.UniqueID("e2e-flow"),
				"price": 10 + i,
			},
		})
		if err != nil {
			return fmt.Errorf("failed to capture event %d: %w", i, err)
		}

		created := resp.Created()
		if len(created) == 0 {
			return fmt.Errorf("capture %d created no events: %+v", i, resp.Events)
		}
		ids = append(ids, created[0])
	}

	if ids[0] == ids[1] {
		return fmt.Errorf("expected different event ids for two captures")
	}

	// 2. Wait for the sender to settle each event. A failure still proves
	// the event went through delivery; it only means the endpoint refused it.
	for _, id := range ids {
		event, err := client.WaitForDelivery(ctx, c, id, cfg.DeliveryTimeout)
		if err != nil {
			return err
		}
		if event.ID != id {
			return fmt.Errorf("expected event %d, got %d", id, event.ID)
		}
	}

	return nil
}
