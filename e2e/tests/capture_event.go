package tests

import (
	"context"
	"fmt"

	"github.com/cornjacket/commerce-events/e2e/client"
	"github.com/cornjacket/commerce-events/e2e/runner"
)

func init() {
	runner.Register(&runner.Test{
		Name:        "capture-event",
		Description: "Capture a subscribed event and verify a stored event is created",
		Run:         runCaptureEventTest,
	})
	runner.Register(&runner.Test{
		Name:        "capture-unsubscribed",
		Description: "Capture an unsubscribed event and verify nothing is stored",
		Run:         runCaptureUnsubscribedTest,
	})
}

func runCaptureEventTest(ctx context.Context, cfg *runner.Config) error {
	c := &client.Config{
		CaptureURL: cfg.CaptureURL,
		QueryURL:   cfg.QueryURL,
	}

	if err := client.CheckHealth(ctx, c.CaptureURL); err != nil {
		return fmt.Errorf("capture service unhealthy: %w", err)
	}

	// Unique SKU for test isolation
	sku := client.UniqueID("e2e-sku")

	resp, err := client.CaptureEvent(ctx, c, &client.CaptureRequest{
		Code: cfg.EventCode,
		Data: map[string]any{
			"sku":   sku,
			"price": 72.5,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to capture event: %w", err)
	}

	if resp.Status != "accepted" {
		return fmt.Errorf("expected status 'accepted', got '%s'", resp.Status)
	}

	ids := resp.Created()
	if len(ids) == 0 {
		return fmt.Errorf("expected at least one created event, got outcomes %+v", resp.Events)
	}

	event, err := client.GetEvent(ctx, c, ids[0])
	if err != nil {
		return fmt.Errorf("failed to get stored event: %w", err)
	}
	if event == nil {
		return fmt.Errorf("stored event %d not found", ids[0])
	}

	want := "com.adobe.commerce." + cfg.EventCode
	if event.EventCode != want {
		return fmt.Errorf("expected event code %s, got %s", want, event.EventCode)
	}
	if _, ok := event.Metadata["commerceEdition"]; !ok {
		return fmt.Errorf("expected commerceEdition in metadata, got %v", event.Metadata)
	}

	return nil
}

func runCaptureUnsubscribedTest(ctx context.Context, cfg *runner.Config) error {
	c := &client.Config{
		CaptureURL: cfg.CaptureURL,
		QueryURL:   cfg.QueryURL,
	}

	resp, err := client.CaptureEvent(ctx, c, &client.CaptureRequest{
		Code: "observer." + client.UniqueID("e2e_unsubscribed"),
		Data: map[string]any{"id": 1},
	})
	if err != nil {
		return fmt.Errorf("failed to capture event: %w", err)
	}

	if len(resp.Events) != 0 {
		return fmt.Errorf("expected no outcomes for an unsubscribed event, got %+v", resp.Events)
	}

	return nil
}
