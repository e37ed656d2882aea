package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"webpconv/models"
)

func TestPayload(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	data, err := Payload("run-1", models.ConversionProgress{
		InputFileName:  "sub/a.png",
		OutputFileName: "sub/a.webp",
		State:          models.StateFailed,
		Message:        "cannot decode image",
	}, at)
	if err != nil {
		t.Fatalf("Payload failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Payload is not JSON: %v", err)
	}
	if raw["run_id"] != "run-1" || raw["input"] != "sub/a.png" || raw["output"] != "sub/a.webp" {
		t.Errorf("Unexpected payload: %s", data)
	}
	if raw["state"] != "failed" {
		t.Errorf("State should be encoded by name, got %v", raw["state"])
	}

	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}
	if ev.State != models.StateFailed || !ev.Time.Equal(at) {
		t.Errorf("Unexpected decoded event: %+v", ev)
	}
}

func TestNewNotifierValidatesOptions(t *testing.T) {
	if _, err := NewNotifier(context.Background(), Options{Channel: "c"}); err == nil {
		t.Error("Expected an error for an empty address")
	}
	if _, err := NewNotifier(context.Background(), Options{Addr: "localhost:6379"}); err == nil {
		t.Error("Expected an error for an empty channel")
	}
}
