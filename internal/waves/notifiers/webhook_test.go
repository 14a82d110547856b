package notifiers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phetsims/greenhouse-effect-sub005/internal/waves"
)

// testEvent builds a membership event around a minimal valid wave.
func testEvent(t *testing.T) waves.MembershipEvent {
	t.Helper()
	wave, err := waves.NewWave(
		waves.InfraredWavelength,
		waves.Vec2{X: 0, Y: 0},
		waves.Vec2{X: 0, Y: 1},
		waves.HeightOfAtmosphere,
		waves.WaveOptions{},
	)
	if err != nil {
		t.Fatalf("NewWave failed: %v", err)
	}
	return waves.NewMembershipEvent("test-model", waves.WaveAdded, 0, wave)
}

func TestWebhookNotifier(t *testing.T) {
	notifier := NewWebhookNotifier("test-webhook", "http://localhost:9999/webhook")

	if notifier.ID() != "test-webhook" {
		t.Errorf("Expected ID 'test-webhook', got '%s'", notifier.ID())
	}
	if notifier.Type() != "webhook" {
		t.Errorf("Expected type 'webhook', got '%s'", notifier.Type())
	}
	if err := notifier.Close(); err != nil {
		t.Errorf("Close should not return error: %v", err)
	}
}

func TestWebhookNotifier_Notify(t *testing.T) {
	var received waves.MembershipEvent
	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Test-Token")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("Failed to decode event: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier("test-webhook", server.URL)
	notifier.SetHeader("X-Test-Token", "secret")

	event := testEvent(t)
	if err := notifier.Notify(context.Background(), event); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if received.ModelID != event.ModelID {
		t.Errorf("Expected model ID %s, got %s", event.ModelID, received.ModelID)
	}
	if received.Change != waves.WaveAdded {
		t.Errorf("Expected change %s, got %s", waves.WaveAdded, received.Change)
	}
	if gotHeader != "secret" {
		t.Errorf("Expected custom header 'secret', got '%s'", gotHeader)
	}
}

func TestWebhookNotifier_NotifyErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier("test-webhook", server.URL)
	if err := notifier.Notify(context.Background(), testEvent(t)); err == nil {
		t.Error("Expected error for 500 response, got nil")
	}
}
