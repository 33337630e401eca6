package broker

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/vortex-fintech/payments-ledger/internal/broker/franzgo"
)

func TestTopicFor(t *testing.T) {
	p := NewPublisher(&franzgo.Client{}, "payments")

	cases := []struct {
		eventType string
		want      string
		wantErr   bool
	}{
		{EventPaymentAuthorized, "payments.paymentauthorized", false},
		{EventPaymentDeclined, "payments.paymentdeclined", false},
		{"SomethingElse", "", true},
	}
	for _, c := range cases {
		got, err := p.topicFor(c.eventType)
		if c.wantErr {
			if err == nil {
				t.Fatalf("expected error for event type %q", c.eventType)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != c.want {
			t.Fatalf("topicFor(%q) = %q, want %q", c.eventType, got, c.want)
		}
	}
}

func TestDeadLetterEnvelope_WrapsOriginal(t *testing.T) {
	env := Envelope{
		EventID:       "01EVT",
		AggregateType: "Payment",
		AggregateID:   "01PAY",
		EventType:     EventPaymentAuthorized,
		Payload:       json.RawMessage(`{"amount_minor":100}`),
		Timestamp:     time.Now().UTC(),
	}
	dl := DeadLetterEnvelope{
		Envelope:   env,
		RetryCount: 5,
		FailedAt:   time.Now().UTC(),
		Error:      "max_retries_exceeded",
	}

	b, err := json.Marshal(dl)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["event_id"] != "01EVT" {
		t.Fatalf("expected wrapped envelope fields to surface, got %v", decoded)
	}
	if decoded["error"] != "max_retries_exceeded" {
		t.Fatalf("expected error field, got %v", decoded)
	}
	if decoded["retry_count"].(float64) != 5 {
		t.Fatalf("expected retry_count=5, got %v", decoded["retry_count"])
	}
}
