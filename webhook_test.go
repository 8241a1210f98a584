package main

import (
	"sync"
	"testing"
)

func TestParseWebhookEvents(t *testing.T) {
	body := []byte(`{
		"entry": [{
			"changes": [{
				"value": {
					"messages": [
						{"id": "wamid.1", "from": "959123456789", "type": "text", "text": {"body": "AT01"}},
						{"id": "wamid.2", "from": "959123456789", "type": "interactive",
						 "interactive": {"type": "button_reply", "button_reply": {"id": "close", "title": "Closing count"}}},
						{"id": "wamid.3", "from": "959123456789", "type": "interactive",
						 "interactive": {"type": "list_reply", "list_reply": {"id": "chicken-whole", "title": "Whole chicken"}}}
					]
				}
			}]
		}]
	}`)

	events, err := parseWebhookEvents(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].EventId != "wamid.1" || events[0].Text != "AT01" || events[0].ReplyID != "" {
		t.Fatalf("text event mangled: %+v", events[0])
	}
	if events[1].ReplyID != "close" {
		t.Fatalf("button reply id lost: %+v", events[1])
	}
	if events[2].ReplyID != "chicken-whole" {
		t.Fatalf("list reply id lost: %+v", events[2])
	}
}

func TestParseWebhookEventsToleratesStatusCallbacks(t *testing.T) {
	body := []byte(`{"entry": [{"changes": [{"value": {"statuses": [{"id": "wamid.9", "status": "delivered"}]}}]}]}`)
	events, err := parseWebhookEvents(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("status callbacks must produce no events, got %d", len(events))
	}
}

// fakeGate mirrors the admission semantics: exactly one delivery of an event
// id is processed no matter how many times the channel retries it.
type fakeGate struct {
	mu      sync.Mutex
	seen    map[string]bool
	applied int
}

func (g *fakeGate) admit(eventId string, fn func()) {
	g.mu.Lock()
	if g.seen == nil {
		g.seen = map[string]bool{}
	}
	if g.seen[eventId] {
		g.mu.Unlock()
		return
	}
	g.seen[eventId] = true
	g.mu.Unlock()

	fn()

	g.mu.Lock()
	g.applied++
	g.mu.Unlock()
}

func TestDuplicateDeliveryIsProcessedOnce(t *testing.T) {
	g := &fakeGate{}

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.admit("wamid.dup", func() {})
		}()
	}
	wg.Wait()

	if g.applied != 1 {
		t.Fatalf("expected exactly 1 applied delivery, got %d", g.applied)
	}
}
