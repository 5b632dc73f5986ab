package core

import "testing"

func TestEventHub_PublishToSessionSubscribers(t *testing.T) {
	hub := NewEventHub()
	a1, cancelA1 := hub.Subscribe("a")
	a2, cancelA2 := hub.Subscribe("a")
	b, cancelB := hub.Subscribe("b")
	defer cancelA1()
	defer cancelA2()
	defer cancelB()

	ev := Event{Screen: "vendors", Key: "vendors:page=1", Reason: ReasonParams}
	if n := hub.Publish("a", ev); n != 2 {
		t.Fatalf("delivered = %d, want 2", n)
	}
	if got := <-a1; got != ev {
		t.Errorf("a1 got %+v", got)
	}
	if got := <-a2; got != ev {
		t.Errorf("a2 got %+v", got)
	}
	select {
	case got := <-b:
		t.Errorf("b got %+v", got)
	default:
	}
}

func TestEventHub_CancelClosesOnce(t *testing.T) {
	hub := NewEventHub()
	ch, cancel := hub.Subscribe("a")
	if hub.Subscribers("a") != 1 {
		t.Fatalf("subscribers = %d, want 1", hub.Subscribers("a"))
	}

	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("channel still open after cancel")
	}
	if hub.Subscribers("a") != 0 {
		t.Errorf("subscribers = %d after cancel, want 0", hub.Subscribers("a"))
	}
	if n := hub.Publish("a", Event{Reason: ReasonRefreshed}); n != 0 {
		t.Errorf("delivered = %d to cancelled subscriber", n)
	}
}

func TestEventHub_SlowSubscriberDropsEvents(t *testing.T) {
	hub := NewEventHub()
	_, cancel := hub.Subscribe("a")
	defer cancel()

	for i := 0; i < eventBuffer; i++ {
		if n := hub.Publish("a", Event{Reason: ReasonRefreshed}); n != 1 {
			t.Fatalf("publish %d delivered %d, want 1", i, n)
		}
	}
	if n := hub.Publish("a", Event{Reason: ReasonRefreshed}); n != 0 {
		t.Errorf("publish into a full buffer delivered %d, want 0", n)
	}
}
