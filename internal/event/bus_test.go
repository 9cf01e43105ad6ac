package event

import (
	"testing"
)

func TestSubscribePublish(t *testing.T) {
	bus := NewBus()

	var got []string
	bus.Subscribe("step.started", func(e Event) {
		ev := e.(StepStartedEvent)
		got = append(got, ev.Step)
	})

	bus.Publish(NewStepStartedEvent("run-1", "plan", 0, "agent", "planner"))
	bus.Publish(NewStepStartedEvent("run-1", "review", 1, "team", "reviewers"))
	// Unrelated event type must not reach the handler.
	bus.Publish(NewRunCompletedEvent("run-1", "release", true, 2, ""))

	if len(got) != 2 || got[0] != "plan" || got[1] != "review" {
		t.Errorf("handler saw %v, want [plan review]", got)
	}
}

func TestSubscribeAllSeesEverything(t *testing.T) {
	bus := NewBus()

	var types []string
	bus.SubscribeAll(func(e Event) {
		types = append(types, e.EventType())
	})

	bus.Publish(NewRunStartedEvent("run-1", "release", 3))
	bus.Publish(NewTurnCompletedEvent("run-1", "plan", 0, "alice", "hi"))
	bus.Publish(NewSelectionFailedEvent("run-1", "plan", "reviewers", 1, "garbage"))

	want := []string{"run.started", "turn.completed", "selection.failed"}
	if len(types) != len(want) {
		t.Fatalf("got %d events, want %d", len(types), len(want))
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, types[i], want[i])
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()

	count := 0
	id := bus.Subscribe("run.started", func(Event) { count++ })

	bus.Publish(NewRunStartedEvent("run-1", "w", 1))
	if !bus.Unsubscribe(id) {
		t.Fatal("Unsubscribe should find the subscription")
	}
	bus.Publish(NewRunStartedEvent("run-2", "w", 1))

	if count != 1 {
		t.Errorf("handler called %d times, want 1", count)
	}
	if bus.Unsubscribe(id) {
		t.Error("second Unsubscribe should return false")
	}
}

func TestPanickingHandlerDoesNotBlockOthers(t *testing.T) {
	bus := NewBus()

	bus.Subscribe("run.started", func(Event) { panic("boom") })

	reached := false
	bus.Subscribe("run.started", func(Event) { reached = true })

	bus.Publish(NewRunStartedEvent("run-1", "w", 1))

	if !reached {
		t.Error("second handler should run despite the first panicking")
	}
}

func TestHandlerOrdering(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.SubscribeAll(func(Event) { order = append(order, "wildcard") })
	bus.Subscribe("run.started", func(Event) { order = append(order, "specific") })

	bus.Publish(NewRunStartedEvent("run-1", "w", 1))

	if len(order) != 2 || order[0] != "specific" || order[1] != "wildcard" {
		t.Errorf("dispatch order = %v, want [specific wildcard]", order)
	}
}
