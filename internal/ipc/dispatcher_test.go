package ipc

import "testing"

func TestDispatcherReplacesCallbacks(t *testing.T) {
	d := NewDispatcher()
	var first, second, listenA, listenB int

	d.Observe("pause", func(Event) { first++ })
	d.Observe("pause", func(Event) { second++ })
	d.Listen("seek", func(Event) { listenA++ })
	d.Listen("seek", func(Event) { listenB++ })

	d.Dispatch(Event{Name: "property-change", Property: "pause", Data: true})
	d.Dispatch(Event{Name: "seek"})

	if first != 0 || second != 1 {
		t.Errorf("observer calls = %d/%d, want 0/1", first, second)
	}
	if listenA != 0 || listenB != 1 {
		t.Errorf("listener calls = %d/%d, want 0/1", listenA, listenB)
	}
}

func TestDispatcherPropertyChangeReachesBoth(t *testing.T) {
	d := NewDispatcher()
	var order []string

	d.Observe("volume", func(ev Event) { order = append(order, "observer") })
	d.Listen("property-change", func(ev Event) { order = append(order, "listener") })

	d.Dispatch(Event{Name: "property-change", Property: "volume", Data: 50.0})
	d.Dispatch(Event{Name: "property-change", Property: "mute", Data: false})

	want := []string{"observer", "listener", "listener"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestDispatcherDropsUnknownEvents(t *testing.T) {
	d := NewDispatcher()
	called := false
	d.Observe("pause", func(Event) { called = true })

	d.Dispatch(Event{Name: "client-message"})
	d.Dispatch(Event{Name: "pause"})

	if called {
		t.Error("observer fired for an event that is not a property change")
	}
}

func TestDispatcherUnobserve(t *testing.T) {
	d := NewDispatcher()
	called := false
	d.Observe("pause", func(Event) { called = true })
	d.Unobserve("pause")

	d.Dispatch(Event{Name: "property-change", Property: "pause"})
	if called {
		t.Error("observer fired after Unobserve")
	}
	if len(d.Observed()) != 0 {
		t.Errorf("Observed = %v, want none", d.Observed())
	}
}
