package ipc

import "testing"

func TestRegistryIDsAreSequential(t *testing.T) {
	r := NewRegistry()
	for want := int64(1); want <= 20; want++ {
		if got := r.Register(func(Response) {}); got != want {
			t.Fatalf("Register = %d, want %d", got, want)
		}
	}
	if r.Len() != 20 {
		t.Errorf("Len = %d, want 20", r.Len())
	}

	// A new connection gets a new registry and starts over.
	if got := NewRegistry().Register(func(Response) {}); got != 1 {
		t.Errorf("fresh registry Register = %d, want 1", got)
	}
}

func TestRegistryResolveOnce(t *testing.T) {
	r := NewRegistry()
	calls := map[string]int{}
	a := r.Register(func(Response) { calls["a"]++ })
	b := r.Register(func(Response) { calls["b"]++ })

	if !r.Resolve(Response{ID: b, Error: "success"}) {
		t.Fatal("Resolve returned false for a pending id")
	}
	if r.Resolve(Response{ID: b, Error: "success"}) {
		t.Error("second Resolve for the same id returned true")
	}

	if calls["a"] != 0 || calls["b"] != 1 {
		t.Errorf("calls = %v, want only b once", calls)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}

	r.Cancel(a)
	if r.Resolve(Response{ID: a}) {
		t.Error("Resolve after Cancel returned true")
	}
	if calls["a"] != 0 {
		t.Error("cancelled callback was invoked")
	}
}

func TestRegistryIgnoresStrayIDs(t *testing.T) {
	r := NewRegistry()
	if r.Resolve(Response{ID: 42}) {
		t.Error("Resolve returned true for an unknown id")
	}
	if r.Resolve(Response{ID: 0}) {
		t.Error("Resolve returned true for id 0")
	}
}
