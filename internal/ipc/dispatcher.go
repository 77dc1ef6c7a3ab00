package ipc

// Dispatcher routes events to property observers and named listeners.
// Registering a name twice replaces the earlier callback.
type Dispatcher struct {
	observers map[string]PropertyFunc
	listeners map[string]EventFunc
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		observers: make(map[string]PropertyFunc),
		listeners: make(map[string]EventFunc),
	}
}

// Observe binds cb to property-change events for name.
func (d *Dispatcher) Observe(name string, cb PropertyFunc) {
	d.observers[name] = cb
}

// Unobserve removes the observer for name.
func (d *Dispatcher) Unobserve(name string) {
	delete(d.observers, name)
}

// Listen binds cb to events called name.
func (d *Dispatcher) Listen(name string, cb EventFunc) {
	d.listeners[name] = cb
}

// Targets returns the callbacks an event should reach, observer first.
// Either may be nil.
func (d *Dispatcher) Targets(ev Event) (PropertyFunc, EventFunc) {
	var observer PropertyFunc
	if ev.Name == propertyChangeEvent && ev.Property != "" {
		observer = d.observers[ev.Property]
	}
	return observer, d.listeners[ev.Name]
}

// Dispatch delivers ev to its property observer and then to any listener
// registered for the event name. Unknown names are dropped. Client resolves
// the same order through Targets so callbacks run outside its lock.
func (d *Dispatcher) Dispatch(ev Event) {
	observer, listener := d.Targets(ev)
	if observer != nil {
		observer(ev)
	}
	if listener != nil {
		listener(ev)
	}
}

// Observed returns the names of all observed properties.
func (d *Dispatcher) Observed() []string {
	names := make([]string, 0, len(d.observers))
	for name := range d.observers {
		names = append(names, name)
	}
	return names
}
