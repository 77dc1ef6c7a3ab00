package ipc

// Registry maps correlation ids to one-shot response callbacks. Ids start
// at 1 and are scoped to a single connection.
type Registry struct {
	next    int64
	pending map[int64]ResponseFunc
}

// NewRegistry returns an empty registry whose first id is 1.
func NewRegistry() *Registry {
	return &Registry{pending: make(map[int64]ResponseFunc)}
}

// Register stores cb and returns its correlation id.
func (r *Registry) Register(cb ResponseFunc) int64 {
	r.next++
	r.pending[r.next] = cb
	return r.next
}

// Take removes and returns the callback for id.
func (r *Registry) Take(id int64) (ResponseFunc, bool) {
	cb, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	return cb, ok
}

// Resolve invokes and removes the callback registered for resp.ID. Unknown
// ids are ignored. Client uses Take instead so the callback runs after its
// lock is released.
func (r *Registry) Resolve(resp Response) bool {
	cb, ok := r.Take(resp.ID)
	if !ok {
		return false
	}
	if cb != nil {
		cb(resp)
	}
	return true
}

// Cancel forgets a pending id without invoking its callback.
func (r *Registry) Cancel(id int64) {
	delete(r.pending, id)
}

// Len returns the number of outstanding requests.
func (r *Registry) Len() int {
	return len(r.pending)
}
