package wsloop

// registry is the authoritative set of connected clients. The event
// loop is single threaded, so the registry carries no locking and
// must only be touched from the loop's goroutine.
//
// Insertion order is kept so the poll set has a stable layout from
// one iteration to the next.
type registry struct {
	clients map[ConnID]*Client
	order   []*Client
}

func newRegistry() *registry {
	return &registry{clients: make(map[ConnID]*Client)}
}

func (r *registry) add(c *Client) {
	if _, ok := r.clients[c.ID]; ok {
		return
	}
	r.clients[c.ID] = c
	r.order = append(r.order, c)
}

// remove is idempotent: removing an absent id is a no-op.
func (r *registry) remove(id ConnID) {
	if _, ok := r.clients[id]; !ok {
		return
	}
	delete(r.clients, id)
	for i, c := range r.order {
		if c.ID == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *registry) get(id ConnID) (*Client, bool) {
	c, ok := r.clients[id]
	return c, ok
}

// list returns a snapshot; mutating the registry afterwards does not
// affect it.
func (r *registry) list() []*Client {
	return append([]*Client(nil), r.order...)
}

func (r *registry) len() int {
	return len(r.clients)
}
