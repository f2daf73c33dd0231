package ws

// Registry tracks up to MaxClients clients in registration order.
type Registry struct {
	clients [MaxClients]*Client
	count   int
	nextID  uint64
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	return r.count
}

// Accept registers a stream. At capacity it returns ErrAtCapacity
// and the registry is unchanged.
func (r *Registry) Accept(stream Stream, name string, requireMask bool) (*Client, error) {
	if r.count >= MaxClients {
		return nil, ErrAtCapacity
	}
	r.nextID++
	c := newClient(r.nextID, stream, name, requireMask)
	r.clients[r.count] = c
	r.count++
	return c, nil
}

// Remove unregisters the client and closes its stream. It returns
// false if the client was already removed.
func (r *Registry) Remove(c *Client) bool {
	for i := 0; i < r.count; i++ {
		if r.clients[i] == c {
			copy(r.clients[i:r.count], r.clients[i+1:r.count])
			r.count--
			r.clients[r.count] = nil
			c.close()
			return true
		}
	}
	return false
}

// ForEach calls fn for each client in registration order until fn
// returns false. fn may remove clients; removed clients are skipped.
func (r *Registry) ForEach(fn func(*Client) bool) {
	snapshot := r.clients
	n := r.count
	for i := 0; i < n; i++ {
		if c := snapshot[i]; c.registered {
			if !fn(c) {
				return
			}
		}
	}
}
