package ledger

import "sync"

// claims tracks event ids currently being handled in this process.
type claims struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newClaims() *claims {
	return &claims{ids: make(map[string]struct{})}
}

func (c *claims) acquire(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.ids[id]; busy {
		return false
	}
	c.ids[id] = struct{}{}
	return true
}

func (c *claims) release(id string) {
	c.mu.Lock()
	delete(c.ids, id)
	c.mu.Unlock()
}
