package filecache

import "context"

// ListenerHandle identifies one clear listener registration. The zero value
// never matches a registration.
type ListenerHandle struct {
	id uint64
}

type listener struct {
	id uint64
	fn func(context.Context) error
}

// AddClearListener registers fn to be called after every Clear. Each call
// returns a distinct handle, even when fn was registered before.
func (c *Cache) AddClearListener(fn func(context.Context) error) ListenerHandle {
	c.lmu.Lock()
	defer c.lmu.Unlock()
	c.nextID++
	c.listeners = append(c.listeners, listener{id: c.nextID, fn: fn})
	return ListenerHandle{id: c.nextID}
}

// RemoveClearListener unregisters h. It returns ErrListenerNotFound if h is
// not currently registered, which includes removing it twice.
func (c *Cache) RemoveClearListener(h ListenerHandle) error {
	c.lmu.Lock()
	defer c.lmu.Unlock()
	for i, l := range c.listeners {
		if l.id == h.id {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return nil
		}
	}
	return ErrListenerNotFound
}

func (c *Cache) snapshotListeners() []listener {
	c.lmu.Lock()
	defer c.lmu.Unlock()
	out := make([]listener, len(c.listeners))
	copy(out, c.listeners)
	return out
}
