package syncer

import "sync"

// Subscription delivers state changes. Only the newest state is buffered:
// a subscriber that falls behind skips intermediate states.
type Subscription struct {
	c    *Controller
	ch   chan State
	once sync.Once
}

// Subscribe registers a subscriber. The current state is delivered first.
// On a closed controller the channel holds that state and is already closed.
func (c *Controller) Subscribe() *Subscription {
	sub := &Subscription{c: c, ch: make(chan State, 1)}

	c.mu.Lock()
	defer c.mu.Unlock()
	sub.ch <- c.state.clone()
	if c.closed {
		close(sub.ch)
		return sub
	}
	c.subs[sub] = struct{}{}
	return sub
}

// Updates returns the channel of states. It is closed by Close or when the
// controller is closed.
func (s *Subscription) Updates() <-chan State {
	return s.ch
}

// Close unregisters the subscription
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.c.mu.Lock()
		defer s.c.mu.Unlock()
		if _, ok := s.c.subs[s]; ok {
			delete(s.c.subs, s)
			close(s.ch)
		}
	})
}

// publishLocked hands the current state to every subscriber, replacing any
// state they have not read yet. Sends never block: publishers hold c.mu, so
// after the drain the buffer has room.
func (c *Controller) publishLocked() {
	snap := c.state.clone()
	for sub := range c.subs {
		select {
		case <-sub.ch:
		default:
		}
		sub.ch <- snap.clone()
	}
}
