package strategy

// EventType names the kind of mutation that produced an Event.
type EventType string

const (
	EventParams   EventType = "params"
	EventFactors  EventType = "factors"
	EventReset    EventType = "reset"
	EventRunning  EventType = "running"
	EventFinished EventType = "finished"
)

// Event is pushed to subscribers after every store mutation.
type Event struct {
	Type  EventType `json:"type"`
	State State     `json:"state"`
}

// Subscribe returns a channel that receives events. bufSize controls the
// channel buffer; slow consumers will have events dropped.
func (s *Store) Subscribe(bufSize int) (int, <-chan Event) {
	ch := make(chan Event, bufSize)
	s.subsMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = ch
	s.subsMu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Store) Unsubscribe(id int) {
	s.subsMu.Lock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
	s.subsMu.Unlock()
}

// publish snapshots the store and sends the event to all subscribers
// without blocking.
func (s *Store) publish(t EventType) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if len(s.subs) == 0 {
		return
	}
	e := Event{Type: t, State: s.Snapshot()}
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
