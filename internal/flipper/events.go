package flipper

// EventType names a flipper event raised to the game logic layer.
type EventType string

const (
	EventHit      EventType = "hit"
	EventCollide  EventType = "collide"
	EventLimitEOS EventType = "limit_eos"
	EventLimitBOS EventType = "limit_bos"
)

// Event is queued by the flipper and drained by the table once per tick.
type Event struct {
	Type      EventType `json:"type" msgpack:"type"`
	FlipperID int       `json:"flipper_id" msgpack:"flipper_id"`
	BallID    int       `json:"ball_id,omitempty" msgpack:"ball_id"`
	Speed     float64   `json:"speed,omitempty" msgpack:"speed"`
	TimeMs    int64     `json:"time_ms" msgpack:"time_ms"`
}

func (f *Flipper) emit(ev Event) {
	ev.FlipperID = f.ID
	f.events = append(f.events, ev)
}

// DrainEvents returns the queued events and clears the queue.
func (f *Flipper) DrainEvents() []Event {
	if len(f.events) == 0 {
		return nil
	}
	out := f.events
	f.events = nil
	return out
}
