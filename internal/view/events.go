package view

// EventType identifies a change of the rendered conversation.
type EventType string

const (
	EventRowAppended  EventType = "row_appended"
	EventCleared      EventType = "cleared"
	EventTyping       EventType = "typing"
	EventImageSwapped EventType = "image_swapped"
	EventInput        EventType = "input"
	EventSpeaking     EventType = "speaking"
	EventListening    EventType = "listening"
)

// Event is published to subscribers after every change.
type Event struct {
	Type       EventType `json:"type"`
	Row        *Row      `json:"row,omitempty"`
	Typing     bool      `json:"typing,omitempty"`
	Input      string    `json:"input,omitempty"`
	ImageIndex int       `json:"image_index,omitempty"`
	Trigger    string    `json:"trigger,omitempty"`
	Active     bool      `json:"active,omitempty"`
}

const subscriberBuffer = 64

// Subscribe registers a listener. The returned cancel func unregisters it and
// closes the channel. Slow subscribers miss events rather than block the view.
func (c *Conversation) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	c.mu.Lock()
	id := c.nextSu
	c.nextSu++
	c.subs[id] = ch
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *Conversation) publishLocked(ev Event) {
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SetSpeaking publishes the playing state of a speaker control.
func (c *Conversation) SetSpeaking(trigger string, playing bool) {
	c.mu.Lock()
	c.publishLocked(Event{Type: EventSpeaking, Trigger: trigger, Active: playing})
	c.mu.Unlock()
}

// SetListening publishes the state of the microphone control.
func (c *Conversation) SetListening(listening bool) {
	c.mu.Lock()
	c.publishLocked(Event{Type: EventListening, Active: listening})
	c.mu.Unlock()
}
