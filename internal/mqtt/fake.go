package mqtt

import "github.com/sweeney/measure-sync/internal/logic"

// FakePublisher is an in-memory Publisher. It renders every message with
// the same formatters as the real publisher, so tests can assert on exact
// payloads without a broker.
type FakePublisher struct {
	Events   []MeasureEvent
	Payloads [][]byte
	Topics   []string // topic of every accepted message, in publish order

	SystemEvents   []SystemEvent
	SystemPayloads [][]byte

	// PublishError fails measure publishes; PublishSystemError fails
	// system publishes. Nothing is recorded for a failed publish.
	PublishError       error
	PublishSystemError error

	Closed    bool
	Connected bool
}

// NewFakePublisher returns an empty FakePublisher.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) Publish(event MeasureEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	f.Topics = append(f.Topics, Topic)
	return nil
}

func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	f.Topics = append(f.Topics, TopicSystem)
	return nil
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Types returns the type of every recorded measure event.
func (f *FakePublisher) Types() []logic.EventType {
	out := make([]logic.EventType, len(f.Events))
	for i, e := range f.Events {
		out[i] = e.Event.Type
	}
	return out
}

// Sessions returns the distinct non-empty session ids in first-seen order.
func (f *FakePublisher) Sessions() []string {
	var out []string
	seen := make(map[string]bool)
	for _, e := range f.Events {
		if e.Session == "" || seen[e.Session] {
			continue
		}
		seen[e.Session] = true
		out = append(out, e.Session)
	}
	return out
}

// Reset forgets everything recorded and clears injected errors.
func (f *FakePublisher) Reset() {
	*f = FakePublisher{}
}
