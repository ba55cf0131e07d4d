package mqtt

// Published records one outbound message for test assertions.
type Published struct {
	Topic   string
	Payload []byte
}

// FakeClient is a test double implementing Client.
type FakeClient struct {
	// Subscriptions contains every topic filter subscribed to.
	Subscriptions []string

	// Publishes contains all outbound messages.
	Publishes []Published

	// Inbound is returned (and cleared) by the next Drain call.
	Inbound []Message

	// Connected controls IsConnected.
	Connected bool

	// SubscribeError, if set, will be returned by Subscribe.
	SubscribeError error

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// ReconnectError, if set, will be returned by Reconnect.
	ReconnectError error

	// Reconnects counts Reconnect calls.
	Reconnects int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeClient creates a connected FakeClient.
func NewFakeClient() *FakeClient {
	return &FakeClient{Connected: true}
}

// Subscribe records the topic filter.
func (f *FakeClient) Subscribe(topic string) error {
	if f.SubscribeError != nil {
		return f.SubscribeError
	}
	f.Subscriptions = append(f.Subscriptions, topic)
	return nil
}

// Publish records the outbound message.
func (f *FakeClient) Publish(topic string, payload []byte) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Publishes = append(f.Publishes, Published{Topic: topic, Payload: append([]byte(nil), payload...)})
	return nil
}

// Drain returns the queued inbound messages and clears the queue.
func (f *FakeClient) Drain() []Message {
	msgs := f.Inbound
	f.Inbound = nil
	return msgs
}

// Inject queues an inbound message for the next Drain.
func (f *FakeClient) Inject(topic string, payload []byte) {
	f.Inbound = append(f.Inbound, Message{Topic: topic, Payload: payload})
}

// IsConnected reports the scripted connection state.
func (f *FakeClient) IsConnected() bool {
	return f.Connected
}

// Reconnect counts the attempt and applies the scripted outcome.
func (f *FakeClient) Reconnect() error {
	f.Reconnects++
	if f.ReconnectError != nil {
		return f.ReconnectError
	}
	f.Connected = true
	return nil
}

// Close marks the client as closed.
func (f *FakeClient) Close() error {
	f.Closed = true
	return nil
}

// LastPublish returns the most recent outbound message, or nil.
func (f *FakeClient) LastPublish() *Published {
	if len(f.Publishes) == 0 {
		return nil
	}
	return &f.Publishes[len(f.Publishes)-1]
}

// PublishesTo returns all outbound messages for a topic.
func (f *FakeClient) PublishesTo(topic string) []Published {
	var out []Published
	for _, p := range f.Publishes {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}
