package midi

import gomidi "gitlab.com/gomidi/midi/v2"

// FakeSender records messages for tests.
type FakeSender struct {
	Messages []gomidi.Message

	// Err, if set, is returned by Send and nothing is recorded.
	Err error
}

// Send records msg.
func (f *FakeSender) Send(msg gomidi.Message) error {
	if f.Err != nil {
		return f.Err
	}
	f.Messages = append(f.Messages, msg)
	return nil
}
