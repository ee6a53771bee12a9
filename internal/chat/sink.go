package chat

import "context"

// Sink is one configured chat backend. Implementations must be safe for
// concurrent use; the broadcaster fans out to all sinks at once.
type Sink interface {
	// Name identifies the sink in logs and delivery stats.
	Name() string
	// Send delivers a message without attachment.
	Send(ctx context.Context, msg *Message) error
	// SendWithImage delivers a message with an image attached. Sinks that
	// cannot attach media send the message and drop the image.
	SendWithImage(ctx context.Context, msg *Message, att *Attachment) error
}
