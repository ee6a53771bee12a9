package chat

import "time"

// Colors used for notification accents, as 0xRRGGBB.
const (
	ColorRed    = 0xFF0000
	ColorGreen  = 0x00FF00
	ColorBlue   = 0x0000FF
	ColorYellow = 0xFFFF00
	ColorPurple = 0x800080
	ColorOrange = 0xFFA500
	ColorCyan   = 0x00FFFF
	ColorGray   = 0x808080
)

// Field is one labeled value inside a rich message.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Message is the backend-neutral notification. Each sink renders it with
// whatever fidelity its protocol allows; sinks without rich formatting
// flatten it to text.
type Message struct {
	Title     string
	Body      string
	Color     int
	Fields    []Field
	Footer    string
	Timestamp time.Time
}

// Attachment is an optional image payload sent alongside a message.
type Attachment struct {
	Data     []byte
	Filename string
	MIME     string
}

// PlainText flattens a rich message for text-only transports.
func (m *Message) PlainText() string {
	out := m.Title
	if m.Body != "" {
		if out != "" {
			out += "\n"
		}
		out += m.Body
	}
	for _, f := range m.Fields {
		out += "\n" + f.Name + ": " + f.Value
	}
	if m.Footer != "" {
		out += "\n" + m.Footer
	}
	return out
}
