package chatform

// Role is the message role in a chat. The vocabulary is open: vendor-specific
// roles such as "developer" pass through untouched, and only adapters with an
// explicit mapping rule (e.g. Gemini "model" -> "assistant") rewrite a role.
type Role string

// Well-known chat message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Part is a sealed interface for message parts. Only package types implement
// it via isPart(). Unknown vendor part types decode to RawPart.
type Part interface {
	isPart()
}

// TextPart holds plain text content.
type TextPart struct {
	Content string
	Meta    *Envelope
}

func (TextPart) isPart() {}

// ReasoningPart holds model reasoning (thinking) content. It precedes the
// answer text in part order.
type ReasoningPart struct {
	Content string
	Meta    *Envelope
}

func (ReasoningPart) isPart() {}

// BlobPart holds inline binary content, base64-encoded on the wire.
type BlobPart struct {
	Modality string // e.g. "image", "audio", "document"
	MIMEType string
	Content  string // base64
	Meta     *Envelope
}

func (BlobPart) isPart() {}

// URIPart references external content by URI.
type URIPart struct {
	Modality string
	MIMEType string
	URI      string
	Meta     *Envelope
}

func (URIPart) isPart() {}

// FilePart references provider-hosted content by file id.
type FilePart struct {
	ID       string
	MIMEType string
	Meta     *Envelope
}

func (FilePart) isPart() {}

// ToolCallPart represents a model request to call a tool.
type ToolCallPart struct {
	ID        string // empty for dialects without tool call ids
	Name      string
	Arguments any // decoded JSON value, usually map[string]any
	Meta      *Envelope
}

func (ToolCallPart) isPart() {}

// ToolResultPart is the result of a tool call. ID correlates to a prior
// ToolCallPart.ID within the same exchange; the correlation is advisory and
// never enforced.
type ToolResultPart struct {
	ID      string
	Name    string
	Content any
	IsError bool
	Meta    *Envelope
}

func (ToolResultPart) isPart() {}

// RawPart is the open fallback variant: a part whose type tag is not part of
// the canonical vocabulary. Fields carries the entire original payload minus
// the type tag.
type RawPart struct {
	Type   string
	Fields map[string]any
	Meta   *Envelope
}

func (RawPart) isPart() {}

// Message is a single canonical chat message. Part order is semantically
// meaningful and preserved by every adapter.
type Message struct {
	Role         Role
	Parts        []Part
	Name         string
	FinishReason string
	Meta         *Envelope
}

// Text returns the concatenated content of all text parts.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if t, ok := p.(TextPart); ok {
			out += t.Content
		}
	}
	return out
}

// PartMeta returns the envelope attached to a part, or nil.
func PartMeta(p Part) *Envelope {
	switch x := p.(type) {
	case TextPart:
		return x.Meta
	case ReasoningPart:
		return x.Meta
	case BlobPart:
		return x.Meta
	case URIPart:
		return x.Meta
	case FilePart:
		return x.Meta
	case ToolCallPart:
		return x.Meta
	case ToolResultPart:
		return x.Meta
	case RawPart:
		return x.Meta
	default:
		return nil
	}
}

// WithPartMeta returns a copy of the part with its envelope replaced.
func WithPartMeta(p Part, e *Envelope) Part {
	switch x := p.(type) {
	case TextPart:
		x.Meta = e
		return x
	case ReasoningPart:
		x.Meta = e
		return x
	case BlobPart:
		x.Meta = e
		return x
	case URIPart:
		x.Meta = e
		return x
	case FilePart:
		x.Meta = e
		return x
	case ToolCallPart:
		x.Meta = e
		return x
	case ToolResultPart:
		x.Meta = e
		return x
	case RawPart:
		x.Meta = e
		return x
	default:
		return p
	}
}
