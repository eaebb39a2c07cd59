package chatform

// Direction says whether a message list is input to a model or output from
// one. It picks the default role for bare-string shorthand input.
type Direction string

// Translation directions.
const (
	DirectionInput  Direction = "input"  // bare string -> user message
	DirectionOutput Direction = "output" // bare string -> assistant message
)

// ShorthandRole returns the role a bare-string message takes for this
// direction. The zero value behaves as DirectionInput.
func (d Direction) ShorthandRole() Role {
	if d == DirectionOutput {
		return RoleAssistant
	}
	return RoleUser
}

// MetadataMode controls how preserved vendor metadata is rendered in adapter
// output.
type MetadataMode string

// Metadata modes.
const (
	// ModeStrip discards the opaque bag and emits no metadata container.
	// Known fields remain usable internally to rebuild required vendor fields.
	ModeStrip MetadataMode = "strip"
	// ModePreserve (default) emits one metadata container field holding the
	// normalized envelope.
	ModePreserve MetadataMode = "preserve"
	// ModePassthrough spreads opaque fields onto the output entity as
	// top-level fields.
	ModePassthrough MetadataMode = "passthrough"
)

// KeyStyle is the metadata key-naming convention a target adapter writes.
// Both styles are accepted on read regardless of the writer.
type KeyStyle int

// Key styles.
const (
	SnakeKeys KeyStyle = iota // modern: container "metadata", keys "tool_name"
	CamelKeys                 // legacy: container "extraData", keys "toolName"
)

// Adapter converts one provider dialect into canonical messages. Input may be
// a bare string (shorthand for a single message), a decoded JSON value, or
// raw JSON bytes. Implementations validate input against their own schema and
// route every vendor field they do not model through the metadata envelope.
type Adapter interface {
	// ID is the stable provider identifier, e.g. "openai".
	ID() string
	// SupportsSystem reports whether the provider accepts separated system
	// instructions distinct from in-band system messages.
	SupportsSystem() bool
	// ToCanonical validates input and converts it. system is only passed to
	// adapters whose SupportsSystem is true.
	ToCanonical(input, system any, dir Direction) ([]Message, error)
}

// Emitter is implemented by adapters that can render canonical messages back
// into the provider shape. Ingestion-only adapters omit it.
type Emitter interface {
	Adapter
	// FromCanonical renders messages in the provider shape, applying the
	// metadata mode to every entity it emits.
	FromCanonical(msgs []Message, dir Direction, mode MetadataMode) (*Output, error)
}

// Output is a provider-shaped translation result. System is set only by
// adapters that separate system instructions out of the message list.
type Output struct {
	Messages any
	System   any
}
