package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/skosovsky/chatform"
)

// ErrInvalid reports a profile that parsed but failed validation.
var ErrInvalid = errors.New("profile: invalid translation profile")

// fileProfile is the YAML profile shape.
type fileProfile struct {
	From          string   `yaml:"from"`
	To            string   `yaml:"to"`
	Direction     string   `yaml:"direction"`
	MetadataMode  string   `yaml:"metadata_mode"`
	System        string   `yaml:"system"`
	InferPriority []string `yaml:"infer_priority"`
}

// Profile is a reusable translation configuration: which dialects to convert
// between, the direction, and how to treat preserved metadata.
type Profile struct {
	From          string
	To            string
	Direction     chatform.Direction
	Mode          chatform.MetadataMode
	System        string
	InferPriority []string
}

// ParseBytes parses a YAML profile.
func ParseBytes(data []byte) (*Profile, error) {
	var f fileProfile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return buildProfile(&f)
}

// ParseFile reads and parses a profile file.
func ParseFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is validated by caller
	if err != nil {
		return nil, fmt.Errorf("profile: read file: %w", err)
	}
	return ParseBytes(data)
}

// ParseFS reads and parses a profile from fs.FS (e.g. embed.FS).
func ParseFS(fsys fs.FS, name string) (*Profile, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("profile: read fs: %w", err)
	}
	return ParseBytes(data)
}

func buildProfile(f *fileProfile) (*Profile, error) {
	if f.To == "" {
		return nil, fmt.Errorf("%w: missing to", ErrInvalid)
	}
	p := &Profile{
		From:          f.From,
		To:            f.To,
		System:        f.System,
		InferPriority: f.InferPriority,
	}
	switch f.Direction {
	case "", string(chatform.DirectionInput):
		p.Direction = chatform.DirectionInput
	case string(chatform.DirectionOutput):
		p.Direction = chatform.DirectionOutput
	default:
		return nil, fmt.Errorf("%w: invalid direction %q", ErrInvalid, f.Direction)
	}
	switch f.MetadataMode {
	case "", string(chatform.ModePreserve):
		p.Mode = chatform.ModePreserve
	case string(chatform.ModeStrip):
		p.Mode = chatform.ModeStrip
	case string(chatform.ModePassthrough):
		p.Mode = chatform.ModePassthrough
	default:
		return nil, fmt.Errorf("%w: invalid metadata_mode %q", ErrInvalid, f.MetadataMode)
	}
	for i, id := range f.InferPriority {
		if id == "" {
			return nil, fmt.Errorf("%w: infer_priority %d is empty", ErrInvalid, i)
		}
	}
	return p, nil
}

// Options renders the profile as per-call translation options. The system
// value is nil when the profile declares none.
func (p *Profile) Options() chatform.Options {
	opts := chatform.Options{
		From:      p.From,
		To:        p.To,
		Direction: p.Direction,
		Mode:      p.Mode,
	}
	if p.System != "" {
		opts.System = p.System
	}
	return opts
}

// TranslatorOptions renders the profile's translator-level settings.
func (p *Profile) TranslatorOptions() []chatform.Option {
	var out []chatform.Option
	if len(p.InferPriority) > 0 {
		out = append(out, chatform.WithInferPriority(p.InferPriority...))
	}
	return out
}
