package profile

import (
	"embed"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/chatform"
)

//go:embed testdata/*.yaml
var testdataFS embed.FS

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestParseBytes_ValidMinimal(t *testing.T) {
	t.Parallel()
	p, err := ParseBytes([]byte("to: gemini\n"))
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "gemini", p.To)
	assert.Empty(t, p.From)
	assert.Equal(t, chatform.DirectionInput, p.Direction)
	assert.Equal(t, chatform.ModePreserve, p.Mode)
}

func TestParseBytes_ValidFull(t *testing.T) {
	t.Parallel()
	data, err := testdataFS.ReadFile("testdata/valid_full.yaml")
	require.NoError(t, err)
	p, err := ParseBytes(data)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "openai", p.From)
	assert.Equal(t, "anthropic", p.To)
	assert.Equal(t, chatform.DirectionInput, p.Direction)
	assert.Equal(t, chatform.ModePassthrough, p.Mode)
	assert.Equal(t, "You are a terse assistant.", p.System)
	assert.Equal(t, []string{"anthropic", "openai", "fallback"}, p.InferPriority)
}

func TestParseBytes_InvalidMissingTo(t *testing.T) {
	t.Parallel()
	data, err := testdataFS.ReadFile("testdata/invalid_missing_to.yaml")
	require.NoError(t, err)
	_, err = ParseBytes(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseBytes_InvalidDirection(t *testing.T) {
	t.Parallel()
	_, err := ParseBytes([]byte("to: openai\ndirection: sideways\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseBytes_InvalidMode(t *testing.T) {
	t.Parallel()
	_, err := ParseBytes([]byte("to: openai\nmetadata_mode: mangle\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseBytes_InvalidBadYAML(t *testing.T) {
	t.Parallel()
	_, err := ParseBytes([]byte("to: x\ninfer_priority: [unclosed"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseBytes_InvalidEmptyPriorityEntry(t *testing.T) {
	t.Parallel()
	_, err := ParseBytes([]byte("to: openai\ninfer_priority:\n  - openai\n  - \"\"\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestProfile_Options(t *testing.T) {
	t.Parallel()
	p, err := ParseFile("testdata/valid_full.yaml")
	require.NoError(t, err)
	opts := p.Options()
	assert.Equal(t, "openai", opts.From)
	assert.Equal(t, "anthropic", opts.To)
	assert.Equal(t, chatform.ModePassthrough, opts.Mode)
	assert.Equal(t, "You are a terse assistant.", opts.System)

	minimal, err := ParseFS(testdataFS, "testdata/valid_minimal.yaml")
	require.NoError(t, err)
	assert.Nil(t, minimal.Options().System)
}

func TestProfile_TranslatorOptions(t *testing.T) {
	t.Parallel()
	p, err := ParseFS(testdataFS, "testdata/valid_full.yaml")
	require.NoError(t, err)
	assert.Len(t, p.TranslatorOptions(), 1)

	minimal, err := ParseBytes([]byte("to: openai\n"))
	require.NoError(t, err)
	assert.Empty(t, minimal.TranslatorOptions())
}
