package json

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatTurn struct {
	Message        string `json:"message"`
	IncludeSources *bool  `json:"include_sources,omitempty"`
}

func TestMarshalOmitsUnsetOptionalFields(t *testing.T) {
	data, err := Marshal(chatTurn{Message: "Draft release notes"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"Draft release notes"}`, string(data))
}

func TestUnmarshalIntoInterfaceUsesFloat64(t *testing.T) {
	var v map[string]any
	require.NoError(t, Unmarshal([]byte(`{"vector_count": 42, "nested": {"a": true}}`), &v))

	assert.Equal(t, float64(42), v["vector_count"])
	assert.Equal(t, map[string]any{"a": true}, v["nested"])
}

func TestUnmarshalRejectsInvalidInput(t *testing.T) {
	var v map[string]any
	assert.Error(t, Unmarshal([]byte("<html>bad gateway</html>"), &v))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid([]byte(`{"detail":"x"}`)))
	assert.False(t, Valid([]byte(`{"detail":`)))
}

func TestEncoderIndent(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.SetIndent("", "  ")
	require.NoError(t, enc.Encode(map[string]int{"k": 10}))

	assert.Contains(t, buf.String(), "\n  \"k\": 10")
}
