package ingest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

func TestExtractHeadersJSON_LastWriterWins(t *testing.T) {
	headers := []kgo.RecordHeader{
		{Key: "a", Value: []byte("1")},
		{Key: "b", Value: []byte("2")},
		{Key: "a", Value: []byte("3")},
	}

	raw, err := ExtractHeadersJSON(headers)
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, map[string]string{"a": "3", "b": "2"}, out)
}

func TestExtractHeadersJSON_NoHeaders(t *testing.T) {
	raw, err := ExtractHeadersJSON(nil)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestExtractHeadersJSON_InvalidUTF8IsBase64Encoded(t *testing.T) {
	invalid := []byte{0xff, 0xfe, 0xfd}
	raw, err := ExtractHeadersJSON([]kgo.RecordHeader{{Key: "bin", Value: invalid}})
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, base64Prefix+"//79", out["bin"])
}
