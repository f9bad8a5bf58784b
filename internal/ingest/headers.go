package ingest

import (
	"encoding/base64"
	"encoding/json"
	"unicode/utf8"

	"github.com/twmb/franz-go/pkg/kgo"
)

// base64Prefix flags a header value that was not valid UTF-8 and was
// therefore base64-encoded instead of decoded directly.
const base64Prefix = "base64:"

// ExtractHeadersJSON converts a broker header list into a JSON object,
// last-writer-wins on duplicate names. A nil slice (no headers at all)
// yields a nil result, which binds to SQL NULL.
func ExtractHeadersJSON(headers []kgo.RecordHeader) ([]byte, error) {
	if len(headers) == 0 {
		return nil, nil
	}

	obj := make(map[string]string, len(headers))
	for _, h := range headers {
		obj[h.Key] = encodeHeaderValue(h.Value)
	}

	return json.Marshal(obj)
}

func encodeHeaderValue(v []byte) string {
	if utf8.Valid(v) {
		return string(v)
	}
	return base64Prefix + base64.StdEncoding.EncodeToString(v)
}
