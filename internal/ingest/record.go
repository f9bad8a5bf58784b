package ingest

import (
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// OwnedRecord is an in-memory snapshot of one consumed message that has
// copied every broker-borrowed byte slice, so it may safely outlive the
// poll buffer.
type OwnedRecord struct {
	Topic       string
	Partition   int32
	Offset      int64
	Timestamp   time.Time
	HeadersJSON []byte // nil means "no headers", binds to SQL NULL
	Key         []byte
	Value       []byte
}

// FromBrokerRecord materializes an OwnedRecord from a kgo.Record. Key and
// Value are copied (never aliased) and default to a non-nil, zero-length
// slice when absent, so they persist as empty byte strings rather than
// NULL.
func FromBrokerRecord(r *kgo.Record) (OwnedRecord, error) {
	ts, err := convertTimestamp(r.Timestamp)
	if err != nil {
		return OwnedRecord{}, fmt.Errorf("record %s[%d]@%d: %w", r.Topic, r.Partition, r.Offset, err)
	}

	headersJSON, err := ExtractHeadersJSON(r.Headers)
	if err != nil {
		return OwnedRecord{}, fmt.Errorf("record %s[%d]@%d: extract headers: %w", r.Topic, r.Partition, r.Offset, err)
	}

	return OwnedRecord{
		Topic:       r.Topic,
		Partition:   r.Partition,
		Offset:      r.Offset,
		Timestamp:   ts,
		HeadersJSON: headersJSON,
		Key:         copyBytes(r.Key),
		Value:       copyBytes(r.Value),
	}, nil
}

// convertTimestamp normalizes the broker-supplied record timestamp to UTC;
// an absent timestamp (the zero Time) substitutes epoch. time.Time has no
// representable-range failure mode here, so this never actually errors;
// the error return is kept so a future stricter conversion has somewhere
// to report it.
func convertTimestamp(t time.Time) (time.Time, error) {
	if t.IsZero() {
		return time.UnixMilli(0).UTC(), nil
	}
	return t.UTC(), nil
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
