package message

import (
	"github.com/ironsheep/pnutterm-ingest/internal/constants"
)

// Record is a pooled, immutable-once-filled message record. The payload
// is copied out of the ring into the record's own fixed backing array
// so the ring's read cursor can advance past the span without a
// consumer racing the producer for the same bytes.
type Record struct {
	Kind      Kind
	Meta      Metadata
	TimestampUs int64 // microseconds since a monotonic epoch

	payload [constants.MaxMessagePayload]byte
	length  int

	// consumers is managed by Pool; Record itself never touches it.
	consumers int32
}

// Payload returns the record's content as a slice over its backing
// array. The slice is only valid until the record is released back to
// the pool.
func (r *Record) Payload() []byte {
	return r.payload[:r.length]
}

// fill copies span into the record's backing array and resets its
// kind/metadata/timestamp. Used exclusively by Pool.Acquire.
func (r *Record) fill(span []byte, kind Kind, meta Metadata, timestampUs int64) {
	n := copy(r.payload[:], span)
	r.length = n
	r.Kind = kind
	r.Meta = meta
	r.TimestampUs = timestampUs
}
