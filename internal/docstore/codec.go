package docstore

import (
	"encoding/binary"
	"encoding/json"
	"math"
)

// encodeVector serializes a vector as a sequence of little-endian float32s,
// the "vectors" sub-store's on-disk format.
func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, f := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector decodes a little-endian float32 sequence, processing exact
// 4-byte chunks and silently dropping a trailing partial chunk (treated as
// corruption that a reader tolerates rather than fails on).
func decodeVector(data []byte) []float32 {
	n := len(data) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

// metadataBatch is the per-document columnar side-record stored in the
// "metadata" sub-store: a minimal (id, text) record, JSON-encoded. It is
// kept in sync with docs on every insert/update/delete and is not itself
// read back by any operation — docs remains authoritative.
type metadataBatch struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func encodeMetadataBatch(id, text string) ([]byte, error) {
	return json.Marshal(metadataBatch{ID: id, Text: text})
}
