package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeEmbedding serializes a vector as concatenated little-endian 32-bit
// floats. This byte layout is the on-disk storage format for the SQLite
// backend and must stay stable for cross-implementation compatibility.
func EncodeEmbedding(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeEmbedding parses a little-endian float32 blob. A blob that is empty
// or not a multiple of 4 bytes is treated as corruption, never reinterpreted.
func DecodeEmbedding(blob []byte) ([]float32, error) {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorruptEmbedding, len(blob))
	}
	embedding := make([]float32, len(blob)/4)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return embedding, nil
}
