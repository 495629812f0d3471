// Package compress wraps zstd for cache payloads. Payloads are only stored
// compressed when the saving clears a configured threshold, so small or
// incompressible results skip the decompress cost on every hit.
package compress

import (
	"github.com/klauspost/compress/zstd"
	"go.trai.ch/zerr"
)

var (
	// Encoder and decoder are concurrency-safe in EncodeAll/DecodeAll mode
	// and shared process-wide.
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

// Maybe compresses payload and returns the compressed form when it saves at
// least minSaving of the original size. The second return reports whether
// the returned bytes are compressed.
func Maybe(payload []byte, minSaving float64) ([]byte, bool) {
	if len(payload) == 0 {
		return payload, false
	}
	packed := encoder.EncodeAll(payload, make([]byte, 0, len(payload)/2))
	saving := 1 - float64(len(packed))/float64(len(payload))
	if saving < minSaving {
		return payload, false
	}
	return packed, true
}

// Decompress restores a payload previously packed by Maybe.
func Decompress(packed []byte) ([]byte, error) {
	plain, err := decoder.DecodeAll(packed, nil)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to decompress payload")
	}
	return plain, nil
}
