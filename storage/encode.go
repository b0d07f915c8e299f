package storage

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	encOpts := cbor.CoreDetEncOptions()
	// The default unix-seconds time encoding drops the millisecond
	// component that block hashes are computed over.
	encOpts.Time = cbor.TimeRFC3339Nano
	em, err := encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor encode mode: %v", err))
	}
	cborEncMode = em
}

// EncodeArtifact encodes a row into deterministic CBOR.
func EncodeArtifact(a any) ([]byte, error) {
	data, err := cborEncMode.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return data, nil
}

// DecodeArtifact decodes a CBOR-encoded row into the provided output
// variable.
func DecodeArtifact(data []byte, out any) error {
	if err := cbor.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}
	return nil
}
