package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cbodonnell/menagerie/pkg/game/types"
	"github.com/klauspost/compress/zstd"
)

// zstdMagic prefixes every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

// Encode turns a record into the bytes written to storage: JSON compressed
// with zstd.
func Encode(record *Record) ([]byte, error) {
	b, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return encoder.EncodeAll(b, nil), nil
}

// Decode reads a record from storage bytes. Uncompressed JSON records are
// accepted as well.
func Decode(data []byte) (*Record, error) {
	if bytes.HasPrefix(data, zstdMagic) {
		decompressed, err := decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, corrupt("failed to decompress record", err)
		}
		data = decompressed
	}
	record := &Record{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, corrupt("record is not valid JSON", err)
	}
	return record, nil
}

// EncodeState serializes and encodes the state in one step.
func EncodeState(state *types.GameState) ([]byte, error) {
	record, err := Serialize(state)
	if err != nil {
		return nil, err
	}
	return Encode(record)
}

// DecodeState decodes and deserializes stored bytes in one step.
func DecodeState(data []byte) (*types.GameState, error) {
	record, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Deserialize(record)
}
