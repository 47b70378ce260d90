package checkpoint

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// codecVersion is written with every record so future layouts can be told apart.
const codecVersion = 1

// Codec converts checkpoints to and from their stored byte form.
type Codec interface {
	Encode(cp Checkpoint) ([]byte, error)
	Decode(data []byte) (Checkpoint, error)
}

type record struct {
	Version int `json:"v"`
	Checkpoint
}

// jsonCodec encodes checkpoints as JSON using sonic's std-compatible config,
// which sorts map keys so identical states encode to identical bytes.
type jsonCodec struct{ api sonic.API }

// NewCodec returns the default JSON codec.
func NewCodec() Codec { return jsonCodec{api: sonic.ConfigStd} }

func (c jsonCodec) Encode(cp Checkpoint) ([]byte, error) {
	data, err := c.api.Marshal(record{Version: codecVersion, Checkpoint: cp})
	if err != nil {
		return nil, fmt.Errorf("encode checkpoint %q: %w", cp.SessionID, err)
	}
	return data, nil
}

func (c jsonCodec) Decode(data []byte) (Checkpoint, error) {
	var rec record
	if err := c.api.Unmarshal(data, &rec); err != nil {
		return Checkpoint{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if rec.Version != codecVersion {
		return Checkpoint{}, fmt.Errorf("%w: unsupported record version %d", ErrCorrupt, rec.Version)
	}
	return rec.Checkpoint, nil
}
