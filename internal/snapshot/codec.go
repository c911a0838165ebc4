package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

var ErrUnknownFormat = errors.New("unknown snapshot format")

// Every encoded snapshot starts with magic followed by one compression byte.
var magic = []byte("SCO1")

var compressionTags = map[Compression]byte{
	CompressionNone: 0,
	CompressionZstd: 1,
	CompressionLZ4:  2,
}

func ParseCompression(s string) (Compression, error) {
	c := Compression(s)
	if _, ok := compressionTags[c]; !ok {
		return "", fmt.Errorf("unknown compression %q", s)
	}
	return c, nil
}

// Codec turns snapshots into bytes and back. Decode detects the compression
// from the header, so a codec reads everything any codec wrote.
type Codec struct {
	compression Compression
	encoder     *zstd.Encoder
	decoder     *zstd.Decoder
}

func NewCodec(compression Compression) (*Codec, error) {
	if _, ok := compressionTags[compression]; !ok {
		return nil, fmt.Errorf("unknown compression %q", compression)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Codec{compression: compression, encoder: enc, decoder: dec}, nil
}

func (c *Codec) Compression() Compression {
	return c.compression
}

func (c *Codec) Encode(s *Snapshot) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	out := bytes.NewBuffer(make([]byte, 0, len(raw)/2+len(magic)+1))
	out.Write(magic)
	out.WriteByte(compressionTags[c.compression])

	switch c.compression {
	case CompressionNone:
		out.Write(raw)
	case CompressionZstd:
		out.Write(c.encoder.EncodeAll(raw, nil))
	case CompressionLZ4:
		zw := lz4.NewWriter(out)
		if _, err := zw.Write(raw); err != nil {
			return nil, fmt.Errorf("lz4 write: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("lz4 close: %w", err)
		}
	}
	return out.Bytes(), nil
}

func (c *Codec) Decode(data []byte) (*Snapshot, error) {
	if len(data) < len(magic)+1 || !bytes.Equal(data[:len(magic)], magic) {
		return nil, ErrUnknownFormat
	}
	tag, payload := data[len(magic)], data[len(magic)+1:]

	var raw []byte
	var err error
	switch tag {
	case compressionTags[CompressionNone]:
		raw = payload
	case compressionTags[CompressionZstd]:
		raw, err = c.decoder.DecodeAll(payload, nil)
	case compressionTags[CompressionLZ4]:
		raw, err = io.ReadAll(lz4.NewReader(bytes.NewReader(payload)))
	default:
		return nil, fmt.Errorf("%w: compression tag %d", ErrUnknownFormat, tag)
	}
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}

	var s Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if s.Version != Version {
		return nil, fmt.Errorf("%w: version %d", ErrUnknownFormat, s.Version)
	}
	return &s, nil
}
