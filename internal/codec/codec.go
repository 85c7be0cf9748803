// Package codec implements spec.md §4.1: dictionary-assisted
// compression and decompression of multicast payloads under a hard
// size cap, grounded on
// _examples/original_source/.../atak_module/utils/cot_zstd_compressor.py
// and cot_zstd_decompressor.py, which use Python's zstandard bindings
// with a pre-trained dictionary and a 350-byte cap. klauspost/compress
// is the teacher's declared (if previously unused) zstd dependency.
package codec

import (
	"os"

	"github.com/klauspost/compress/zstd"
)

// Codec compresses and decompresses payloads against one immutable,
// pre-trained dictionary loaded once at construction — "the dictionary
// as an immutable resource owned by the Codec instance" per spec.md §9.
type Codec struct {
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
	maxBytes int
}

// New loads dictData (may be nil for no dictionary) and builds a Codec
// that compresses at level and rejects outputs larger than maxBytes.
func New(dictData []byte, level, maxBytes int) (*Codec, error) {
	encOpts := []zstd.EOption{zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level))}
	decOpts := []zstd.DOption{}
	if len(dictData) > 0 {
		encOpts = append(encOpts, zstd.WithEncoderDict(dictData))
		decOpts = append(decOpts, zstd.WithDecoderDicts(dictData))
	}

	enc, err := zstd.NewWriter(nil, encOpts...)
	if err != nil {
		return nil, newCodecError("new", err)
	}
	dec, err := zstd.NewReader(nil, decOpts...)
	if err != nil {
		enc.Close()
		return nil, newCodecError("new", err)
	}

	return &Codec{encoder: enc, decoder: dec, maxBytes: maxBytes}, nil
}

// NewFromFile is a convenience constructor that loads the dictionary
// from disk. An empty path means "no dictionary".
func NewFromFile(dictPath string, level, maxBytes int) (*Codec, error) {
	var dictData []byte
	if dictPath != "" {
		data, err := os.ReadFile(dictPath)
		if err != nil {
			return nil, newCodecError("load dictionary", err)
		}
		dictData = data
	}
	return New(dictData, level, maxBytes)
}

// Compress returns the compressed form of payload. It neither mutates
// payload nor retains a reference to it. Returns ErrSizeExceeded if the
// compressed output would exceed maxBytes, or ErrCompressFailed on any
// other encoder error — the caller is expected to drop the payload and
// continue, per spec.md §4.1 and §7.
func (c *Codec) Compress(payload []byte) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, ErrCompressFailed
		}
	}()

	compressed := c.encoder.EncodeAll(payload, make([]byte, 0, len(payload)))
	if len(compressed) > c.maxBytes {
		return nil, ErrSizeExceeded
	}
	return compressed, nil
}

// Decompress reverses Compress. Returns ErrDecompressFailed if the
// input is not a valid frame for this Codec's dictionary.
func (c *Codec) Decompress(compressed []byte) ([]byte, error) {
	decompressed, err := c.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, ErrDecompressFailed
	}
	return decompressed, nil
}

// Close releases the encoder/decoder's background resources.
func (c *Codec) Close() {
	c.encoder.Close()
	c.decoder.Close()
}
