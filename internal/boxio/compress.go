package boxio

import (
	"fmt"
	"sync"

	"github.com/banshee-data/mdspace/internal/config"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Block codec ids stored in the first byte of every block.
const (
	codecNone byte = iota
	codecZstd
	codecLZ4
)

var zstdEncoderPool = sync.Pool{
	New: func() any {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderCRC(false))
		if err != nil {
			panic(fmt.Sprintf("failed to create zstd encoder for pool: %v", err))
		}
		return enc
	},
}

var zstdDecoderPool = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			panic(fmt.Sprintf("failed to create zstd decoder for pool: %v", err))
		}
		return dec
	},
}

var lz4CompressorPool = sync.Pool{
	New: func() any { return &lz4.Compressor{} },
}

func codecFor(compression string) (byte, error) {
	switch compression {
	case "", config.CompressionNone:
		return codecNone, nil
	case config.CompressionZstd:
		return codecZstd, nil
	case config.CompressionLZ4:
		return codecLZ4, nil
	}
	return 0, fmt.Errorf("unknown compression %q", compression)
}

// compressBlock returns the codec actually used and the payload. Data LZ4
// cannot shrink is stored raw.
func compressBlock(codec byte, raw []byte) (byte, []byte, error) {
	switch codec {
	case codecZstd:
		enc := zstdEncoderPool.Get().(*zstd.Encoder)
		defer zstdEncoderPool.Put(enc)
		return codecZstd, enc.EncodeAll(raw, nil), nil
	case codecLZ4:
		lc := lz4CompressorPool.Get().(*lz4.Compressor)
		defer lz4CompressorPool.Put(lc)
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lc.CompressBlock(raw, dst)
		if err != nil {
			return 0, nil, err
		}
		if n == 0 {
			return codecNone, raw, nil
		}
		return codecLZ4, dst[:n], nil
	}
	return codecNone, raw, nil
}

func decompressBlock(codec byte, payload []byte, rawLen int) ([]byte, error) {
	switch codec {
	case codecNone:
		return payload, nil
	case codecZstd:
		dec := zstdDecoderPool.Get().(*zstd.Decoder)
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(payload, make([]byte, 0, rawLen))
		if err != nil {
			return nil, fmt.Errorf("zstd decompression failed: %w", err)
		}
		return out, nil
	case codecLZ4:
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompression failed: %w", err)
		}
		return out[:n], nil
	}
	return nil, fmt.Errorf("unknown block codec %d", codec)
}
