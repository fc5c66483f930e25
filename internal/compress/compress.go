// Package compress frames a byte stream into independently compressed blocks.
//
// Each block is written as:
//
//	[UncompressedSize uint32][StoredSize uint32][Data...]
//
// A StoredSize of 0 marks a block kept uncompressed because compression did
// not pay off.
package compress

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type identifies the block compression algorithm.
type Type uint8

const (
	// None stores blocks verbatim.
	None Type = 0
	// LZ4 favours speed.
	LZ4 Type = 1
	// ZSTD favours ratio.
	ZSTD Type = 2
	// Snappy is a middle ground with very cheap decoding.
	Snappy Type = 3
)

// DefaultBlockSize is used when a writer is created with blockSize <= 0.
const DefaultBlockSize = 256 * 1024

const (
	headerSize = 8
	// Blocks shrinking to more than this fraction are stored uncompressed.
	minRatio = 0.9
	// Upper bound accepted for a single decoded block.
	maxBlockSize = 1 << 30
)

var (
	// ErrUnknownType is returned for an unsupported compression type.
	ErrUnknownType = errors.New("compress: unknown compression type")

	// ErrCorrupt is returned when a block header or payload is inconsistent.
	ErrCorrupt = errors.New("compress: corrupt block")
)

// String returns the configuration name of the type.
func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	case Snappy:
		return "snappy"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Parse maps a configuration name to a Type. The empty string means None.
func Parse(name string) (Type, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	case "snappy":
		return Snappy, nil
	default:
		return None, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
}

func (t Type) valid() bool { return t <= Snappy }

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

// encode returns the compressed form of data, or nil when it is incompressible.
func encode(t Type, data []byte) ([]byte, error) {
	switch t {
	case None:
		return nil, nil
	case LZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, nil
		}
		return dst[:n], nil
	case ZSTD:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, err
		}
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(data, nil), nil
	case Snappy:
		return snappy.Encode(nil, data), nil
	default:
		return nil, ErrUnknownType
	}
}

func decode(t Type, src []byte, size int) ([]byte, error) {
	switch t {
	case LZ4:
		dst := make([]byte, size)
		n, err := lz4.UncompressBlock(src, dst)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return dst[:n], nil
	case ZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(src, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return out, nil
	case Snappy:
		out, err := snappy.Decode(make([]byte, size), src)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return out, nil
	default:
		return nil, ErrUnknownType
	}
}

// Writer buffers writes and emits one framed block per BlockSize bytes.
// Close flushes the final block; it does not close the underlying writer.
type Writer struct {
	w         io.Writer
	typ       Type
	blockSize int
	buf       *bytes.Buffer
	header    [headerSize]byte
	written   int64
}

// NewWriter returns a block writer on w.
func NewWriter(w io.Writer, t Type, blockSize int) (*Writer, error) {
	if !t.valid() {
		return nil, ErrUnknownType
	}
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &Writer{
		w:         w,
		typ:       t,
		blockSize: blockSize,
		buf:       bytes.NewBuffer(make([]byte, 0, blockSize)),
	}, nil
}

// Write implements io.Writer.
func (c *Writer) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		space := c.blockSize - c.buf.Len()
		if space == 0 {
			if err := c.flush(); err != nil {
				return total, err
			}
			space = c.blockSize
		}

		n, _ := c.buf.Write(p[:min(len(p), space)])
		total += n
		p = p[n:]
	}
	return total, nil
}

func (c *Writer) flush() error {
	if c.buf.Len() == 0 {
		return nil
	}

	raw := c.buf.Bytes()
	payload, err := encode(c.typ, raw)
	if err != nil {
		return err
	}

	stored := uint32(len(payload))
	if payload == nil || float64(len(payload)) > float64(len(raw))*minRatio {
		payload, stored = raw, 0
	}

	binary.LittleEndian.PutUint32(c.header[0:], uint32(len(raw)))
	binary.LittleEndian.PutUint32(c.header[4:], stored)

	if _, err := c.w.Write(c.header[:]); err != nil {
		return err
	}
	if _, err := c.w.Write(payload); err != nil {
		return err
	}

	c.written += int64(headerSize + len(payload))
	c.buf.Reset()
	return nil
}

// Close flushes any buffered data as a final block.
func (c *Writer) Close() error {
	return c.flush()
}

// BytesWritten returns the number of framed bytes emitted so far.
func (c *Writer) BytesWritten() int64 {
	return c.written
}

// Reader decodes a stream produced by Writer.
type Reader struct {
	r      io.Reader
	typ    Type
	header [headerSize]byte
	block  []byte
	off    int
	raw    []byte
}

// NewReader returns a block reader on r.
func NewReader(r io.Reader, t Type) (*Reader, error) {
	if !t.valid() {
		return nil, ErrUnknownType
	}
	return &Reader{r: r, typ: t}, nil
}

// Read implements io.Reader.
func (c *Reader) Read(p []byte) (int, error) {
	for c.off == len(c.block) {
		if err := c.next(); err != nil {
			return 0, err
		}
	}
	n := copy(p, c.block[c.off:])
	c.off += n
	return n, nil
}

func (c *Reader) next() error {
	if _, err := io.ReadFull(c.r, c.header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: truncated header", ErrCorrupt)
		}
		return err
	}

	size := binary.LittleEndian.Uint32(c.header[0:])
	stored := binary.LittleEndian.Uint32(c.header[4:])
	if size > maxBlockSize || stored > maxBlockSize {
		return fmt.Errorf("%w: block size %d/%d", ErrCorrupt, size, stored)
	}

	n := stored
	if stored == 0 {
		n = size
	}
	if cap(c.raw) < int(n) {
		c.raw = make([]byte, n)
	}
	c.raw = c.raw[:n]
	if _, err := io.ReadFull(c.r, c.raw); err != nil {
		return fmt.Errorf("%w: truncated payload: %v", ErrCorrupt, err)
	}

	if stored == 0 {
		c.block, c.off = c.raw, 0
		return nil
	}

	out, err := decode(c.typ, c.raw, int(size))
	if err != nil {
		return err
	}
	if len(out) != int(size) {
		return fmt.Errorf("%w: decoded %d bytes, want %d", ErrCorrupt, len(out), size)
	}
	c.block, c.off = out, 0
	return nil
}
