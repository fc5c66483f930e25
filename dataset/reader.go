package dataset

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const readBufferSize = 1 << 20

// Read parses a file whose elements are stored as T.
func Read[T Element](r io.Reader) (*Matrix[T], error) {
	return ReadAs[T, T](r)
}

// ReadAs parses a file whose elements are stored as S and converts each
// element to T, e.g. int32 ground-truth ids read as uint32.
//
// All rows share one backing array and the file is streamed through a
// single row-sized byte buffer.
func ReadAs[S, T Element](r io.Reader) (*Matrix[T], error) {
	br := bufio.NewReaderSize(r, readBufferSize)

	hdr, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	backing := make([]T, hdr.Elements())
	rows := make([][]T, hdr.Count)
	buf := make([]byte, hdr.Dim*elementSize)

	for i := range rows {
		row := backing[i*hdr.Dim : (i+1)*hdr.Dim : (i+1)*hdr.Dim]
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, truncated(err, fmt.Sprintf("row %d of %d", i, hdr.Count))
		}
		decodeRow[S](row, buf)
		rows[i] = row
	}

	if _, err := br.ReadByte(); err == nil {
		return nil, ErrTrailingData
	} else if !errors.Is(err, io.EOF) {
		return nil, err
	}

	return &Matrix[T]{Rows: rows, Dim: hdr.Dim}, nil
}

// ReadHeader decodes the 8-byte file header.
func ReadHeader(r io.Reader) (Header, error) {
	return readHeader(r)
}

func readHeader(r io.Reader) (Header, error) {
	var raw [headerSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return Header{}, truncated(err, "header")
	}
	return parseHeader(raw[:])
}

func parseHeader(raw []byte) (Header, error) {
	n := uint64(binary.LittleEndian.Uint32(raw[0:]))
	d := uint64(binary.LittleEndian.Uint32(raw[4:]))
	if n*d > maxElements {
		return Header{}, fmt.Errorf("%w: %d x %d elements", ErrInvalidHeader, n, d)
	}
	return Header{Count: int(n), Dim: int(d)}, nil
}

func truncated(err error, where string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s", ErrTruncated, where)
	}
	return err
}

// decodeRow converts little-endian S elements in src into dst.
func decodeRow[S, T Element](dst []T, src []byte) {
	var zero S
	switch any(zero).(type) {
	case float32:
		for i := range dst {
			dst[i] = T(math.Float32frombits(binary.LittleEndian.Uint32(src[i*elementSize:])))
		}
	case int32:
		for i := range dst {
			dst[i] = T(int32(binary.LittleEndian.Uint32(src[i*elementSize:])))
		}
	case uint32:
		for i := range dst {
			dst[i] = T(binary.LittleEndian.Uint32(src[i*elementSize:]))
		}
	}
}
