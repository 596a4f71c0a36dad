// Package yaz0 implements the Yaz0 compression scheme used to wrap output
// resource files before they are written to the unpacked tree. It is part of
// the narrow external-codec contract described by the design's C1 component.
package yaz0

import (
	"encoding/binary"
	"errors"
)

// magic is the four-byte Yaz0 header.
var magic = [4]byte{'Y', 'a', 'z', '0'}

const headerSize = 16

// ErrInvalidHeader indicates that a buffer did not begin with a valid Yaz0
// header.
var ErrInvalidHeader = errors.New("invalid yaz0 header")

// IsCompressed reports whether data begins with a Yaz0 header.
func IsCompressed(data []byte) bool {
	return len(data) >= 4 && data[0] == magic[0] && data[1] == magic[1] && data[2] == magic[2] && data[3] == magic[3]
}

// Decompress reverses Compress, returning the original uncompressed bytes.
func Decompress(data []byte) ([]byte, error) {
	if !IsCompressed(data) {
		return nil, ErrInvalidHeader
	}
	if len(data) < headerSize {
		return nil, ErrInvalidHeader
	}
	size := binary.BigEndian.Uint32(data[4:8])
	out := make([]byte, 0, size)
	src := data[headerSize:]
	pos := 0

	for uint32(len(out)) < size && pos < len(src) {
		flags := src[pos]
		pos++
		for bit := 0; bit < 8 && uint32(len(out)) < size; bit++ {
			if pos >= len(src) {
				return nil, errors.New("yaz0: truncated stream")
			}
			if flags&(0x80>>bit) != 0 {
				out = append(out, src[pos])
				pos++
				continue
			}
			if pos+1 >= len(src) {
				return nil, errors.New("yaz0: truncated back-reference")
			}
			b0, b1 := src[pos], src[pos+1]
			pos += 2
			distance := int(b0&0x0F)<<8 | int(b1)
			distance++
			length := int(b0>>4) + 2
			if length == 2 {
				if pos >= len(src) {
					return nil, errors.New("yaz0: truncated extended length")
				}
				length = int(src[pos]) + 18
				pos++
			}
			start := len(out) - distance
			if start < 0 {
				return nil, errors.New("yaz0: back-reference out of range")
			}
			for i := 0; i < length; i++ {
				out = append(out, out[start+i])
			}
		}
	}
	return out, nil
}

// Compress encodes data using Yaz0, searching a bounded window for
// back-references. It favors simplicity and correctness over matching the
// compression ratio of a reference encoder; the format contract only
// requires that Decompress(Compress(x)) == x.
func Compress(data []byte) []byte {
	const (
		minMatch    = 3
		maxMatch    = 255 + 18
		windowSize  = 4096
		searchLimit = 64
	)

	out := make([]byte, headerSize)
	copy(out, magic[:])
	binary.BigEndian.PutUint32(out[4:8], uint32(len(data)))

	var chunk []byte
	var flags byte
	var bitCount int

	flush := func() {
		if bitCount == 0 {
			return
		}
		out = append(out, flags)
		out = append(out, chunk...)
		chunk = chunk[:0]
		flags = 0
		bitCount = 0
	}

	emitLiteral := func(b byte) {
		flags |= 0x80 >> bitCount
		chunk = append(chunk, b)
		bitCount++
		if bitCount == 8 {
			flush()
		}
	}

	emitMatch := func(distance, length int) {
		d := distance - 1
		if length <= 17 {
			chunk = append(chunk, byte((length-2)<<4)|byte(d>>8), byte(d))
		} else {
			chunk = append(chunk, byte(d>>8), byte(d), byte(length-18))
		}
		bitCount++
		if bitCount == 8 {
			flush()
		}
	}

	i := 0
	for i < len(data) {
		bestLen, bestDist := 0, 0
		start := i - windowSize
		if start < 0 {
			start = 0
		}
		tries := 0
		for j := i - 1; j >= start && tries < searchLimit; j-- {
			tries++
			l := 0
			limit := len(data) - i
			if limit > maxMatch {
				limit = maxMatch
			}
			for l < limit && data[j+l] == data[i+l] {
				l++
			}
			if l > bestLen {
				bestLen = l
				bestDist = i - j
			}
		}
		if bestLen >= minMatch {
			emitMatch(bestDist, bestLen)
			i += bestLen
		} else {
			emitLiteral(data[i])
			i++
		}
	}
	flush()
	return out
}
