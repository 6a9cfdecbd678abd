// Package mutf8 implements the JVM's modified UTF-8 encoding used for Utf8
// constant-pool entries. It differs from standard UTF-8 in two ways: the NUL
// character is always encoded as the two-byte sequence 0xC0 0x80, and
// supplementary (non-BMP) code points are encoded as a pair of three-byte
// surrogate sequences rather than a single four-byte sequence.
package mutf8

import (
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// ErrInvalid is returned (wrapped) when a byte sequence cannot be decoded as
// modified UTF-8.
type ErrInvalid struct {
	Offset int
	Reason string
}

func (e *ErrInvalid) Error() string {
	return fmt.Sprintf("modified utf-8: invalid byte sequence at offset %d: %s", e.Offset, e.Reason)
}

// Decode converts a modified-UTF-8 byte slice into a Go string. Supplementary
// code points encoded as surrogate pairs are recombined into a single rune.
func Decode(b []byte) (string, error) {
	var sb strings.Builder
	sb.Grow(len(b))

	i := 0
	for i < len(b) {
		c0 := b[i]

		switch {
		case c0&0x80 == 0:
			// 0xxxxxxx — single byte (NUL is never encoded this way, but we
			// don't reject it on decode; only the encoder avoids it).
			sb.WriteByte(c0)
			i++

		case c0&0xE0 == 0xC0:
			// 110xxxxx 10xxxxxx — two-byte sequence (includes the NUL encoding).
			if i+1 >= len(b) || b[i+1]&0xC0 != 0x80 {
				return "", &ErrInvalid{Offset: i, Reason: "truncated two-byte sequence"}
			}
			r := (rune(c0&0x1F) << 6) | rune(b[i+1]&0x3F)
			sb.WriteRune(r)
			i += 2

		case c0&0xF0 == 0xE0:
			// 1110xxxx 10xxxxxx 10xxxxxx — three-byte sequence, or the first
			// or second half of an encoded surrogate pair.
			if i+2 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 {
				return "", &ErrInvalid{Offset: i, Reason: "truncated three-byte sequence"}
			}
			r := (rune(c0&0x0F) << 12) | (rune(b[i+1]&0x3F) << 6) | rune(b[i+2]&0x3F)

			if utf16.IsSurrogate(r) && i+5 < len(b) {
				c3, c4, c5 := b[i+3], b[i+4], b[i+5]
				if c3&0xF0 == 0xE0 && c4&0xC0 == 0x80 && c5&0xC0 == 0x80 {
					r2 := (rune(c3&0x0F) << 12) | (rune(c4&0x3F) << 6) | rune(c5&0x3F)
					if combined := utf16.DecodeRune(r, r2); combined != utf8.RuneError {
						sb.WriteRune(combined)
						i += 6
						continue
					}
				}
			}
			sb.WriteRune(r)
			i += 3

		default:
			return "", &ErrInvalid{Offset: i, Reason: "invalid lead byte"}
		}
	}

	return sb.String(), nil
}

// Encode converts a Go string into modified-UTF-8 bytes: NUL becomes the
// two-byte sequence 0xC0 0x80, and supplementary code points become a pair
// of three-byte surrogate sequences.
func Encode(s string) []byte {
	out := make([]byte, 0, len(s)+len(s)/4)
	for _, r := range s {
		switch {
		case r == 0:
			out = append(out, 0xC0, 0x80)
		case r < 0x80:
			out = append(out, byte(r))
		case r < 0x800:
			out = append(out,
				0xC0|byte(r>>6),
				0x80|byte(r&0x3F))
		case r < 0x10000:
			out = append(out,
				0xE0|byte(r>>12),
				0x80|byte((r>>6)&0x3F),
				0x80|byte(r&0x3F))
		default:
			hi, lo := utf16.EncodeRune(r)
			out = append(out, encodeSurrogate(hi)...)
			out = append(out, encodeSurrogate(lo)...)
		}
	}
	return out
}

func encodeSurrogate(r rune) []byte {
	return []byte{
		0xE0 | byte(r>>12),
		0x80 | byte((r>>6)&0x3F),
		0x80 | byte(r&0x3F),
	}
}
