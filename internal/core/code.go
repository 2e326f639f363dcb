package core

import (
	"crypto/rand"
	"strconv"
	"time"
)

const (
	// DefaultCodeLength is the number of characters in a room code.
	DefaultCodeLength = 6

	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	// largest multiple of len(codeAlphabet) that fits in a byte
	codeCutoff = 252
)

// CodeGenerator produces candidate room codes. Collisions are handled by the store.
type CodeGenerator func() string

// RandomCodes returns a generator of upper-case alphanumeric codes.
func RandomCodes(length int) CodeGenerator {
	if length <= 0 {
		length = DefaultCodeLength
	}
	return func() string {
		out := make([]byte, 0, length)
		buf := make([]byte, length*2)
		for len(out) < length {
			if _, err := rand.Read(buf); err != nil {
				// Fallback to timestamp if crypto/rand is unavailable.
				ts := NormalizeCode(strconv.FormatInt(time.Now().UnixNano(), 36))
				if len(ts) > length {
					ts = ts[len(ts)-length:]
				}
				return ts
			}
			for _, b := range buf {
				if b >= codeCutoff {
					continue
				}
				out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
				if len(out) == length {
					break
				}
			}
		}
		return string(out)
	}
}
