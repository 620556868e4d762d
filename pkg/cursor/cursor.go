// Package cursor encodes store ids as opaque, URL-safe pagination cursors.
// The encoding is exactly invertible: DecodeID(EncodeID(id)) == id for every
// valid id, and distinct ids never share an encoding.
package cursor

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

// EncodeID turns a store id into an opaque cursor token.
func EncodeID(id uint64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(id, 10)))
}

// DecodeID reverses EncodeID. A token that is not valid base64, or that does
// not decode to a positive integer, is an error — callers decide whether a
// bad cursor is fatal, the codec never guesses.
func DecodeID(token string) (uint64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, fmt.Errorf("malformed cursor %q: %w", token, err)
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed cursor %q: %w", token, err)
	}
	if id == 0 {
		return 0, fmt.Errorf("malformed cursor %q: zero id", token)
	}
	return id, nil
}
