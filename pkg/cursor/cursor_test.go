package cursor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ids := []uint64{1, 2, 10, 999, 1 << 32, 1<<63 + 7}
	seen := make(map[string]uint64)

	for _, id := range ids {
		token := EncodeID(id)

		decoded, err := DecodeID(token)
		assert.NoError(t, err)
		assert.Equal(t, id, decoded)

		// distinct ids must never collide
		if prev, ok := seen[token]; ok {
			t.Fatalf("token %q produced by both %d and %d", token, prev, id)
		}
		seen[token] = id
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"base64 but not a number", "aGVsbG8"}, // "hello"
		{"zero id", "MA"},                      // "0"
		{"negative", "LTU"},                    // "-5"
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeID(tt.token)
			assert.Error(t, err)
		})
	}
}
