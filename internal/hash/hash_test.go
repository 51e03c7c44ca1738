package hash

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID(t *testing.T) {
	tests := []struct {
		name string
		data string
		id   uint64
	}{
		{"empty string", "", 0xef46db3751d8e999},
		{"short string", "test", 0x4fdcca5ddb678139},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.id, ID(tt.data))
		})
	}
}

func TestDigest(t *testing.T) {
	d := NewDigest()
	_, err := io.WriteString(d, "te")
	require.NoError(t, err)
	_, err = io.WriteString(d, "st")
	require.NoError(t, err)

	require.Equal(t, ID("test"), d.Sum64())
	require.Equal(t, "4fdcca5ddb678139", d.Hex())
}

func TestHex(t *testing.T) {
	require.Equal(t, "0000000000000001", Hex(1))
	require.Len(t, Hex(ID("anything")), 16)
}

func TestBytes(t *testing.T) {
	require.Equal(t, ID("test"), Bytes([]byte("test")))
	require.Equal(t, ID(""), Bytes(nil))
}
