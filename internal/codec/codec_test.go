package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	c, err := New(nil, 3, 350)
	require.NoError(t, err)
	defer c.Close()

	payload := []byte("<event version=\"2.0\" type=\"a-f-G\" uid=\"ANDROID-1\"></event>")

	compressed, err := c.Compress(payload)
	require.NoError(t, err)

	decompressed, err := c.Decompress(compressed)
	require.NoError(t, err)
	require.Equal(t, payload, decompressed)
}

func TestSizeExceeded(t *testing.T) {
	c, err := New(nil, 3, 16)
	require.NoError(t, err)
	defer c.Close()

	payload := []byte(strings.Repeat("uncompressible-noise-", 64))
	_, err = c.Compress(payload)
	require.ErrorIs(t, err, ErrSizeExceeded)
}

func TestDecompressFailed(t *testing.T) {
	c, err := New(nil, 3, 350)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Decompress([]byte("not a zstd frame"))
	require.ErrorIs(t, err, ErrDecompressFailed)
}

func TestWithDictionary(t *testing.T) {
	dict := []byte(strings.Repeat("<event version=\"2.0\" type=\"a-f-G\" uid=\"ANDROID-", 200))
	c, err := New(dict, 3, 350)
	require.NoError(t, err)
	defer c.Close()

	payload := []byte("<event version=\"2.0\" type=\"a-f-G\" uid=\"ANDROID-9\"></event>")
	compressed, err := c.Compress(payload)
	require.NoError(t, err)

	decompressed, err := c.Decompress(compressed)
	require.NoError(t, err)
	require.Equal(t, payload, decompressed)
}
