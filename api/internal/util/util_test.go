package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences("```{\"a\":1}```"))
	assert.Equal(t, "plain", StripCodeFences("  plain "))
}

func TestDecodeBase64MaybeDataURL(t *testing.T) {
	b, mime, err := DecodeBase64MaybeDataURL("data:image/png;base64,aGk=")
	require.NoError(t, err)
	assert.Equal(t, "hi", string(b))
	assert.Equal(t, "image/png", mime)

	b, mime, err = DecodeBase64MaybeDataURL(EncodeImage([]byte{0xFF, 0xD8, 0xFF}))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, b)
	assert.Empty(t, mime)

	_, _, err = DecodeBase64MaybeDataURL("not base64!")
	assert.Error(t, err)
}

func TestSniffImageMIME(t *testing.T) {
	assert.Equal(t, "image/jpeg", SniffImageMIME([]byte{0xFF, 0xD8, 0x00}))
	assert.Equal(t, "image/png", SniffImageMIME([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}))
	assert.Equal(t, "application/octet-stream", SniffImageMIME([]byte("GIF89a")))
}

func TestPickMIME(t *testing.T) {
	assert.Equal(t, "image/webp", PickMIME("image/webp", "image/png", nil))
	assert.Equal(t, "image/png", PickMIME("", "image/png", nil))
	assert.Equal(t, "image/jpeg", PickMIME("", "", nil))
	assert.Equal(t, "image/jpeg", PickMIME("", "", []byte{0xFF, 0xD8, 0xFF, 0xE0}))
}
