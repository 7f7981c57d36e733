package utils

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG
const pixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestImageDataURL(t *testing.T) {
	raw, err := base64.StdEncoding.DecodeString(pixelPNG)
	require.NoError(t, err)
	path := writeFile(t, "pixel.bin", raw)

	url, err := ImageDataURL(path)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,"+pixelPNG, url)

	b64, err := ImageBase64(path)
	require.NoError(t, err)
	assert.Equal(t, pixelPNG, b64)
}

func TestImageDataURLRejectsNonImages(t *testing.T) {
	path := writeFile(t, "notes.txt", []byte("plain text"))

	_, err := ImageDataURL(path)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not an image"))
}

func TestImageDataURLMissingFile(t *testing.T) {
	_, err := ImageDataURL(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestSplitText(t *testing.T) {
	assert.Equal(t, []string{"short"}, SplitText("short", 10, 2))

	chunks := SplitText("abcdefghij", 4, 1)
	assert.Equal(t, []string{"abcd", "defg", "ghij"}, chunks)
}

func TestSplitTextPrefersWhitespace(t *testing.T) {
	chunks := SplitText("one two three four", 10, 0)

	assert.Equal(t, []string{"one two ", "three four"}, chunks)
}
