package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeRaw writes n I420 frames of size w×h with a moving bright square.
func writeRaw(t *testing.T, path string, w, h, n int) []byte {
	t.Helper()
	var raw []byte
	for i := 0; i < n; i++ {
		y := bytes.Repeat([]byte{40}, w*h)
		for row := 0; row < 16; row++ {
			for col := 0; col < 16; col++ {
				y[row*w+(i*16+col)%w] = 230
			}
		}
		raw = append(raw, y...)
		raw = append(raw, bytes.Repeat([]byte{128}, w*h/2)...)
	}
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return raw
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"smoke"}, args...))
	return out.String(), err
}

func TestEncodeDecodeInfo(t *testing.T) {
	dir := t.TempDir()
	rawIn := filepath.Join(dir, "in.i420")
	stream := filepath.Join(dir, "out.smk")
	rawOut := filepath.Join(dir, "out.i420")
	raw := writeRaw(t, rawIn, 64, 32, 4)

	out, err := runApp(t, "--log-level", "error", "encode",
		"--input", rawIn, "--output", stream,
		"--width", "64", "--height", "32", "--fps", "25/1", "--codec", "zstd")
	require.NoError(t, err)
	assert.Contains(t, out, "encoded 4 frames (1 keyframes")

	out, err = runApp(t, "info", "--input", stream)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "smoke 0.1 64x32 25/1 fps", lines[0])
	assert.Contains(t, lines[1], "key")
	assert.Contains(t, lines[2], "delta")
	assert.Contains(t, lines[2], "40ms")

	out, err = runApp(t, "decode", "--input", stream, "--output", rawOut, "--codec", "zstd")
	require.NoError(t, err)
	assert.Contains(t, out, "decoded 4 frames at 64x32")

	decoded, err := os.ReadFile(rawOut)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestEncodeScalesUnalignedInput(t *testing.T) {
	dir := t.TempDir()
	rawIn := filepath.Join(dir, "in.i420")
	stream := filepath.Join(dir, "out.smk")
	writeRaw(t, rawIn, 40, 24, 2)

	out, err := runApp(t, "encode", "-i", rawIn, "-o", stream, "--width", "40", "--height", "24")
	require.NoError(t, err)
	assert.Contains(t, out, "at 48x32")
}

func TestEncodeErrors(t *testing.T) {
	dir := t.TempDir()
	rawIn := filepath.Join(dir, "in.i420")
	writeRaw(t, rawIn, 32, 32, 1)
	stream := filepath.Join(dir, "out.smk")

	tests := []struct {
		name string
		args []string
	}{
		{"odd width", []string{"encode", "-i", rawIn, "-o", stream, "--width", "31", "--height", "32"}},
		{"bad fps", []string{"encode", "-i", rawIn, "-o", stream, "--width", "32", "--height", "32", "--fps", "x/1"}},
		{"unknown codec", []string{"encode", "-i", rawIn, "-o", stream, "--width", "32", "--height", "32", "--codec", "gif"}},
		{"missing input", []string{"encode", "-i", filepath.Join(dir, "none"), "-o", stream, "--width", "32", "--height", "32"}},
		{"truncated input", []string{"encode", "-i", rawIn, "-o", stream, "--width", "32", "--height", "48"}},
		{"bad log level", []string{"--log-level", "loud", "info", "-i", stream}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runApp(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestParseFPS(t *testing.T) {
	tests := []struct {
		in        string
		num, den  uint32
		expectErr bool
	}{
		{"30/1", 30, 1, false},
		{"30000/1001", 30000, 1001, false},
		{"25", 25, 1, false},
		{"0/1", 0, 0, true},
		{"30/0", 0, 0, true},
		{"abc", 0, 0, true},
	}
	for _, tt := range tests {
		num, den, err := parseFPS(tt.in)
		if tt.expectErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.num, num)
		assert.Equal(t, tt.den, den)
	}
}
