package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/jsonpick/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestNewHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newHandler(config.LogConfig{Format: "text"}, &buf)).Info("hello", "k", "v")
	assert.Contains(t, buf.String(), "msg=hello k=v")

	buf.Reset()
	slog.New(newHandler(config.LogConfig{Format: "json"}, &buf)).Info("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello","k":"v"`)

	buf.Reset()
	slog.New(newHandler(config.LogConfig{Level: "warn"}, &buf)).Info("dropped")
	assert.Empty(t, buf.String())
}

func TestLogWriter_RotatedFile(t *testing.T) {
	w, closer := logWriter(config.LogConfig{})
	assert.Equal(t, os.Stdout, w)
	assert.Nil(t, closer)

	path := filepath.Join(t.TempDir(), "jsonpick.log")
	w, closer = logWriter(config.LogConfig{File: path, MaxSizeMB: 1})
	require.NotNil(t, closer)

	_, err := w.Write([]byte("line\n"))
	require.NoError(t, err)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))
}
