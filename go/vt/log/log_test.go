/*
Copyright 2026 The Segplan Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLoggerCapturesRecords(t *testing.T) {
	var buf bytes.Buffer
	restore := SetLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer restore()

	InfoS("slice narrowed", "slice", 2, "segments", "[0 3]")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "slice narrowed", rec["msg"])
	assert.Equal(t, "INFO", rec["level"])
	assert.EqualValues(t, 2, rec["slice"])
	assert.True(t, Enabled(slog.LevelDebug))
}

func TestSetLoggerRestores(t *testing.T) {
	before := structured.Load()
	restore := SetLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	assert.True(t, structured.Load())
	restore()
	assert.Equal(t, before, structured.Load())

	// nil keeps whatever is installed
	SetLogger(nil)()
	assert.Equal(t, before, structured.Load())
}

func TestInitRequiresExplicitFormat(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(nil))

	var buf bytes.Buffer
	require.NoError(t, initTo(fs, &buf))
	assert.False(t, structured.Load())
}

func TestInitRejectsBadValues(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--log-fmt=xml"}))
	assert.ErrorContains(t, initTo(fs, &bytes.Buffer{}), "invalid log-fmt")

	fs = pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--log-fmt=logfmt", "--log-level=loud"}))
	assert.ErrorContains(t, initTo(fs, &bytes.Buffer{}), "invalid log-level")
}

func TestFormatKV(t *testing.T) {
	assert.Equal(t, "msg", formatKV("msg", nil))
	assert.Equal(t, "msg a=1 b=x", formatKV("msg", []any{"a", 1, "b", "x"}))
	assert.Equal(t, "msg k=v dangling", formatKV("msg", []any{slog.String("k", "v"), "dangling"}))
}
