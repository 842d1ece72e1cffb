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
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/pflag"
)

var (
	logFormat string
	logLevel  string

	// structured is true once Init or SetLogger routed output through slog.
	structured atomic.Bool
)

// Init configures logging from the parsed flags. It is a no-op unless
// --log-fmt was set.
func Init(fs *pflag.FlagSet) error {
	return initTo(fs, os.Stderr)
}

func initTo(fs *pflag.FlagSet, w io.Writer) error {
	if fs == nil {
		return nil
	}
	formatFlag := fs.Lookup("log-fmt")
	if formatFlag == nil || !formatFlag.Changed {
		return nil
	}

	level, err := slogLevel(logLevel)
	if err != nil {
		return err
	}
	handler, err := slogHandler(w, logFormat, &slog.HandlerOptions{AddSource: true, Level: level})
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(handler))
	structured.Store(true)
	return nil
}

func slogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log-level %q: expected debug, info, warn, or error", level)
	}
}

func slogHandler(w io.Writer, format string, opts *slog.HandlerOptions) (slog.Handler, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	case "logfmt":
		return slog.NewTextHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("invalid log-fmt %q: expected json or logfmt", format)
	}
}

// logS emits a structured record, or forwards to glog when structured
// logging is off.
func logS(level slog.Level, depth int, msg string, args ...any) {
	if !structured.Load() {
		logGlog(level, depth, msg, args...)
		return
	}

	logger := slog.Default()
	ctx := context.Background()
	if !logger.Enabled(ctx, level) {
		return
	}

	// +3 skips runtime.Callers, logS and the exported wrapper.
	var pcs [1]uintptr
	runtime.Callers(depth+3, pcs[:])

	record := slog.NewRecord(time.Now(), level, msg, pcs[0])
	record.Add(args...)
	_ = logger.Handler().Handle(ctx, record)
}

// Enabled reports whether a call at level would be emitted. Under glog,
// debug is gated on -v=1.
func Enabled(level slog.Level) bool {
	if structured.Load() {
		return slog.Default().Enabled(context.Background(), level)
	}
	if level < slog.LevelInfo {
		return bool(glog.V(glog.Level(1)))
	}
	return true
}

func logGlog(level slog.Level, depth int, msg string, args ...any) {
	depth += 3
	line := formatKV(msg, args)

	switch level {
	case slog.LevelDebug:
		if glog.V(glog.Level(1)) {
			glog.InfoDepth(depth, line)
		}
	case slog.LevelWarn:
		glog.WarningDepth(depth, line)
	case slog.LevelError:
		glog.ErrorDepth(depth, line)
	default:
		glog.InfoDepth(depth, line)
	}
}

// formatKV renders msg followed by key=value pairs. A trailing key without a
// value is printed as-is.
func formatKV(msg string, args []any) string {
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i < len(args); i++ {
		sb.WriteByte(' ')
		if attr, ok := args[i].(slog.Attr); ok {
			fmt.Fprintf(&sb, "%s=%v", attr.Key, attr.Value)
			continue
		}
		if i+1 < len(args) {
			fmt.Fprintf(&sb, "%v=%v", args[i], args[i+1])
			i++
			continue
		}
		fmt.Fprintf(&sb, "%v", args[i])
	}
	return sb.String()
}

// InfoS logs at the Info level.
func InfoS(msg string, args ...any) {
	logS(slog.LevelInfo, 0, msg, args...)
}

// InfoSDepth logs at the Info level with an adjusted caller depth.
func InfoSDepth(depth int, msg string, args ...any) {
	logS(slog.LevelInfo, depth, msg, args...)
}

// WarnS logs at the Warn level.
func WarnS(msg string, args ...any) {
	logS(slog.LevelWarn, 0, msg, args...)
}

// DebugS logs at the Debug level.
func DebugS(msg string, args ...any) {
	logS(slog.LevelDebug, 0, msg, args...)
}

// ErrorS logs at the Error level.
func ErrorS(msg string, args ...any) {
	logS(slog.LevelError, 0, msg, args...)
}

// SetLogger swaps in logger as the structured sink and returns a function
// restoring the previous one. Used for testing.
func SetLogger(logger *slog.Logger) func() {
	if logger == nil {
		return func() {}
	}

	prevEnabled := structured.Load()
	prevDefault := slog.Default()

	slog.SetDefault(logger)
	structured.Store(true)

	return func() {
		slog.SetDefault(prevDefault)
		structured.Store(prevEnabled)
	}
}
