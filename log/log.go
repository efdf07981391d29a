// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package log is the small leveled-logging seam used throughout the mxf
// package. It mirrors the application-replaceable error sink described by
// the container format's error handling design: every soft-fail path in a
// parser or writer goes through a *Helper instead of a hardcoded print.
package log

import (
	"fmt"
	"io"
	"sync"
)

// Level is a logging severity.
type Level int

// Severities, lowest to highest.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Logger is the minimal sink every backend must satisfy.
type Logger interface {
	Log(level Level, keyvals ...interface{}) error
}

// Helper wraps a Logger with per-level convenience methods, the shape used
// throughout the core (e.g. pe.logger.Warn(...) in the teacher).
type Helper struct {
	logger Logger
}

// NewHelper builds a Helper around logger.
func NewHelper(logger Logger) *Helper {
	return &Helper{logger: logger}
}

func (h *Helper) log(level Level, a ...interface{}) {
	if h == nil || h.logger == nil {
		return
	}
	_ = h.logger.Log(level, "msg", fmt.Sprint(a...))
}

func (h *Helper) logf(level Level, format string, a ...interface{}) {
	if h == nil || h.logger == nil {
		return
	}
	_ = h.logger.Log(level, "msg", fmt.Sprintf(format, a...))
}

// Debug logs at LevelDebug.
func (h *Helper) Debug(a ...interface{}) { h.log(LevelDebug, a...) }

// Debugf logs a formatted message at LevelDebug.
func (h *Helper) Debugf(format string, a ...interface{}) { h.logf(LevelDebug, format, a...) }

// Info logs at LevelInfo.
func (h *Helper) Info(a ...interface{}) { h.log(LevelInfo, a...) }

// Infof logs a formatted message at LevelInfo.
func (h *Helper) Infof(format string, a ...interface{}) { h.logf(LevelInfo, format, a...) }

// Warn logs at LevelWarn.
func (h *Helper) Warn(a ...interface{}) { h.log(LevelWarn, a...) }

// Warnf logs a formatted message at LevelWarn.
func (h *Helper) Warnf(format string, a ...interface{}) { h.logf(LevelWarn, format, a...) }

// Error logs at LevelError.
func (h *Helper) Error(a ...interface{}) { h.log(LevelError, a...) }

// Errorf logs a formatted message at LevelError.
func (h *Helper) Errorf(format string, a ...interface{}) { h.logf(LevelError, format, a...) }

// stdLogger writes "LEVEL msg key=val ..." lines to an io.Writer.
type stdLogger struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStdLogger returns a Logger that writes plain lines to w.
func NewStdLogger(w io.Writer) Logger {
	return &stdLogger{w: w}
}

func (l *stdLogger) Log(level Level, keyvals ...interface{}) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := fmt.Fprintf(l.w, "%s %s\n", level, formatKeyvals(keyvals))
	return err
}

func formatKeyvals(keyvals []interface{}) string {
	s := ""
	for i := 0; i+1 < len(keyvals); i += 2 {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%v=%v", keyvals[i], keyvals[i+1])
	}
	return s
}

// filter wraps a Logger, dropping records below a minimum level.
type filter struct {
	next Logger
	min  Level
}

// FilterOption configures a filter.
type FilterOption func(*filter)

// FilterLevel sets the minimum level that passes through the filter.
func FilterLevel(level Level) FilterOption {
	return func(f *filter) { f.min = level }
}

// NewFilter wraps next with level filtering.
func NewFilter(next Logger, opts ...FilterOption) Logger {
	f := &filter{next: next, min: LevelInfo}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *filter) Log(level Level, keyvals ...interface{}) error {
	if level < f.min {
		return nil
	}
	return f.next.Log(level, keyvals...)
}

// Discard is a Logger that drops everything; used as the default when no
// Options.Logger is supplied and the caller hasn't asked for stderr output.
var Discard Logger = discard{}

type discard struct{}

func (discard) Log(Level, ...interface{}) error { return nil }
