// Leveled logging the driver core emits on its own behalf
// https://github.com/jfabienke/3com-packet-driver-sub005
//
// Copyright (c) 2026 The 3com-packet-driver-sub005 Authors
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package log provides the minimal leveled logging the driver core emits
// on its own behalf: degraded-mode transitions (DMA self-test downgrade,
// ring stalls, work-ring overflow) that the embedder may want surfaced.
//
// The core otherwise prefers returning typed errors (see el3.ErrKind) over
// logging: most of the hot path never calls into this package.
//
// Built on go.uber.org/zap rather than the standard library's log: this
// module is a hosted Linux process that already serves Prometheus metrics
// over HTTP, so there is no freestanding-target reason to avoid a real
// logging library, and zap's sampling core replaces a hand-rolled rate
// limiter for the burst-suppression behavior below.
package log

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level orders log severity, least to most severe.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case Debug:
		return zapcore.DebugLevel
	case Warn:
		return zapcore.WarnLevel
	case Error:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger writes leveled, single-line records through a zap.SugaredLogger.
// The zero value is not ready for use; construct with New.
type Logger struct {
	sugar *zap.SugaredLogger
}

// Option configures a Logger.
type Option func(*options)

type options struct {
	out             io.Writer
	minimum         Level
	sampleFirst     int
	sampleThereafter int
}

// WithOutput overrides the default os.Stderr destination.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithMinimumLevel suppresses records below the given level.
func WithMinimumLevel(level Level) Option {
	return func(o *options) { o.minimum = level }
}

// WithBurstLimit caps sustained emission rate, so an interrupt storm that
// keeps raising the same condition (e.g. WORK_RING_OVERFLOW) cannot itself
// become a source of unbounded work for the Worker that logs it. Backed by
// zap's sampling core: in each one-second tick the first eventsPerSecond
// records with the same level and message pass through, and after that
// only every burst-th such record is logged for the rest of the tick.
func WithBurstLimit(eventsPerSecond float64, burst int) Option {
	first := int(eventsPerSecond)
	if first < 1 {
		first = 1
	}
	return func(o *options) {
		o.sampleFirst = first
		o.sampleThereafter = burst
	}
}

// New constructs a Logger writing to os.Stderr at Info level by default.
func New(opts ...Option) *Logger {
	o := &options{out: os.Stderr, minimum: Info}
	for _, opt := range opts {
		opt(o)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(o.out),
		o.minimum.zapLevel(),
	)

	if o.sampleFirst > 0 {
		core = zapcore.NewSamplerWithOptions(core, time.Second, o.sampleFirst, maxOne(o.sampleThereafter))
	}

	return &Logger{sugar: zap.New(core).Sugar()}
}

func maxOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func (l *Logger) emit(level Level, device, kind, format string, args ...any) {
	fields := []any{"device", device, "kind", kind}

	switch level {
	case Debug:
		l.sugar.Debugw(formatMsg(format, args), fields...)
	case Info:
		l.sugar.Infow(formatMsg(format, args), fields...)
	case Warn:
		l.sugar.Warnw(formatMsg(format, args), fields...)
	case Error:
		l.sugar.Errorw(formatMsg(format, args), fields...)
	}
}

func formatMsg(format string, args []any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// Debugf logs a low-frequency diagnostic record.
func (l *Logger) Debugf(device, kind, format string, args ...any) { l.emit(Debug, device, kind, format, args...) }

// Infof logs a state-transition record.
func (l *Logger) Infof(device, kind, format string, args ...any) { l.emit(Info, device, kind, format, args...) }

// Warnf logs a recovered fault (FIFO_UNDERRUN, RING_STALL recovery, ...).
func (l *Logger) Warnf(device, kind, format string, args ...any) { l.emit(Warn, device, kind, format, args...) }

// Errorf logs a fatal condition (Device → Failed).
func (l *Logger) Errorf(device, kind, format string, args ...any) { l.emit(Error, device, kind, format, args...) }

// Discard is a Logger that drops every record; used as the zero-cost
// default where the embedder has not configured logging.
var Discard = New(WithOutput(io.Discard), WithMinimumLevel(Error + 1))
