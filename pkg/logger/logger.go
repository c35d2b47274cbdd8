// Package logger holds the process-wide zerolog logger of the auth service.
//
// main calls Init once with the configured level and format. Subsystems take
// a tagged child through Component and receive it by injection, so packages
// below cmd never reach for the global themselves.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the root logger.
type Options struct {
	// Level is one of trace, debug, info, warn or error. Anything else
	// means info.
	Level string
	// Pretty switches from JSON lines to zerolog's console writer.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
	// Service, when set, is added to every entry as "service".
	Service string
}

var root struct {
	sync.RWMutex
	log   zerolog.Logger
	ready bool
}

// Init builds the root logger from opts and returns it. Later calls return
// the existing logger unchanged until Reset.
func Init(opts Options) zerolog.Logger {
	root.Lock()
	defer root.Unlock()
	if root.ready {
		return root.log
	}

	level := parseLevel(opts.Level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(level)

	ctx := zerolog.New(writer(opts)).Level(level).With().Timestamp().Caller()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	root.log = ctx.Logger()
	root.ready = true
	return root.log
}

func writer(opts Options) io.Writer {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if !opts.Pretty {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
}

// Get returns the root logger. It panics before Init.
func Get() zerolog.Logger {
	root.RLock()
	defer root.RUnlock()
	if !root.ready {
		panic("logger: Get called before Init")
	}
	return root.log
}

// Component returns a child of the root logger carrying
// "component": name, or a disabled logger before Init.
func Component(name string) zerolog.Logger {
	root.RLock()
	defer root.RUnlock()
	if !root.ready {
		return zerolog.Nop()
	}
	return root.log.With().Str("component", name).Logger()
}

// Reset drops the root logger and restores the global level. Tests only.
func Reset() {
	root.Lock()
	defer root.Unlock()
	root.log = zerolog.Logger{}
	root.ready = false
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
}

var levels = map[string]zerolog.Level{
	"trace":   zerolog.TraceLevel,
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
}

func parseLevel(s string) zerolog.Level {
	if lvl, ok := levels[strings.ToLower(strings.TrimSpace(s))]; ok {
		return lvl
	}
	return zerolog.InfoLevel
}
