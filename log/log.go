// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package log is a small leveled logger modeled on go-ethereum's own log
// package: a handful of package-level helpers (Crit/Error/Warn/Info/Debug/
// Trace) writing key-value records, with a terminal handler that colorizes
// output when stdout is a TTY and falls back to plain logfmt otherwise.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Lvl is a log level, ordered the same way go-ethereum orders them.
type Lvl int

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

func (l Lvl) String() string {
	switch l {
	case LvlCrit:
		return "CRIT"
	case LvlError:
		return "ERROR"
	case LvlWarn:
		return "WARN"
	case LvlInfo:
		return "INFO"
	case LvlDebug:
		return "DEBUG"
	case LvlTrace:
		return "TRACE"
	default:
		return "???"
	}
}

var levelColor = map[Lvl]int{
	LvlCrit:  35, // magenta
	LvlError: 31, // red
	LvlWarn:  33, // yellow
	LvlInfo:  32, // green
	LvlDebug: 36, // cyan
	LvlTrace: 90, // bright black
}

// Logger is the interface every component takes for its diagnostics, so that
// tests can inject a no-op or buffering implementation.
type Logger interface {
	Crit(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Trace(msg string, ctx ...interface{})
	New(ctx ...interface{}) Logger
}

type logger struct {
	mu     *sync.Mutex
	out    io.Writer
	color  bool
	prefix []interface{}
	level  Lvl
}

// Root is the default process-wide logger, writing to colorable stdout when
// attached to a terminal.
var Root Logger = newRoot()

func newRoot() *logger {
	color := isatty.IsTerminal(os.Stdout.Fd())
	var w io.Writer = os.Stdout
	if color {
		w = colorable.NewColorableStdout()
	}
	return &logger{mu: &sync.Mutex{}, out: w, color: color, level: LvlInfo}
}

// SetLevel adjusts the minimum level written by Root.
func SetLevel(l Lvl) {
	if r, ok := Root.(*logger); ok {
		r.mu.Lock()
		r.level = l
		r.mu.Unlock()
	}
}

// ParseLevel maps the §6 CLI --verbosity strings onto a Lvl.
func ParseLevel(s string) (Lvl, error) {
	switch s {
	case "trace":
		return LvlTrace, nil
	case "debug":
		return LvlDebug, nil
	case "info":
		return LvlInfo, nil
	case "warn":
		return LvlWarn, nil
	case "error":
		return LvlError, nil
	default:
		return LvlInfo, fmt.Errorf("log: unknown verbosity %q", s)
	}
}

func (l *logger) New(ctx ...interface{}) Logger {
	nctx := make([]interface{}, 0, len(l.prefix)+len(ctx))
	nctx = append(nctx, l.prefix...)
	nctx = append(nctx, ctx...)
	return &logger{mu: l.mu, out: l.out, color: l.color, prefix: nctx, level: l.level}
}

func (l *logger) write(lvl Lvl, msg string, ctx []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lvl > l.level {
		return
	}
	ts := time.Now().Format("2006-01-02T15:04:05.000")
	if l.color {
		fmt.Fprintf(l.out, "\x1b[%dmt=%s lvl=%s\x1b[0m msg=%q", levelColor[lvl], ts, lvl, msg)
	} else {
		fmt.Fprintf(l.out, "t=%s lvl=%s msg=%q", ts, lvl, msg)
	}
	all := make([]interface{}, 0, len(l.prefix)+len(ctx))
	all = append(all, l.prefix...)
	all = append(all, ctx...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(l.out, " %v=%v", all[i], all[i+1])
	}
	fmt.Fprintln(l.out)
}

func (l *logger) Crit(msg string, ctx ...interface{})  { l.write(LvlCrit, msg, ctx); os.Exit(2) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.write(LvlError, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.write(LvlWarn, msg, ctx) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.write(LvlInfo, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.write(LvlDebug, msg, ctx) }
func (l *logger) Trace(msg string, ctx ...interface{}) { l.write(LvlTrace, msg, ctx) }

// Package-level convenience wrappers over Root, mirroring geth's log.Info etc.
func Crit(msg string, ctx ...interface{})  { Root.Crit(msg, ctx...) }
func Error(msg string, ctx ...interface{}) { Root.Error(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { Root.Warn(msg, ctx...) }
func Info(msg string, ctx ...interface{})  { Root.Info(msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { Root.Debug(msg, ctx...) }
func Trace(msg string, ctx ...interface{}) { Root.Trace(msg, ctx...) }
func New(ctx ...interface{}) Logger        { return Root.New(ctx...) }
