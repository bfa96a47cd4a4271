// Package cmn holds the error taxonomy, logging, and small helpers shared
// by every layer of the overset assembly engine.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind is one of the failure conditions named in spec.md §7. A Kind is
// not a concrete error type — it's a sentinel every raised error wraps,
// so callers can classify a failure without caring which layer raised it.
type Kind struct {
	name string
}

func (k *Kind) Error() string { return k.name }

var (
	ErrTransport     = &Kind{"Transport"}
	ErrOutOfRange    = &Kind{"OutOfRange"}
	ErrConfiguration = &Kind{"Configuration"}
	ErrInvariant     = &Kind{"Invariant"}
	ErrUseAfterFree  = &Kind{"UseAfterFree"}
	ErrNotFound      = &Kind{"NotFound"}
)

// Raise wraps kind with a call-site message and offending identifier,
// attaching a stack trace via github.com/pkg/errors so a top-level %+v
// print identifies where the invariant actually broke.
func Raise(kind *Kind, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return pkgerrors.WithStack(&taggedError{kind: kind, msg: msg})
}

type taggedError struct {
	kind *Kind
	msg  string
}

func (e *taggedError) Error() string { return e.kind.name + ": " + e.msg }
func (e *taggedError) Unwrap() error { return e.kind }

// KindOf unwraps err down to the Kind sentinel it was raised with, or nil
// if err was never raised through Raise (e.g. it came straight from a
// third-party library). The CLI layer uses this for its single top-level
// translation from error to exit code (spec.md §7).
func KindOf(err error) *Kind {
	var k *Kind
	for _, candidate := range []*Kind{ErrTransport, ErrOutOfRange, ErrConfiguration, ErrInvariant, ErrUseAfterFree, ErrNotFound} {
		if errors.Is(err, candidate) {
			k = candidate
			break
		}
	}
	return k
}

// Wrap re-raises an error from a transport or library boundary as the
// given kind, preserving the original error as the cause.
func Wrap(kind *Kind, err error, context string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.WithStack(&wrappedError{kind: kind, context: context, cause: err})
}

type wrappedError struct {
	kind    *Kind
	context string
	cause   error
}

func (e *wrappedError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.kind.name, e.context, e.cause)
}
func (e *wrappedError) Unwrap() error { return e.kind }
func (e *wrappedError) Cause() error  { return e.cause }
