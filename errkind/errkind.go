// Copyright 2024 The SuperGenius Authors
// This file is part of the sgnode-go library.
//
// Licensed under the GNU Lesser General Public License, Version 3.

// Package errkind classifies every fallible-operation error into one of the
// five categories of spec.md §7. No exception ever crosses a component
// boundary: every public method returns (T, error), and the error - if
// non-nil - always wraps one of these sentinels so callers can switch on
// errors.Is instead of string-matching.
package errkind

import "errors"

// Kind is one of the five error categories from spec.md §7.
type Kind int

const (
	// NotFound is recoverable: the caller decides whether to trigger a sync.
	NotFound Kind = iota
	// Corruption is fatal to the operation; the containing batch is aborted.
	Corruption
	// InvariantViolation is fatal to the operation but not to the process.
	InvariantViolation
	// Transient should be retried with backoff where applicable.
	Transient
	// PermissionDenied means the offending message/operation is discarded.
	PermissionDenied
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Corruption:
		return "corruption"
	case InvariantViolation:
		return "invariant_violation"
	case Transient:
		return "transient"
	case PermissionDenied:
		return "permission_denied"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with its §7 classification.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a classified error from a cause.
func New(k Kind, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: k, Cause: cause}
}

// Is reports whether err (or anything it wraps) carries kind k.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// Sentinel errors reused across packages, always wrapped via New before
// leaving the component that raised them.
var (
	ErrNotFound             = errors.New("not found")
	ErrTooManyNibbles       = errors.New("trie: too many nibbles")
	ErrUnknownNodeType      = errors.New("codec: unknown node type")
	ErrInputTooSmall        = errors.New("codec: input too small")
	ErrNoNodeValue          = errors.New("codec: leaf without value")
	ErrParentExpired        = errors.New("triestorage: parent batch expired")
	ErrGenesisAlreadyExists = errors.New("blockstorage: genesis block already exists")
	ErrFinalizedNotFound    = errors.New("blockstorage: finalized block not found")
	ErrBlockExists          = errors.New("blockstorage: block already exists")
	ErrParentMissing        = errors.New("blocktree: parent not in tree")
	ErrNotDescendant        = errors.New("blocktree: target is not a descendant of the finalized tip")
	ErrLockNotHeld          = errors.New("processing: lock not held")
	ErrStaleTransaction     = errors.New("txpool: transaction is stale")
	ErrBadSignature         = errors.New("txmanager: bad signature")
	ErrInsufficientFunds    = errors.New("account: insufficient unlocked funds")
	ErrEscrowNotFound       = errors.New("txmanager: escrow not found")
	ErrSubtaskAlreadyPaid   = errors.New("txmanager: subtask already recorded")
	ErrTaskLockHeld         = errors.New("processing: task lock held by another worker")
	ErrUnknownTransaction   = errors.New("txmanager: unknown transaction tag")
	ErrUnknownFrameType     = errors.New("finality: unknown gossip frame type")
)
