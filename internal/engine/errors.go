package engine

import "errors"

var (
	// ErrNotFound means the request id is unknown to both the live and
	// historical sets.
	ErrNotFound = errors.New("request not found")

	// ErrAccessDenied means the caller does not own the request.
	ErrAccessDenied = errors.New("access denied")

	// ErrDuplicateID means an enqueue collided with an existing request id.
	ErrDuplicateID = errors.New("duplicate request id")

	// ErrInvalidTransition is a scheduling invariant violation: a status
	// move outside the legal lifecycle graph. Callers must log it loudly
	// and abort the request, never swallow it.
	ErrInvalidTransition = errors.New("illegal status transition")

	// ErrHandoffRepeated means a request was asked to return to the queue
	// for desktop execution a second time.
	ErrHandoffRepeated = errors.New("desktop handoff already performed")

	// ErrResultRequired / ErrResultForbidden guard the invariant that a
	// result exists exactly on completed and failed requests.
	ErrResultRequired  = errors.New("terminal transition requires a result")
	ErrResultForbidden = errors.New("non-terminal transition must not carry a result")
)
