package dispatch

import "errors"

var (
	// ErrEmergencyNotFound indicates the emergency id is unknown.
	ErrEmergencyNotFound = errors.New("dispatch: emergency not found")
	// ErrAlreadyDispatched indicates an invalid state transition: the
	// emergency already left the pre-dispatch states.
	ErrAlreadyDispatched = errors.New("dispatch: emergency already dispatched")
	// ErrAllocationFailed indicates no resources could be obtained anywhere
	// for the requirement set. Fatal, the dispatch aborts.
	ErrAllocationFailed = errors.New("dispatch: allocation failed")
	// ErrDispatchFailed wraps unexpected failures inside the transaction.
	// The transaction is rolled back in full.
	ErrDispatchFailed = errors.New("dispatch: dispatch failed")
)
