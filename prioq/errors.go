package prioq

import "errors"

// ErrAllocation is returned by Insert and New when the node allocator
// cannot satisfy a request (out of memory). It is never returned for any
// reason related to contention — contention is always resolved by retry.
var ErrAllocation = errors.New("prioq: allocation failure")

// ErrClosed is returned by any operation performed with a Handle against a
// Queue that has already been destroyed via Close.
var ErrClosed = errors.New("prioq: queue closed")

// ErrNotRegistered is returned by any operation performed with a Handle
// that was never registered with this Queue, or whose Close was already
// called. Misusing a handle this way is a programming error; spec §7
// allows the behavior to be undefined, but a memory-safe host language can
// cheaply detect it instead, so this is returned rather than corrupting
// state.
var ErrNotRegistered = errors.New("prioq: handle not registered")
