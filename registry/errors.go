package registry

import "errors"

// ErrNotFound is returned by PutWithTTL with PutOptions.MustExist=true when
// the key is absent — the signal the ping loop uses to detect a record that
// has been evicted or never existed (spec §4.4 step 3).
var ErrNotFound = errors.New("registry: key not found")

// ErrClosed is returned by an Adapter that tracks closed handles when a
// method is invoked on a Handle it has already closed; the in-memory fake
// adapter does so from PutWithTTL, Delete and List.
var ErrClosed = errors.New("registry: handle is closed")
