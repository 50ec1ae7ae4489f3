package cluster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := newError("Join", KindAdapter, cause)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, KindAdapter, err.Kind)
	assert.Contains(t, err.Error(), "Join")
	assert.Contains(t, err.Error(), "adapter")
}

func TestBusyErr(t *testing.T) {
	err := busyErr("SetWorkers")
	assert.True(t, errors.Is(err, ErrBusy))
	var cerr *Error
	assert.True(t, errors.As(err, &cerr))
	assert.Equal(t, KindBusy, cerr.Kind)
}

func TestNotJoinedErr(t *testing.T) {
	err := notJoinedErr("Leave")
	assert.True(t, errors.Is(err, ErrNotJoined))
}

func TestInvalidErrWrapsSentinel(t *testing.T) {
	err := invalidErr("SetWorkers", errors.New("workers must be >= 1"))
	assert.True(t, errors.Is(err, ErrInvalid))
}
