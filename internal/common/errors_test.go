package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewRemoteError("insert", cause)

	assert.Equal(t, "remote insert: connection refused", err.Error())
	require.ErrorIs(t, err, cause)
}

func TestRemoteError_As(t *testing.T) {
	wrapped := fmt.Errorf("saving draft: %w", NewRemoteError("update", errors.New("permission denied")))

	var re *RemoteError
	require.ErrorAs(t, wrapped, &re)
	assert.Equal(t, "update", re.Op)
	assert.Equal(t, "permission denied", re.Message)
}

func TestRemoteError_NilCause(t *testing.T) {
	err := NewRemoteError("", nil)
	assert.Equal(t, "remote: unknown error", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}
