package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesCode(t *testing.T) {
	base := NotFoundf("no game with ID %s", "AB12CD34")

	wrapped := Wrap(base, "loading lobby")
	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, CodeNotFound, GetCode(wrapped))
	assert.Contains(t, wrapped.Error(), "loading lobby")

	plain := Wrap(errors.New("connection refused"), "loading lobby")
	assert.Equal(t, CodeInternal, GetCode(plain))
}

func TestWrapSurvivesFmtErrorf(t *testing.T) {
	base := InvalidState("vote tally already running")
	wrapped := fmt.Errorf("resolving day vote: %w", base)

	assert.True(t, IsInvalidState(wrapped))
	assert.False(t, IsNotFound(wrapped))
}

func TestWithMeta(t *testing.T) {
	err := InvalidArgument("unknown target").
		WithMeta("target", "Scholar Theron").
		WithMeta("phase", "night")

	meta := GetMeta(err)
	assert.Equal(t, "Scholar Theron", meta["target"])
	assert.Equal(t, "night", meta["phase"])

	assert.Nil(t, GetMeta(errors.New("bare")))
}

func TestGetCodeOnNil(t *testing.T) {
	assert.Equal(t, CodeUnknown, GetCode(nil))
	assert.False(t, IsNotFound(nil))
}
