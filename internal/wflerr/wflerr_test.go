package wflerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewHasNoCause(t *testing.T) {
	err := New(CategoryConfigLoad, "bad config")
	assert.Equal(t, "CONFIG_LOAD_ERROR: bad config", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestWrapIncludesCauseInMessageAndUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(CategorySourceRead, "failed to read main.wfl", cause)
	assert.Equal(t, "SOURCE_READ_ERROR: failed to read main.wfl (caused by: disk full)", err.Error())
	assert.Same(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, cause))
}

func TestWithContextChainsAndStores(t *testing.T) {
	err := New(CategoryInternal, "unexpected state").WithContext("phase", "lexer")
	assert.Equal(t, "lexer", err.Context["phase"])
}

func TestIsMatchesCategoryOnly(t *testing.T) {
	err := New(CategoryCacheIO, "write failed")
	assert.True(t, Is(err, CategoryCacheIO))
	assert.False(t, Is(err, CategoryConfigLoad))
	assert.False(t, Is(errors.New("plain error"), CategoryCacheIO))
}
