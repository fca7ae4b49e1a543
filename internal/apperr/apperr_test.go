package apperr

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidation_WrapsSentinel(t *testing.T) {
	err := Validation("title is required")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "title is required")
}

func TestStorage_KeepsCause(t *testing.T) {
	err := Storage("insert note", io.ErrUnexpectedEOF)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Nil(t, Storage("noop", nil))
	assert.False(t, errors.Is(err, ErrNotFound))
}
