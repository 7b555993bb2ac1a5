package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap("send", nil))

	base := errors.New("connection refused")
	err := Wrap("send", base)

	var te *Error
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, "send", te.Op)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "transport send: connection refused", err.Error())

	assert.Same(t, err, Wrap("receive", err))
}
