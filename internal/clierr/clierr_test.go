package clierr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, New(InternalError, "boom").ExitCode())
	assert.Equal(t, 1, New(TaskNotFound, "missing").ExitCode())
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("task not found")
	err := Wrap(TaskNotFound, cause).WithDetails(map[string]any{"id": "abc"})

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "task not found", err.Error())
	assert.Equal(t, "abc", err.Details["id"])
}

func TestNewf(t *testing.T) {
	err := Newf(InvalidIndex, "index %d out of range", 7)
	assert.Equal(t, "index 7 out of range", err.Message)
	assert.Equal(t, InvalidIndex, err.Code)
}
