package exception_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/songplays/pkg/batch/support/util/exception"
)

type CustomError struct {
	Msg string
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("CustomError: %s", e.Msg)
}

func TestNewBatchError(t *testing.T) {
	originalErr := errors.New("bucket not found")
	be := exception.NewBatchError("reader", "failed to list objects", originalErr, false, true)

	assert.Equal(t, "reader", be.Module)
	assert.Equal(t, "failed to list objects", be.Message)
	assert.Equal(t, originalErr, be.Unwrap())
	assert.True(t, be.IsRetryable())
	assert.False(t, be.IsSkippable())
	assert.Contains(t, be.Error(), "[reader] failed to list objects: bucket not found")
	assert.NotEmpty(t, be.StackTrace)
}

func TestNewBatchErrorf(t *testing.T) {
	be1 := exception.NewBatchErrorf("writer", "partition %s has %d rows", "year=2018", 10)
	assert.Equal(t, "partition year=2018 has 10 rows", be1.Message)
	assert.Nil(t, be1.Unwrap())
	assert.False(t, be1.IsRetryable())

	cause := errors.New("disk full")
	be2 := exception.NewBatchErrorf("writer", "upload failed", true, false, cause)
	assert.True(t, be2.IsSkippable())
	assert.False(t, be2.IsRetryable())
	assert.Equal(t, cause, be2.Unwrap())

	be3 := exception.NewBatchErrorf("net", "timeout", true)
	assert.True(t, be3.IsRetryable())
	assert.False(t, be3.IsSkippable())
}

func TestCategorizedErrors(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")

	readErr := exception.NewReadError("reader", "malformed song record", cause)
	assert.True(t, exception.IsReadError(readErr))
	assert.False(t, exception.IsJoinError(readErr))
	assert.False(t, exception.IsWriteError(readErr))
	assert.ErrorIs(t, readErr, cause)
	assert.True(t, exception.IsFatal(readErr))
	assert.Equal(t, exception.ReadErrorName, exception.Category(readErr))

	joinErr := exception.NewJoinError("fact", "songs table missing", nil)
	assert.True(t, exception.IsJoinError(joinErr))
	assert.Equal(t, exception.JoinErrorName, exception.Category(joinErr))

	writeErr := exception.NewWriteError("writer", "upload failed", cause)
	wrapped := fmt.Errorf("step failed: %w", writeErr)
	assert.True(t, exception.IsWriteError(wrapped))
	assert.True(t, exception.IsBatchError(wrapped))
	assert.Equal(t, exception.WriteErrorName, exception.Category(wrapped))

	assert.Equal(t, "", exception.Category(cause))
	assert.Equal(t, "", exception.Category(nil))
}

func TestOptimisticLockingFailure(t *testing.T) {
	err := exception.NewOptimisticLockingFailureException("repository", "stale step execution", nil)
	assert.True(t, exception.IsOptimisticLockingFailure(err))
	assert.False(t, exception.IsOptimisticLockingFailure(errors.New("other")))
}

func TestIsErrorOfType(t *testing.T) {
	assert.True(t, exception.IsErrorTypeRegistered(exception.ReadErrorName))
	assert.False(t, exception.IsErrorTypeRegistered("NoSuchError"))

	err := exception.NewReadError("reader", "truncated object", io.ErrUnexpectedEOF)
	assert.True(t, exception.IsErrorOfType(err, "ReadError"))
	assert.True(t, exception.IsErrorOfType(err, "io.ErrUnexpectedEOF"))
	assert.True(t, exception.IsErrorOfType(err, "truncated"))
	assert.False(t, exception.IsErrorOfType(err, "WriteError"))

	custom := fmt.Errorf("wrap: %w", &CustomError{Msg: "x"})
	assert.True(t, exception.IsErrorOfType(custom, "exception_test.CustomError"))
	assert.False(t, exception.IsErrorOfType(nil, "ReadError"))
}

func TestExtractErrorMessage(t *testing.T) {
	assert.Equal(t, "", exception.ExtractErrorMessage(nil))
	assert.Equal(t, "clean message", exception.ExtractErrorMessage(exception.NewBatchError("m", "clean message", errors.New("noise"), false, false)))
	assert.Equal(t, "plain", exception.ExtractErrorMessage(errors.New("plain")))
}
