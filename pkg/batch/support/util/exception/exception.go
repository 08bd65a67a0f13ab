// Package exception defines the error types shared by every stage of the pipeline.
//
// Every failure surfaced by a step is a *BatchError carrying the module that raised it.
// Pipeline failures are further classified by wrapping one of the sentinels
// ErrRead, ErrJoin or ErrWrite, so callers can test the category with errors.Is
// without depending on message text.
package exception

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"reflect"
	"runtime"
	"strings"
	"sync"
)

const (
	// ReadErrorName is the registered name of ErrRead.
	ReadErrorName = "ReadError"
	// JoinErrorName is the registered name of ErrJoin.
	JoinErrorName = "JoinError"
	// WriteErrorName is the registered name of ErrWrite.
	WriteErrorName = "WriteError"
	// OptimisticLockingFailureException is the registered name of ErrOptimisticLockingFailure.
	OptimisticLockingFailureException = "OptimisticLockingFailureException"
)

var (
	// ErrRead marks an input dataset that is absent, unreadable or malformed.
	ErrRead = errors.New(ReadErrorName)
	// ErrJoin marks a fact-resolution operand that is absent, unreadable or has the wrong schema.
	ErrJoin = errors.New(JoinErrorName)
	// ErrWrite marks a failure to persist an output table.
	ErrWrite = errors.New(WriteErrorName)
	// ErrOptimisticLockingFailure marks a stale update of run metadata.
	ErrOptimisticLockingFailure = errors.New(OptimisticLockingFailureException)
)

var (
	errorRegistry = make(map[string]error)
	registryMutex sync.RWMutex
)

// RegisterErrorType registers a sentinel under name so IsErrorOfType can match it.
// It panics on an empty name or a nil prototype.
func RegisterErrorType(name string, prototype error) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if name == "" {
		panic("Error type name cannot be empty")
	}
	if prototype == nil {
		panic(fmt.Sprintf("Cannot register nil prototype for name: %s", name))
	}
	errorRegistry[name] = prototype
}

// IsErrorTypeRegistered reports whether name has been registered.
func IsErrorTypeRegistered(name string) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	_, ok := errorRegistry[name]
	return ok
}

// BatchError is the error type raised by pipeline components.
type BatchError struct {
	// Module is the component that raised the error (e.g. "reader", "writer", "config").
	Module string
	// Message is a short human readable description.
	Message string
	// OriginalErr is the wrapped cause. Category sentinels are joined into it.
	OriginalErr error
	isRetryable bool
	isSkippable bool
	// StackTrace is captured at construction for debugging.
	StackTrace string
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// NewBatchError creates a BatchError.
func NewBatchError(module, message string, originalErr error, isSkippable, isRetryable bool) *BatchError {
	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  captureStack(),
	}
}

// NewBatchErrorf creates a BatchError with a formatted message.
// Trailing arguments are consumed from the end in the order
// [originalErr error], [isRetryable bool], [isSkippable bool];
// whatever remains is passed to fmt.Sprintf.
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	var originalErr error
	isRetryable := false
	isSkippable := false
	args := a

	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	if len(args) > 0 {
		if b, ok := args[len(args)-1].(bool); ok {
			isRetryable = b
			args = args[:len(args)-1]
		}
	}
	if len(args) > 0 {
		if b, ok := args[len(args)-1].(bool); ok {
			isSkippable = b
			args = args[:len(args)-1]
		}
	}

	return &BatchError{
		Module:      module,
		Message:     fmt.Sprintf(format, args...),
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  captureStack(),
	}
}

// newCategorized joins sentinel with cause and wraps both in a fatal BatchError.
func newCategorized(sentinel error, module, message string, cause error) *BatchError {
	wrapped := sentinel
	if cause != nil {
		wrapped = errors.Join(sentinel, cause)
	}
	return NewBatchError(module, message, wrapped, false, false)
}

// NewReadError reports an input dataset that could not be read or decoded.
func NewReadError(module, message string, cause error) *BatchError {
	return newCategorized(ErrRead, module, message, cause)
}

// NewJoinError reports a fact-resolution operand that could not be obtained.
func NewJoinError(module, message string, cause error) *BatchError {
	return newCategorized(ErrJoin, module, message, cause)
}

// NewWriteError reports an output table that could not be persisted.
func NewWriteError(module, message string, cause error) *BatchError {
	return newCategorized(ErrWrite, module, message, cause)
}

// NewOptimisticLockingFailureException reports a stale metadata update.
func NewOptimisticLockingFailureException(module, message string, cause error) *BatchError {
	return newCategorized(ErrOptimisticLockingFailure, module, message, cause)
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable reports whether the error was marked retryable.
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable reports whether the error was marked skippable.
func (e *BatchError) IsSkippable() bool {
	return e.isSkippable
}

// IsBatchError reports whether err, or any error it wraps, is a *BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}

// IsReadError reports whether err is classified as a read failure.
func IsReadError(err error) bool {
	return err != nil && errors.Is(err, ErrRead)
}

// IsJoinError reports whether err is classified as a join failure.
func IsJoinError(err error) bool {
	return err != nil && errors.Is(err, ErrJoin)
}

// IsWriteError reports whether err is classified as a write failure.
func IsWriteError(err error) bool {
	return err != nil && errors.Is(err, ErrWrite)
}

// IsOptimisticLockingFailure reports whether err is a stale metadata update.
func IsOptimisticLockingFailure(err error) bool {
	return err != nil && errors.Is(err, ErrOptimisticLockingFailure)
}

// Category returns the registered name of the pipeline category err belongs to,
// or "" when it is unclassified. A join failure caused by an unreadable operand
// is reported as JoinError.
func Category(err error) string {
	switch {
	case IsJoinError(err):
		return JoinErrorName
	case IsReadError(err):
		return ReadErrorName
	case IsWriteError(err):
		return WriteErrorName
	default:
		return ""
	}
}

// IsFatal reports whether err can be neither retried nor skipped.
// The pipeline has no retry policy, so every BatchError built by the category constructors is fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var be *BatchError
	if errors.As(err, &be) {
		return !be.IsRetryable() && !be.IsSkippable()
	}
	errStr := err.Error()
	return strings.Contains(errStr, "invalid argument") ||
		strings.Contains(errStr, "permission denied") ||
		strings.Contains(errStr, "data corruption")
}

// IsErrorOfType matches err against a registered name, a message substring, or a Go type name.
func IsErrorOfType(err error, errorTypeName string) bool {
	if err == nil {
		return false
	}

	registryMutex.RLock()
	target, ok := errorRegistry[errorTypeName]
	registryMutex.RUnlock()
	if ok && errors.Is(err, target) {
		return true
	}

	for current := err; current != nil; current = errors.Unwrap(current) {
		if strings.Contains(current.Error(), errorTypeName) {
			return true
		}
		if errType := reflect.TypeOf(current); errType != nil {
			if errType.String() == errorTypeName || (errType.Kind() == reflect.Ptr && errType.Elem().String() == errorTypeName) {
				return true
			}
		}
	}
	return false
}

// ExtractErrorMessage returns the Message of a BatchError, or err.Error() otherwise.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if be, ok := err.(*BatchError); ok {
		return be.Message
	}
	return err.Error()
}

func init() {
	RegisterErrorType(ReadErrorName, ErrRead)
	RegisterErrorType(JoinErrorName, ErrJoin)
	RegisterErrorType(WriteErrorName, ErrWrite)
	RegisterErrorType(OptimisticLockingFailureException, ErrOptimisticLockingFailure)

	RegisterErrorType("io.EOF", io.EOF)
	RegisterErrorType("io.ErrUnexpectedEOF", io.ErrUnexpectedEOF)
	RegisterErrorType("context.DeadlineExceeded", context.DeadlineExceeded)
	RegisterErrorType("context.Canceled", context.Canceled)
	RegisterErrorType("sql.ErrNoRows", sql.ErrNoRows)
}
