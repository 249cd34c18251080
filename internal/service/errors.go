package service

import (
	"errors"
	"fmt"
)

// 错误类别，调用方用 errors.Is 判断
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidScore        = errors.New("invalid score")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrConfiguration       = errors.New("configuration error")
)

// EngineError 带操作上下文的引擎错误
type EngineError struct {
	Op      string // 出错的操作，如 "ExperienceLedger.Apply"
	Kind    error  // 错误类别
	Message string
	Err     error // 底层错误（可选）
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *EngineError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

func (e *EngineError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	return e.Err != nil && errors.Is(e.Err, target)
}

func newError(op string, kind error, format string, args ...any) *EngineError {
	return &EngineError{Op: op, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(op string, kind error, message string, err error) *EngineError {
	return &EngineError{Op: op, Kind: kind, Message: message, Err: err}
}
