package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig     = errors.New("invalid bot config")
	ErrTierLimitExceeded = errors.New("tier limit exceeded")
	ErrAlreadyRunning    = errors.New("bot already running")
	ErrNotRunning        = errors.New("bot not running")
	ErrTimeout           = errors.New("request timeout")
	ErrRemoteRejected    = errors.New("remote rejected request")
	ErrConnectionLost    = errors.New("connection lost")
	ErrInsufficientData  = errors.New("insufficient data")
	ErrPersistence       = errors.New("persistence error")
	ErrNotFound          = errors.New("not found")
	ErrShuttingDown      = errors.New("service shutting down")
)

// RemoteError — error-объект из ответа площадки.
type RemoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote rejected: %s: %s", e.Code, e.Message)
}

func (e *RemoteError) Unwrap() error { return ErrRemoteRejected }
