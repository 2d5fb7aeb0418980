package domain

import "errors"

var (
	ErrInvalidSnapshot          = errors.New("invalid snapshot")
	ErrFinancialJoinUnavailable = errors.New("financial join unavailable")
	ErrAlertSink                = errors.New("alert sink failure")
	ErrRunNotFound              = errors.New("analysis run not found")
	ErrStoreNotConfigured       = errors.New("snapshot store not configured")
)
