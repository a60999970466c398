package domain

import "errors"

var (
	ErrLeadNotFound          = errors.New("lead not found")
	ErrScheduleConflict      = errors.New("lead is already scheduled with a different meeting")
	ErrNotDue                = errors.New("lead is not due for a nudge")
	ErrNudgeAlreadyScheduled = errors.New("lead already has a nudge schedule")
	ErrNudgeInProgress       = errors.New("lead is being nudged by another worker")
	ErrDeliveryFailed        = errors.New("message delivery failed")
)
