package service

import "errors"

var (
	// ErrNotFound is returned for an unknown report or task id.
	ErrNotFound = errors.New("report not found")
	// ErrInvalidStatus is returned for a status outside the lifecycle enum.
	ErrInvalidStatus = errors.New("invalid status value")
	// ErrPayloadTooLarge is returned when a photo exceeds the configured limit.
	ErrPayloadTooLarge = errors.New("photo exceeds size limit")
	// ErrInvalidInput wraps missing required report fields.
	ErrInvalidInput = errors.New("invalid report")
)
