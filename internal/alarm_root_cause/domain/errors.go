package domain

import (
	"errors"

	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/trend"
)

var (
	ErrRunNotFound    = errors.New("analysis run not found")
	ErrInvalidParams  = errors.New("invalid analysis parameters")
	ErrUnknownUseCase = errors.New("unknown use case")
	ErrResultNotFound = errors.New("analysis result not found")

	// ErrNoAlarms reports a root reached the reasoner without its alarm list.
	ErrNoAlarms = trend.ErrNoAlarms
)
