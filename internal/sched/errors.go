package sched

import "errors"

var (
	ErrInvalidTiming = errors.New("invalid timing parameters")
	ErrUnknownTask   = errors.New("unknown task")
	ErrCapacity      = errors.New("task registry capacity exceeded")
	ErrInvalidCPU    = errors.New("invalid cpu")
	ErrMigration     = errors.New("migration failed")
)
