package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when a job cannot be scheduled as configured
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrJobNotFound is returned by RunNow for an unknown job name
	ErrJobNotFound = errors.New("job not found")

	// ErrJobLocked is returned when another instance is running the same sweep
	ErrJobLocked = errors.New("job is running on another instance")
)
