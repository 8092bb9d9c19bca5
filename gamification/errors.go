package gamification

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrMissingFields      = errors.New("activity and data are required")
	ErrInvalidActivity    = errors.New("invalid activity type")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidWorkoutData = errors.New("workout data requires positive duration and caloriesBurned")
	ErrInvalidMood        = errors.New("invalid mood")
	ErrInvalidChallenge   = errors.New("invalid challenge")
)

// StorageError wraps a record store failure. Op names the step that failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("gamification storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// storageErr wraps err unless it is already a domain error raised inside a mutation.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) || isDomainError(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func isDomainError(err error) bool {
	for _, target := range []error{
		ErrUnauthenticated, ErrMissingFields, ErrInvalidActivity, ErrInvalidCategory,
		ErrInvalidWorkoutData, ErrInvalidMood, ErrInvalidChallenge,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
