package pool

import (
	"errors"
	"fmt"
)

// ErrPoolLoad classifies every failure to build a pool.
var ErrPoolLoad = errors.New("unable to load questions")

// ErrEmptyPool is returned when loading and sampling produced no items.
var ErrEmptyPool = fmt.Errorf("%w: pool is empty", ErrPoolLoad)

// LoadError reports which source failed and why. No partial pool is ever
// returned alongside it.
type LoadError struct {
	Group  string
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Group == "" {
		return fmt.Sprintf("unable to load questions from %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("unable to load questions for group %q from %s: %v", e.Group, e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrPoolLoad) match any LoadError.
func (e *LoadError) Is(target error) bool {
	return target == ErrPoolLoad
}
