package grading

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidScoreValue = errors.New("invalid score value")
	ErrAmbiguousMatch    = errors.New("ambiguous student match")
	ErrNoMatch           = errors.New("no matching student")
	ErrTooManyDimensions = fmt.Errorf("a competency has at most %d dimensions", MaxDimensions)
	ErrUnknownCompetency = errors.New("score given for a competency the area does not have")
	ErrUnknownArea       = errors.New("unknown subject area")
	ErrInvalidBimester   = errors.New("bimester must be between 1 and 4")
	ErrDuplicateEntry    = errors.New("student already has an entry in this batch")
)

// InvalidScoreError reports a raw slot value outside {AD, A, B, C, absent}.
// Slot is the dimension index within its competency, or -1 when unknown.
type InvalidScoreError struct {
	Competency int
	Slot       int
	Value      string
}

func (e *InvalidScoreError) Error() string {
	if e.Slot < 0 {
		return fmt.Sprintf("%v: %q", ErrInvalidScoreValue, e.Value)
	}
	return fmt.Sprintf("%v: %q at competency %d, dimension %d", ErrInvalidScoreValue, e.Value, e.Competency+1, e.Slot+1)
}

func (e *InvalidScoreError) Is(target error) bool { return target == ErrInvalidScoreValue }

// AmbiguousMatchError carries every enrolled student sharing the normalized name.
type AmbiguousMatchError struct {
	Name       string
	Candidates []StudentIdentity
}

func (e *AmbiguousMatchError) Error() string {
	ids := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		ids = append(ids, c.EnrollmentID)
	}
	return fmt.Sprintf("%v: %q matches %s", ErrAmbiguousMatch, e.Name, strings.Join(ids, ", "))
}

func (e *AmbiguousMatchError) Is(target error) bool { return target == ErrAmbiguousMatch }
