package grading

import (
	"strconv"
	"strings"
)

// Score is a grade on the descending achievement scale AD > A > B > C.
// The zero value is Absent.
type Score int8

const (
	Absent Score = iota
	C            // beginning
	B            // in process
	A            // achieved
	AD           // outstanding
)

const absentSymbol = "-"

var symbols = [...]string{
	Absent: absentSymbol,
	C:      "C",
	B:      "B",
	A:      "A",
	AD:     "AD",
}

// ParseScore maps a letter to its Score. Letters are matched case-insensitively after trimming;
// an empty string or "-" is Absent.
func ParseScore(s string) (Score, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", absentSymbol:
		return Absent, nil
	case "C":
		return C, nil
	case "B":
		return B, nil
	case "A":
		return A, nil
	case "AD":
		return AD, nil
	}
	return Absent, &InvalidScoreError{Slot: -1, Value: s}
}

// Valid reports whether s is Absent or one of the four letters.
func (s Score) Valid() bool {
	return s >= Absent && s <= AD
}

func (s Score) IsAbsent() bool { return s == Absent }

func (s Score) String() string {
	if !s.Valid() {
		return "Score(" + strconv.Itoa(int(s)) + ")"
	}
	return symbols[s]
}

func (s Score) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, &InvalidScoreError{Slot: -1, Value: s.String()}
	}
	return []byte(symbols[s]), nil
}

func (s *Score) UnmarshalText(text []byte) error {
	v, err := ParseScore(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Average aggregates present scores: the mean of their numeric encodings (AD=4, A=3, B=2, C=1)
// rounded half up, so a mean of exactly x.5 goes to the higher letter. Absent scores are left
// out of the denominator; with no present score the result is Absent.
// Invalid scores must be filtered by the caller.
func Average(scores ...Score) Score {
	var sum, n int
	for _, s := range scores {
		if s == Absent {
			continue
		}
		sum += int(s)
		n++
	}
	if n == 0 {
		return Absent
	}
	// floor(sum/n + 1/2) without floating point
	return Score((2*sum + n) / (2 * n))
}
