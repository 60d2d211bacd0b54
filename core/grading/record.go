package grading

import (
	"time"
)

const Bimesters = 4

// Slots holds the raw dimension scores of a record, indexed [competency][dimension].
type Slots [MaxCompetencies][MaxDimensions]Score

// GradeRecord is the persisted grade of one student in one area and bimester.
// Averages and Overall are derived; only ComputeDerived writes them.
type GradeRecord struct {
	ID           string                 `json:"id"`
	EnrollmentID string                 `json:"enrollment_id"`
	StudentName  string                 `json:"student_name"`
	Area         string                 `json:"area"`
	Bimester     int                    `json:"bimester"`
	Slots        Slots                  `json:"slots"`
	Averages     [MaxCompetencies]Score `json:"averages"`
	Overall      Score                  `json:"overall"`
	UpdatedBy    string                 `json:"updated_by,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// ValidateBimester checks that b is one of the four bimesters of the school year.
func ValidateBimester(b int) error {
	if b < 1 || b > Bimesters {
		return ErrInvalidBimester
	}
	return nil
}

// ParseSlots reads the raw rows of an entry, one row per competency of area.
// Rows beyond the area's competencies must be empty or absent.
func ParseSlots(area Area, raw [][]string) (Slots, error) {
	var slots Slots
	if len(raw) > MaxCompetencies {
		return slots, ErrUnknownCompetency
	}
	for c, dims := range raw {
		scores, err := parseDimensions(dims)
		if err != nil {
			if ise, ok := err.(*InvalidScoreError); ok {
				ise.Competency = c
			}
			return slots, err
		}
		if c >= len(area.Competencies) {
			if Average(scores...) != Absent {
				return slots, ErrUnknownCompetency
			}
			continue
		}
		copy(slots[c][:], scores)
	}
	return slots, nil
}

// ComputeDerived recalculates Averages and Overall from Slots for the given area.
func (r *GradeRecord) ComputeDerived(area Area) error {
	var averages [MaxCompetencies]Score
	for c := range r.Slots {
		for d, s := range r.Slots[c] {
			if !s.Valid() {
				return &InvalidScoreError{Competency: c, Slot: d, Value: s.String()}
			}
		}
		avg := Average(r.Slots[c][:]...)
		if c >= len(area.Competencies) {
			if avg != Absent {
				return ErrUnknownCompetency
			}
			continue
		}
		averages[c] = avg
	}
	overall, err := OverallGrade(averages[:len(area.Competencies)]...)
	if err != nil {
		return err
	}
	r.Averages = averages
	r.Overall = overall
	return nil
}
