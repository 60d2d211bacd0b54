package grading

import (
	"errors"
	"fmt"
)

// Entry is one row of a bulk grade submission as typed by an evaluator.
// Scores holds raw letters indexed [competency][dimension].
type Entry struct {
	StudentName  string     `json:"student_name"`
	EnrollmentID string     `json:"enrollment_id,omitempty"`
	Scores       [][]string `json:"scores"`
}

// Outcome is the result of consolidating one Entry. Exactly one of Record and Err is set.
type Outcome struct {
	// Row is the 1-based position of the entry in the submission.
	Row     int
	Entry   Entry
	Student StudentIdentity
	Record  *GradeRecord
	Err     error
}

// NeedsReview reports whether the entry could not be consolidated.
func (o Outcome) NeedsReview() bool { return o.Err != nil }

// Candidates returns the ambiguous candidates when resolution failed with AmbiguousMatch.
func (o Outcome) Candidates() []StudentIdentity {
	var amb *AmbiguousMatchError
	if errors.As(o.Err, &amb) {
		return amb.Candidates
	}
	return nil
}

// Batch holds the outcome of every entry of a submission, in submission order.
type Batch struct {
	Area     string
	Bimester int
	Outcomes []Outcome
}

// Ready returns the records that consolidated cleanly.
func (b Batch) Ready() []GradeRecord {
	records := make([]GradeRecord, 0, len(b.Outcomes))
	for _, o := range b.Outcomes {
		if o.Record != nil {
			records = append(records, *o.Record)
		}
	}
	return records
}

// EntryError is a per-entry failure as shown in a summary.
type EntryError struct {
	Row         int    `json:"row"`
	StudentName string `json:"student_name"`
	Error       string `json:"error"`
}

// Summary is the aggregate result of a batch, e.g. "18 saved, 2 need review".
type Summary struct {
	Total       int          `json:"total"`
	Ready       int          `json:"ready"`
	NeedsReview int          `json:"needs_review"`
	Errors      []EntryError `json:"errors,omitempty"`
}

func (s Summary) String() string {
	return fmt.Sprintf("%d saved, %d need review", s.Ready, s.NeedsReview)
}

func (b Batch) Summary() Summary {
	sum := Summary{Total: len(b.Outcomes)}
	for _, o := range b.Outcomes {
		if !o.NeedsReview() {
			sum.Ready++
			continue
		}
		sum.NeedsReview++
		sum.Errors = append(sum.Errors, EntryError{Row: o.Row, StudentName: o.Entry.StudentName, Error: o.Err.Error()})
	}
	return sum
}

// Consolidate resolves and grades every entry of a submission for one area and bimester.
// A failing entry is recorded in its Outcome and never stops the others. Only an invalid
// bimester, which applies to the whole submission, is returned as an error.
// When two entries resolve to the same student the later one is flagged with ErrDuplicateEntry.
func Consolidate(idx *Index, area Area, bimester int, entries []Entry) (Batch, error) {
	if err := ValidateBimester(bimester); err != nil {
		return Batch{}, err
	}
	batch := Batch{Area: area.Code, Bimester: bimester, Outcomes: make([]Outcome, 0, len(entries))}
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		o := Outcome{Row: i + 1, Entry: e}
		o.Student, o.Err = idx.ResolveEntry(e.StudentName, e.EnrollmentID)
		if o.Err == nil {
			if first, dup := seen[o.Student.EnrollmentID]; dup {
				o.Err = fmt.Errorf("%w (row %d)", ErrDuplicateEntry, first)
			} else {
				seen[o.Student.EnrollmentID] = o.Row
				o.Record, o.Err = consolidateEntry(area, bimester, o.Student, e)
			}
		}
		batch.Outcomes = append(batch.Outcomes, o)
	}
	return batch, nil
}

func consolidateEntry(area Area, bimester int, st StudentIdentity, e Entry) (*GradeRecord, error) {
	slots, err := ParseSlots(area, e.Scores)
	if err != nil {
		return nil, err
	}
	rec := &GradeRecord{
		EnrollmentID: st.EnrollmentID,
		StudentName:  st.DisplayName,
		Area:         area.Code,
		Bimester:     bimester,
		Slots:        slots,
	}
	if err := rec.ComputeDerived(area); err != nil {
		return nil, err
	}
	return rec, nil
}
