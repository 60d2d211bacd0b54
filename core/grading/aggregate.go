package grading

const (
	MaxDimensions   = 4
	MaxCompetencies = 4
)

// AverageCompetency parses the raw dimension scores of one competency and aggregates them with
// Average. A value outside the scale is reported as an *InvalidScoreError naming its slot and is
// never treated as absent.
func AverageCompetency(dims []string) (Score, error) {
	scores, err := parseDimensions(dims)
	if err != nil {
		return Absent, err
	}
	return Average(scores...), nil
}

// OverallGrade aggregates the per-competency averages of one student, area and bimester.
// Absent averages are skipped; the result does not depend on the order of averages.
func OverallGrade(averages ...Score) (Score, error) {
	for i, s := range averages {
		if !s.Valid() {
			return Absent, &InvalidScoreError{Slot: -1, Competency: i, Value: s.String()}
		}
	}
	return Average(averages...), nil
}

func parseDimensions(dims []string) ([]Score, error) {
	if len(dims) > MaxDimensions {
		return nil, ErrTooManyDimensions
	}
	scores := make([]Score, 0, len(dims))
	for i, raw := range dims {
		s, err := ParseScore(raw)
		if err != nil {
			return nil, &InvalidScoreError{Slot: i, Value: raw}
		}
		scores = append(scores, s)
	}
	return scores, nil
}
