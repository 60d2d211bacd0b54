package grading

// StudentIdentity is the canonical enrolled student. EnrollmentID is authoritative;
// DisplayName ("paternal maternal, given names") is only used to derive the lookup key.
type StudentIdentity struct {
	EnrollmentID string `json:"enrollment_id"`
	DisplayName  string `json:"display_name"`
}

// Index maps normalized display names to the enrolled students sharing them.
// It is built once per roster snapshot and never mutated afterwards, so it can be shared by
// concurrent callers. Rebuild it when the roster changes.
type Index struct {
	byName map[string][]StudentIdentity
	byID   map[string]StudentIdentity
	size   int
}

// BuildIndex indexes a roster snapshot. Students whose enrollment id was already seen are
// skipped; the first occurrence wins.
func BuildIndex(roster []StudentIdentity) *Index {
	idx := &Index{
		byName: make(map[string][]StudentIdentity, len(roster)),
		byID:   make(map[string]StudentIdentity, len(roster)),
	}
	for _, st := range roster {
		if _, seen := idx.byID[st.EnrollmentID]; seen && st.EnrollmentID != "" {
			continue
		}
		if st.EnrollmentID != "" {
			idx.byID[st.EnrollmentID] = st
		}
		key := NormalizeIdentity(st.DisplayName)
		idx.byName[key] = append(idx.byName[key], st)
		idx.size++
	}
	return idx
}

// Len returns the number of indexed students.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return idx.size
}

// Candidates returns a copy of the students whose normalized name equals the normalized rawName.
func (idx *Index) Candidates(rawName string) []StudentIdentity {
	if idx == nil {
		return nil
	}
	found := idx.byName[NormalizeIdentity(rawName)]
	if len(found) == 0 {
		return nil
	}
	out := make([]StudentIdentity, len(found))
	copy(out, found)
	return out
}

// Resolve matches a free-text name against the roster by normalized equality only.
// It returns ErrNoMatch when nobody matches and an *AmbiguousMatchError listing every candidate
// when two or more students share the normalized name. It never picks one of several candidates.
func (idx *Index) Resolve(rawName string) (StudentIdentity, error) {
	key := NormalizeIdentity(rawName)
	if key == "" {
		return StudentIdentity{}, ErrNoMatch
	}
	candidates := idx.Candidates(rawName)
	switch len(candidates) {
	case 0:
		return StudentIdentity{}, ErrNoMatch
	case 1:
		return candidates[0], nil
	default:
		return StudentIdentity{}, &AmbiguousMatchError{Name: rawName, Candidates: candidates}
	}
}

// Lookup finds a student by enrollment id.
func (idx *Index) Lookup(enrollmentID string) (StudentIdentity, bool) {
	if idx == nil || enrollmentID == "" {
		return StudentIdentity{}, false
	}
	st, ok := idx.byID[enrollmentID]
	return st, ok
}

// ResolveEntry resolves a grade entry that may carry an enrollment id. The id is authoritative:
// a known id wins over the name and an id outside the roster is ErrNoMatch even when the name
// matches someone. Only entries without an id are resolved by name.
func (idx *Index) ResolveEntry(rawName, enrollmentID string) (StudentIdentity, error) {
	if enrollmentID == "" {
		return idx.Resolve(rawName)
	}
	if st, ok := idx.Lookup(enrollmentID); ok {
		return st, nil
	}
	return StudentIdentity{}, ErrNoMatch
}
