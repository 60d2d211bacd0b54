package grading

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed curriculum.yaml
var curriculumYAML []byte

// Area is a subject area with its ordered competencies.
type Area struct {
	Code         string   `json:"code" yaml:"code"`
	Name         string   `json:"name" yaml:"name"`
	Competencies []string `json:"competencies" yaml:"competencies"`
}

// Curriculum is the static subject area reference data.
type Curriculum struct {
	areas  []Area
	byCode map[string]int
}

var defaultCurriculum = mustParseCurriculum(curriculumYAML)

// DefaultCurriculum returns the curriculum shipped with the application.
func DefaultCurriculum() *Curriculum { return defaultCurriculum }

// ParseCurriculum reads a YAML document of the form `areas: [{code, name, competencies}]`.
func ParseCurriculum(data []byte) (*Curriculum, error) {
	var doc struct {
		Areas []Area `yaml:"areas"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing curriculum")
	}

	c := &Curriculum{byCode: make(map[string]int, len(doc.Areas))}
	for _, a := range doc.Areas {
		a.Code = strings.ToUpper(strings.TrimSpace(a.Code))
		switch {
		case a.Code == "":
			return nil, errors.New("curriculum: area without code")
		case len(a.Competencies) == 0:
			return nil, fmt.Errorf("curriculum: area %s has no competencies", a.Code)
		case len(a.Competencies) > MaxCompetencies:
			return nil, fmt.Errorf("curriculum: area %s has %d competencies, max is %d", a.Code, len(a.Competencies), MaxCompetencies)
		}
		if _, dup := c.byCode[a.Code]; dup {
			return nil, fmt.Errorf("curriculum: duplicate area %s", a.Code)
		}
		c.byCode[a.Code] = len(c.areas)
		c.areas = append(c.areas, a)
	}
	return c, nil
}

func mustParseCurriculum(data []byte) *Curriculum {
	c, err := ParseCurriculum(data)
	if err != nil {
		panic(err)
	}
	return c
}

// Area returns the area with the given code (case-insensitive).
func (c *Curriculum) Area(code string) (Area, error) {
	i, ok := c.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Area{}, errors.Wrap(ErrUnknownArea, code)
	}
	return c.areas[i], nil
}

// Areas returns every area in report-card order.
func (c *Curriculum) Areas() []Area {
	out := make([]Area, len(c.areas))
	copy(out, c.areas)
	return out
}

// Codes returns the area codes in report-card order.
func (c *Curriculum) Codes() []string {
	codes := make([]string, 0, len(c.areas))
	for _, a := range c.areas {
		codes = append(codes, a.Code)
	}
	return codes
}
