package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/libreta/backend/core/audit"
	"github.com/libreta/backend/core/student"
)

var rosterColumns = []string{"enrollment_id", "paternal_surname", "maternal_surname", "given_names", "grade", "section"}

// importRoster enrolls the students of a CSV file. The header names the columns; "year" is
// optional when defaultYear is set. Bad rows are reported and skipped.
func (cli *commandLine) importRoster(path string, defaultYear int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := parseRoster(f, defaultYear)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}
	res, err := cli.studentSvc.Import(context.Background(), audit.System, rows)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "%d created, %d already enrolled, %d rejected\n", res.Created, res.Skipped, len(res.Errors))
	lines := make([]int, 0, len(res.Errors))
	for row := range res.Errors {
		lines = append(lines, row)
	}
	sort.Ints(lines)
	for _, row := range lines {
		// +1 for the header
		fmt.Fprintf(cli.out, "  line %d: %s\n", row+1, res.Errors[row])
	}
	return nil
}

func parseRoster(r io.Reader, defaultYear int) ([]student.NewStudent, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading header")
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range rosterColumns {
		if _, ok := cols[name]; !ok {
			return nil, errors.Errorf("missing column %q", name)
		}
	}
	if _, ok := cols["year"]; !ok && defaultYear == 0 {
		return nil, errors.New(`missing column "year" and no -year given`)
	}

	var rows []student.NewStudent
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		field := func(name string) string {
			if i, ok := cols[name]; ok && i < len(rec) {
				return rec[i]
			}
			return ""
		}
		// unparsable numbers stay zero and fail validation on their row
		grade, _ := strconv.Atoi(strings.TrimSpace(field("grade")))
		year := defaultYear
		if y := strings.TrimSpace(field("year")); y != "" {
			year, _ = strconv.Atoi(y)
		}
		rows = append(rows, student.NewStudent{
			EnrollmentID:    field("enrollment_id"),
			PaternalSurname: field("paternal_surname"),
			MaternalSurname: field("maternal_surname"),
			GivenNames:      field("given_names"),
			Grade:           grade,
			Section:         field("section"),
			Year:            year,
		})
	}
	return rows, nil
}
