// Package csvio reads and writes the seven-column classification CSV used
// for bulk import, export and the blank template.
package csvio

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"detailinfra/internal/vehicle"
)

// Header is the exact column list every import file must start with.
var Header = []string{"make", "model", "year_start", "year_end", "type_category", "is_luxury", "notes"}

// HeaderLine is Header as it appears on the first line of a file.
var HeaderLine = strings.Join(Header, ",")

var (
	ErrInvalidHeader = errors.New("invalid csv header")
	ErrMissingField  = errors.New("missing required field")
)

// Record is one data line of an import file, before validation.
type Record struct {
	Line         int
	Make         string
	Model        string
	YearStart    string
	YearEnd      string
	TypeCategory string
	IsLuxury     string
	Notes        string
}

// Parse reads an import file. The first line must equal HeaderLine exactly
// (a trailing CR is tolerated), otherwise ErrInvalidHeader is returned and
// no records are read. Blank lines are skipped.
func Parse(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(r)
	first, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header: %w", err)
	}
	first = strings.TrimSuffix(strings.TrimSuffix(first, "\n"), "\r")
	if first != HeaderLine {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrInvalidHeader, first, HeaderLine)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	var out []Record
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("read csv: %w", err)
		}
		if blank(fields) {
			continue
		}
		line, _ := cr.FieldPos(0)
		rec := Record{Line: line + 1}
		dst := []*string{&rec.Make, &rec.Model, &rec.YearStart, &rec.YearEnd, &rec.TypeCategory, &rec.IsLuxury, &rec.Notes}
		for i, p := range dst {
			if i < len(fields) {
				*p = strings.TrimSpace(fields[i])
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// ToRow validates the record and converts it. Make, model and a known
// type_category are required; unparseable years become nil.
func (r Record) ToRow() (vehicle.Row, error) {
	switch {
	case r.Make == "":
		return vehicle.Row{}, fmt.Errorf("line %d: make: %w", r.Line, ErrMissingField)
	case r.Model == "":
		return vehicle.Row{}, fmt.Errorf("line %d: model: %w", r.Line, ErrMissingField)
	case r.TypeCategory == "":
		return vehicle.Row{}, fmt.Errorf("line %d: type_category: %w", r.Line, ErrMissingField)
	}
	cat, ok := vehicle.ParseCategory(r.TypeCategory)
	if !ok {
		return vehicle.Row{}, fmt.Errorf("line %d: unknown type_category %q", r.Line, r.TypeCategory)
	}
	return vehicle.Row{
		Make:      r.Make,
		Model:     r.Model,
		YearStart: parseYear(r.YearStart),
		YearEnd:   parseYear(r.YearEnd),
		Category:  cat,
		Luxury:    ParseBool(r.IsLuxury),
		Notes:     r.Notes,
	}, nil
}

func parseYear(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// ParseBool accepts true, 1 and yes in any case. Anything else is false.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// Write emits rows under the standard header. Newlines inside notes are
// flattened to spaces so every row stays on one line.
func Write(w io.Writer, rows []vehicle.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		notes := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(r.Notes)
		if err := cw.Write([]string{
			r.Make,
			r.Model,
			formatYear(r.YearStart),
			formatYear(r.YearEnd),
			string(r.Category),
			strconv.FormatBool(r.Luxury),
			notes,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTemplate emits the header line only.
func WriteTemplate(w io.Writer) error {
	return Write(w, nil)
}

func formatYear(y *int) string {
	if y == nil {
		return ""
	}
	return strconv.Itoa(*y)
}
