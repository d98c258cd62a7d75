package corpus

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// IdentifierSeparator splits a level identifier into its leniency and density values.
	IdentifierSeparator = "_"

	// RowBorder is the number of padding cells on each side of a grid row.
	// The level generator writes player start/goal markers into these cells,
	// so they are never part of the exported layout.
	RowBorder = 2

	// SubIndex is the fixed variant index appended to every artifact name.
	SubIndex = 0

	// InitialPerformance seeds both the CSV performance column and the fitness table.
	InitialPerformance = 0
)

// Level is one entry of the corpus: an identifier and its padded grid rows.
type Level struct {
	ID   string
	Rows []string
}

// Params are the two generation-parameter axes encoded in an identifier.
// Both must be finite numbers; the original text is kept so the CSV
// reproduces it exactly.
type Params struct {
	Leniency string
	Density  string
}

// ParseIdentifier decomposes "<leniency>_<density>".
func ParseIdentifier(id string) (Params, error) {
	parts := strings.Split(id, IdentifierSeparator)
	if len(parts) != 2 {
		return Params{}, fmt.Errorf("%w: %q has %d separators, want exactly 1", ErrInvalidIdentifier, id, len(parts)-1)
	}
	for _, axis := range parts {
		v, err := strconv.ParseFloat(axis, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Params{}, fmt.Errorf("%w: %q: parameter value %q is not a finite number", ErrInvalidIdentifier, id, axis)
		}
	}
	return Params{Leniency: parts[0], Density: parts[1]}, nil
}

// StripRow removes border cells from both ends of row.
// Cells are runes, so multi-byte cell codes count as one cell.
func StripRow(row string, border int) (string, error) {
	cells := []rune(row)
	if len(cells) < 2*border {
		return "", fmt.Errorf("%w: length %d is shorter than the %d-cell border", ErrMalformedRow, len(cells), 2*border)
	}
	return string(cells[border : len(cells)-border]), nil
}

// ArtifactName is the file name shared by the level artifact, the CSV index
// column's file and the fitness table key.
func ArtifactName(id string, subIndex int) string {
	return fmt.Sprintf("%s_%d.txt", id, subIndex)
}

// Record is the derived, export-ready form of a Level.
type Record struct {
	ID          string
	Params      Params
	Rows        []string
	SubIndex    int
	Performance float64
}

// NewRecord validates a level and strips its rows. Errors name the
// identifier and, for row failures, the zero-based row index.
func NewRecord(level Level, border int) (Record, error) {
	params, err := ParseIdentifier(level.ID)
	if err != nil {
		return Record{}, err
	}

	rows := make([]string, len(level.Rows))
	for i, row := range level.Rows {
		stripped, err := StripRow(row, border)
		if err != nil {
			return Record{}, fmt.Errorf("level %q row %d: %w", level.ID, i, err)
		}
		rows[i] = stripped
	}

	return Record{
		ID:          level.ID,
		Params:      params,
		Rows:        rows,
		SubIndex:    SubIndex,
		Performance: InitialPerformance,
	}, nil
}

// Filename returns the record's artifact name.
func (r Record) Filename() string {
	return ArtifactName(r.ID, r.SubIndex)
}

// Content is the artifact body: stripped rows joined by newlines.
func (r Record) Content() string {
	return strings.Join(r.Rows, "\n")
}

// Width is the length of the widest stripped row, in cells.
func (r Record) Width() int {
	w := 0
	for _, row := range r.Rows {
		if n := len([]rune(row)); n > w {
			w = n
		}
	}
	return w
}
