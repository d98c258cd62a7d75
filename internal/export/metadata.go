package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"levelcorpus/internal/corpus"
)

// CSVHeader is fixed by the downstream search. The first two columns carry
// density then leniency, the reverse of their order inside the identifier.
var CSVHeader = []string{"Density", "leniency", "index", "performance"}

// FitnessTable is the fitness-tracking document. Scores are plain numbers so
// the search process can overwrite them in place.
type FitnessTable struct {
	Fitness map[string]float64 `json:"fitness"`
}

// Metadata accumulates the CSV rows and fitness entries for one run, in
// the same order levels are exported.
type Metadata struct {
	rows    [][]string
	fitness FitnessTable
}

// NewMetadata returns an empty accumulator.
func NewMetadata() *Metadata {
	return &Metadata{fitness: FitnessTable{Fitness: make(map[string]float64)}}
}

// Add appends the CSV row and fitness entry for rec.
func (m *Metadata) Add(rec corpus.Record) {
	m.rows = append(m.rows, CSVRow(rec))
	m.fitness.Fitness[rec.Filename()] = rec.Performance
}

// Len returns the number of levels recorded.
func (m *Metadata) Len() int {
	return len(m.rows)
}

// Fitness returns the accumulated fitness table.
func (m *Metadata) Fitness() FitnessTable {
	return m.fitness
}

// CSVRow renders "<density>,<leniency>,<identifier>,<performance>".
// The index column holds the full identifier, not the sub-index.
func CSVRow(rec corpus.Record) []string {
	return []string{
		rec.Params.Density,
		rec.Params.Leniency,
		rec.ID,
		strconv.FormatFloat(rec.Performance, 'f', -1, 64),
	}
}

// EncodeCSV renders the header and every row.
func (m *Metadata) EncodeCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader); err != nil {
		return nil, err
	}
	if err := w.WriteAll(m.rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeFitness renders the fitness table as indented JSON.
func (m *Metadata) EncodeFitness() ([]byte, error) {
	return json.MarshalIndent(m.fitness, "", " ")
}

// WriteCSV writes the parameter table to path, replacing any previous file.
func (m *Metadata) WriteCSV(path string) error {
	data, err := m.EncodeCSV()
	if err != nil {
		return fmt.Errorf("%w: encoding csv: %v", corpus.ErrIO, err)
	}
	return writeFile(path, data)
}

// WriteFitness writes the fitness table to path, replacing any previous file.
func (m *Metadata) WriteFitness(path string) error {
	data, err := m.EncodeFitness()
	if err != nil {
		return fmt.Errorf("%w: encoding fitness table: %v", corpus.ErrIO, err)
	}
	return writeFile(path, data)
}

// ReadFitness loads a fitness table, typically after the search has
// written scores back into it.
func ReadFitness(path string) (FitnessTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FitnessTable{}, fmt.Errorf("%w: %w", corpus.ErrIO, err)
	}
	var table FitnessTable
	if err := json.Unmarshal(data, &table); err != nil {
		return FitnessTable{}, fmt.Errorf("parse fitness table %s: %w", path, err)
	}
	if table.Fitness == nil {
		table.Fitness = make(map[string]float64)
	}
	return table, nil
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", corpus.ErrIO, err)
	}
	return nil
}
