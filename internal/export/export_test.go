package export

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levelcorpus/internal/config"
	"levelcorpus/internal/corpus"
)

// newWorkspace writes corpusJSON into a temp dir and returns a config resolved there.
func newWorkspace(t *testing.T, corpusJSON string) *config.Config {
	t.Helper()
	ws := t.TempDir()
	cfg := config.DefaultConfig().Resolve(ws)
	require.NoError(t, os.WriteFile(cfg.Paths.Corpus, []byte(corpusJSON), 0644))
	return cfg
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := newWorkspace(t, `{
		"3_7": ["XXabcXX", "XXdefXX"],
		"0_0": ["XXXX"],
		"10_2": ["ab--cd"]
	}`)

	res, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Levels)
	assert.Equal(t, []string{"3_7_0.txt", "0_0_0.txt", "10_2_0.txt"}, res.Files)

	files, err := ListArtifacts(cfg.Paths.OutputDir)
	require.NoError(t, err)
	sort.Strings(files)
	assert.Equal(t, []string{"0_0_0.txt", "10_2_0.txt", "3_7_0.txt"}, files)

	body, err := os.ReadFile(filepath.Join(cfg.Paths.OutputDir, "3_7_0.txt"))
	require.NoError(t, err)
	assert.Equal(t, "abc\ndef", string(body))

	body, err = os.ReadFile(filepath.Join(cfg.Paths.OutputDir, "0_0_0.txt"))
	require.NoError(t, err)
	assert.Empty(t, body)

	wantCSV := []string{
		"Density,leniency,index,performance",
		"7,3,3_7,0",
		"0,0,0_0,0",
		"2,10,10_2,0",
	}
	if diff := cmp.Diff(wantCSV, readLines(t, cfg.Paths.CSV)); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}

	table, err := ReadFitness(cfg.Paths.Fitness)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"3_7_0.txt": 0, "0_0_0.txt": 0, "10_2_0.txt": 0}, table.Fitness)
}

func TestRun_ArtifactsAgree(t *testing.T) {
	cfg := newWorkspace(t, `{"1_1": ["XXaXX"], "1_2": ["XXbXX"], "2_1": ["XXcXX"], "5_5": ["XXdXX"]}`)

	_, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)

	files, err := ListArtifacts(cfg.Paths.OutputDir)
	require.NoError(t, err)

	lines := readLines(t, cfg.Paths.CSV)
	assert.Len(t, lines, len(files)+1)

	table, err := ReadFitness(cfg.Paths.Fitness)
	require.NoError(t, err)
	keys := make([]string, 0, len(table.Fitness))
	for k := range table.Fitness {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sort.Strings(files)
	assert.Equal(t, files, keys)

	for _, line := range lines[1:] {
		cols := strings.Split(line, ",")
		require.Len(t, cols, 4)
		assert.Contains(t, files, corpus.ArtifactName(cols[2], corpus.SubIndex))
	}
}

func TestRun_EmptyCorpus(t *testing.T) {
	cfg := newWorkspace(t, `{}`)

	res, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Levels)

	files, err := ListArtifacts(cfg.Paths.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, files)

	assert.Equal(t, []string{"Density,leniency,index,performance"}, readLines(t, cfg.Paths.CSV))

	data, err := os.ReadFile(cfg.Paths.Fitness)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fitness": {}}`, string(data))
}

func TestRun_ClearsStaleArtifacts(t *testing.T) {
	cfg := newWorkspace(t, `{"3_7": ["XXabcXX"]}`)
	require.NoError(t, os.MkdirAll(cfg.Paths.OutputDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Paths.OutputDir, "9_9_0.txt"), []byte("old"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Paths.OutputDir, "3_7_0.txt"), []byte("old"), 0644))

	_, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)

	files, err := ListArtifacts(cfg.Paths.OutputDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"3_7_0.txt"}, files)
}

func TestRun_MalformedRowWritesNothing(t *testing.T) {
	cfg := newWorkspace(t, `{"1_1": ["XXokXX"], "3_7": ["XXabcXX", "abc"]}`)

	_, err := New(cfg, nil).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, corpus.ErrMalformedRow)
	assert.Contains(t, err.Error(), `"3_7"`)
	assert.Contains(t, err.Error(), "row 1")

	files, err := ListArtifacts(cfg.Paths.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.NoFileExists(t, filepath.Join(cfg.Paths.OutputDir, "3_7_0.txt"))
	assert.NoFileExists(t, cfg.Paths.CSV)
	assert.NoFileExists(t, cfg.Paths.Fitness)
}

func TestRun_InvalidIdentifier(t *testing.T) {
	for _, id := range []string{"37", "3_7_7", "../escape_1", "a_3"} {
		t.Run(id, func(t *testing.T) {
			cfg := newWorkspace(t, `{"`+id+`": ["XXabcXX"]}`)
			_, err := New(cfg, nil).Run(context.Background())
			assert.ErrorIs(t, err, corpus.ErrInvalidIdentifier)
			assert.Equal(t, corpus.KindInvalidIdentifier, corpus.Classify(err))
		})
	}
}

func TestRun_IdentifierCannotEscapeOutputDir(t *testing.T) {
	cfg := newWorkspace(t, `{
		"1_1": ["XXabXX"],
		"../escape_1": ["XXabXX"],
		"a_3": ["XXabXX"],
		"1,5_2": ["XXabXX"]
	}`)

	_, err := New(cfg, nil).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, corpus.ErrInvalidIdentifier)
	assert.Contains(t, err.Error(), "../escape_1")

	ws := filepath.Dir(cfg.Paths.Corpus)
	assert.NoFileExists(t, filepath.Join(ws, "escape_1_0.txt"))
	files, err := ListArtifacts(cfg.Paths.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.NoFileExists(t, cfg.Paths.CSV)
	assert.NoFileExists(t, cfg.Paths.Fitness)
}

func TestRun_MalformedCorpus(t *testing.T) {
	cfg := newWorkspace(t, `{"3_7": "XXabcXX"}`)
	_, err := New(cfg, nil).Run(context.Background())
	assert.ErrorIs(t, err, corpus.ErrMalformedCorpus)

	cfg = config.DefaultConfig().Resolve(t.TempDir())
	_, err = New(cfg, nil).Run(context.Background())
	assert.ErrorIs(t, err, corpus.ErrMalformedCorpus)
}

func TestRun_OutputPathIsFile(t *testing.T) {
	cfg := newWorkspace(t, `{"3_7": ["XXabcXX"]}`)
	require.NoError(t, os.WriteFile(cfg.Paths.OutputDir, []byte("not a dir"), 0644))

	_, err := New(cfg, nil).Run(context.Background())
	assert.ErrorIs(t, err, corpus.ErrPrecondition)
	assert.NoFileExists(t, cfg.Paths.CSV)
}

func TestRun_CustomBorder(t *testing.T) {
	cfg := newWorkspace(t, `{"1_1": ["<abc>"]}`)
	cfg.Export.Border = 1

	_, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)

	body, err := os.ReadFile(filepath.Join(cfg.Paths.OutputDir, "1_1_0.txt"))
	require.NoError(t, err)
	assert.Equal(t, "abc", string(body))
}

func TestRun_Canceled(t *testing.T) {
	cfg := newWorkspace(t, `{"1_1": ["XXaXX"]}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(cfg, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

type recordingObserver struct {
	ids    []string
	failOn string
}

func (o *recordingObserver) ObserveLevel(rec corpus.Record) error {
	if rec.ID == o.failOn {
		return errors.New("ledger unavailable")
	}
	o.ids = append(o.ids, rec.ID)
	return nil
}

func TestRun_Observer(t *testing.T) {
	cfg := newWorkspace(t, `{"2_2": ["XXaXX"], "1_1": ["XXbXX"]}`)
	obs := &recordingObserver{}

	_, err := New(cfg, nil).WithObserver(obs).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2_2", "1_1"}, obs.ids)

	obs = &recordingObserver{failOn: "1_1"}
	_, err = New(cfg, nil).WithObserver(obs).Run(context.Background())
	assert.ErrorContains(t, err, "ledger unavailable")
}

func TestResetDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "levels")

	require.NoError(t, ResetDir(dir))
	assert.DirExists(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_b_0.txt"), []byte("x"), 0644))
	require.NoError(t, ResetDir(dir))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, ResetDir(dir))
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResetDir_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "levels")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	err := ResetDir(path)
	assert.ErrorIs(t, err, corpus.ErrPrecondition)
	assert.Equal(t, 2, corpus.Classify(err).ExitCode())
}

func TestMetadata_Encode(t *testing.T) {
	rec, err := corpus.NewRecord(corpus.Level{ID: "3_7", Rows: []string{"XXabcXX"}}, corpus.RowBorder)
	require.NoError(t, err)

	m := NewMetadata()
	m.Add(rec)

	csvData, err := m.EncodeCSV()
	require.NoError(t, err)
	assert.Equal(t, "Density,leniency,index,performance\n7,3,3_7,0\n", string(csvData))

	fitData, err := m.EncodeFitness()
	require.NoError(t, err)
	var decoded map[string]map[string]json.Number
	require.NoError(t, json.Unmarshal(fitData, &decoded))
	assert.Equal(t, json.Number("0"), decoded["fitness"]["3_7_0.txt"])
	assert.Contains(t, string(fitData), "\n")
}

func TestReadFitness_ExternalScores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generate_corpus_info.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"fitness": {"3_7_0.txt": 0.75, "0_0_0.txt": 12}}`), 0644))

	table, err := ReadFitness(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, table.Fitness["3_7_0.txt"], 1e-9)
	assert.InDelta(t, 12, table.Fitness["0_0_0.txt"], 1e-9)

	_, err = ReadFitness(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, corpus.ErrIO)
}

func TestMetadata_FitnessKeysSorted(t *testing.T) {
	m := NewMetadata()
	for _, id := range []string{"9_1", "0_0", "4_2"} {
		rec, err := corpus.NewRecord(corpus.Level{ID: id}, corpus.RowBorder)
		require.NoError(t, err)
		m.Add(rec)
	}

	data, err := m.EncodeFitness()
	require.NoError(t, err)
	s := string(data)
	first, mid, last := strings.Index(s, "0_0_0.txt"), strings.Index(s, "4_2_0.txt"), strings.Index(s, "9_1_0.txt")
	assert.True(t, first < mid && mid < last, s)

	csvData, err := m.EncodeCSV()
	require.NoError(t, err)
	assert.Equal(t, "Density,leniency,index,performance\n1,9,9_1,0\n0,0,0_0,0\n2,4,4_2,0\n", string(csvData))
}

func TestRun_FailureAfterValidationKeepsOldMetadata(t *testing.T) {
	cfg := newWorkspace(t, `{"1_1": ["XXaXX"], "2_2": ["XXbXX"]}`)
	require.NoError(t, os.WriteFile(cfg.Paths.CSV, []byte("previous csv"), 0644))
	require.NoError(t, os.WriteFile(cfg.Paths.Fitness, []byte(`{"fitness": {"old_0.txt": 3}}`), 0644))

	_, err := New(cfg, nil).WithObserver(&recordingObserver{failOn: "2_2"}).Run(context.Background())
	require.Error(t, err)

	files, err := ListArtifacts(cfg.Paths.OutputDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"1_1_0.txt", "2_2_0.txt"}, files)

	csvData, err := os.ReadFile(cfg.Paths.CSV)
	require.NoError(t, err)
	assert.Equal(t, "previous csv", string(csvData))

	table, err := ReadFitness(cfg.Paths.Fitness)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"old_0.txt": 3}, table.Fitness)
}
