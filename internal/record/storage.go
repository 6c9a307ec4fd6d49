package record

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Store persists OptimizationRecord runs to disk: one directory per run
// holding a metadata.json summary and an iterations.csv trace, the same
// two-file-per-run layout a long-running solve would leave for later
// inspection.
type Store struct {
	baseDir string
}

func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata is the JSON summary Save writes alongside the per-iteration
// CSV trace.
type RunMetadata struct {
	ID         string    `json:"id"`
	Scenario   string    `json:"scenario"`
	Timestamp  time.Time `json:"timestamp"`
	Iterations int       `json:"iterations"`
	BestLoss   float64   `json:"best_loss"`
	BestIndex  int       `json:"best_index"`
	Outcome    string    `json:"outcome"`
}

// Save writes o's metadata and full iteration trace under baseDir/<run ID>.
// outcome is the solver's terminal Outcome, recorded for later filtering
// (e.g. an inspector listing only runs that reached tolerances).
func (s *Store) Save(o *OptimizationRecord, scenario, outcome string) (string, error) {
	runDir := filepath.Join(s.baseDir, o.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	_, bestLoss, _ := o.Best()
	meta := RunMetadata{
		ID:         o.ID,
		Scenario:   scenario,
		Timestamp:  time.Now(),
		Iterations: len(o.entries),
		BestLoss:   bestLoss,
		BestIndex:  o.bestIndex,
		Outcome:    outcome,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := s.saveIterations(runDir, o); err != nil {
		return "", err
	}
	return o.ID, nil
}

func (s *Store) saveIterations(runDir string, o *OptimizationRecord) error {
	csvFile, err := os.Create(filepath.Join(runDir, "iterations.csv"))
	if err != nil {
		return err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	if len(o.entries) == 0 {
		return nil
	}

	flatDim := o.entries[0].X.Len()
	header := []string{"index", "loss"}
	for i := 0; i < flatDim; i++ {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, e := range o.entries {
		row := []string{
			strconv.Itoa(e.Index),
			strconv.FormatFloat(e.Loss, 'f', 10, 64),
		}
		for i := 0; i < e.X.Len(); i++ {
			row = append(row, strconv.FormatFloat(e.X.AtVec(i), 'f', 10, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// SaveRepresentation writes a reprojected trajectory export alongside the
// run's metadata and iteration trace, under
// baseDir/<run ID>/representation_<name>.json.
func (s *Store) SaveRepresentation(runID, name string, data []byte) error {
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(runDir, "representation_"+name+".json"), data, 0644)
}

// List returns every run's metadata found under baseDir, skipping entries
// that are not a run directory or whose metadata.json is unreadable.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// IterationPoint is one row of a run's iterations.csv, read back for
// inspection: the x vector is dropped, since the inspector only plots loss
// against iteration index.
type IterationPoint struct {
	Index int
	Loss  float64
}

// LoadIterations reads back runID's per-iteration loss trace.
func (s *Store) LoadIterations(runID string) ([]IterationPoint, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "iterations.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []IterationPoint{}, nil
	}

	points := make([]IterationPoint, 0, len(records)-1)
	for _, row := range records[1:] {
		if len(row) < 2 {
			continue
		}
		index, err := strconv.Atoi(row[0])
		if err != nil {
			continue
		}
		loss, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			continue
		}
		points = append(points, IterationPoint{Index: index, Loss: loss})
	}
	return points, nil
}
