package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/tubemdo/tubemdo/internal/driver"
	"github.com/tubemdo/tubemdo/internal/study"
)

// Store persists trade studies under a base directory, one subdirectory
// per study with metadata.json and points.csv.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type StudyMetadata struct {
	ID        string    `json:"id"`
	Parameter string    `json:"parameter"`
	Objective string    `json:"objective"`
	Timestamp time.Time `json:"timestamp"`
	Workers   int       `json:"workers"`
	Points    int       `json:"points"`
	Converged int       `json:"converged"`
	Failed    int       `json:"failed"`
}

// Save writes one finished sweep. The returned ID names the study
// subdirectory.
func (s *Store) Save(parameter, objective string, workers int, points []study.Point) (string, error) {
	studyID := fmt.Sprintf("%s_%d", parameter, time.Now().Unix())
	studyDir := filepath.Join(s.baseDir, studyID)

	if err := os.MkdirAll(studyDir, 0755); err != nil {
		return "", err
	}

	meta := StudyMetadata{
		ID:        studyID,
		Parameter: parameter,
		Objective: objective,
		Timestamp: time.Now(),
		Workers:   workers,
		Points:    len(points),
	}
	for _, pt := range points {
		if pt.Result.Converged {
			meta.Converged++
		}
		if pt.Err != "" {
			meta.Failed++
		}
	}

	metaPath := filepath.Join(studyDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvPath := filepath.Join(studyDir, "points.csv")
	csvFile, err := os.Create(csvPath)
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, points); err != nil {
		return "", err
	}
	return studyID, nil
}

// WriteCSV emits one row per point: the sweep value, the optimization
// summary, then a column per design variable in sorted name order.
func WriteCSV(f *os.File, points []study.Point) error {
	w := csv.NewWriter(f)
	defer w.Flush()

	if len(points) == 0 {
		return nil
	}

	names := designNames(points)
	header := []string{"value", "objective", "violation", "iterations", "evaluations", "converged", "error"}
	header = append(header, names...)
	if err := w.Write(header); err != nil {
		return err
	}

	for _, pt := range points {
		row := []string{
			formatFloat(pt.Value),
			formatFloat(pt.Result.Objective),
			formatFloat(pt.Result.Violation),
			strconv.Itoa(pt.Result.Iterations),
			strconv.Itoa(pt.Result.Evaluations),
			strconv.FormatBool(pt.Result.Converged),
			pt.Err,
		}
		for _, name := range names {
			row = append(row, formatFloat(pt.Result.X[name]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

func designNames(points []study.Point) []string {
	seen := map[string]bool{}
	for _, pt := range points {
		for name := range pt.Result.X {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

func (s *Store) List() ([]StudyMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []StudyMetadata{}, nil
		}
		return nil, err
	}

	studies := make([]StudyMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		studies = append(studies, *meta)
	}
	return studies, nil
}

func (s *Store) Load(studyID string) (*StudyMetadata, error) {
	metaPath := filepath.Join(s.baseDir, studyID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta StudyMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadPoints reads points.csv back into sweep points. Columns past the
// fixed header are design variable values keyed by column name.
func (s *Store) LoadPoints(studyID string) ([]study.Point, error) {
	csvPath := filepath.Join(s.baseDir, studyID, "points.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []study.Point{}, nil
	}

	header := records[0]
	const fixed = 7
	points := make([]study.Point, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < fixed {
			continue
		}
		var pt study.Point
		pt.Value, _ = strconv.ParseFloat(record[0], 64)
		pt.Result = driver.Result{X: map[string]float64{}}
		pt.Result.Objective, _ = strconv.ParseFloat(record[1], 64)
		pt.Result.Violation, _ = strconv.ParseFloat(record[2], 64)
		pt.Result.Iterations, _ = strconv.Atoi(record[3])
		pt.Result.Evaluations, _ = strconv.Atoi(record[4])
		pt.Result.Converged, _ = strconv.ParseBool(record[5])
		pt.Err = record[6]
		for j := fixed; j < len(record) && j < len(header); j++ {
			v, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				continue
			}
			pt.Result.X[header[j]] = v
		}
		points = append(points, pt)
	}
	return points, nil
}
