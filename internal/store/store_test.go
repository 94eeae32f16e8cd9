package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tubemdo/tubemdo/internal/driver"
	"github.com/tubemdo/tubemdo/internal/study"
)

func samplePoints() []study.Point {
	return []study.Point{
		{
			Value: 1.0,
			Result: driver.Result{
				X:           map[string]float64{"p_tube": 450.5, "t": 0.031},
				Objective:   1.2e9,
				Converged:   true,
				Iterations:  14,
				Evaluations: 61,
			},
		},
		{
			Value: 5.0,
			Result: driver.Result{
				X:           map[string]float64{"p_tube": 980.2, "t": 0.030},
				Objective:   1.4e9,
				Converged:   true,
				Iterations:  11,
				Evaluations: 48,
			},
		},
		{
			Value: 10.0,
			Result: driver.Result{
				X:         map[string]float64{"p_tube": 1500.0, "t": 0.030},
				Objective: 1.6e9,
				Violation: 2.5e5,
			},
			Err: "optimization failed after 100 iterations",
		},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	studyID, err := st.Save("leakage_mass", "cost.total_cost", 4, samplePoints())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if studyID == "" {
		t.Error("expected non-empty study id")
	}

	meta, err := st.Load(studyID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Parameter != "leakage_mass" {
		t.Errorf("expected parameter leakage_mass, got %s", meta.Parameter)
	}
	if meta.Points != 3 {
		t.Errorf("expected 3 points, got %d", meta.Points)
	}
	if meta.Converged != 2 {
		t.Errorf("expected 2 converged, got %d", meta.Converged)
	}
	if meta.Failed != 1 {
		t.Errorf("expected 1 failed, got %d", meta.Failed)
	}
}

func TestStoreLoadPoints(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	want := samplePoints()
	studyID, err := st.Save("leakage_mass", "cost.total_cost", 1, want)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := st.LoadPoints(studyID)
	if err != nil {
		t.Fatalf("load points failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(got))
	}

	for i := range got {
		if got[i].Value != want[i].Value {
			t.Errorf("point %d: value %f, want %f", i, got[i].Value, want[i].Value)
		}
		if got[i].Result.Converged != want[i].Result.Converged {
			t.Errorf("point %d: converged %v, want %v", i, got[i].Result.Converged, want[i].Result.Converged)
		}
		for name, v := range want[i].Result.X {
			if got[i].Result.X[name] != v {
				t.Errorf("point %d: %s = %f, want %f", i, name, got[i].Result.X[name], v)
			}
		}
	}
	if got[2].Err == "" {
		t.Error("expected failed point to keep its error text")
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	studies, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(studies) != 0 {
		t.Errorf("expected 0 studies, got %d", len(studies))
	}

	if _, err := st.Save("M_pod", "cost.total_cost", 1, samplePoints()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	studies, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(studies) != 1 {
		t.Errorf("expected 1 study, got %d", len(studies))
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	studyID, err := st.Save("leakage_mass", "cost.total_cost", 1, samplePoints())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	studyDir := filepath.Join(tmpDir, studyID)
	if _, err := os.Stat(filepath.Join(studyDir, "metadata.json")); os.IsNotExist(err) {
		t.Error("metadata.json not created")
	}
	if _, err := os.Stat(filepath.Join(studyDir, "points.csv")); os.IsNotExist(err) {
		t.Error("points.csv not created")
	}
}

func TestExportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.json")
	if err := ExportJSON(path, "leakage_mass", "cost.total_cost", samplePoints()); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty export")
	}
}

func TestExportCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.csv")
	if err := ExportCSV(path, samplePoints()); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "value,objective,violation") {
		t.Errorf("unexpected header: %s", lines[0])
	}
}
