package store

import (
	"encoding/json"
	"io"
	"os"

	"github.com/tubemdo/tubemdo/internal/study"
)

type ExportData struct {
	Parameter string        `json:"parameter"`
	Objective string        `json:"objective"`
	Points    []study.Point `json:"points"`
}

// ExportJSON writes a full sweep to one JSON document.
func ExportJSON(path string, parameter, objective string, points []study.Point) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return writeJSON(file, parameter, objective, points)
}

func ExportJSONStdout(parameter, objective string, points []study.Point) error {
	return writeJSON(os.Stdout, parameter, objective, points)
}

func writeJSON(w io.Writer, parameter, objective string, points []study.Point) error {
	data := ExportData{
		Parameter: parameter,
		Objective: objective,
		Points:    points,
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportCSV writes a full sweep to one CSV file.
func ExportCSV(path string, points []study.Point) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteCSV(file, points)
}
