package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/smith-xyz/topobench/pkg/models"
	"github.com/smith-xyz/topobench/pkg/testengine"
	"github.com/smith-xyz/topobench/pkg/utils"
)

// writeJSON writes v as indented JSON
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeJSONFile writes v as indented JSON to filename
func writeJSONFile(filename string, v any) error {
	file, err := utils.SafeCreateFile(filename)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", filename, err)
	}
	defer file.Close()

	if err := writeJSON(file, v); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return nil
}

// writeModule lays a codebase out as a runnable module: main.go, go.mod and
// the gold adjacency plus the full codebase model as JSON
func writeModule(dir string, cb *models.Codebase, goVersion string, extra map[string]any) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	gomod, err := testengine.ModuleFile("topobench.local/generated", goVersion)
	if err != nil {
		return err
	}
	gold, err := models.MarshalEnvelope(cb.Graph)
	if err != nil {
		return err
	}
	if err := utils.WriteFiles(dir, map[string][]byte{
		"main.go":   []byte(cb.Source),
		"go.mod":    gomod,
		"gold.json": append(gold, '\n'),
	}); err != nil {
		return err
	}
	if err := writeJSONFile(filepath.Join(dir, "codebase.json"), cb); err != nil {
		return err
	}
	for name, v := range extra {
		if err := writeJSONFile(filepath.Join(dir, name), v); err != nil {
			return err
		}
	}
	return nil
}
