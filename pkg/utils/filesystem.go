package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SafeCreateFile creates a file with path validation to prevent directory traversal attacks
func SafeCreateFile(filename string) (*os.File, error) {
	if err := validateFilePath(filename); err != nil {
		return nil, fmt.Errorf("invalid file path: %w", err)
	}

	file, err := os.Create(filename) // #nosec G304 - Path validated above
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", filename, err)
	}

	return file, nil
}

// SafeAppendFile opens a file for appending, creating it if needed. The
// returned flag reports whether the file was empty before opening.
func SafeAppendFile(filename string) (*os.File, bool, error) {
	if err := validateFilePath(filename); err != nil {
		return nil, false, fmt.Errorf("invalid file path: %w", err)
	}

	file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) // #nosec G304 - Path validated above
	if err != nil {
		return nil, false, fmt.Errorf("failed to open file %s: %w", filename, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, false, fmt.Errorf("failed to stat file %s: %w", filename, err)
	}

	return file, info.Size() == 0, nil
}

// WriteFiles writes each named file into dir
func WriteFiles(dir string, files map[string][]byte) error {
	for name, data := range files {
		if strings.ContainsAny(name, `/\`) || name == ".." {
			return fmt.Errorf("file name %q must not contain a path", name)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}

// validateFilePath validates a file path to prevent directory traversal attacks
func validateFilePath(path string) error {
	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains directory traversal patterns: %s", path)
	}

	if filepath.IsAbs(cleanPath) {
		sensitiveDirectories := []string{
			"/etc", "/proc", "/sys", "/dev", "/boot",
			"/usr/bin", "/usr/sbin", "/bin", "/sbin",
		}

		for _, sensitive := range sensitiveDirectories {
			if cleanPath == sensitive || strings.HasPrefix(cleanPath, sensitive+"/") {
				return fmt.Errorf("path points to sensitive system directory: %s", path)
			}
		}
	}

	// Ensure the directory exists or can be created
	dir := filepath.Dir(cleanPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// FileExists checks if a file exists at the given path
func FileExists(path string) bool {
	if path == "" {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return !info.IsDir()
}
