// Package config handles workspace discovery and pipeline configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace layout constants. A .citecheck directory marks a workspace;
// all pipeline state lives under it except per-document output folders,
// which sit next to it in the workspace root.
const (
	CitecheckDir = ".citecheck"
	PipelineFile = "pipeline.yml"
	LogFile      = "decisions.jsonl"
	MirrorFile   = "decisions.db"
)

// CitecheckPath returns the path to the .citecheck directory from a root.
func CitecheckPath(root string) string {
	return filepath.Join(root, CitecheckDir)
}

// PipelinePath returns the path to pipeline.yml from a root.
func PipelinePath(root string) string {
	return filepath.Join(root, CitecheckDir, PipelineFile)
}

// LogPath returns the path to decisions.jsonl from a root.
func LogPath(root string) string {
	return filepath.Join(root, CitecheckDir, LogFile)
}

// MirrorPath returns the path to decisions.db from a root.
func MirrorPath(root string) string {
	return filepath.Join(root, CitecheckDir, MirrorFile)
}

// DocumentDir returns the output folder for one document's artifacts.
func DocumentDir(root, docID string) string {
	return filepath.Join(root, docID)
}

// IsWorkspace checks if the given path contains a citecheck workspace.
func IsWorkspace(root string) bool {
	info, err := os.Stat(CitecheckPath(root))
	return err == nil && info.IsDir()
}

// FindWorkspace walks up from the given path to find a citecheck
// workspace. Returns the workspace root or an error if not found.
func FindWorkspace(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsWorkspace(abs) {
			return abs, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("not in a citecheck workspace (no .citecheck directory found)")
		}
		abs = parent
	}
}

// InitWorkspace creates the .citecheck directory with a default
// pipeline.yml. Fails if one already exists.
func InitWorkspace(root string) error {
	dir := CitecheckPath(root)
	if IsWorkspace(root) {
		return fmt.Errorf("workspace already initialized at %s", dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return Default().Save(PipelinePath(root))
}
