// Package config handles workspace discovery and global configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// WorkspaceDir marks a manuscript workspace root.
	WorkspaceDir = ".pubcraft"
	// StoreFile is the SQLite slot store inside the workspace directory.
	StoreFile = "store.db"
)

// WorkspacePath returns the path to the .pubcraft directory from a root.
func WorkspacePath(root string) string {
	return filepath.Join(root, WorkspaceDir)
}

// StorePath returns the path to the slot store from a root.
func StorePath(root string) string {
	return filepath.Join(root, WorkspaceDir, StoreFile)
}

// IsWorkspace checks whether root contains a manuscript workspace.
func IsWorkspace(root string) bool {
	info, err := os.Stat(WorkspacePath(root))
	return err == nil && info.IsDir()
}

// InitWorkspace creates the workspace directory under root.
func InitWorkspace(root string) error {
	if err := os.MkdirAll(WorkspacePath(root), 0755); err != nil {
		return fmt.Errorf("creating workspace: %w", err)
	}
	return nil
}

// FindWorkspace walks up from start to find a workspace root.
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
			return "", fmt.Errorf("not in a pubcraft workspace (no %s directory found)", WorkspaceDir)
		}
		abs = parent
	}
}

// ExpandTilde expands a leading ~ to the user's home directory.
func ExpandTilde(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
