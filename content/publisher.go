// Package content renders and publishes the human-facing pages of the
// gallery: agent profiles, artwork pages with their buy section, and the
// index. Pages are artifacts, not records; they are never stored in the
// database and can always be regenerated.
package content

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Publisher writes and deletes published artifacts.
type Publisher interface {
	// Publish writes content at the site-relative path and returns the
	// path it was published under.
	Publish(ctx context.Context, path string, content []byte) (string, error)
	// Remove deletes a previously published artifact. Removing a missing
	// artifact is not an error.
	Remove(ctx context.Context, path string) error
}

// FSPublisher publishes into a directory tree served as static files.
type FSPublisher struct {
	root string
}

func NewFSPublisher(root string) *FSPublisher {
	return &FSPublisher{root: root}
}

func (p *FSPublisher) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	if clean == "/" {
		return "", fmt.Errorf("content: empty path")
	}
	return filepath.Join(p.root, strings.TrimPrefix(clean, "/")), nil
}

func (p *FSPublisher) Publish(ctx context.Context, path string, content []byte) (string, error) {
	full, err := p.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("content: create dir for %s: %w", path, err)
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return "", fmt.Errorf("content: write %s: %w", path, err)
	}
	return path, nil
}

func (p *FSPublisher) Remove(ctx context.Context, path string) error {
	full, err := p.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("content: remove %s: %w", path, err)
	}
	return nil
}
