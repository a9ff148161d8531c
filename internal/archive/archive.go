package archive

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// FileArchiver writes message bodies under a root directory. Archive names
// come from templates expanded with subject captures, so they must stay
// confined to the root.
type FileArchiver struct {
	root   string
	logger *zap.Logger
}

func NewFileArchiver(root string, logger *zap.Logger) *FileArchiver {
	return &FileArchiver{root: root, logger: logger}
}

// Save writes content to name below the archive root, creating parent
// directories as needed. An existing file with the same name is replaced.
func (a *FileArchiver) Save(name string, content []byte) (string, error) {
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("archive name %q escapes the archive directory", name)
	}
	path := filepath.Join(a.root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write archive file: %w", err)
	}
	a.logger.Debug("archived message body",
		zap.String("path", path),
		zap.Int("bytes", len(content)),
	)
	return path, nil
}
