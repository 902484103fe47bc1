package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths, resolved to absolute form
type Paths struct {
	BaseDir        string
	DataDir        string
	UsersFile      string
	ExportsDir     string
	DefaultDataset string
	WebDir         string
	StaticDir      string
	LogsDir        string
}

// ExecutableDir returns the directory holding the running binary
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %v", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	return filepath.Dir(exe), nil
}

// NewPaths resolves the configured paths. Relative entries are joined to
// BaseDir; an empty BaseDir means the executable directory.
func NewPaths(cfg PathsConfig) (*Paths, error) {
	base := cfg.BaseDir
	if base == "" {
		dir, err := ExecutableDir()
		if err != nil {
			return nil, err
		}
		base = dir
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	webDir := resolve(cfg.WebDir)
	return &Paths{
		BaseDir:        base,
		DataDir:        resolve(cfg.DataDir),
		UsersFile:      resolve(cfg.UsersFile),
		ExportsDir:     resolve(cfg.ExportsDir),
		DefaultDataset: resolve(cfg.DefaultDataset),
		WebDir:         webDir,
		StaticDir:      filepath.Join(webDir, "static"),
		LogsDir:        resolve(cfg.LogsDir),
	}, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		filepath.Dir(p.UsersFile),
		p.ExportsDir,
		p.LogsDir,
	}

	logger := slog.Default()
	for _, dir := range directories {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// HasDefaultDataset reports whether a bundled default dataset is configured
// and present on disk
func (p *Paths) HasDefaultDataset() bool {
	return p.DefaultDataset != "" && FileExists(p.DefaultDataset)
}

// GetExportPath returns the path for an exported file
func (p *Paths) GetExportPath(filename string) string {
	return filepath.Join(p.ExportsDir, filepath.Base(filename))
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("data", p.DataDir),
			slog.String("exports", p.ExportsDir),
			slog.String("logs", p.LogsDir),
			slog.String("web", p.WebDir),
		),
		slog.Group("files",
			slog.String("users", p.UsersFile),
			slog.String("default_dataset", p.DefaultDataset),
			slog.Bool("default_dataset_present", p.HasDefaultDataset()),
		))
}
