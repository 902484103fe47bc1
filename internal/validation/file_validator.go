package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"kuberdash/pkg/contracts/domain"
)

// Upload errors. ErrUnsupportedExtension also matches domain.ErrUnsupportedFormat.
var (
	ErrFileTooLarge         = errors.New("file too large")
	ErrEmptyFile            = errors.New("file is empty")
	ErrTemporaryFile        = errors.New("temporary office file")
	ErrUnsupportedExtension = fmt.Errorf("%w: extension not allowed", domain.ErrUnsupportedFormat)
	ErrMissingFilename      = errors.New("filename is required")
)

// FileValidator checks dataset files before they are parsed, both for
// HTTP uploads and for files named on the command line
type FileValidator struct {
	logger     *slog.Logger
	maxSize    int64
	extensions []string
}

// NewFileValidator creates a new file validator. A maxSize of zero disables
// the size check; empty extensions defaults to .csv and .xlsx.
func NewFileValidator(logger *slog.Logger, maxSize int64, extensions []string) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	if len(extensions) == 0 {
		extensions = []string{".csv", ".xlsx"}
	}
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	return &FileValidator{
		logger:     logger,
		maxSize:    maxSize,
		extensions: normalized,
	}
}

// MaxSize returns the configured size limit in bytes
func (v *FileValidator) MaxSize() int64 {
	return v.maxSize
}

// Extensions returns the allowed extensions, lower case with leading dot
func (v *FileValidator) Extensions() []string {
	return append([]string(nil), v.extensions...)
}

// ValidateUpload checks the name and size of an uploaded file
func (v *FileValidator) ValidateUpload(filename string, size int64) error {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return ErrMissingFilename
	}

	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Rejected temporary office file", slog.String("file", base))
		return fmt.Errorf("%w: %s", ErrTemporaryFile, base)
	}

	if err := v.ValidateExtension(base); err != nil {
		return err
	}

	if size == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyFile, base)
	}

	if v.maxSize > 0 && size > v.maxSize {
		v.logger.Warn("Rejected oversized upload",
			slog.String("file", base),
			slog.Int64("size", size),
			slog.Int64("max_size", v.maxSize))
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, size, v.maxSize)
	}

	return nil
}

// ValidateExtension checks the filename extension against the allowed list
func (v *FileValidator) ValidateExtension(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range v.extensions {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %q (allowed: %s)", ErrUnsupportedExtension, ext, strings.Join(v.extensions, ", "))
}

// ValidateFile checks that a dataset file on disk exists, is readable and
// passes the upload rules
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	if err := v.ValidateUpload(path, info.Size()); err != nil {
		return err
	}

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}
