package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"ripple/internal/models"
)

// UploadService stores post images on the local filesystem under a single
// upload directory. Stored names are random hex with the original extension
// preserved, so concurrent uploads cannot collide.
type UploadService struct {
	dir string
}

// NewUploadService creates the upload directory if needed and returns the service.
func NewUploadService(dir string) (*UploadService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &UploadService{dir: dir}, nil
}

// Save writes the uploaded file to the upload directory and returns the
// generated filename.
func (s *UploadService) Save(file *multipart.FileHeader) (string, error) {
	name, err := randomFilename(file.Filename)
	if err != nil {
		return "", models.NewInternalError(err)
	}

	src, err := file.Open()
	if err != nil {
		return "", models.NewValidationError("Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", models.NewInternalError(err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		return "", models.NewInternalError(err)
	}

	return name, nil
}

// Remove deletes a stored file. A missing file is not an error; removal is
// best-effort cleanup when a post is deleted.
func (s *UploadService) Remove(name string) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return models.NewInternalError(err)
	}
	return nil
}

// Path returns the on-disk path for a stored filename, verifying the file
// exists. Names that are not plain base filenames are rejected.
func (s *UploadService) Path(name string) (string, error) {
	path, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", models.NewNotFoundError("File", name)
		}
		return "", models.NewInternalError(err)
	}
	return path, nil
}

// resolve validates the name against path traversal and joins it with the
// upload directory.
func (s *UploadService) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", models.NewValidationError("Invalid file name")
	}
	return filepath.Join(s.dir, name), nil
}

// randomFilename generates a 12-byte hex name preserving the original extension.
func randomFilename(original string) (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf) + strings.ToLower(filepath.Ext(original)), nil
}
