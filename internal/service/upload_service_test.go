package service

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ripple/internal/models"
)

func makeFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	files := form.File["image"]
	require.Len(t, files, 1)
	return files[0]
}

func TestUploadService_Save(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewUploadService(dir)
	require.NoError(t, err)

	name, err := svc.Save(makeFileHeader(t, "My Photo.PNG", []byte("png-bytes")))
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{24}\.png$`), name)

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	// Same source file gets a fresh name every time.
	name2, err := svc.Save(makeFileHeader(t, "My Photo.PNG", []byte("png-bytes")))
	require.NoError(t, err)
	assert.NotEqual(t, name, name2)
}

func TestUploadService_Remove(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewUploadService(dir)
	require.NoError(t, err)

	name, err := svc.Save(makeFileHeader(t, "pic.jpg", []byte("jpg")))
	require.NoError(t, err)

	require.NoError(t, svc.Remove(name))
	_, err = os.Stat(filepath.Join(dir, name))
	assert.True(t, os.IsNotExist(err))

	// Removing a file that is already gone is not an error.
	require.NoError(t, svc.Remove(name))
}

func TestUploadService_Path(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewUploadService(dir)
	require.NoError(t, err)

	name, err := svc.Save(makeFileHeader(t, "pic.jpg", []byte("jpg")))
	require.NoError(t, err)

	path, err := svc.Path(name)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, name), path)

	t.Run("missing file", func(t *testing.T) {
		_, err := svc.Path("0123456789abcdef01234567.png")
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "NOT_FOUND", appErr.Code)
	})

	t.Run("traversal rejected", func(t *testing.T) {
		for _, name := range []string{"../secret.txt", "a/b.png", ".hidden", ""} {
			_, err := svc.Path(name)
			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr, name)
			assert.Equal(t, "VALIDATION_ERROR", appErr.Code, name)
		}
	})
}
