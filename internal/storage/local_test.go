package storage

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFileHeader 构造一个带内容的 multipart 文件头
func newFileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("video_file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))

	return req.MultipartForm.File["video_file"][0]
}

func TestLocalStorageSaveAndDelete(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStorage(base)
	require.NoError(t, err)

	header := newFileHeader(t, "clip.mp4", []byte("fake video bytes"))

	path, err := store.Save(header, "videos/clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "videos/clip.mp4", path)

	data, err := os.ReadFile(filepath.Join(base, "videos", "clip.mp4"))
	require.NoError(t, err)
	assert.Equal(t, []byte("fake video bytes"), data)

	require.NoError(t, store.Delete(path))
	_, err = os.Stat(filepath.Join(base, "videos", "clip.mp4"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorageDeleteMissingIsNoop(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	// 幂等：文件已经没了也不报错
	assert.NoError(t, store.Delete("videos/gone.mp4"))
}

func TestLocalStorageDeleteRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, store.Delete("../outside.mp4"))
	assert.Error(t, store.Delete("/etc/passwd"))
}
