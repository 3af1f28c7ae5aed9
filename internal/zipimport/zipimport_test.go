package zipimport

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestUnzipExtractsFilesAndSkipsJunk(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "notes.zip")
	writeZip(t, archive, map[string]string{
		"a.txt":              "hello",
		"sub/b.txt":          "world",
		".DS_Store":          "junk",
		"__MACOSX/sub/b.txt": "junk",
	})

	out := filepath.Join(dir, "out")
	result, err := Unzip(archive, out)
	require.NoError(t, err)

	assert.Equal(t, "notes", result.DirName)
	assert.Equal(t, filepath.Join(out, "notes"), result.UnzipDir)
	assert.Empty(t, result.Parts)

	data, err := os.ReadFile(filepath.Join(result.UnzipDir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	data, err = os.ReadFile(filepath.Join(result.UnzipDir, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "world", string(data))

	_, err = os.Stat(filepath.Join(result.UnzipDir, ".DS_Store"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(result.UnzipDir, "__MACOSX"))
	assert.True(t, os.IsNotExist(err))
}

func TestUnzipRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	writeZip(t, archive, map[string]string{
		"../../escape.txt": "pwn",
	})

	out := filepath.Join(dir, "out")
	_, err := Unzip(archive, out)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPathTraversal)
}

func TestUnzipRecursesIntoMultipartArchive(t *testing.T) {
	dir := t.TempDir()
	mainPath := filepath.Join(dir, "archive.zip.001")
	partPath := filepath.Join(dir, "archive.zip.002")

	writeZip(t, mainPath, map[string]string{"main.txt": "first"})
	writeZip(t, partPath, map[string]string{"part.txt": "second"})

	// Prefix partPath with the spanned-archive signature so it is
	// recognized as multipart by both signature and suffix.
	body, err := os.ReadFile(partPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(partPath, append(multipartSignature[:], body...), 0o644))

	// The main archive itself must also carry the signature and a part
	// suffix to be detected as the head of a split set.
	mainBody, err := os.ReadFile(mainPath)
	require.NoError(t, err)
	mainPathSigned := filepath.Join(dir, "archive.zip.001")
	require.NoError(t, os.WriteFile(mainPathSigned, append(multipartSignature[:], mainBody...), 0o644))

	out := filepath.Join(dir, "out")
	result, err := Unzip(mainPathSigned, out)
	require.NoError(t, err)

	require.Len(t, result.Parts, 1)
	assert.Equal(t, partPath, result.Parts[0])

	_, err = os.Stat(partPath)
	assert.True(t, os.IsNotExist(err), "part file should be deleted after extraction")
}

func TestHasMultipartSuffixRecognizesConventions(t *testing.T) {
	assert.True(t, hasMultipartSuffix("archive.z01"))
	assert.True(t, hasMultipartSuffix("archive.zip.001"))
	assert.False(t, hasMultipartSuffix("archive.zip"))
	assert.False(t, hasMultipartSuffix("notes.txt"))
}
