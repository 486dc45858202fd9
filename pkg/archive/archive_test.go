package archive

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"logs.tar.zst", FormatTarZst, false},
		{"bundle.tar.gz", FormatTarGz, false},
		{"bundle.TGZ", FormatTgz, false},
		{"bundle.tar.bz2", FormatTarBz2, false},
		{"bundle.tar.xz", FormatTarXz, false},
		{"extract_crashes.sh", "", true},
		{"logs.zip", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := DetectFormat(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompressExtractRoundTrip(t *testing.T) {
	srcDir := filepath.Join(t.TempDir(), "Helm_MFD_E70364-1234567_a1b2c3d4")
	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "panic.log"), []byte("panic trace"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "nested", "dmesg.txt"), []byte("dmesg output"), 0644))

	compressor, err := NewCompressor()
	require.NoError(t, err)
	defer compressor.Close()

	archivePath := srcDir + ".tar.zst"
	require.NoError(t, compressor.CompressDirectory(srcDir, archivePath))

	destDir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, compressor.Extract(archivePath, destDir))

	data, err := os.ReadFile(filepath.Join(destDir, "panic.log"))
	require.NoError(t, err)
	assert.Equal(t, "panic trace", string(data))

	data, err = os.ReadFile(filepath.Join(destDir, "nested", "dmesg.txt"))
	require.NoError(t, err)
	assert.Equal(t, "dmesg output", string(data))
}

func TestExtractGzipTarball(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "bundle.tar.gz")
	writeGzipTarball(t, archivePath, map[string]string{
		"extract_crashes.sh": "#!/bin/sh\n",
	})

	compressor, err := NewCompressor()
	require.NoError(t, err)
	defer compressor.Close()

	destDir := filepath.Join(t.TempDir(), "scripts")
	require.NoError(t, compressor.Extract(archivePath, destDir))

	data, err := os.ReadFile(filepath.Join(destDir, "extract_crashes.sh"))
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", string(data))
}

func TestExtractRejectsPathTraversal(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "evil.tar.gz")
	writeGzipTarball(t, archivePath, map[string]string{
		"../escape.sh": "#!/bin/sh\n",
	})

	compressor, err := NewCompressor()
	require.NoError(t, err)
	defer compressor.Close()

	err = compressor.Extract(archivePath, filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid file path")
}

func TestExtractUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.zip")
	require.NoError(t, os.WriteFile(path, []byte("PK"), 0644))

	compressor, err := NewCompressor()
	require.NoError(t, err)
	defer compressor.Close()

	err = compressor.Extract(path, t.TempDir())
	require.Error(t, err)
}

func writeGzipTarball(t *testing.T, path string, files map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gzw := gzip.NewWriter(f)
	tw := tar.NewWriter(gzw)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0644,
			Size: int64(len(content)),
		}))
		_, err = tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())
}
