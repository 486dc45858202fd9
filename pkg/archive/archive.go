// Package archive packs pulled crash-log directories into tar.zst archives
// and unpacks script bundles or device-produced archives in the common
// tarball formats.
package archive

import (
	"archive/tar"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/navtools/mfddiag/pkg/log"
	"github.com/ulikunitz/xz"
)

// Format identifies a supported archive format.
type Format string

const (
	FormatTarZst Format = "tar.zst"
	FormatTarGz  Format = "tar.gz"
	FormatTgz    Format = "tgz"
	FormatTarBz2 Format = "tar.bz2"
	FormatTarXz  Format = "tar.xz"
)

// DetectFormat determines the archive format from the file name.
func DetectFormat(path string) (Format, error) {
	name := strings.ToLower(path)
	switch {
	case strings.HasSuffix(name, ".tar.zst"):
		return FormatTarZst, nil
	case strings.HasSuffix(name, ".tar.gz"):
		return FormatTarGz, nil
	case strings.HasSuffix(name, ".tgz"):
		return FormatTgz, nil
	case strings.HasSuffix(name, ".tar.bz2"):
		return FormatTarBz2, nil
	case strings.HasSuffix(name, ".tar.xz"):
		return FormatTarXz, nil
	default:
		return "", fmt.Errorf("unsupported archive format: %s", filepath.Base(path))
	}
}

// Compressor handles compression and decompression of log archives.
type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCompressor creates a new compressor instance
func NewCompressor() (*Compressor, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &Compressor{
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// Close closes the compressor and releases resources
func (c *Compressor) Close() {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
}

// CompressDirectory compresses a directory to a tar.zst archive
func (c *Compressor) CompressDirectory(srcDir, destPath string) error {
	log.Infof("Compressing directory %s to %s", srcDir, destPath)

	destDir := filepath.Dir(destPath)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	destFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destFile.Close()

	zstdWriter := c.encoder
	zstdWriter.Reset(destFile)
	defer zstdWriter.Close()

	tarWriter := tar.NewWriter(zstdWriter)
	defer tarWriter.Close()

	err = filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(srcDir, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}

		// Skip the root directory itself
		if relPath == "." {
			return nil
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("failed to create tar header: %w", err)
		}
		header.Name = relPath

		if err := tarWriter.WriteHeader(header); err != nil {
			return fmt.Errorf("failed to write tar header: %w", err)
		}

		if info.Mode().IsRegular() {
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open file %s: %w", path, err)
			}
			defer file.Close()

			if _, err := io.Copy(tarWriter, file); err != nil {
				return fmt.Errorf("failed to write file to tar: %w", err)
			}
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to compress directory: %w", err)
	}

	log.Infof("Successfully compressed directory %s to %s", srcDir, destPath)
	return nil
}

// Extract unpacks a tarball archive to a destination directory, detecting
// the compression from the file name.
func (c *Compressor) Extract(srcPath, destDir string) error {
	format, err := DetectFormat(srcPath)
	if err != nil {
		return err
	}
	log.Infof("Extracting %s (%s) to %s", srcPath, format, destDir)

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	srcFile, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	var reader io.Reader
	switch format {
	case FormatTarZst:
		zstdReader := c.decoder
		if err := zstdReader.Reset(srcFile); err != nil {
			return fmt.Errorf("failed to reset zstd decoder: %w", err)
		}
		reader = zstdReader

	case FormatTarGz, FormatTgz:
		gzipReader, err := gzip.NewReader(srcFile)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzipReader.Close()
		reader = gzipReader

	case FormatTarBz2:
		reader = bzip2.NewReader(srcFile)

	case FormatTarXz:
		xzReader, err := xz.NewReader(srcFile)
		if err != nil {
			return fmt.Errorf("failed to create xz reader: %w", err)
		}
		reader = xzReader
	}

	if err := extractTar(reader, destDir); err != nil {
		return err
	}

	log.Infof("Successfully extracted %s to %s", srcPath, destDir)
	return nil
}

// extractTar unpacks a tar stream into destDir.
func extractTar(r io.Reader, destDir string) error {
	tarReader := tar.NewReader(r)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar header: %w", err)
		}

		// Sanitize the file path to prevent directory traversal
		destPath := filepath.Join(destDir, header.Name)
		if !strings.HasPrefix(destPath, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("invalid file path: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(destPath, os.FileMode(header.Mode)); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", destPath, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
				return fmt.Errorf("failed to create directory for %s: %w", destPath, err)
			}
			destFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return fmt.Errorf("failed to create file %s: %w", destPath, err)
			}

			if _, err := io.Copy(destFile, tarReader); err != nil {
				destFile.Close()
				return fmt.Errorf("failed to write file %s: %w", destPath, err)
			}
			destFile.Close()
		}
	}
	return nil
}
