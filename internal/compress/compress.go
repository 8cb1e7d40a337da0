package compress

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

const (
	MethodDeflate = "deflate"
	MethodZstd    = "zstd"
)

// ZipDir writes every regular file below root into a zip on w. Entry names
// are slash separated paths relative to root and are written in lexical
// order. Each entry keeps the file's modification time, so identical trees
// produce identical archives.
func ZipDir(w io.Writer, root, method string) (int, error) {
	zw := zip.NewWriter(w)
	zipMethod, err := register(zw, method)
	if err != nil {
		return 0, err
	}

	count := 0
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zipMethod
		if err := addFile(zw, header, path); err != nil {
			return fmt.Errorf("add %s: %w", header.Name, err)
		}
		count++
		return nil
	})
	if walkErr != nil {
		_ = zw.Close()
		return count, walkErr
	}
	if err := zw.Close(); err != nil {
		return count, err
	}
	return count, nil
}

func addFile(zw *zip.Writer, header *zip.FileHeader, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}

func register(zw *zip.Writer, method string) (uint16, error) {
	switch method {
	case "", MethodDeflate:
		zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, flate.BestCompression)
		})
		return zip.Deflate, nil
	case MethodZstd:
		zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor(zstd.WithEncoderLevel(zstd.SpeedBestCompression)))
		return zstd.ZipMethodWinZip, nil
	default:
		return 0, fmt.Errorf("unsupported compression: %s", method)
	}
}

// OpenZip opens an archive written by ZipDir with either method.
func OpenZip(path string) (*zip.ReadCloser, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	rc.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())
	return rc, nil
}
