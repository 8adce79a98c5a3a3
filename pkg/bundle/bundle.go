// Package bundle copies, archives and fingerprints run artifacts.
package bundle

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mholt/archiver/v3"
	"golang.org/x/crypto/blake2b"
)

// DigestSuffix is appended to an archive path to name its digest file.
const DigestSuffix = ".b2sum"

// CopyFile copies src to dst, creating dst's parent directory.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Archive writes a gzipped tarball at target containing the files named
// by names, which are relative to root and keep that relative path inside
// the archive. Names that do not exist are skipped; the names actually
// archived are returned.
func Archive(root string, names []string, target string) ([]string, error) {
	out, err := os.Create(target)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	defer func() { _ = out.Close() }()

	tgz := archiver.NewTarGz()
	if err := tgz.Create(out); err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}

	var included []string
	for _, name := range names {
		ok, err := addFile(tgz, root, name)
		if err != nil {
			_ = tgz.Close()
			return nil, fmt.Errorf("archive %s: %w", name, err)
		}
		if ok {
			included = append(included, name)
		}
	}

	if err := tgz.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	return included, out.Close()
}

func addFile(tgz *archiver.TarGz, root, name string) (bool, error) {
	path := filepath.Join(root, name)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return false, err
	}

	err = tgz.Write(archiver.File{
		FileInfo: archiver.FileInfo{
			FileInfo:   info,
			CustomName: filepath.ToSlash(name),
		},
		ReadCloser: f,
	})
	return err == nil, err
}

// Digest returns the hex BLAKE2b-256 digest of the file at path.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteDigest stores the digest of path next to it as a tagged b2sum line
// ("BLAKE2b-256 (<name>) = <hex>"), which `b2sum -c` checks without a
// length flag, and returns the digest file path and the digest.
func WriteDigest(path string) (string, string, error) {
	sum, err := Digest(path)
	if err != nil {
		return "", "", fmt.Errorf("digest %s: %w", path, err)
	}
	digestPath := path + DigestSuffix
	line := fmt.Sprintf("BLAKE2b-256 (%s) = %s\n", filepath.Base(path), sum)
	if err := os.WriteFile(digestPath, []byte(line), 0644); err != nil {
		return "", "", fmt.Errorf("write digest: %w", err)
	}
	return digestPath, sum, nil
}
