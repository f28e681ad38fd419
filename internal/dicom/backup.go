package dicom

import (
	"fmt"
	"io"
	"os"
	"strconv"
)

// Backup suffixes appended to the original file name.
const (
	AnonymizeBackupSuffix = ".bak_anonym"
	DefaceBackupSuffix    = ".bak_deface"
)

// NextBackupPath returns path+suffix, or path+suffix+".N" with the smallest
// N >= 1 that does not exist yet. Existing backups are never reused.
func NextBackupPath(path, suffix string) (string, error) {
	candidate := path + suffix
	for n := 1; ; n++ {
		_, err := os.Lstat(candidate)
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("check backup %s: %w", candidate, err)
		}
		candidate = path + suffix + "." + strconv.Itoa(n)
	}
}

// MoveToBackup renames path to its next free backup name.
func MoveToBackup(path, suffix string) (string, error) {
	dst, err := NextBackupPath(path, suffix)
	if err != nil {
		return "", err
	}
	if err := os.Rename(path, dst); err != nil {
		return "", fmt.Errorf("backup %s: %w", path, err)
	}
	return dst, nil
}

// CopyToBackup copies path byte for byte to its next free backup name.
func CopyToBackup(path, suffix string) (string, error) {
	dst, err := NextBackupPath(path, suffix)
	if err != nil {
		return "", err
	}

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = src.Close() }()

	info, err := src.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return "", fmt.Errorf("create backup %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("copy backup %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("close backup %s: %w", dst, err)
	}
	return dst, nil
}
