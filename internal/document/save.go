package document

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrNothingToSave is returned by Save when no encoded result exists yet.
var ErrNothingToSave = errors.New("no quantized image data available")

// Save writes data to destPath through a temp file in the same directory
// so readers never see a partial file.
func Save(destPath string, data []byte, mode os.FileMode) error {
	if data == nil {
		return ErrNothingToSave
	}
	destDir := filepath.Dir(destPath)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(destDir, "imgalpha-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmpFile.Name())

	if mode == 0 {
		mode = 0o644
	}
	if err := tmpFile.Chmod(mode); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return replaceFile(tmpFile.Name(), destPath)
}

func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
}
