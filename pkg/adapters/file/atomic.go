package file

import (
	"fmt"
	"os"
	"path/filepath"
)

// tempFilePrefix marks in-flight atomic writes; the watcher skips them.
const tempFilePrefix = "viny-tmp-"

// writeFileAtomic replaces filename in one step: the payload lands in a
// sibling temp file, is flushed to disk, then renamed over the target.
// Concurrent readers see either the old content or the new, never a torn
// write.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), tempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("atomic write %s: %w", filename, err)
	}

	err = func() error {
		defer tmp.Close()
		if _, err := tmp.Write(data); err != nil {
			return err
		}
		if err := tmp.Chmod(perm); err != nil {
			return err
		}
		return tmp.Sync()
	}()
	if err == nil {
		err = os.Rename(tmp.Name(), filename)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("atomic write %s: %w", filename, err)
	}
	return nil
}
