package deps

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// staleLockThreshold is the age after which an install lock left behind by
// a crashed process is ignored.
const staleLockThreshold = 10 * time.Minute

// installLock guards one dependency's install directory against a second
// concurrent install.
type installLock struct {
	path string
	file *os.File
}

func lockPath(root string, name Name) string {
	return filepath.Join(root, fmt.Sprintf(".%s.install.lock", name))
}

// acquireInstallLock creates <root>/.<name>.install.lock with O_EXCL. An
// existing lock yields ErrInstallInProgress unless it is stale.
func acquireInstallLock(root string, name Name, installID string) (*installLock, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	path := lockPath(root, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}
		if !isLockStale(path) {
			return nil, ErrInstallInProgress
		}
		os.Remove(path)
		file, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
		if err != nil {
			return nil, ErrInstallInProgress
		}
	}

	data := fmt.Sprintf("pid=%d\ninstall=%s\ntimestamp=%s\n",
		os.Getpid(), installID, time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(data); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write lock data: %w", err)
	}

	return &installLock{path: path, file: file}, nil
}

// release removes the lock file. Safe to call more than once.
func (l *installLock) release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	if l.path != "" {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
		l.path = ""
	}
	return nil
}

func isLockStale(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) > staleLockThreshold
}
