package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

var ErrLockHeld = errors.New("aatracker lock is held")

// Lock is the content of the single instance lock file.
type Lock struct {
	PID        int       `json:"pid"`
	StartedAt  time.Time `json:"started_at"`
	InstanceID string    `json:"instance_id"`

	path string
}

// Alive reports whether the owning process still exists.
func (l *Lock) Alive() bool {
	return l.PID > 0 && processAlive(l.PID)
}

// Release removes the lock file if this instance still owns it.
func (l *Lock) Release() error {
	current, err := ReadLock(l.path)
	if err != nil {
		return err
	}
	if current == nil || current.InstanceID != l.InstanceID {
		return nil
	}
	return os.Remove(l.path)
}

// ReadLock returns the lock at path, nil when there is none.
func ReadLock(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var l Lock
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("corrupt lock file %s: %w", path, err)
	}
	l.path = path
	return &l, nil
}

// AcquireLock creates the lock file at path. A lock left by a dead process is
// taken over once.
func AcquireLock(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	l := &Lock{PID: os.Getpid(), StartedAt: time.Now(), InstanceID: uuid.NewString(), path: path}
	err := l.create()
	if !errors.Is(err, os.ErrExist) {
		return l, err
	}

	held, readErr := ReadLock(path)
	if readErr != nil || held == nil {
		return nil, fmt.Errorf("%w (lock file exists: %s)", ErrLockHeld, path)
	}
	if held.Alive() {
		return nil, fmt.Errorf("%w by pid %d (instance=%s)", ErrLockHeld, held.PID, held.InstanceID)
	}
	if err := os.Remove(path); err != nil {
		return nil, err
	}
	if err := l.create(); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w (lost race for %s)", ErrLockHeld, path)
		}
		return nil, err
	}
	return l, nil
}

func (l *Lock) create() error {
	data, err := json.MarshalIndent(l, "", "    ")
	if err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(l.path)
	}
	return err
}
