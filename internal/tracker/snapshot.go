package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// Snapshot is the status file written after each tick, read by `aatracker status`.
type Snapshot struct {
	State          Phase      `json:"state"`
	WorldPath      string     `json:"world_path,omitempty"`
	WorldID        string     `json:"world_id,omitempty"`
	Events         int        `json:"events"`
	ReportedActive bool       `json:"reported_active"`
	Terminated     bool       `json:"terminated"`
	LastSendAt     *time.Time `json:"last_send_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Snapshot captures the current state. UpdatedAt is left for the writer.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.state
	snap := Snapshot{
		State:          s.Phase(),
		WorldID:        s.WorldID,
		Events:         len(s.Events),
		ReportedActive: s.ReportedActive,
		Terminated:     s.Terminated,
	}
	if s.Pointer != nil {
		snap.WorldPath = s.Pointer.WorldPath
	}
	if !s.LastSendAt.IsZero() {
		at := s.LastSendAt
		snap.LastSendAt = &at
	}
	return snap
}

func (s Snapshot) sameAs(o Snapshot) bool {
	sameSend := (s.LastSendAt == nil) == (o.LastSendAt == nil)
	if sameSend && s.LastSendAt != nil {
		sameSend = s.LastSendAt.Equal(*o.LastSendAt)
	}
	return sameSend &&
		s.State == o.State &&
		s.WorldPath == o.WorldPath &&
		s.WorldID == o.WorldID &&
		s.Events == o.Events &&
		s.ReportedActive == o.ReportedActive &&
		s.Terminated == o.Terminated
}

// SnapshotWriter persists snapshots, skipping writes when nothing changed.
type SnapshotWriter struct {
	fs   afero.Fs
	path string
	now  func() time.Time

	last    Snapshot
	written bool
}

func NewSnapshotWriter(fs afero.Fs, path string) *SnapshotWriter {
	return &SnapshotWriter{fs: fs, path: path, now: time.Now}
}

// Write stores snap and reports whether the file was rewritten.
func (w *SnapshotWriter) Write(snap Snapshot) (bool, error) {
	if w.written && snap.sameAs(w.last) {
		return false, nil
	}
	snap.UpdatedAt = w.now()
	if err := writeJSONAtomic(w.fs, w.path, snap); err != nil {
		return false, fmt.Errorf("write status %s: %w", w.path, err)
	}
	w.last = snap
	w.written = true
	return true, nil
}

// ReadSnapshot loads the status file written by a running tracker.
func ReadSnapshot(fs afero.Fs, path string) (*Snapshot, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("parse status %s: %w", path, err)
	}
	return &snap, nil
}

func writeJSONAtomic(fs afero.Fs, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp := fmt.Sprintf("%s.tmp.%d", path, time.Now().UnixNano())
	f, err := fs.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		fs.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		fs.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		fs.Remove(tmp)
		return err
	}
	return fs.Rename(tmp, path)
}
