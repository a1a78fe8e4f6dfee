package tracker

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

func TestSnapshotWriterSkipsUnchanged(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewSnapshotWriter(fs, "/home/runner/.PaceMan/AA/status.json")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	snap := Snapshot{State: PhaseTrackingUnreported, WorldPath: "/saves/Random Speedrun #4", Events: 2}
	if wrote, err := w.Write(snap); err != nil || !wrote {
		t.Fatalf("first write: wrote=%v err=%v", wrote, err)
	}

	now = now.Add(time.Minute)
	if wrote, err := w.Write(snap); err != nil || wrote {
		t.Fatalf("unchanged snapshot rewritten: wrote=%v err=%v", wrote, err)
	}

	snap.Events = 3
	if wrote, err := w.Write(snap); err != nil || !wrote {
		t.Fatalf("changed snapshot not written: wrote=%v err=%v", wrote, err)
	}

	got, err := ReadSnapshot(fs, "/home/runner/.PaceMan/AA/status.json")
	if err != nil {
		t.Fatal(err)
	}
	want := snap
	want.UpdatedAt = now
	if diff := cmp.Diff(&want, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	entries, err := afero.ReadDir(fs, "/home/runner/.PaceMan/AA")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %d entries", len(entries))
	}
}

func TestSnapshotSendTimeCounts(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	later := at.Add(time.Second)

	a := Snapshot{State: PhaseTrackingReported, LastSendAt: &at}
	if !a.sameAs(Snapshot{State: PhaseTrackingReported, LastSendAt: &at}) {
		t.Error("equal snapshots reported different")
	}
	if a.sameAs(Snapshot{State: PhaseTrackingReported, LastSendAt: &later}) {
		t.Error("send time change not detected")
	}
	if a.sameAs(Snapshot{State: PhaseTrackingReported}) {
		t.Error("missing send time not detected")
	}
}

func TestReadSnapshotMissing(t *testing.T) {
	snap, err := ReadSnapshot(afero.NewMemMapFs(), "/nope.json")
	if err != nil || snap != nil {
		t.Errorf("expected nil, nil; got %v, %v", snap, err)
	}
}
