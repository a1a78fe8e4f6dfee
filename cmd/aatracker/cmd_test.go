package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/pacemangg/aatracker/internal/config"
	"github.com/pacemangg/aatracker/internal/reporter"
	"github.com/pacemangg/aatracker/internal/tracker"
)

type fakeSecrets struct {
	mu     sync.Mutex
	values map[string]string
}

func (f *fakeSecrets) Get(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return "", config.ErrSecretNotFound
}

func (f *fakeSecrets) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[key] = value
	return nil
}

type fakeSender struct {
	code   int
	bodies []string
	urls   []string
}

func (f *fakeSender) Send(_ context.Context, url string, body []byte) (reporter.Response, error) {
	f.urls = append(f.urls, url)
	f.bodies = append(f.bodies, string(body))
	return reporter.Response{Code: f.code, Message: "denied"}, nil
}

type testEnv struct {
	home    string
	fs      afero.Fs
	secrets *fakeSecrets
	sender  *fakeSender
}

func newTestEnv(t *testing.T) *testEnv {
	return &testEnv{
		home:    t.TempDir(),
		fs:      afero.NewMemMapFs(),
		secrets: &fakeSecrets{},
		sender:  &fakeSender{code: 200},
	}
}

func (e *testEnv) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	ctx := context.Background()
	ctx = context.WithValue(ctx, contextKeyFileSystem, e.fs)
	ctx = context.WithValue(ctx, contextKeySecrets, secretStore(e.secrets))
	ctx = context.WithValue(ctx, contextKeySender, reporter.Sender(e.sender))

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--home", e.home}, args...))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestCheckTrackableWorld(t *testing.T) {
	env := newTestEnv(t)
	world := "/mc/.minecraft/saves/Random Speedrun #9"
	files := map[string]string{
		"/mc/.minecraft/config/mcsr/atum.json":       `{"hasLegalSettings":true,"seed":"","difficulty":"easy"}`,
		world + "/speedrunigt/record.json":           `{}`,
		world + "/speedrunigt/events.log":            ``,
		"/mc/.minecraft/config/atum/atum.properties": "generatorType=0\nbonusChest=false\n",
	}
	for path, content := range files {
		if err := afero.WriteFile(env.fs, path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	out, err := env.execute(t, "check", world)
	if err != nil {
		t.Fatalf("check failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Trackable: yes") {
		t.Errorf("expected trackable verdict, got:\n%s", out)
	}
}

func TestCheckReportsMissingAtum(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.execute(t, "check", "/mc/.minecraft/saves/New World")
	if err != errNotTrackable {
		t.Fatalf("expected errNotTrackable, got %v", err)
	}
	for _, want := range []string{"Trackable: no", "you must use the Atum mod", "Random Speedrun #N"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusWithoutSnapshot(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.execute(t, "status")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No status recorded yet") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestStatusPrintsSnapshot(t *testing.T) {
	env := newTestEnv(t)
	path := config.Default(env.home).StatusPath
	sent := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	_, err := tracker.NewSnapshotWriter(env.fs, path).Write(tracker.Snapshot{
		State:          tracker.PhaseTrackingReported,
		WorldPath:      "/saves/Random Speedrun #3",
		WorldID:        "abc123",
		Events:         7,
		ReportedActive: true,
		LastSendAt:     &sent,
	})
	if err != nil {
		t.Fatal(err)
	}

	out, err := env.execute(t, "status")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"tracking_reported", "Random Speedrun #3", "abc123", "7", "not running"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestKeySetStoresOptionsAndKeyring(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.execute(t, "key", "set", "secret-key", "--enable-plugin")
	if err != nil {
		t.Fatalf("key set failed: %v\n%s", err, out)
	}

	data, err := os.ReadFile(filepath.Join(config.PaceManDir(env.home), "options.json"))
	if err != nil {
		t.Fatal(err)
	}
	var opts config.Options
	if err := json.Unmarshal(data, &opts); err != nil {
		t.Fatal(err)
	}
	if opts.AccessKey != "secret-key" || !opts.EnabledForPlugin {
		t.Errorf("unexpected options %+v", opts)
	}
	if got, _ := env.secrets.Get(config.KeyringAccessKey); got != "secret-key" {
		t.Errorf("keyring has %q", got)
	}
}

func TestKeyTest(t *testing.T) {
	env := newTestEnv(t)
	env.secrets.values = map[string]string{config.KeyringAccessKey: "from-keyring"}

	out, err := env.execute(t, "key", "test")
	if err != nil {
		t.Fatalf("key test failed: %v", err)
	}
	if !strings.Contains(out, "valid") {
		t.Errorf("unexpected output %q", out)
	}
	if env.sender.urls[0] != reporter.DefaultTestEndpoint || env.sender.bodies[0] != `{"accessKey":"from-keyring"}` {
		t.Errorf("unexpected request %v %v", env.sender.urls, env.sender.bodies)
	}

	env.sender.code = 401
	if _, err := env.execute(t, "key", "test", "bad-key"); err == nil || !strings.Contains(err.Error(), "rejected") {
		t.Errorf("expected rejection, got %v", err)
	}
}

func TestKeyTestWithoutKey(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.execute(t, "key", "test"); err == nil {
		t.Fatal("expected an error without a key")
	}
	if len(env.sender.urls) != 0 {
		t.Error("nothing should be sent without a key")
	}
}

func TestRunOnceWritesStatus(t *testing.T) {
	env := newTestEnv(t)
	if err := env.secrets.Set(config.KeyringAccessKey, "k"); err != nil {
		t.Fatal(err)
	}

	out, err := env.execute(t, "run", "--once", "--skip-locks", "--dry-run")
	if err != nil {
		t.Fatalf("run --once failed: %v\n%s", err, out)
	}

	snap, err := tracker.ReadSnapshot(env.fs, config.Default(env.home).StatusPath)
	if err != nil {
		t.Fatal(err)
	}
	if snap == nil || snap.State != tracker.PhaseIdle {
		t.Errorf("expected idle snapshot, got %+v", snap)
	}
}

func TestRootRunsTrackerByDefault(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.execute(t, "--once", "--skip-locks"); err != nil {
		t.Fatalf("root command failed: %v", err)
	}
	if ok, _ := afero.Exists(env.fs, config.Default(env.home).StatusPath); !ok {
		t.Error("expected a status file from the default run command")
	}
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	out, err := env.execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "aatracker version") {
		t.Errorf("unexpected version output %q", out)
	}
}
