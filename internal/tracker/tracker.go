package tracker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/pacemangg/aatracker/internal/atum"
	"github.com/pacemangg/aatracker/internal/config"
	"github.com/pacemangg/aatracker/internal/events"
	"github.com/pacemangg/aatracker/internal/logger"
	"github.com/pacemangg/aatracker/internal/record"
	"github.com/pacemangg/aatracker/internal/reporter"
	"github.com/pacemangg/aatracker/internal/resilience"
)

// Termination reasons, used as metric labels.
const (
	reasonNoWorld      = "no_world"
	reasonWorldChanged = "world_changed"
	reasonIllegalEvent = "illegal_event"
	reasonSendFailed   = "send_failed"
)

// Options is where the tracker reads the access key and enabled flag each tick.
type Options interface {
	Get() config.Options
}

// Deps configures a Tracker.
type Deps struct {
	Fs          afero.Fs
	Log         logger.Logger
	Options     Options
	Sender      reporter.Sender
	Endpoints   reporter.Endpoints
	PointerPath string
	Version     string
	// Embedded trackers also require the enabledForPlugin option.
	Embedded bool
	// DryRun builds and de-duplicates payloads but never sends them.
	DryRun  bool
	Metrics *Metrics
	Now     func() time.Time
}

// Tracker follows the latest SpeedRunIGT world and reports its progress. It is
// driven by a single goroutine calling Tick.
type Tracker struct {
	fs          afero.Fs
	log         logger.Logger
	options     Options
	sender      reporter.Sender
	endpoints   reporter.Endpoints
	pointerPath string
	version     string
	embedded    bool
	dryRun      bool
	metrics     *Metrics
	now         func() time.Time

	mu    sync.Mutex
	state State
}

// New creates a tracker. Options and Sender are required.
func New(d Deps) *Tracker {
	t := &Tracker{
		fs:          d.Fs,
		log:         d.Log,
		options:     d.Options,
		sender:      d.Sender,
		endpoints:   d.Endpoints,
		pointerPath: d.PointerPath,
		version:     d.Version,
		embedded:    d.Embedded,
		dryRun:      d.DryRun,
		metrics:     d.Metrics,
		now:         d.Now,
	}
	if t.fs == nil {
		t.fs = afero.NewOsFs()
	}
	if t.log == nil {
		t.log = logger.NewNoopLogger()
	}
	if t.endpoints == (reporter.Endpoints{}) {
		t.endpoints = reporter.DefaultEndpoints()
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t
}

// State returns a copy of the tracker state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.state
	s.Events = append([]string(nil), t.state.Events...)
	return s
}

// Tick runs one pass of the tracking state machine. Configuration and I/O
// problems are logged and retried on the next tick; only broken invariants
// and context cancellation are returned.
func (t *Tracker) Tick(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	opts := t.options.Get()
	if !t.shouldRun(opts) {
		return nil
	}
	t.metrics.IncrementTicks()

	if !t.checkPointer(ctx, opts.AccessKey) {
		return nil
	}

	s := &t.state
	if s.Pointer == nil {
		t.endRun(ctx, opts.AccessKey, reasonNoWorld)
		return nil
	}
	if s.Terminated {
		return nil
	}

	pointer := *s.Pointer
	recordMod, ok := t.modTime(pointer.RecordPath())
	if !ok {
		return nil
	}
	eventsMod, ok := t.modTime(pointer.EventsPath())
	if !ok {
		return nil
	}

	recordChanged := recordMod != s.LastRecordModTime
	eventsChanged := eventsMod != s.LastEventsModTime
	if !recordChanged && !eventsChanged {
		return nil
	}
	s.LastRecordModTime = recordMod
	s.LastEventsModTime = eventsMod

	if eventsChanged {
		s.Events = events.Read(t.fs, t.log, pointer.EventsPath())
	}
	if len(s.Events) == 0 {
		return nil
	}
	if line, evil := events.HasEvil(s.Events); evil {
		t.log.Warn("Run has an illegal event, ending it", logger.F("event", line))
		t.endRun(ctx, opts.AccessKey, reasonIllegalEvent)
		return nil
	}
	if !events.HasNetherEnter(s.Events) {
		return nil
	}

	data, err := afero.ReadFile(t.fs, pointer.RecordPath())
	if err != nil {
		t.log.Error("Error reading record file", logger.F("error", err))
		return nil
	}
	rec, err := record.Parse(data)
	if err != nil {
		t.log.Error("Error reading record file", logger.F("path", pointer.RecordPath()), logger.F("error", err))
		return nil
	}

	worldID, err := Fingerprint(absPath(pointer.WorldPath), s.Events, t.log)
	if err != nil {
		return err
	}
	s.WorldID = worldID

	payload, err := record.Build(rec, record.Input{
		GameVersion:        pointer.Version,
		ModVersion:         pointer.ModVersion,
		TrackerVersion:     t.version,
		Mods:               pointer.Mods,
		WorldID:            worldID,
		Events:             s.Events,
		LastRecordModified: s.LastRecordModTime,
	})
	if errors.Is(err, record.ErrDeferred) {
		t.log.Info("Record not ready to report yet", logger.F("reason", err))
		return nil
	}
	if err != nil {
		t.log.Error("Failed to build run update", logger.F("error", err))
		return nil
	}

	body, err := payload.Marshal()
	if err != nil {
		return fmt.Errorf("serialize run update: %w", err)
	}
	if string(body) == s.LastSent {
		t.log.Debug("Something updated but no changes found!")
		return nil
	}
	s.LastSent = string(body)
	t.log.Debug("Sending exactly (access key hidden)", logger.F("payload", s.LastSent))

	if t.dryRun {
		t.metrics.IncrementSends("dry_run")
		t.log.Info("Dry run, run update not sent", logger.F("world_id", worldID))
		return nil
	}
	return t.send(ctx, body, opts.AccessKey)
}

func (t *Tracker) shouldRun(opts config.Options) bool {
	if opts.AccessKey == "" {
		return false
	}
	return !t.embedded || opts.EnabledForPlugin
}

// checkPointer re-reads latest_world.json when its mtime moved and adopts it if
// it points at a trackable world. It returns false when the tick must abort.
func (t *Tracker) checkPointer(ctx context.Context, accessKey string) bool {
	s := &t.state

	info, err := t.fs.Stat(t.pointerPath)
	if err != nil {
		if !os.IsNotExist(err) {
			t.log.Error("Failed to check latest_world.json", logger.F("error", err))
			return false
		}
		s.Pointer = nil
		return true
	}

	mod := info.ModTime().UnixMilli()
	if mod == s.LastPointerModTime {
		return true
	}
	previous := s.Pointer
	s.LastPointerModTime = mod
	s.Pointer = nil

	p, err := ReadPointer(t.fs, t.pointerPath)
	if errors.Is(err, ErrIncompletePointer) {
		t.log.Debug("Ignoring latest_world.json", logger.F("reason", err))
		return true
	}
	if err != nil {
		t.log.Error("Failed to read latest_world.json", logger.F("error", err))
		return true
	}

	if !IsRandomSpeedrunWorld(p.WorldPath) {
		t.log.Debug("Latest world is not a random speedrun world", logger.F("world", p.WorldPath))
		return true
	}
	if p.Category != record.TargetCategory {
		t.log.Debug("Latest world is not an all advancements run", logger.F("category", p.Category))
		return true
	}
	if !atum.IsTrackableWorldConfig(t.fs, t.log, p.WorldPath) {
		return true
	}

	recordInfo, err := t.fs.Stat(p.RecordPath())
	if err != nil {
		return true
	}
	eventsInfo, err := t.fs.Stat(p.EventsPath())
	if err != nil {
		return true
	}

	if previous == nil || previous.WorldPath != p.WorldPath {
		t.endRun(ctx, accessKey, reasonWorldChanged)
		s.resetRun()
		s.LastRecordModTime = recordInfo.ModTime().UnixMilli()
		s.LastEventsModTime = eventsInfo.ModTime().UnixMilli()
		t.log.Info("Tracking world", logger.F("world", p.WorldPath))
	}
	s.Pointer = &p
	return true
}

// modTime returns the mtime of path in millis, or false when it cannot be used.
func (t *Tracker) modTime(path string) (int64, bool) {
	info, err := t.fs.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			t.log.Error("Failed to check run file", logger.F("path", path), logger.F("error", err))
		}
		return 0, false
	}
	return info.ModTime().UnixMilli(), true
}

func (t *Tracker) send(ctx context.Context, body []byte, accessKey string) error {
	s := &t.state

	withKey, err := reporter.WithAccessKey(body, accessKey)
	if err != nil {
		return fmt.Errorf("attach access key: %w", err)
	}

	resp, err := t.sender.Send(ctx, t.endpoints.Send, withKey)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.metrics.IncrementSends("error")
		t.log.Error("Error during paceman.gg sending", logger.F("error", err), logger.F("kind", resilience.Kind(err)))
		t.endRun(ctx, accessKey, reasonSendFailed)
		return nil
	}
	if !resp.OK() {
		t.metrics.IncrementSends("rejected")
		t.log.Error("Failed to send to PaceMan.gg",
			logger.F("code", resp.Code),
			logger.F("message", resp.Message),
			logger.F("kind", resilience.Kind(resp.Err())),
			logger.F("request_id", resp.RequestID))
		t.endRun(ctx, accessKey, reasonSendFailed)
		return nil
	}

	t.metrics.IncrementSends("ok")
	t.metrics.SetReportedActive(true)
	s.ReportedActive = true
	s.LastSendAt = t.now()
	t.log.Info("Run updated on PaceMan.gg!", logger.F("world_id", s.WorldID))
	return nil
}

// endRun force terminates the current run. The kill request is only sent for a
// run PaceMan knows about; its failure is logged and otherwise ignored.
func (t *Tracker) endRun(ctx context.Context, accessKey, reason string) {
	s := &t.state

	if s.ReportedActive {
		t.kill(ctx, accessKey)
		s.ReportedActive = false
		t.metrics.SetReportedActive(false)
	}
	if !s.Terminated && len(s.Events) > 0 {
		t.metrics.IncrementTerminations(reason)
	}
	s.Terminated = true
}

func (t *Tracker) kill(ctx context.Context, accessKey string) {
	body, err := reporter.AccessKeyBody(accessKey)
	if err != nil {
		t.log.Error("Failed to kill run", logger.F("error", err))
		return
	}

	resp, err := t.sender.Send(ctx, t.endpoints.Kill, body)
	switch {
	case err != nil:
		t.metrics.IncrementKills("error")
		t.log.Error("Failed to kill run", logger.F("error", err), logger.F("kind", resilience.Kind(err)))
	case !resp.OK():
		t.metrics.IncrementKills("rejected")
		t.log.Error("Failed to kill run", logger.F("code", resp.Code), logger.F("message", resp.Message))
	default:
		t.metrics.IncrementKills("ok")
		t.log.Info("Run ended on PaceMan.gg", logger.F("world_id", t.state.WorldID))
	}
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
