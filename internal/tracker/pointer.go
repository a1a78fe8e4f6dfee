package tracker

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
)

// worldNamePattern matches the directory names of worlds created by a reset mod.
var worldNamePattern = regexp.MustCompile(`^Random Speedrun #\d+( \(\d+\))?$`)

var pointerFields = []string{"version", "mod_version", "category", "mods", "world_path"}

// ErrIncompletePointer is returned when latest_world.json lacks a required field.
var ErrIncompletePointer = errors.New("latest_world.json is incomplete")

// WorldPointer is the content of SpeedRunIGT's latest_world.json.
type WorldPointer struct {
	WorldPath  string
	Category   string
	Mods       []string
	Version    string
	ModVersion string
}

// SpeedrunIGTDir is the per-world directory holding record.json and events.log.
func (p WorldPointer) SpeedrunIGTDir() string {
	return filepath.Join(p.WorldPath, "speedrunigt")
}

// RecordPath is <world>/speedrunigt/record.json.
func (p WorldPointer) RecordPath() string {
	return filepath.Join(p.SpeedrunIGTDir(), "record.json")
}

// EventsPath is <world>/speedrunigt/events.log.
func (p WorldPointer) EventsPath() string {
	return filepath.Join(p.SpeedrunIGTDir(), "events.log")
}

// ReadPointer parses latest_world.json. All five fields must be present.
func ReadPointer(fs afero.Fs, path string) (WorldPointer, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return WorldPointer{}, err
	}
	if !gjson.ValidBytes(data) {
		return WorldPointer{}, fmt.Errorf("%s is not valid JSON", path)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return WorldPointer{}, fmt.Errorf("%s is not a JSON object", path)
	}

	values := doc.Map()
	for _, field := range pointerFields {
		if _, ok := values[field]; !ok {
			return WorldPointer{}, fmt.Errorf("%w: no %q", ErrIncompletePointer, field)
		}
	}

	p := WorldPointer{
		WorldPath:  values["world_path"].String(),
		Category:   values["category"].String(),
		Version:    values["version"].String(),
		ModVersion: values["mod_version"].String(),
		Mods:       []string{},
	}
	for _, mod := range values["mods"].Array() {
		p.Mods = append(p.Mods, mod.String())
	}
	return p, nil
}

// IsRandomSpeedrunWorld reports whether the last element of worldPath looks like a
// freshly generated run.
func IsRandomSpeedrunWorld(worldPath string) bool {
	return worldNamePattern.MatchString(filepath.Base(worldPath))
}
