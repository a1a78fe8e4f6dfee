// Package record turns a SpeedRunIGT record.json into the payload reported to PaceMan.
package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// TargetCategory is the only run category that is reported.
const TargetCategory = "ALL_ADVANCEMENTS"

const namespace = "minecraft:"

// Advancement keys with criteria of interest.
const (
	AdventuringTime   = "minecraft:adventure/adventuring_time"
	KillAllMobs       = "minecraft:adventure/kill_all_mobs"
	BredAllAnimals    = "minecraft:husbandry/bred_all_animals"
	CompleteCatalogue = "minecraft:husbandry/complete_catalogue"
	BalancedDiet      = "minecraft:husbandry/balanced_diet"
	EnchantedApple    = "minecraft:husbandry/obtain_enchanted_golden_apple"
)

const (
	catTexturePrefix = "minecraft:textures/entity/cat/"
	catTextureSuffix = ".png"
	skullItem        = "minecraft:wither_skeleton_skull"
)

// ErrDeferred means the record cannot be reported yet. It is not a failure: the
// run may not have switched category or written its first advancement.
var ErrDeferred = errors.New("record not ready to report")

// ErrInvalid is returned by Parse for data that is not a JSON object.
var ErrInvalid = errors.New("record is not a JSON object")

// Record is a parsed record.json.
type Record struct {
	root Value
}

// Parse validates data as a JSON object.
func Parse(data []byte) (Record, error) {
	if !gjson.ValidBytes(data) {
		return Record{}, ErrInvalid
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Record{}, ErrInvalid
	}
	return Record{root: Value{r: root}}, nil
}

// Root gives access to the whole document.
func (r Record) Root() Value { return r.root }

// Input carries everything besides the record that goes into a payload.
type Input struct {
	GameVersion        string
	ModVersion         string
	TrackerVersion     string
	Mods               []string
	WorldID            string
	Events             []string
	LastRecordModified int64
}

// Criterias lists per-advancement progress and derived items.
type Criterias struct {
	Biomes            []string `json:"biomes"`
	MonstersKilled    []string `json:"monstersKilled"`
	AnimalsBred       []string `json:"animalsBred"`
	CatsTamed         []string `json:"catsTamed"`
	FoodsEaten        []string `json:"foodsEaten"`
	HasEnchantedApple bool     `json:"hasEnchantedApple"`
	SkullCount        int64    `json:"skullCount"`
}

// Payload is the document sent to the send endpoint, minus the access key.
type Payload struct {
	LastRecordModified int64           `json:"lastRecordModified"`
	GameVersion        string          `json:"gameVersion"`
	ModVersion         string          `json:"modVersion"`
	TrackerVersion     string          `json:"aaTrackerVersion"`
	WorldID            string          `json:"worldId"`
	ModList            []string        `json:"modList"`
	Completed          []string        `json:"completed"`
	Timelines          json.RawMessage `json:"timelines"`
	EventList          []string        `json:"eventList"`
	Criterias          Criterias       `json:"criterias"`
}

// Marshal returns the exact bytes used both for de-duplication and as the body
// the access key is appended to.
func (p *Payload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// Build assembles the payload for rec, or returns an error wrapping ErrDeferred.
func Build(rec Record, in Input) (*Payload, error) {
	root := rec.root

	if category := root.Get("category").String(); category != TargetCategory {
		return nil, fmt.Errorf("%w: record category is %q", ErrDeferred, category)
	}

	timelines := root.Get("timelines")
	advancements := root.Get("advancements")
	if !timelines.IsArray() {
		return nil, fmt.Errorf("%w: no timelines", ErrDeferred)
	}
	if !advancements.IsObject() {
		return nil, fmt.Errorf("%w: no advancements", ErrDeferred)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, []byte(timelines.Raw())); err != nil {
		return nil, fmt.Errorf("compact timelines: %w", err)
	}

	mods := append([]string{}, in.Mods...)
	sort.Strings(mods)

	return &Payload{
		LastRecordModified: in.LastRecordModified,
		GameVersion:        in.GameVersion,
		ModVersion:         ModVersion(in.ModVersion),
		TrackerVersion:     TrackerVersion(in.TrackerVersion),
		WorldID:            in.WorldID,
		ModList:            mods,
		Completed:          completed(advancements),
		Timelines:          compact.Bytes(),
		EventList:          append([]string{}, in.Events...),
		Criterias: Criterias{
			Biomes:            criteria(advancements, AdventuringTime, stripNamespace),
			MonstersKilled:    criteria(advancements, KillAllMobs, stripNamespace),
			AnimalsBred:       criteria(advancements, BredAllAnimals, stripNamespace),
			CatsTamed:         criteria(advancements, CompleteCatalogue, catVariant),
			FoodsEaten:        criteria(advancements, BalancedDiet, stripNamespace),
			HasEnchantedApple: advancements.Get(EnchantedApple).Get("complete").Bool(),
			SkullCount:        skullCount(root.Get("stats")),
		},
	}, nil
}

// completed lists finished real advancements as "<name> <rta> <igt>", sorted by key.
func completed(advancements Value) []string {
	out := []string{}
	for _, key := range advancements.Keys() {
		adv := advancements.Get(key)
		if !adv.Get("complete").Bool() || !adv.Get("is_advancement").Bool() {
			continue
		}
		out = append(out, fmt.Sprintf("%s %d %d", stripNamespace(key), adv.Get("rta").Int(), adv.Get("igt").Int()))
	}
	return out
}

func criteria(advancements Value, key string, name func(string) string) []string {
	out := []string{}
	for _, c := range advancements.Get(key).Get("criteria").Keys() {
		out = append(out, name(c))
	}
	return out
}

// skullCount is picked_up - dropped - used of wither skeleton skulls for the first
// player with statistics.
func skullCount(stats Value) int64 {
	player, ok := stats.First(func(v Value) bool { return v.Get("stats").IsObject() })
	if !ok {
		return 0
	}
	s := player.Get("stats")
	count := func(kind string) int64 {
		return s.Get("minecraft:" + kind).Get(skullItem).Int()
	}
	return count("picked_up") - count("dropped") - count("used")
}

func stripNamespace(s string) string {
	return strings.TrimPrefix(s, namespace)
}

func catVariant(s string) string {
	return strings.TrimSuffix(strings.TrimPrefix(s, catTexturePrefix), catTextureSuffix)
}

// ModVersion drops the "+build" suffix of a SpeedRunIGT version.
func ModVersion(v string) string {
	before, _, _ := strings.Cut(v, "+")
	return before
}

// TrackerVersion drops a leading "v".
func TrackerVersion(v string) string {
	return strings.TrimPrefix(v, "v")
}
