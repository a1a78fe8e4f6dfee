package record

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustParse(t *testing.T, doc string) Record {
	t.Helper()
	rec, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return rec
}

func baseInput() Input {
	return Input{
		GameVersion:        "1.16.1",
		ModVersion:         "14.0+1.16.1",
		TrackerVersion:     "v0.3.1",
		Mods:               []string{"speedrunigt", "atum", "lazydfu"},
		WorldID:            "abc",
		Events:             []string{"common.leave_world 0 0", "rsg.enter_nether 60000 59000"},
		LastRecordModified: 1700000000000,
	}
}

func TestParseRejectsNonObjects(t *testing.T) {
	for _, doc := range []string{"", "{", "[]", `"x"`, "42"} {
		if _, err := Parse([]byte(doc)); !errors.Is(err, ErrInvalid) {
			t.Errorf("Parse(%q) err = %v, want ErrInvalid", doc, err)
		}
	}
}

func TestBuildSingleCompletedAdvancement(t *testing.T) {
	rec := mustParse(t, `{
		"category": "ALL_ADVANCEMENTS",
		"timelines": [],
		"advancements": {
			"minecraft:story/enter_the_nether": {"complete": true, "is_advancement": true, "rta": 1000, "igt": 900}
		}
	}`)

	p, err := Build(rec, baseInput())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if diff := cmp.Diff([]string{"story/enter_the_nether 1000 900"}, p.Completed); diff != "" {
		t.Errorf("completed mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildCompletedIsSortedAndFiltered(t *testing.T) {
	rec := mustParse(t, `{
		"category": "ALL_ADVANCEMENTS",
		"timelines": [{"name": "enter_nether", "rta": 60000, "igt": 59000}],
		"advancements": {
			"minecraft:story/mine_stone": {"complete": true, "is_advancement": true, "rta": 20, "igt": 10},
			"minecraft:recipes/misc/bread": {"complete": true, "is_advancement": false, "rta": 5, "igt": 5},
			"minecraft:adventure/root": {"complete": true, "is_advancement": true, "rta": 30, "igt": 25},
			"minecraft:nether/root": {"complete": false, "is_advancement": true},
			"custom:thing": {"complete": true, "is_advancement": true, "rta": 1, "igt": 1},
			"minecraft:end/root": {"complete": true, "is_advancement": true}
		}
	}`)

	p, err := Build(rec, baseInput())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []string{
		"custom:thing 1 1",
		"adventure/root 30 25",
		"end/root 0 0",
		"story/mine_stone 20 10",
	}
	if diff := cmp.Diff(want, p.Completed); diff != "" {
		t.Errorf("completed mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildCriteriasAndDerivedItems(t *testing.T) {
	rec := mustParse(t, `{
		"category": "ALL_ADVANCEMENTS",
		"timelines": [],
		"advancements": {
			"minecraft:adventure/adventuring_time": {"criteria": {"minecraft:plains": {}, "minecraft:desert": {}}},
			"minecraft:adventure/kill_all_mobs": {"criteria": {"minecraft:zombie": {}, "minecraft:blaze": {}}},
			"minecraft:husbandry/complete_catalogue": {"criteria": {
				"minecraft:textures/entity/cat/tabby.png": {},
				"minecraft:textures/entity/cat/black.png": {}
			}},
			"minecraft:husbandry/balanced_diet": {"criteria": {"apple": {}, "minecraft:bread": {}}},
			"minecraft:husbandry/obtain_enchanted_golden_apple": {"complete": true}
		},
		"stats": {
			"b9f2c4a0-0000-4000-8000-000000000001": {"stats": {
				"minecraft:picked_up": {"minecraft:wither_skeleton_skull": 5},
				"minecraft:dropped": {"minecraft:wither_skeleton_skull": 1},
				"minecraft:used": {"minecraft:wither_skeleton_skull": 2}
			}}
		}
	}`)

	p, err := Build(rec, baseInput())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := Criterias{
		Biomes:            []string{"desert", "plains"},
		MonstersKilled:    []string{"blaze", "zombie"},
		AnimalsBred:       []string{},
		CatsTamed:         []string{"black", "tabby"},
		FoodsEaten:        []string{"apple", "bread"},
		HasEnchantedApple: true,
		SkullCount:        2,
	}
	if diff := cmp.Diff(want, p.Criterias); diff != "" {
		t.Errorf("criterias mismatch (-want +got):\n%s", diff)
	}
}

func TestSkullCountDefaultsMissingCountersToZero(t *testing.T) {
	tests := []struct {
		name  string
		stats string
		want  int64
	}{
		{"no stats block", `null`, 0},
		{"empty stats", `{}`, 0},
		{"only picked up", `{"p": {"stats": {"minecraft:picked_up": {"minecraft:wither_skeleton_skull": 3}}}}`, 3},
		{"only used", `{"p": {"stats": {"minecraft:used": {"minecraft:wither_skeleton_skull": 1}}}}`, -1},
		{"skips players without stats", `{"a": {}, "b": {"stats": {"minecraft:picked_up": {"minecraft:wither_skeleton_skull": 2}}}}`, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := mustParse(t, `{"category": "ALL_ADVANCEMENTS", "timelines": [], "advancements": {}, "stats": `+tt.stats+`}`)
			p, err := Build(rec, baseInput())
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if p.Criterias.SkullCount != tt.want {
				t.Errorf("SkullCount = %d, want %d", p.Criterias.SkullCount, tt.want)
			}
		})
	}
}

func TestBuildDefers(t *testing.T) {
	tests := map[string]string{
		"wrong category":      `{"category": "ANY", "timelines": [], "advancements": {}}`,
		"missing category":    `{"timelines": [], "advancements": {}}`,
		"missing timelines":   `{"category": "ALL_ADVANCEMENTS", "advancements": {}}`,
		"missing advancement": `{"category": "ALL_ADVANCEMENTS", "timelines": []}`,
		"timelines not array": `{"category": "ALL_ADVANCEMENTS", "timelines": {}, "advancements": {}}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Build(mustParse(t, doc), baseInput())
			if !errors.Is(err, ErrDeferred) {
				t.Errorf("expected ErrDeferred, got %v", err)
			}
		})
	}
}

func TestPayloadSerialization(t *testing.T) {
	rec := mustParse(t, `{
		"category": "ALL_ADVANCEMENTS",
		"timelines": [ {"name": "enter_nether",  "rta": 60000, "igt": 59000} ],
		"advancements": {}
	}`)

	p, err := Build(rec, baseInput())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	data, err := p.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got := string(data)
	order := []string{
		`"lastRecordModified":1700000000000`,
		`"gameVersion":"1.16.1"`,
		`"modVersion":"14.0"`,
		`"aaTrackerVersion":"0.3.1"`,
		`"worldId":"abc"`,
		`"modList":["atum","lazydfu","speedrunigt"]`,
		`"completed":[]`,
		`"timelines":[{"name":"enter_nether","rta":60000,"igt":59000}]`,
		`"eventList":["common.leave_world 0 0","rsg.enter_nether 60000 59000"]`,
		`"criterias":{"biomes":[]`,
	}
	last := -1
	for _, fragment := range order {
		idx := strings.Index(got, fragment)
		if idx < 0 {
			t.Fatalf("missing %s in %s", fragment, got)
		}
		if idx < last {
			t.Errorf("%s out of order in %s", fragment, got)
		}
		last = idx
	}
	if strings.Contains(got, "accessKey") {
		t.Error("payload must not carry the access key")
	}

	again, _ := p.Marshal()
	if string(again) != got {
		t.Error("serialization is not stable")
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
}

func TestVersionHelpers(t *testing.T) {
	if got := ModVersion("14.0+1.16.1"); got != "14.0" {
		t.Errorf("ModVersion = %q", got)
	}
	if got := ModVersion("14.0"); got != "14.0" {
		t.Errorf("ModVersion without build = %q", got)
	}
	if got := TrackerVersion("v1.2.3"); got != "1.2.3" {
		t.Errorf("TrackerVersion = %q", got)
	}
	if got := TrackerVersion("DEV"); got != "DEV" {
		t.Errorf("TrackerVersion = %q", got)
	}
}
