// Package tables holds the hand-maintained lookup tables consulted during alias
// resolution: per-symbol overrides and the fixed dispatch-key table.
package tables

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/BurntSushi/toml"

	docerrors "github.com/JanSimek/fallout2-modding/internal/errors"
)

// Tables is immutable once built.
type Tables struct {
	overrides map[string]string
	dispatch  map[string]string
}

type tablesFile struct {
	Overrides map[string]string `toml:"overrides"`
	Dispatch  map[string]string `toml:"dispatch"`
}

var aliasPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// builtinDispatch maps metarule constants handled by opMetarule to the names
// scripts know them by.
var builtinDispatch = map[string]string{
	"METARULE_SIGNAL_END_GAME":      "signal_end_game",
	"METARULE_FIRST_RUN":            "map_first_run",
	"METARULE_ELEVATOR":             "elevator",
	"METARULE_PARTY_COUNT":          "party_member_count",
	"METARULE_AREA_KNOWN":           "town_known",
	"METARULE_WHO_ON_DRUGS":         "critter_on_drugs",
	"METARULE_MAP_KNOWN":            "map_known",
	"METARULE_IS_LOADGAME":          "is_loading_game",
	"METARULE_CAR_CURRENT_TOWN":     "car_current_town",
	"METARULE_GIVE_CAR_TO_PARTY":    "car_give_to_party",
	"METARULE_GIVE_CAR_GAS":         "car_give_gas",
	"METARULE_SKILL_CHECK_TAG":      "is_skill_tagged",
	"METARULE_DROP_ALL_INVEN":       "drop_all_inven",
	"METARULE_INVEN_UNWIELD_WHO":    "inven_unwield_who",
	"METARULE_GET_WORLDMAP_XPOS":    "worldmap_xpos",
	"METARULE_GET_WORLDMAP_YPOS":    "worldmap_ypos",
	"METARULE_CURRENT_TOWN":         "cur_town",
	"METARULE_LANGUAGE_FILTER":      "language_filter_is_on",
	"METARULE_VIOLENCE_FILTER":      "violence_filter_setting",
	"METARULE_WEAPON_DAMAGE_TYPE":   "weapon_dmg_type",
	"METARULE_CRITTER_BARTERS":      "critter_can_barter",
	"METARULE_CRITTER_KILL_TYPE":    "critter_kill_type",
	"METARULE_SET_CAR_CARRY_AMOUNT": "car_set_trunk_storage",
	"METARULE_GET_CAR_CARRY_AMOUNT": "car_trunk_storage",
}

// Default returns the built-in dispatch table and no overrides.
func Default() *Tables {
	return &Tables{
		overrides: map[string]string{},
		dispatch:  copyMap(builtinDispatch),
	}
}

// Load reads a TOML tables file and merges it over Default. An empty path
// returns Default.
func Load(path string) (*Tables, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, docerrors.New(docerrors.ConfigInvalid, fmt.Sprintf("reading tables file %s", path), err, nil)
	}
	return Parse(string(data))
}

// Parse decodes TOML tables and merges them over Default.
func Parse(data string) (*Tables, error) {
	var f tablesFile
	md, err := toml.Decode(data, &f)
	if err != nil {
		return nil, docerrors.New(docerrors.ConfigInvalid, "decoding tables", err, nil)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, docerrors.New(docerrors.ConfigInvalid,
			fmt.Sprintf("unknown tables key %q", undecoded[0].String()), nil, nil)
	}

	t := Default()
	for k, v := range f.Overrides {
		if err := checkAlias("overrides", k, v); err != nil {
			return nil, err
		}
		t.overrides[k] = v
	}
	for k, v := range f.Dispatch {
		if err := checkAlias("dispatch", k, v); err != nil {
			return nil, err
		}
		t.dispatch[k] = v
	}
	return t, nil
}

func checkAlias(section, key, value string) error {
	if !aliasPattern.MatchString(value) {
		return docerrors.New(docerrors.ConfigInvalid,
			fmt.Sprintf("%s.%s: alias %q must be a lowercase identifier", section, key, value), nil, nil)
	}
	return nil
}

// Override returns the pinned alias for a native name.
func (t *Tables) Override(native string) (string, bool) {
	v, ok := t.overrides[native]
	return v, ok
}

// Dispatch returns the canonical name for a dispatch key.
func (t *Tables) Dispatch(key string) (string, bool) {
	v, ok := t.dispatch[key]
	return v, ok
}

// DispatchKeys returns the dispatch keys in sorted order.
func (t *Tables) DispatchKeys() []string {
	return sortedKeys(t.dispatch)
}

// Overrides returns a copy of the override table.
func (t *Tables) Overrides() map[string]string {
	return copyMap(t.overrides)
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
