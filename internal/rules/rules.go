// Package rules loads the raid rules document: bypass toggles, refunds,
// notices and the ordered raid profiles.
package rules

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/example/raid-controller/internal/arbitration"
	"github.com/example/raid-controller/internal/cooldown"
	"github.com/example/raid-controller/internal/schedule"
	"github.com/example/raid-controller/internal/session"
)

//go:embed rules.schema.json
var schemaSource string

// DefaultDocument is the stock rules document.
//
//go:embed default.yaml
var DefaultDocument []byte

const schemaURL = "https://raid-controller.local/schemas/rules.schema.json"

var compiledSchema = jsonschema.MustCompileString(schemaURL, schemaSource)

// Error lists every problem found in a rules document, keyed by the location
// of the offending value.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "rules: invalid document"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "rules: invalid document: " + strings.Join(parts, "; ")
}

func (e *Error) add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

func (e *Error) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

type windowDoc struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

type dayDoc struct {
	AllDay  bool        `yaml:"all_day"`
	NoRaid  bool        `yaml:"no_raid"`
	Windows []windowDoc `yaml:"windows"`
}

type wipeDoc struct {
	Enabled bool   `yaml:"enabled"`
	Days    int    `yaml:"days"`
	Custom  string `yaml:"custom"`
}

type profileDoc struct {
	Key          string            `yaml:"key"`
	WipeCooldown wipeDoc           `yaml:"wipe_cooldown"`
	Days         map[string]dayDoc `yaml:"days"`
}

type bypassDoc struct {
	Admin              bool     `yaml:"admin"`
	Twig               bool     `yaml:"twig"`
	Owner              bool     `yaml:"owner"`
	Team               bool     `yaml:"team"`
	Decay              bool     `yaml:"decay"`
	NoZone             bool     `yaml:"no_zone"`
	PlayerFire         bool     `yaml:"player_fire"`
	Items              []string `yaml:"items"`
	ItemsZoneProtected []string `yaml:"items_zone_protected"`
}

type refundDoc struct {
	Enabled    bool            `yaml:"enabled"`
	Categories map[string]bool `yaml:"categories"`
}

type noticesDoc struct {
	Open       bool   `yaml:"open"`
	Closed     bool   `yaml:"closed"`
	TryDamage  bool   `yaml:"try_damage"`
	AlertEvery string `yaml:"alert_every"`
}

type proxyFireDoc struct {
	Radius  float64 `yaml:"radius"`
	Horizon string  `yaml:"horizon"`
}

type document struct {
	Enabled   bool         `yaml:"enabled"`
	Bypass    bypassDoc    `yaml:"bypass"`
	Refund    refundDoc    `yaml:"refund"`
	Notices   noticesDoc   `yaml:"notices"`
	ProxyFire proxyFireDoc `yaml:"proxy_fire"`
	Profiles  []profileDoc `yaml:"profiles"`
}

func defaultDocument() document {
	return document{
		Enabled: true,
		Bypass:  bypassDoc{Admin: true, Twig: true, Owner: true, Team: true},
		Refund: refundDoc{Categories: map[string]bool{
			"explosive": true, "grenade": true, "rocket": true, "grenadelauncher": true,
			"rifle": true, "pistol": true, "shotgun": true,
		}},
		Notices:   noticesDoc{Open: true, Closed: true, TryDamage: true, AlertEvery: "30m"},
		ProxyFire: proxyFireDoc{Radius: 5, Horizon: "30s"},
	}
}

// Refund controls ammunition refunds for suppressed damage.
type Refund struct {
	Enabled    bool
	Categories map[string]bool
}

// Allows reports whether refunds are on for the category.
func (r Refund) Allows(category string) bool {
	return r.Enabled && r.Categories[category]
}

// Notices gate player-facing messages.
type Notices struct {
	Open       bool
	Closed     bool
	TryDamage  bool
	AlertEvery time.Duration
}

// Settings returns the subset the refresh scheduler consumes.
func (n Notices) Settings() session.NoticeSettings {
	return session.NoticeSettings{Open: n.Open, Closed: n.Closed, AlertEvery: n.AlertEvery}
}

// ProxyFire tunes incendiary attribution.
type ProxyFire struct {
	Radius  float64
	Horizon time.Duration
}

// Rules is a validated rules document converted into domain types.
type Rules struct {
	// Enabled is the master switch; when false every damage event passes.
	Enabled    bool
	PlayerFire bool
	Policy     arbitration.Policy
	Refund     Refund
	Notices    Notices
	ProxyFire  ProxyFire
	Profiles   *schedule.ProfileSet
	// Source is the document the rules were parsed from.
	Source []byte
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Load reads and parses the rules document at path.
func Load(path string) (*Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Parse validates raw against the rules schema and converts it. Schema
// violations and malformed schedules are reported together as *Error.
func Parse(raw []byte) (*Rules, error) {
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	if err := validateSchema(generic); err != nil {
		return nil, err
	}

	doc := defaultDocument()
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	return convert(doc, raw)
}

func validateSchema(generic any) error {
	// Round trip through JSON so numbers and maps have the shapes the
	// validator expects.
	encoded, err := json.Marshal(generic)
	if err != nil {
		return fmt.Errorf("rules: document is not representable as JSON: %w", err)
	}
	var instance any
	if err := json.Unmarshal(encoded, &instance); err != nil {
		return fmt.Errorf("rules: %w", err)
	}

	err = compiledSchema.Validate(instance)
	if err == nil {
		return nil
	}
	var vErr *jsonschema.ValidationError
	if !errors.As(err, &vErr) {
		return fmt.Errorf("rules: %w", err)
	}
	out := &Error{}
	collectSchemaErrors(vErr, out)
	return out.orNil()
}

func collectSchemaErrors(vErr *jsonschema.ValidationError, out *Error) {
	if len(vErr.Causes) == 0 {
		field := vErr.InstanceLocation
		if field == "" {
			field = "/"
		}
		out.add(field, vErr.Message)
		return
	}
	for _, cause := range vErr.Causes {
		collectSchemaErrors(cause, out)
	}
}

func convert(doc document, raw []byte) (*Rules, error) {
	verr := &Error{}

	alertEvery, err := time.ParseDuration(doc.Notices.AlertEvery)
	if err != nil || alertEvery < 0 {
		verr.add("/notices/alert_every", "must be a non-negative duration")
	}
	horizon, err := time.ParseDuration(doc.ProxyFire.Horizon)
	if err != nil || horizon <= 0 {
		verr.add("/proxy_fire/horizon", "must be a positive duration")
	}

	profiles := make([]schedule.RaidProfile, 0, len(doc.Profiles))
	seen := make(map[string]int, len(doc.Profiles))
	for i, p := range doc.Profiles {
		base := fmt.Sprintf("/profiles/%d", i)
		if prev, dup := seen[p.Key]; dup {
			verr.add(base+"/key", fmt.Sprintf("duplicates profile %d", prev))
		}
		seen[p.Key] = i

		profile := schedule.RaidProfile{
			Key:  p.Key,
			Wipe: cooldown.Policy{Enabled: p.WipeCooldown.Enabled, Days: p.WipeCooldown.Days, Custom: p.WipeCooldown.Custom},
		}
		for name, day := range p.Days {
			weekday := weekdays[name]
			converted, ok := convertDay(day, base+"/days/"+name, verr)
			if ok {
				profile.Week[weekday] = converted
			}
		}
		profiles = append(profiles, profile)
	}

	if err := verr.orNil(); err != nil {
		return nil, err
	}

	set, err := schedule.NewProfileSet(profiles)
	if err != nil {
		if errors.Is(err, schedule.ErrMissingDefaultProfile) {
			return nil, err
		}
		verr.add("/profiles", err.Error())
		return nil, verr
	}

	return &Rules{
		Enabled:    doc.Enabled,
		PlayerFire: doc.Bypass.PlayerFire,
		Policy: arbitration.NewPolicy(arbitration.Toggles{
			Admin:  doc.Bypass.Admin,
			Twig:   doc.Bypass.Twig,
			Owner:  doc.Bypass.Owner,
			Team:   doc.Bypass.Team,
			Decay:  doc.Bypass.Decay,
			NoZone: doc.Bypass.NoZone,
		}, doc.Bypass.Items, doc.Bypass.ItemsZoneProtected),
		Refund:    Refund{Enabled: doc.Refund.Enabled, Categories: doc.Refund.Categories},
		Notices:   Notices{Open: doc.Notices.Open, Closed: doc.Notices.Closed, TryDamage: doc.Notices.TryDamage, AlertEvery: alertEvery},
		ProxyFire: ProxyFire{Radius: doc.ProxyFire.Radius, Horizon: horizon},
		Profiles:  set,
		Source:    append([]byte(nil), raw...),
	}, nil
}

func convertDay(day dayDoc, path string, verr *Error) (schedule.DaySchedule, bool) {
	out := schedule.DaySchedule{AllDay: day.AllDay, NoAllDayRaid: day.NoRaid}
	ok := true
	for i, w := range day.Windows {
		window, err := schedule.NewTimeWindow(w.Start, w.End)
		if err != nil {
			verr.add(fmt.Sprintf("%s/windows/%d", path, i), err.Error())
			ok = false
			continue
		}
		out.Windows = append(out.Windows, window)
	}
	if !ok {
		return out, false
	}
	if err := out.Validate(); err != nil {
		verr.add(path, err.Error())
		return out, false
	}
	return out, true
}
