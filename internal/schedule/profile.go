package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/raid-controller/internal/cooldown"
)

// DefaultProfileKey names the profile every actor falls back to.
const DefaultProfileKey = "default"

// ErrMissingDefaultProfile indicates a profile set without the fallback profile.
var ErrMissingDefaultProfile = errors.New(`schedule: raid profile "default" is missing`)

// DaySchedule is the raid configuration of one weekday. AllDay and
// NoAllDayRaid short-circuit the windows when set.
type DaySchedule struct {
	AllDay       bool
	NoAllDayRaid bool
	Windows      []TimeWindow
}

// Validate checks that the flags are exclusive and the windows are ordered
// and non-overlapping.
func (d DaySchedule) Validate() error {
	if d.AllDay && d.NoAllDayRaid {
		return fmt.Errorf("%w: all-day raid and no-raid-all-day are both set", ErrInvalidWindow)
	}
	for i, w := range d.Windows {
		if err := w.Validate(); err != nil {
			return err
		}
		if i > 0 && d.Windows[i-1].bound() > w.Start {
			return fmt.Errorf("%w: %s overlaps or precedes %s", ErrInvalidWindow, w, d.Windows[i-1])
		}
	}
	return nil
}

// WeeklySchedule holds one DaySchedule per weekday, indexed by time.Weekday.
type WeeklySchedule [7]DaySchedule

// Day returns the schedule configured for weekday.
func (w WeeklySchedule) Day(weekday time.Weekday) DaySchedule {
	if weekday < time.Sunday || weekday > time.Saturday {
		return DaySchedule{}
	}
	return w[weekday]
}

// RaidProfile is a named schedule set: the default profile or an override
// keyed by actor id or group name.
type RaidProfile struct {
	Key  string
	Week WeeklySchedule
	Wipe cooldown.Policy
}

// Validate checks every weekday of the profile.
func (p RaidProfile) Validate() error {
	for day := time.Sunday; day <= time.Saturday; day++ {
		if err := p.Week[day].Validate(); err != nil {
			return fmt.Errorf("profile %q %s: %w", p.Key, day, err)
		}
	}
	return nil
}

// Identity is what profile selection needs to know about an actor.
type Identity struct {
	ID     string
	Groups []string
}

func (i Identity) matches(key string) bool {
	if key == DefaultProfileKey || key == i.ID {
		return true
	}
	for _, group := range i.Groups {
		if group == key {
			return true
		}
	}
	return false
}

// ProfileSet is an ordered collection of raid profiles.
type ProfileSet struct {
	profiles []RaidProfile
}

// NewProfileSet validates and stores profiles in the given order.
func NewProfileSet(profiles []RaidProfile) (*ProfileSet, error) {
	hasDefault := false
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if p.Key == DefaultProfileKey {
			hasDefault = true
		}
	}
	if !hasDefault {
		return nil, ErrMissingDefaultProfile
	}

	cloned := make([]RaidProfile, len(profiles))
	copy(cloned, profiles)
	return &ProfileSet{profiles: cloned}, nil
}

// Select returns the last profile in configured order matching the identity.
// Every actor matches the default profile, so later overrides win over it.
func (s *ProfileSet) Select(id Identity) (RaidProfile, bool) {
	if s == nil {
		return RaidProfile{}, false
	}
	for i := len(s.profiles) - 1; i >= 0; i-- {
		if id.matches(s.profiles[i].Key) {
			return s.profiles[i], true
		}
	}
	return RaidProfile{}, false
}

// Keys lists the profile keys in configured order.
func (s *ProfileSet) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.profiles))
	for _, p := range s.profiles {
		keys = append(keys, p.Key)
	}
	return keys
}
