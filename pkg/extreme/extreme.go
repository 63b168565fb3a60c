// Package extreme reduces the tide observations for a date to the single
// water level reported for that date.
package extreme

import (
	"fmt"

	"github.com/spencer-p/springtides/pkg/noaa"
)

// Policy picks which observation represents a date.
type Policy int

const (
	// MaxOfWindow takes the highest parseable value regardless of label. Some
	// stations omit or mislabel the higher high, so this always yields a
	// number when any observation exists.
	MaxOfWindow Policy = iota
	// FirstHigherHigh takes the first entry labelled HH.
	FirstHigherHigh
	// FirstHigherHighOrHigh takes the first HH, or the first H if there is no
	// HH.
	FirstHigherHighOrHigh
)

// Default is the policy used when none is configured.
const Default = MaxOfWindow

var policyNames = map[Policy]string{
	MaxOfWindow:           "max-of-window",
	FirstHigherHigh:       "first-higher-high",
	FirstHigherHighOrHigh: "first-higher-high-or-fallback-high",
}

// Policies lists every policy.
func Policies() []Policy {
	return []Policy{MaxOfWindow, FirstHigherHigh, FirstHigherHighOrHigh}
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy reads a policy name. The empty string selects Default.
func ParsePolicy(s string) (Policy, error) {
	if s == "" {
		return Default, nil
	}
	for p, name := range policyNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown extraction policy %q", s)
}

func (p Policy) MarshalText() ([]byte, error) {
	if _, ok := policyNames[p]; !ok {
		return nil, fmt.Errorf("unknown extraction policy %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Policy) UnmarshalText(buf []byte) error {
	parsed, err := ParsePolicy(string(buf))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Extract returns the representative level for a set of observations. ok is
// false when the set is empty or has nothing usable under the policy; no value
// is invented in that case. Entries whose value does not parse are skipped.
func Extract(obs noaa.Observations, p Policy) (value float64, ok bool) {
	switch p {
	case FirstHigherHigh:
		return first(obs, noaa.HigherHigh)
	case FirstHigherHighOrHigh:
		if v, ok := first(obs, noaa.HigherHigh); ok {
			return v, true
		}
		return first(obs, noaa.High)
	default:
		return maxOf(obs)
	}
}

func maxOf(obs noaa.Observations) (float64, bool) {
	var best float64
	found := false
	for _, o := range obs {
		v, err := o.Value.Float()
		if err != nil {
			continue
		}
		if !found || v > best {
			best = v
			found = true
		}
	}
	return best, found
}

func first(obs noaa.Observations, label noaa.Tide) (float64, bool) {
	for _, o := range obs {
		if o.Type != label {
			continue
		}
		if v, err := o.Value.Float(); err == nil {
			return v, true
		}
	}
	return 0, false
}
