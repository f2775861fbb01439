package insight

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMode marks a mode name outside the closed set.
var ErrUnknownMode = errors.New("unknown analysis mode")

// Mode selects which report template an analysis uses. The set is
// closed; each mode owns its output contract.
type Mode string

const (
	// ModeGeneral is the product strategy overview, 4 sections.
	ModeGeneral Mode = "General"
	// ModeBrief is the quick insight summary, 3 sections.
	ModeBrief Mode = "Brief"
	// ModeExecutive is the C-level roadmap, 5 sections.
	ModeExecutive Mode = "Executive"
	// ModeSocial is the voice-of-customer simulation, 4 sections.
	ModeSocial Mode = "Social"
	// ModeDashboard returns structured JSON for charts instead of prose.
	ModeDashboard Mode = "Dashboard"
)

// ParseMode normalizes a user-supplied mode name. Empty means General.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "general":
		return ModeGeneral, nil
	case "brief":
		return ModeBrief, nil
	case "executive":
		return ModeExecutive, nil
	case "social":
		return ModeSocial, nil
	case "dashboard":
		return ModeDashboard, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownMode, s)
}

// Sections returns how many labeled sections the mode's report
// contract requires. Dashboard output is structured, not sectioned.
func (m Mode) Sections() int {
	switch m {
	case ModeGeneral:
		return 4
	case ModeBrief:
		return 3
	case ModeExecutive:
		return 5
	case ModeSocial:
		return 4
	}
	return 0
}

// temperature is the sampling temperature for the mode. Dashboard runs
// cold so the JSON shape stays stable.
func (m Mode) temperature() float32 {
	if m == ModeDashboard {
		return 0.2
	}
	return 0.7
}

// structured reports whether the mode's output is machine-parsed JSON.
func (m Mode) structured() bool {
	return m == ModeDashboard
}
