package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Sequence is the sequencer state tree. The shape varies with the loaded
// sequence, so it stays raw JSON and the accessors below dig out the two
// facts the engine cares about.
type Sequence struct {
	Items []json.RawMessage
}

// systemContainers are sequencer bookkeeping containers that must never be
// mistaken for an observation target.
var systemContainers = []string{
	"Start_Container",
	"End_Container",
	"Targets_Container",
	"Basic Sequence Startup_Container",
	"Basic Sequence End_Container",
	"Target Imaging Instructions_Container",
	"Parallel End of Sequence Instructions_Container",
}

func isSystemContainer(name string) bool {
	for _, sys := range systemContainers {
		if strings.Contains(name, sys) {
			return true
		}
	}
	return false
}

// CurrentTarget returns the name of the running target container, with the
// "_Container" suffix stripped. ok is false when no target is active.
func (s *Sequence) CurrentTarget() (string, bool) {
	if s == nil {
		return "", false
	}
	return searchTarget(s.Items)
}

func searchTarget(items []json.RawMessage) (string, bool) {
	for _, raw := range items {
		var node struct {
			Name   string            `json:"Name"`
			Status string            `json:"Status"`
			Items  []json.RawMessage `json:"Items"`
		}
		if json.Unmarshal(raw, &node) != nil {
			continue
		}
		if (node.Status == "RUNNING" || node.Status == "Active") &&
			strings.HasSuffix(node.Name, "_Container") &&
			!isSystemContainer(node.Name) {
			name := strings.TrimSuffix(node.Name, "_Container")
			if name != "" {
				return name, true
			}
		}
		if len(node.Items) > 0 {
			if name, ok := searchTarget(node.Items); ok {
				return name, true
			}
		}
	}
	return "", false
}

// MeridianFlipHours extracts the time to the next meridian flip (in hours)
// from the global trigger list, when a flip trigger is configured.
func (s *Sequence) MeridianFlipHours() (float64, bool) {
	if s == nil || len(s.Items) == 0 {
		return 0, false
	}
	// Global triggers ride in the first element of the response.
	var head struct {
		GlobalTriggers []struct {
			Name       string   `json:"Name"`
			TimeToFlip *float64 `json:"TimeToFlip"`
		} `json:"GlobalTriggers"`
	}
	if json.Unmarshal(s.Items[0], &head) != nil {
		return 0, false
	}
	for _, trig := range head.GlobalTriggers {
		if trig.Name == "Meridian Flip_Trigger" && trig.TimeToFlip != nil {
			return *trig.TimeToFlip, true
		}
	}
	return 0, false
}

// FormatFlipETA renders a flip countdown as "hh:mm (at HH:MM:SS)" relative
// to now.
func FormatFlipETA(hours float64, now time.Time) string {
	totalMinutes := int(hours * 60)
	at := now.Add(time.Duration(hours * float64(time.Hour)))
	return fmt.Sprintf("%02d:%02d (at %s)", totalMinutes/60, totalMinutes%60, at.Local().Format("15:04:05"))
}
