package updater

import "spacecat/internal/api"

// Source tags where a resolved target came from.
type Source int

const (
	// SourceSequence means the target was read from the running sequence.
	SourceSequence Source = iota
	// SourceTargetStart means a target-start event named it. This source
	// wins: while it holds, sequence-reported targets are ignored.
	SourceTargetStart
)

func (s Source) String() string {
	if s == SourceTargetStart {
		return "target-start event"
	}
	return "sequence"
}

// Target is the resolved current observation target.
type Target struct {
	Name        string
	Project     string
	Coordinates *api.Coordinates
	Rotation    *float64
	Source      Source
}

// Equal compares target identity: name plus coordinates. Provenance and
// decoration (project, rotation) do not make a target "different".
func (t *Target) Equal(o *Target) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Name != o.Name {
		return false
	}
	tc, oc := t.Coordinates, o.Coordinates
	if (tc == nil) != (oc == nil) {
		return false
	}
	if tc != nil && (tc.RA != oc.RA || tc.Dec != oc.Dec) {
		return false
	}
	return true
}

func targetFromEvent(ts api.TargetStart) *Target {
	t := &Target{
		Name:    ts.TargetName,
		Project: ts.ProjectName,
		Source:  SourceTargetStart,
	}
	coords := ts.Coordinates
	if coords.RAString != "" || coords.DecString != "" || coords.RA != 0 || coords.Dec != 0 {
		t.Coordinates = &coords
	}
	rot := ts.Rotation
	t.Rotation = &rot
	return t
}

// Tracker resolves the single authoritative current target from the two
// competing sources.
//
// Not safe for concurrent use. The orchestrator is the only caller.
type Tracker struct {
	current *Target
}

func NewTracker() *Tracker { return &Tracker{} }

// Current returns the resolved target, nil when none is known.
func (tr *Tracker) Current() *Target { return tr.current }

// Seed installs a baseline target without reporting a change. Used once
// at startup so pre-existing history does not fire a spurious
// target-change notification.
func (tr *Tracker) Seed(t *Target) { tr.current = t }

// ObserveTargetStart applies a target-start event. It always takes
// precedence. Returns the previous target and whether identity changed.
func (tr *Tracker) ObserveTargetStart(ts api.TargetStart) (old *Target, changed bool) {
	next := targetFromEvent(ts)
	old = tr.current
	changed = !next.Equal(old)
	tr.current = next
	return old, changed
}

// ObserveSequence applies a sequence-reported target name. Ignored while
// a target-start source holds the resolution.
func (tr *Tracker) ObserveSequence(name string) (old *Target, changed bool) {
	if name == "" {
		return tr.current, false
	}
	if tr.current != nil && tr.current.Source == SourceTargetStart {
		return tr.current, false
	}
	next := &Target{Name: name, Source: SourceSequence}
	old = tr.current
	changed = !next.Equal(old)
	if changed {
		tr.current = next
	}
	return old, changed
}
