package api

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// EventKind is the closed set of event types the engine understands.
// Anything else degrades to KindOther and is still delivered as a generic
// notification; unrecognized future kinds are never silently dropped.
type EventKind string

const (
	KindCameraConnected         EventKind = "CAMERA-CONNECTED"
	KindCameraDisconnected      EventKind = "CAMERA-DISCONNECTED"
	KindFilterWheelConnected    EventKind = "FILTERWHEEL-CONNECTED"
	KindFilterWheelDisconnected EventKind = "FILTERWHEEL-DISCONNECTED"
	KindFilterWheelChanged      EventKind = "FILTERWHEEL-CHANGED"
	KindMountConnected          EventKind = "MOUNT-CONNECTED"
	KindMountDisconnected       EventKind = "MOUNT-DISCONNECTED"
	KindMountParked             EventKind = "MOUNT-PARKED"
	KindMountUnparked           EventKind = "MOUNT-UNPARKED"
	KindMountBeforeFlip         EventKind = "MOUNT-BEFORE-FLIP"
	KindMountAfterFlip          EventKind = "MOUNT-AFTER-FLIP"
	KindFocuserConnected        EventKind = "FOCUSER-CONNECTED"
	KindFocuserDisconnected     EventKind = "FOCUSER-DISCONNECTED"
	KindAutofocusFinished       EventKind = "AUTOFOCUS-FINISHED"
	KindRotatorConnected        EventKind = "ROTATOR-CONNECTED"
	KindRotatorDisconnected     EventKind = "ROTATOR-DISCONNECTED"
	KindGuiderConnected         EventKind = "GUIDER-CONNECTED"
	KindGuiderDisconnected      EventKind = "GUIDER-DISCONNECTED"
	KindGuiderStart             EventKind = "GUIDER-START"
	KindGuiderDither            EventKind = "GUIDER-DITHER"
	KindFlatDisconnected        EventKind = "FLAT-DISCONNECTED"
	KindWeatherDisconnected     EventKind = "WEATHER-DISCONNECTED"
	KindSwitchDisconnected      EventKind = "SWITCH-DISCONNECTED"
	KindDomeDisconnected        EventKind = "DOME-DISCONNECTED"
	KindSafetyDisconnected      EventKind = "SAFETY-DISCONNECTED"
	KindSequenceStarting        EventKind = "SEQUENCE-STARTING"
	KindSequenceFinished        EventKind = "SEQUENCE-FINISHED"
	KindImageSave               EventKind = "IMAGE-SAVE"
	KindTargetStart             EventKind = "TS-TARGETSTART"
	KindOther                   EventKind = "OTHER"
)

var knownKinds = map[string]EventKind{}

func init() {
	for _, k := range []EventKind{
		KindCameraConnected, KindCameraDisconnected,
		KindFilterWheelConnected, KindFilterWheelDisconnected, KindFilterWheelChanged,
		KindMountConnected, KindMountDisconnected, KindMountParked, KindMountUnparked,
		KindMountBeforeFlip, KindMountAfterFlip,
		KindFocuserConnected, KindFocuserDisconnected, KindAutofocusFinished,
		KindRotatorConnected, KindRotatorDisconnected,
		KindGuiderConnected, KindGuiderDisconnected, KindGuiderStart, KindGuiderDither,
		KindFlatDisconnected, KindWeatherDisconnected, KindSwitchDisconnected,
		KindDomeDisconnected, KindSafetyDisconnected,
		KindSequenceStarting, KindSequenceFinished,
		KindImageSave, KindTargetStart,
	} {
		knownKinds[string(k)] = k
	}
}

// ParseEventKind maps a wire event name to its kind, falling back to
// KindOther for names this build does not know.
func ParseEventKind(name string) EventKind {
	if k, ok := knownKinds[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return k
	}
	return KindOther
}

// Event is one entry from the event history.
//
// The wire payload flattens event-specific detail fields next to Time and
// Event, so detail is kept as raw JSON and decoded on demand.
type Event struct {
	// Time is the wire timestamp, kept verbatim: it participates in the
	// fingerprint, so re-formatting it would break dedup across restarts.
	Time string
	// At is the parsed timestamp; zero when the wire value is unparseable.
	At   time.Time
	Kind EventKind
	// Name is the raw wire event name (differs from Kind for KindOther).
	Name    string
	Details map[string]json.RawMessage
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	var ev Event
	if raw, ok := m["Time"]; ok {
		_ = json.Unmarshal(raw, &ev.Time)
		delete(m, "Time")
	}
	if raw, ok := m["Event"]; ok {
		_ = json.Unmarshal(raw, &ev.Name)
		delete(m, "Event")
	}
	ev.Kind = ParseEventKind(ev.Name)
	ev.At = parseWireTime(ev.Time)
	if len(m) > 0 {
		ev.Details = m
	}
	*e = ev
	return nil
}

var wireTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseWireTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range wireTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Fingerprint is the event's identity key: wire timestamp + event name +
// the detail payload in a stable key order. Two events with the same
// fingerprint are the same occurrence.
func (e *Event) Fingerprint() string {
	var b strings.Builder
	b.WriteString(e.Time)
	b.WriteByte('|')
	b.WriteString(e.Name)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteByte('|')
			b.WriteString(k)
			b.WriteByte('=')
			b.Write(e.Details[k])
		}
	}
	return b.String()
}

// FilterInfo identifies one filter wheel position.
type FilterInfo struct {
	Name string `json:"Name"`
	ID   int    `json:"Id"`
}

// FilterChange is the detail payload of a FILTERWHEEL-CHANGED event.
type FilterChange struct {
	New      FilterInfo
	Previous FilterInfo
}

// FilterChange decodes the filter wheel detail, if this event carries one.
func (e *Event) FilterChange() (FilterChange, bool) {
	var fc FilterChange
	nraw, ok1 := e.Details["New"]
	praw, ok2 := e.Details["Previous"]
	if !ok1 || !ok2 {
		return fc, false
	}
	if json.Unmarshal(nraw, &fc.New) != nil || json.Unmarshal(praw, &fc.Previous) != nil {
		return fc, false
	}
	return fc, true
}

// Redundant reports whether a filter change event names the same filter on
// both sides. The sequencer emits these on every loop; they carry no
// information and are dropped before dedup.
func (fc FilterChange) Redundant() bool { return fc.New.Name == fc.Previous.Name }

// Coordinates as reported inside target-start details and mount info.
type Coordinates struct {
	RA        float64 `json:"RA"`
	RAString  string  `json:"RAString"`
	Dec       float64 `json:"Dec"`
	DecString string  `json:"DecString"`
	Epoch     string  `json:"Epoch,omitempty"`
}

// TargetStart is the detail payload of a TS-TARGETSTART event.
type TargetStart struct {
	TargetName  string      `json:"TargetName"`
	ProjectName string      `json:"ProjectName"`
	Coordinates Coordinates `json:"Coordinates"`
	Rotation    float64     `json:"Rotation"`
}

// placeholderTarget is what the sequencer reports for instruction-set
// containers that are not real observation targets.
const placeholderTarget = "Sequential Instruction Set"

// TargetStart decodes the target detail of a TS-TARGETSTART event.
// Placeholder entries (no real target) report ok=false.
func (e *Event) TargetStart() (TargetStart, bool) {
	var ts TargetStart
	if e.Kind != KindTargetStart {
		return ts, false
	}
	raw, ok := e.Details["TargetName"]
	if !ok || json.Unmarshal(raw, &ts.TargetName) != nil {
		return ts, false
	}
	if ts.TargetName == "" || ts.TargetName == placeholderTarget {
		return ts, false
	}
	if raw, ok := e.Details["ProjectName"]; ok {
		_ = json.Unmarshal(raw, &ts.ProjectName)
	}
	if raw, ok := e.Details["Coordinates"]; ok {
		_ = json.Unmarshal(raw, &ts.Coordinates)
	}
	if raw, ok := e.Details["Rotation"]; ok {
		_ = json.Unmarshal(raw, &ts.Rotation)
	}
	return ts, true
}
