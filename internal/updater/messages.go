package updater

import (
	"fmt"
	"strings"
	"time"

	"spacecat/internal/api"
	"spacecat/internal/chat"
)

// eventColor picks the accent color for a raw event name.
func eventColor(name string) int {
	switch api.ParseEventKind(name) {
	case api.KindCameraConnected, api.KindMountConnected, api.KindFocuserConnected,
		api.KindRotatorConnected, api.KindGuiderConnected, api.KindSequenceFinished,
		api.KindMountAfterFlip:
		return chat.ColorGreen
	case api.KindCameraDisconnected, api.KindFilterWheelDisconnected,
		api.KindMountDisconnected, api.KindFocuserDisconnected,
		api.KindRotatorDisconnected, api.KindGuiderDisconnected,
		api.KindFlatDisconnected, api.KindWeatherDisconnected,
		api.KindSwitchDisconnected, api.KindDomeDisconnected,
		api.KindSafetyDisconnected:
		return chat.ColorRed
	case api.KindFilterWheelConnected, api.KindFilterWheelChanged, api.KindGuiderStart:
		return chat.ColorBlue
	case api.KindMountParked, api.KindMountUnparked:
		return chat.ColorYellow
	case api.KindMountBeforeFlip:
		return chat.ColorOrange
	case api.KindAutofocusFinished:
		return chat.ColorPurple
	case api.KindSequenceStarting, api.KindGuiderDither, api.KindTargetStart:
		return chat.ColorCyan
	}
	upper := strings.ToUpper(name)
	switch {
	case strings.Contains(upper, "ERROR"):
		return chat.ColorRed
	case strings.Contains(upper, "WARNING"):
		return chat.ColorOrange
	}
	return chat.ColorGray
}

func eventTitle(name string) string {
	switch api.ParseEventKind(name) {
	case api.KindFilterWheelChanged:
		return "🔄 Filter Changed"
	case api.KindTargetStart:
		return "🎯 Target Started"
	}
	return "📡 " + name
}

// frameColor picks the accent color for an image by frame type.
func frameColor(imageType string) int {
	switch imageType {
	case api.FrameLight:
		return chat.ColorGreen
	case api.FrameDark:
		return chat.ColorGray
	case api.FrameFlat:
		return chat.ColorBlue
	case api.FrameBias:
		return chat.ColorPurple
	}
	return chat.ColorCyan
}

func addTargetFields(msg *chat.Message, t *Target) {
	if t.Project != "" {
		msg.Fields = append(msg.Fields, chat.Field{Name: "Project", Value: t.Project, Inline: true})
	}
	if c := t.Coordinates; c != nil {
		msg.Fields = append(msg.Fields, chat.Field{
			Name:  "Coordinates",
			Value: fmt.Sprintf("RA: %s\nDec: %s", c.RAString, c.DecString),
		})
	}
	if t.Rotation != nil {
		msg.Fields = append(msg.Fields, chat.Field{
			Name: "Rotation", Value: fmt.Sprintf("%g°", *t.Rotation), Inline: true,
		})
	}
}

func addFlipField(msg *chat.Message, flipHours *float64, now time.Time) {
	if flipHours == nil {
		return
	}
	msg.Fields = append(msg.Fields, chat.Field{
		Name:   "Meridian Flip In",
		Value:  api.FormatFlipETA(*flipHours, now),
		Inline: true,
	})
}

func addMountFields(msg *chat.Message, mount *api.MountInfo) {
	if mount == nil || !mount.Connected {
		return
	}
	msg.Fields = append(msg.Fields,
		chat.Field{
			Name:   "Mount Position",
			Value:  fmt.Sprintf("RA: %s\nDec: %s", mount.RightAscensionString, mount.DeclinationString),
			Inline: true,
		},
		chat.Field{
			Name:   "Alt/Az",
			Value:  fmt.Sprintf("Alt: %s\nAz: %s", mount.AltitudeString, mount.AzimuthString),
			Inline: true,
		},
		chat.Field{Name: "Pier Side", Value: mount.SideOfPier, Inline: true},
	)
	tracking := "❌ Disabled"
	if mount.TrackingEnabled {
		tracking = "✅ Enabled"
	}
	msg.Fields = append(msg.Fields, chat.Field{Name: "Tracking", Value: tracking, Inline: true})
}

func buildWelcome(t *Target, events, images, sinks int, flipHours *float64, mount *api.MountInfo, now time.Time) *chat.Message {
	msg := &chat.Message{
		Title: "🚀 SpaceCat Observatory Monitor Started",
		Color: chat.ColorGreen,
	}
	if t != nil {
		msg.Fields = append(msg.Fields, chat.Field{Name: "Current Target", Value: t.Name})
		addTargetFields(msg, t)
		msg.Fields = append(msg.Fields, chat.Field{Name: "Target Source", Value: t.Source.String(), Inline: true})
	} else {
		msg.Fields = append(msg.Fields, chat.Field{Name: "Current Target", Value: "None detected"})
	}
	msg.Fields = append(msg.Fields,
		chat.Field{Name: "Events in History", Value: fmt.Sprint(events), Inline: true},
		chat.Field{Name: "Images in History", Value: fmt.Sprint(images), Inline: true},
		chat.Field{Name: "Chat Services", Value: fmt.Sprint(sinks), Inline: true},
	)
	addFlipField(msg, flipHours, now)
	addMountFields(msg, mount)
	msg.Footer = "Ready to monitor telescope events and images"
	return msg
}

func buildTargetStart(t *Target, flipHours *float64, mount *api.MountInfo, now time.Time) *chat.Message {
	msg := &chat.Message{
		Title:  "🎯 Target Started",
		Color:  chat.ColorGreen,
		Fields: []chat.Field{{Name: "Target", Value: t.Name}},
	}
	addTargetFields(msg, t)
	addFlipField(msg, flipHours, now)
	addMountFields(msg, mount)
	return msg
}

func buildTargetChange(old, next *Target, flipHours *float64, mount *api.MountInfo, now time.Time) *chat.Message {
	msg := &chat.Message{
		Title: "🎯 Target Change",
		Color: chat.ColorCyan,
		Fields: []chat.Field{
			{Name: "Previous Target", Value: old.Name, Inline: true},
			{Name: "New Target", Value: next.Name, Inline: true},
		},
	}
	addTargetFields(msg, next)
	addFlipField(msg, flipHours, now)
	addMountFields(msg, mount)
	return msg
}

func buildAutofocus(report *api.AutofocusReport) *chat.Message {
	color := chat.ColorOrange
	indicator := "⚠️"
	if report.Successful() {
		color = chat.ColorGreen
		indicator = "✅"
	}
	change := report.PositionChange()
	changeText := fmt.Sprint(change)
	if change > 0 {
		changeText = "+" + changeText
	}
	return &chat.Message{
		Title: indicator + " Autofocus Completed",
		Color: color,
		Fields: []chat.Field{
			{Name: "Filter", Value: report.Filter, Inline: true},
			{Name: "Method", Value: report.Method, Inline: true},
			{Name: "Duration", Value: report.Duration, Inline: true},
			{Name: "Temperature", Value: fmt.Sprintf("%.1f°C", report.Temperature), Inline: true},
			{Name: "Focus Position", Value: fmt.Sprint(report.CalculatedFocusPoint.Position), Inline: true},
			{Name: "Position Change", Value: changeText, Inline: true},
			{Name: "HFR", Value: fmt.Sprintf("%.3f", report.CalculatedFocusPoint.Value), Inline: true},
			{Name: "R-squared", Value: fmt.Sprintf("%.4f", report.BestRSquared()), Inline: true},
			{Name: "Measurements", Value: fmt.Sprint(len(report.MeasurePoints)), Inline: true},
		},
		Footer: "Focuser: " + report.AutoFocuserName,
	}
}

func buildMountEvent(e *api.Event, t *Target, mount *api.MountInfo) *chat.Message {
	title, color := "🔭 Mount Event", chat.ColorGray
	switch e.Kind {
	case api.KindMountBeforeFlip:
		title, color = "🔄 Mount Preparing for Meridian Flip", chat.ColorOrange
	case api.KindMountAfterFlip:
		title, color = "✅ Mount Meridian Flip Completed", chat.ColorGreen
	case api.KindMountParked:
		title, color = "🅿️ Mount Parked", chat.ColorYellow
	}
	msg := &chat.Message{
		Title: title,
		Color: color,
		Fields: []chat.Field{
			{Name: "Event", Value: e.Name, Inline: true},
			{Name: "Time", Value: e.Time, Inline: true},
		},
	}
	if t != nil {
		msg.Fields = append(msg.Fields, chat.Field{Name: "Current Target", Value: t.Name, Inline: true})
	}
	addMountFields(msg, mount)
	return msg
}

func buildGenericEvent(e *api.Event) *chat.Message {
	msg := &chat.Message{
		Title:  eventTitle(e.Name),
		Color:  eventColor(e.Name),
		Fields: []chat.Field{{Name: "Time", Value: e.Time}},
	}
	if fc, ok := e.FilterChange(); ok {
		msg.Fields = append(msg.Fields,
			chat.Field{Name: "Filter Change", Value: fmt.Sprintf("%s → %s", fc.Previous.Name, fc.New.Name)},
			chat.Field{Name: "Previous", Value: fmt.Sprintf("%s (ID: %d)", fc.Previous.Name, fc.Previous.ID), Inline: true},
			chat.Field{Name: "New", Value: fmt.Sprintf("%s (ID: %d)", fc.New.Name, fc.New.ID), Inline: true},
		)
	}
	return msg
}

func buildImage(img *api.Image, t *Target, skipped int, flipHours *float64, now time.Time) *chat.Message {
	title := fmt.Sprintf("📸 New %s Frame Captured", img.ImageType)
	if skipped > 0 {
		title = fmt.Sprintf("📸 New %s Frame Captured (+%d skipped)", img.ImageType, skipped)
	}
	msg := &chat.Message{Title: title, Color: frameColor(img.ImageType)}
	if t != nil {
		msg.Fields = append(msg.Fields, chat.Field{Name: "Target", Value: t.Name, Inline: true})
	}
	if skipped > 0 {
		msg.Fields = append(msg.Fields, chat.Field{
			Name: "Images Since Last Post", Value: fmt.Sprintf("%d images", skipped+1), Inline: true,
		})
	}
	msg.Fields = append(msg.Fields,
		chat.Field{Name: "Camera", Value: img.CameraName, Inline: true},
		chat.Field{Name: "Tracking RMS", Value: img.RMSText, Inline: true},
		chat.Field{Name: "Filter", Value: img.Filter, Inline: true},
		chat.Field{Name: "Exposure", Value: fmt.Sprintf("%gs", img.ExposureTime), Inline: true},
		chat.Field{Name: "Temperature", Value: fmt.Sprintf("%.1f°C", img.Temperature), Inline: true},
		chat.Field{Name: "Stars", Value: fmt.Sprint(img.Stars), Inline: true},
		chat.Field{Name: "HFR", Value: fmt.Sprintf("%.2f", img.HFR), Inline: true},
		chat.Field{Name: "Mean", Value: fmt.Sprintf("%.1f", img.Mean), Inline: true},
		chat.Field{Name: "Median", Value: fmt.Sprintf("%.1f", img.Median), Inline: true},
		chat.Field{Name: "StDev", Value: fmt.Sprintf("%.1f", img.StDev), Inline: true},
	)
	msg.Footer = "Telescope: " + img.TelescopeName
	// The flip countdown only matters on images when it is imminent.
	if flipHours != nil && *flipHours <= 1.0 {
		addFlipField(msg, flipHours, now)
	}
	return msg
}
