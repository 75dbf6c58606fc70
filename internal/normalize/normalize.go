// Package normalize coerces arbitrary untrusted values, decoded from
// JSON, into well-formed state documents. Every function is total:
// malformed or missing fields are replaced by safe defaults, entities
// that cannot be salvaged (a task with no text) are dropped, and
// normalizing an already-normalized value changes nothing.
package normalize

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ourday-app/ourday/internal/model"
)

// Document normalizes a whole decoded state document.
func Document(raw any) *model.StateDocument {
	doc := model.NewStateDocument()

	obj, ok := raw.(map[string]any)
	if !ok {
		return doc
	}

	if profile, _ := obj["profile"].(string); model.UserID(profile) == model.UserPartner {
		doc.Profile = model.UserPartner
	}

	if prefs, ok := obj["preferences"].(map[string]any); ok {
		doc.Preferences.CalendarView = CalendarView(prefs["calendarView"])
		doc.Preferences.MorningReminderTimes = MorningReminderTimes(prefs["morningReminderTimes"])
	}

	// Remote snapshots carry reminder times under "settings"; when
	// present they win over the preferences block.
	if settings, ok := obj["settings"].(map[string]any); ok {
		if times, ok := settings["morningReminderTimes"]; ok {
			doc.Preferences.MorningReminderTimes = MorningReminderTimes(times)
		}
	}

	doc.Days = DaysMap(obj["days"])
	return doc
}

// DaysMap normalizes a decoded date-key -> day map.
func DaysMap(raw any) map[string]*model.DayRecord {
	days := map[string]*model.DayRecord{}

	obj, ok := raw.(map[string]any)
	if !ok {
		return days
	}

	for dateKey, value := range obj {
		days[dateKey] = Day(value, dateKey)
	}
	return days
}

// Day normalizes one day record. The returned record always carries
// dateKey and exactly the two known identities; unknown identity keys
// in the input are dropped.
func Day(raw any, dateKey string) *model.DayRecord {
	day := model.NewDay(dateKey)

	obj, ok := raw.(map[string]any)
	if !ok {
		return day
	}

	day.Closed, _ = obj["closed"].(bool)
	day.ClosedAt, _ = obj["closedAt"].(string)
	if !day.Closed {
		day.ClosedAt = ""
	}

	users, _ := obj["users"].(map[string]any)
	for _, id := range model.Users {
		src, _ := users[string(id)].(map[string]any)
		target := day.Users[id]

		target.CheckedInAt, _ = src["checkedInAt"].(string)
		target.LastMorningReminderDate, _ = src["lastMorningReminderDate"].(string)

		rawTasks, _ := src["tasks"].([]any)
		for _, rawTask := range rawTasks {
			if task := Task(rawTask); task != nil {
				target.Tasks = append(target.Tasks, task)
			}
		}
	}

	return day
}

// Task normalizes one task. A bare string is a supported legacy
// encoding and is upgraded to a full record with defaults. Returns nil
// when the task is unsalvageable (no text survives cleaning).
func Task(raw any) *model.Task {
	if text, ok := raw.(string); ok {
		cleaned := Truncate(CleanText(text), model.MaxTaskTextChars)
		if cleaned == "" {
			return nil
		}

		nowIso := model.Timestamp(time.Now())
		return &model.Task{
			ID:        uuid.New().String(),
			Text:      cleaned,
			CreatedAt: nowIso,
			UpdatedAt: nowIso,
			Reactions: model.EmptyReactions(),
		}
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil
	}

	text, _ := obj["text"].(string)
	text = Truncate(CleanText(text), model.MaxTaskTextChars)
	if text == "" {
		return nil
	}

	nowIso := model.Timestamp(time.Now())
	createdAt, _ := obj["createdAt"].(string)
	if createdAt == "" {
		createdAt = nowIso
	}
	updatedAt, _ := obj["updatedAt"].(string)
	if updatedAt == "" {
		updatedAt = createdAt
	}

	id, _ := obj["id"].(string)
	if id == "" {
		id = uuid.New().String()
	}

	task := &model.Task{
		ID:        id,
		Text:      text,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Reactions: Reactions(obj["reactions"]),
	}
	task.Done, _ = obj["done"].(bool)
	task.DoneAt, _ = obj["doneAt"].(string)
	if !task.Done {
		task.DoneAt = ""
	}
	task.DeletedAt, _ = obj["deletedAt"].(string)
	task.ReminderTime = ReminderTime(obj["reminderTime"])
	task.LastReminderDate, _ = obj["lastReminderDate"].(string)

	return task
}

// Reactions normalizes the per-identity reaction map, always returning
// one entry per known identity.
func Reactions(raw any) map[model.UserID]*model.ReactionEntry {
	obj, _ := raw.(map[string]any)
	reactions := model.EmptyReactions()
	for _, id := range model.Users {
		reactions[id] = ReactionEntry(obj[string(id)])
	}
	return reactions
}

// ReactionEntry normalizes one reaction slot. A bare string is the
// legacy message-only encoding.
func ReactionEntry(raw any) *model.ReactionEntry {
	if message, ok := raw.(string); ok {
		return &model.ReactionEntry{Message: ReactionMessage(message)}
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return &model.ReactionEntry{}
	}

	entry := &model.ReactionEntry{
		Message: ReactionMessage(obj["message"]),
		Image:   ReactionImage(obj["image"]),
	}
	entry.SentAt, _ = obj["sentAt"].(string)
	entry.ImageConsumedAt, _ = obj["imageConsumedAt"].(string)
	return entry
}

// ReactionMessage cleans and caps a reaction message.
func ReactionMessage(raw any) string {
	message, ok := raw.(string)
	if !ok {
		return ""
	}
	return Truncate(CleanText(message), model.MaxReactionMessageChars)
}

// ReactionImage normalizes an inline image payload. Anything without
// an image data URL is dropped.
func ReactionImage(raw any) *model.ReactionImage {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil
	}

	dataURL, _ := obj["dataUrl"].(string)
	if !strings.HasPrefix(dataURL, "data:image/") {
		return nil
	}

	mimeType, _ := obj["mimeType"].(string)
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	image := &model.ReactionImage{DataURL: dataURL, MimeType: mimeType}
	image.SentAt, _ = obj["sentAt"].(string)
	return image
}

// ReminderTime returns the value when it is a valid HH:MM string and
// "" otherwise.
func ReminderTime(raw any) string {
	s, ok := raw.(string)
	if !ok || !model.ValidClock(s) {
		return ""
	}
	return s
}

// MorningReminderTimes normalizes the identity -> HH:MM map, falling
// back to the default per identity.
func MorningReminderTimes(raw any) map[model.UserID]string {
	times := model.DefaultMorningReminderTimes()

	obj, ok := raw.(map[string]any)
	if !ok {
		return times
	}

	for _, id := range model.Users {
		if t := ReminderTime(obj[string(id)]); t != "" {
			times[id] = t
		}
	}
	return times
}

// CalendarView coerces the calendar view enum, defaulting to the
// first value.
func CalendarView(raw any) model.CalendarView {
	s, _ := raw.(string)
	for _, view := range model.CalendarViews {
		if model.CalendarView(s) == view {
			return view
		}
	}
	return model.CalendarViews[0]
}

// CleanText collapses runs of whitespace into single spaces and trims.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most n runes. A cut can land right after a
// word boundary, leaving a trailing space the cleaned form would never
// carry, so the result is re-trimmed.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimRight(string(runes[:n]), " ")
}
