// Package ledger owns the day map of a state document: day rollover
// and closing, per-identity task collections, reactions, display
// ordering and streaks. All rejections happen here, at the mutation
// boundary, so stored state never holds an invalid transition.
package ledger

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ourday-app/ourday/internal/model"
	"github.com/ourday-app/ourday/internal/normalize"
)

// Rejection reasons surfaced to the caller as transient notices.
var (
	ErrDayClosed           = errors.New("day is closed")
	ErrEmptyText           = errors.New("task text is empty")
	ErrTaskCapReached      = errors.New("day is capped at five tasks")
	ErrInvalidReminderTime = errors.New("reminder time is not HH:MM")
	ErrWrongIdentity       = errors.New("task belongs to the other identity")
	ErrTaskNotFound        = errors.New("task not found")
	ErrTaskNotDone         = errors.New("task is not completed")
	ErrSelfReaction        = errors.New("cannot react to your own task")
	ErrEmptyReaction       = errors.New("reaction has no message or image")
	ErrNoReactionImage     = errors.New("no reaction image to view")
)

// Ledger wraps one state document with a clock. The zero clock is
// time.Now; tests inject a fixed one.
type Ledger struct {
	doc *model.StateDocument
	now func() time.Time

	currentDateKey string
}

// New wraps doc. now may be nil.
func New(doc *model.StateDocument, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	l := &Ledger{doc: doc, now: now}
	l.currentDateKey = model.DateKey(now())
	return l
}

// Document returns the wrapped document.
func (l *Ledger) Document() *model.StateDocument {
	return l.doc
}

// ReplaceDays swaps in a new day map, as merge-on-pull does.
func (l *Ledger) ReplaceDays(days map[string]*model.DayRecord) {
	l.doc.Days = days
}

// CurrentDateKey returns the key last computed by EnsureDaySpace.
func (l *Ledger) CurrentDateKey() string {
	return l.currentDateKey
}

// EnsureDaySpace recomputes "today" from the clock, closes every
// earlier day that is still open (several at once after an offline
// stretch) and creates today's record if absent. Returns whether any
// state changed, so the caller can decide to queue a sync push.
func (l *Ledger) EnsureDaySpace() bool {
	now := l.now()
	l.currentDateKey = model.DateKey(now)
	closedAt := model.Timestamp(now)
	changed := false

	for dateKey, day := range l.doc.Days {
		if dateKey < l.currentDateKey && !day.Closed {
			day.Closed = true
			day.ClosedAt = closedAt
			changed = true
		}
	}

	if _, ok := l.doc.Days[l.currentDateKey]; !ok {
		l.doc.Days[l.currentDateKey] = model.NewDay(l.currentDateKey)
		changed = true
	}

	return changed
}

// Today returns the current day record, creating it if needed.
func (l *Ledger) Today() *model.DayRecord {
	l.EnsureDaySpace()
	return l.doc.Days[l.currentDateKey]
}

// Day returns the record for dateKey, or nil.
func (l *Ledger) Day(dateKey string) *model.DayRecord {
	return l.doc.Days[dateKey]
}

// AddTask appends a task for identity on today's open day and marks
// the identity checked in. reminderTime is optional; when given it
// must be HH:MM.
func (l *Ledger) AddTask(identity model.UserID, text, reminderTime string) (*model.Task, error) {
	day := l.Today()
	if day.Closed {
		return nil, ErrDayClosed
	}

	text = normalize.Truncate(normalize.CleanText(text), model.MaxTaskTextChars)
	if text == "" {
		return nil, ErrEmptyText
	}

	userDay := day.Users[identity]
	if len(VisibleTasks(userDay.Tasks)) >= model.MaxTasksPerDay {
		return nil, ErrTaskCapReached
	}

	if reminderTime != "" && !model.ValidClock(reminderTime) {
		return nil, ErrInvalidReminderTime
	}

	nowIso := model.Timestamp(l.now())
	task := &model.Task{
		ID:           uuid.New().String(),
		Text:         text,
		CreatedAt:    nowIso,
		UpdatedAt:    nowIso,
		ReminderTime: reminderTime,
		Reactions:    model.EmptyReactions(),
	}
	userDay.Tasks = append(userDay.Tasks, task)

	l.markCheckIn(identity)
	return task, nil
}

// ToggleTask flips done for one of acting's own tasks. Reopening a
// done task wipes both identities' reactions: a redone completion
// starts a fresh reaction cycle.
func (l *Ledger) ToggleTask(acting, owner model.UserID, taskID string) (*model.Task, error) {
	day := l.Today()
	if day.Closed {
		return nil, ErrDayClosed
	}
	if acting != owner {
		return nil, ErrWrongIdentity
	}

	task := findVisibleTask(day.Users[owner].Tasks, taskID)
	if task == nil {
		return nil, ErrTaskNotFound
	}

	nowIso := model.Timestamp(l.now())
	task.Done = !task.Done
	task.UpdatedAt = nowIso
	if task.Done {
		task.DoneAt = nowIso
	} else {
		task.DoneAt = ""
		task.Reactions = model.EmptyReactions()
	}

	l.markCheckIn(owner)
	return task, nil
}

// DeleteTask tombstones one of acting's own tasks. Deletion is
// terminal; the record stays in storage.
func (l *Ledger) DeleteTask(acting, owner model.UserID, taskID string) error {
	day := l.Today()
	if day.Closed {
		return ErrDayClosed
	}
	if acting != owner {
		return ErrWrongIdentity
	}

	task := findVisibleTask(day.Users[owner].Tasks, taskID)
	if task == nil {
		return ErrTaskNotFound
	}

	nowIso := model.Timestamp(l.now())
	task.DeletedAt = nowIso
	task.UpdatedAt = nowIso
	return nil
}

// SendReaction overwrites acting's reaction slot on a completed task
// owned by the other identity. A nil image leaves any existing image
// untouched only if a new one is not provided; providing one resets
// the consumption marker.
func (l *Ledger) SendReaction(acting, owner model.UserID, taskID, message string, image *model.ReactionImage) error {
	day := l.Today()
	if day.Closed {
		return ErrDayClosed
	}
	if acting == owner {
		return ErrSelfReaction
	}

	task := findVisibleTask(day.Users[owner].Tasks, taskID)
	if task == nil {
		return ErrTaskNotFound
	}
	if !task.Done {
		return ErrTaskNotDone
	}

	message = normalize.Truncate(normalize.CleanText(message), model.MaxReactionMessageChars)
	if message == "" && image == nil {
		return ErrEmptyReaction
	}

	nowIso := model.Timestamp(l.now())
	entry := task.Reactions[acting]
	if entry == nil {
		entry = &model.ReactionEntry{}
		task.Reactions[acting] = entry
	}

	if message != "" {
		entry.Message = message
	}
	if image != nil {
		image.SentAt = nowIso
		entry.Image = image
		entry.ImageConsumedAt = ""
	}
	entry.SentAt = nowIso
	task.UpdatedAt = nowIso

	l.markCheckIn(acting)
	return nil
}

// ConsumeReactionImage hands the partner's reaction image to the task
// owner exactly once: the image is returned, cleared from the slot and
// the consumption instant stamped.
func (l *Ledger) ConsumeReactionImage(viewer model.UserID, taskID string) (*model.ReactionImage, error) {
	day := l.Today()

	task := findVisibleTask(day.Users[viewer].Tasks, taskID)
	if task == nil || !task.Done {
		return nil, ErrTaskNotFound
	}

	entry := task.Reactions[viewer.Partner()]
	if entry == nil || entry.Image == nil {
		return nil, ErrNoReactionImage
	}

	image := entry.Image
	nowIso := model.Timestamp(l.now())
	entry.Image = nil
	entry.ImageConsumedAt = nowIso
	task.UpdatedAt = nowIso
	return image, nil
}

// SetMorningReminderTime updates one identity's morning check-in time.
func (l *Ledger) SetMorningReminderTime(identity model.UserID, clock string) error {
	if !model.ValidClock(clock) {
		return ErrInvalidReminderTime
	}
	l.doc.Preferences.MorningReminderTimes[identity] = clock
	return nil
}

// MorningReminderTime returns the configured time for identity.
func (l *Ledger) MorningReminderTime(identity model.UserID) string {
	if t := l.doc.Preferences.MorningReminderTimes[identity]; t != "" {
		return t
	}
	return model.DefaultMorningReminderTime
}

// SwitchProfile changes which identity this client acts as. Local
// only, never synced.
func (l *Ledger) SwitchProfile(identity model.UserID) bool {
	if !identity.Valid() || l.doc.Profile == identity {
		return false
	}
	l.doc.Profile = identity
	return true
}

// CycleCalendarView advances the calendar view preference.
func (l *Ledger) CycleCalendarView() model.CalendarView {
	views := model.CalendarViews
	for i, view := range views {
		if l.doc.Preferences.CalendarView == view {
			l.doc.Preferences.CalendarView = views[(i+1)%len(views)]
			return l.doc.Preferences.CalendarView
		}
	}
	l.doc.Preferences.CalendarView = views[0]
	return views[0]
}

func (l *Ledger) markCheckIn(identity model.UserID) {
	userDay := l.doc.Days[l.currentDateKey].Users[identity]
	if userDay.CheckedInAt == "" {
		userDay.CheckedInAt = model.Timestamp(l.now())
	}
}

func findVisibleTask(tasks []*model.Task, taskID string) *model.Task {
	for _, task := range tasks {
		if task.ID == taskID && task.Visible() {
			return task
		}
	}
	return nil
}

// VisibleTasks filters out tombstoned tasks.
func VisibleTasks(tasks []*model.Task) []*model.Task {
	visible := make([]*model.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.Visible() {
			visible = append(visible, task)
		}
	}
	return visible
}

// OrderedTasks returns the display order: timed tasks first in
// ascending reminder-time order, then untimed tasks, ties broken by
// insertion order. Derived at read time, never stored.
func OrderedTasks(tasks []*model.Task) []*model.Task {
	ordered := VisibleTasks(tasks)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		aTimed := a.ReminderTime != ""
		bTimed := b.ReminderTime != ""

		if aTimed && bTimed {
			return model.ClockMinutes(a.ReminderTime) < model.ClockMinutes(b.ReminderTime)
		}
		if aTimed != bTimed {
			return aTimed
		}
		return false
	})
	return ordered
}

// CountDone counts completed visible tasks for identity on day.
func CountDone(day *model.DayRecord, identity model.UserID) int {
	count := 0
	for _, task := range VisibleTasks(day.Users[identity].Tasks) {
		if task.Done {
			count++
		}
	}
	return count
}

// CountVisible counts visible tasks for identity on day.
func CountVisible(day *model.DayRecord, identity model.UserID) int {
	return len(VisibleTasks(day.Users[identity].Tasks))
}

// DidCompleteAllTasks reports whether identity finished every visible
// task on a closed day. A day with zero tasks never qualifies.
func DidCompleteAllTasks(day *model.DayRecord, identity model.UserID) bool {
	if day == nil || !day.Closed {
		return false
	}
	total := CountVisible(day, identity)
	if total == 0 {
		return false
	}
	return CountDone(day, identity) == total
}

// CurrentStreak walks backward from yesterday (or today when today is
// already closed) counting consecutive fully-completed days.
func (l *Ledger) CurrentStreak(identity model.UserID) int {
	cursor, err := model.ParseDateKey(l.currentDateKey)
	if err != nil {
		return 0
	}

	today := l.doc.Days[l.currentDateKey]
	if today == nil || !today.Closed {
		cursor = cursor.AddDate(0, 0, -1)
	}

	streak := 0
	for {
		day := l.doc.Days[model.DateKey(cursor)]
		if !DidCompleteAllTasks(day, identity) {
			return streak
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
}

// WeekDoneCount totals completed tasks for identity across the
// Monday-based week containing anchor. With onlyThroughAnchor, days
// after the anchor are skipped.
func (l *Ledger) WeekDoneCount(identity model.UserID, anchorDateKey string, onlyThroughAnchor bool) int {
	anchor, err := model.ParseDateKey(anchorDateKey)
	if err != nil {
		return 0
	}

	total := 0
	for _, date := range model.WeekDates(anchor) {
		dayKey := model.DateKey(date)
		if onlyThroughAnchor && dayKey > anchorDateKey {
			continue
		}
		if day := l.doc.Days[dayKey]; day != nil {
			total += CountDone(day, identity)
		}
	}
	return total
}

// WasTaskDoneOnTime reports whether a timed task was completed at or
// before its reminder target on dayKey.
func WasTaskDoneOnTime(task *model.Task, dayKey string) bool {
	if task.DoneAt == "" || task.ReminderTime == "" {
		return false
	}

	due, err := model.DayClock(dayKey, task.ReminderTime)
	if err != nil {
		return false
	}
	doneAt, err := time.Parse(time.RFC3339, task.DoneAt)
	if err != nil {
		return false
	}
	return !doneAt.After(due)
}
