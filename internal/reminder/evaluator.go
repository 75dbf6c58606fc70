// Package reminder decides which client-side reminders must fire at a
// given instant and stamps them as fired, so a re-evaluation in the
// same day is a no-op.
package reminder

import (
	"time"

	"github.com/ourday-app/ourday/internal/ledger"
	"github.com/ourday-app/ourday/internal/model"
)

// Notifier receives the reminders the evaluator decides to fire.
type Notifier interface {
	MorningReminder(identity model.UserID, reminderTime string)
	TaskReminder(identity model.UserID, task *model.Task)
}

// Evaluator runs the morning and per-task reminder checks against
// local state. It is driven by a periodic watcher tick.
type Evaluator struct {
	notifier Notifier
}

// New returns an evaluator delivering through notifier.
func New(notifier Notifier) *Evaluator {
	return &Evaluator{notifier: notifier}
}

// Check evaluates the active identity's reminders at now. Returns
// whether any fired stamp was written, so the caller can persist the
// document locally (stamps are not worth a remote push on their own).
func (e *Evaluator) Check(l *ledger.Ledger, now time.Time) bool {
	dateKey := l.CurrentDateKey()
	day := l.Day(dateKey)
	if day == nil || day.Closed {
		return false
	}

	identity := l.Document().Profile
	userDay := day.Users[identity]
	nowMinutes := model.MinutesOfDay(now)
	changed := false

	morningTime := l.MorningReminderTime(identity)
	if userDay.LastMorningReminderDate != dateKey && nowMinutes >= model.ClockMinutes(morningTime) {
		userDay.LastMorningReminderDate = dateKey
		changed = true
		e.notifier.MorningReminder(identity, morningTime)
	}

	for _, task := range ledger.VisibleTasks(userDay.Tasks) {
		if task.ReminderTime == "" || task.Done {
			continue
		}
		if task.LastReminderDate == dateKey {
			continue
		}

		// Alerts lead the reminder time; a target earlier than the
		// lead window can never fire.
		alertMinutes := model.ClockMinutes(task.ReminderTime) - model.TaskReminderLeadMinutes
		if alertMinutes < 0 || alertMinutes > nowMinutes {
			continue
		}

		task.LastReminderDate = dateKey
		changed = true
		e.notifier.TaskReminder(identity, task)
	}

	return changed
}
