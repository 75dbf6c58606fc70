package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ourday-app/ourday/internal/ledger"
	"github.com/ourday-app/ourday/internal/logger"
	"github.com/ourday-app/ourday/internal/model"
	"github.com/ourday-app/ourday/internal/normalize"
	"github.com/ourday-app/ourday/internal/store"
)

// WindowMinutes bounds how late a polled dispatch run still counts as
// on time: a reminder sends only while nowMinutes is inside
// [target, target+WindowMinutes).
const WindowMinutes = 5

// ErrGone means the delivery target no longer exists; the
// subscription is retired immediately, never retried.
var ErrGone = errors.New("push subscription gone")

// Notification is the payload handed to the sender.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag"`
	URL   string `json:"url"`
}

// Sender delivers one notification to one subscription.
type Sender interface {
	Send(ctx context.Context, sub *Subscription, n Notification) error
}

// Result summarizes one dispatch pass.
type Result struct {
	Sent                int `json:"sent"`
	Removed             int `json:"removed"`
	ActiveSubscriptions int `json:"activeSubscriptions"`
}

// Dispatcher is the server-side twin of the client reminder
// evaluator, run on demand (cron or client ping) over every stored
// subscription.
type Dispatcher struct {
	store    store.Store
	registry *Registry
	sender   Sender
	now      func() time.Time
}

// NewDispatcher wires a dispatcher; now may be nil.
func NewDispatcher(s store.Store, sender Sender, now func() time.Time) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		store:    s,
		registry: NewRegistry(s),
		sender:   sender,
		now:      now,
	}
}

type reminderPlan struct {
	morning bool
	key     string
	note    Notification
}

// Run evaluates every subscription against the shared document and
// sends whatever falls inside the current delivery window. Concurrent
// runs race on the subscriptions document (last writer wins); accepted
// for a low-frequency cron.
func (d *Dispatcher) Run(ctx context.Context) (Result, error) {
	days, err := d.loadDays(ctx)
	if err != nil {
		return Result{}, err
	}

	subscriptions, err := d.registry.Load(ctx)
	if err != nil {
		return Result{}, err
	}

	now := d.now()
	nowIso := model.Timestamp(now)
	result := Result{}
	dirty := false

	for _, sub := range subscriptions {
		loc, err := time.LoadLocation(sub.TimeZone)
		if err != nil {
			loc = time.UTC
		}
		dateKey := model.DateKeyIn(now, loc)
		nowMinutes := model.MinutesOfDayIn(now, loc)

		plans := d.planReminders(sub, days, dateKey, nowMinutes)
		if len(plans) == 0 {
			sub.TaskAlerts = PruneTaskAlerts(sub.TaskAlerts, dateKey)
			continue
		}

		for _, plan := range plans {
			err := d.sender.Send(ctx, sub, plan.note)
			if errors.Is(err, ErrGone) {
				sub.expired = true
				result.Removed++
				dirty = true
				break
			}
			if err != nil {
				// Best effort per reminder, no retry.
				logger.Warn("Push delivery failed",
					logger.F("subscription", sub.ID),
					logger.F("error", err))
				continue
			}

			result.Sent++
			dirty = true
			if plan.morning {
				sub.LastMorningKey = plan.key
			} else {
				sub.TaskAlerts[plan.key] = nowIso
			}
		}

		sub.TaskAlerts = PruneTaskAlerts(sub.TaskAlerts, dateKey)
		if !sub.expired {
			sub.UpdatedAt = nowIso
		}
	}

	active := make([]*Subscription, 0, len(subscriptions))
	for _, sub := range subscriptions {
		if !sub.expired {
			active = append(active, sub)
		}
	}
	result.ActiveSubscriptions = len(active)

	if dirty {
		if err := d.registry.Save(ctx, active); err != nil {
			return result, err
		}
	}

	logger.Info("Dispatch pass completed",
		logger.F("sent", result.Sent),
		logger.F("removed", result.Removed),
		logger.F("active", result.ActiveSubscriptions))

	return result, nil
}

// planReminders collects the not-yet-sent reminders inside the
// current window for one subscription's local day.
func (d *Dispatcher) planReminders(sub *Subscription, days map[string]*model.DayRecord, dateKey string, nowMinutes int) []reminderPlan {
	var plans []reminderPlan

	morningTime := sub.MorningReminderTime
	if morningTime == "" {
		morningTime = model.DefaultMorningReminderTime
	}
	morningKey := dateKey + ":" + morningTime

	if inWindow(nowMinutes, model.ClockMinutes(morningTime)) && sub.LastMorningKey != morningKey {
		plans = append(plans, reminderPlan{
			morning: true,
			key:     morningKey,
			note: Notification{
				Title: "Daily Milestones",
				Body:  "Write your tasks for today.",
				Tag:   fmt.Sprintf("morning-%s-%s", sub.UserID, dateKey),
				URL:   "/",
			},
		})
	}

	day := days[dateKey]
	if day == nil {
		return plans
	}

	for _, task := range ledger.VisibleTasks(day.Users[sub.UserID].Tasks) {
		if task.Done || task.ReminderTime == "" {
			continue
		}

		alertMinutes := model.ClockMinutes(task.ReminderTime) - model.TaskReminderLeadMinutes
		if alertMinutes < 0 || !inWindow(nowMinutes, alertMinutes) {
			continue
		}

		alertKey := fmt.Sprintf("%s:%s:%s", dateKey, task.ID, task.ReminderTime)
		if _, sent := sub.TaskAlerts[alertKey]; sent {
			continue
		}

		text := normalize.Truncate(task.Text, 80)
		plans = append(plans, reminderPlan{
			key: alertKey,
			note: Notification{
				Title: fmt.Sprintf("%s task reminder", sub.UserID.DisplayName()),
				Body:  fmt.Sprintf("Start %s in %d minutes. Good luck.", text, model.TaskReminderLeadMinutes),
				Tag:   fmt.Sprintf("task-%s-%s", task.ID, dateKey),
				URL:   "/",
			},
		})
	}

	return plans
}

func (d *Dispatcher) loadDays(ctx context.Context) (map[string]*model.DayRecord, error) {
	data, err := d.store.Get(ctx, store.StateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load shared state: %w", err)
	}
	if data == nil {
		return map[string]*model.DayRecord{}, nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return map[string]*model.DayRecord{}, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return map[string]*model.DayRecord{}, nil
	}
	return normalize.DaysMap(obj["days"]), nil
}

func inWindow(nowMinutes, targetMinutes int) bool {
	return nowMinutes >= targetMinutes && nowMinutes < targetMinutes+WindowMinutes
}
