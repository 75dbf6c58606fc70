package push

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ourday-app/ourday/internal/model"
	"github.com/ourday-app/ourday/internal/store"
)

type fakeSender struct {
	sent []Notification
	fail map[string]error
}

func (f *fakeSender) Send(_ context.Context, sub *Subscription, n Notification) error {
	if err := f.fail[sub.Endpoint]; err != nil {
		return err
	}
	f.sent = append(f.sent, n)
	return nil
}

func seedState(t *testing.T, s store.Store, stateJSON string) {
	t.Helper()
	if err := s.Set(context.Background(), store.StateKey, []byte(stateJSON)); err != nil {
		t.Fatal(err)
	}
}

func seedSubscriptions(t *testing.T, s store.Store, subs []*Subscription) {
	t.Helper()
	data, err := json.Marshal(subs)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(context.Background(), store.SubscriptionsKey, data); err != nil {
		t.Fatal(err)
	}
}

func loadSubscriptions(t *testing.T, s store.Store) []*Subscription {
	t.Helper()
	list, err := NewRegistry(s).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return list
}

func testSubscription(endpoint string) *Subscription {
	return &Subscription{
		ID:                  Fingerprint(endpoint),
		Endpoint:            endpoint,
		Keys:                Keys{P256dh: "p256", Auth: "auth"},
		UserID:              model.UserMe,
		MorningReminderTime: "09:00",
		TimeZone:            "UTC",
		CreatedAt:           "2024-05-01T00:00:00Z",
		UpdatedAt:           "2024-05-01T00:00:00Z",
		TaskAlerts:          map[string]string{},
	}
}

func utc(hour, minute int) func() time.Time {
	return func() time.Time {
		return time.Date(2024, 5, 1, hour, minute, 0, 0, time.UTC)
	}
}

func TestRun_MorningReminderFiresInsideWindowOnce(t *testing.T) {
	s := store.NewMemory()
	seedSubscriptions(t, s, []*Subscription{testSubscription("https://push.example/a")})

	sender := &fakeSender{}
	d := NewDispatcher(s, sender, utc(9, 4))

	result, err := d.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Sent != 1 {
		t.Fatalf("sent = %d, want 1", result.Sent)
	}
	if sender.sent[0].Title != "Daily Milestones" {
		t.Fatalf("title = %q", sender.sent[0].Title)
	}

	saved := loadSubscriptions(t, s)
	if saved[0].LastMorningKey != "2024-05-01:09:00" {
		t.Fatalf("lastMorningKey = %q", saved[0].LastMorningKey)
	}

	// A second pass inside the same window sends nothing.
	result, err = d.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Sent != 0 {
		t.Fatalf("second pass sent = %d, want 0", result.Sent)
	}
}

func TestRun_OutsideWindowStaysSilent(t *testing.T) {
	s := store.NewMemory()
	seedSubscriptions(t, s, []*Subscription{testSubscription("https://push.example/a")})

	// 09:06 is past the five-minute window for a 09:00 target.
	sender := &fakeSender{}
	result, err := NewDispatcher(s, sender, utc(9, 6)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Sent != 0 || len(sender.sent) != 0 {
		t.Fatalf("sent = %d, want nothing outside the window", result.Sent)
	}
	if result.ActiveSubscriptions != 1 {
		t.Fatalf("active = %d, want 1", result.ActiveSubscriptions)
	}
}

func TestRun_TaskReminderLeadsTargetAndStamps(t *testing.T) {
	s := store.NewMemory()
	seedState(t, s, `{"days":{"2024-05-01":{"users":{"me":{"tasks":[
		{"id":"t1","text":"Gym session","reminderTime":"10:00"},
		{"id":"t2","text":"Already done","done":true,"doneAt":"2024-05-01T08:00:00Z","reminderTime":"10:00"}
	]}}}}}`)

	sub := testSubscription("https://push.example/a")
	// Morning already acknowledged so only the task alert is due.
	sub.LastMorningKey = "2024-05-01:09:00"
	seedSubscriptions(t, s, []*Subscription{sub})

	// Lead is ten minutes, so a 10:00 task alerts from 09:50.
	sender := &fakeSender{}
	d := NewDispatcher(s, sender, utc(9, 52))

	result, err := d.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Sent != 1 {
		t.Fatalf("sent = %d, want only the open task's alert", result.Sent)
	}
	if !strings.Contains(sender.sent[0].Body, "Gym session") {
		t.Fatalf("body = %q", sender.sent[0].Body)
	}

	saved := loadSubscriptions(t, s)
	if _, stamped := saved[0].TaskAlerts["2024-05-01:t1:10:00"]; !stamped {
		t.Fatalf("task alert not stamped: %v", saved[0].TaskAlerts)
	}

	// Stamped alerts never repeat.
	result, err = d.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Sent != 0 {
		t.Fatalf("second pass sent = %d, want 0", result.Sent)
	}
}

func TestRun_GoneSubscriptionIsRetired(t *testing.T) {
	s := store.NewMemory()
	seedSubscriptions(t, s, []*Subscription{
		testSubscription("https://push.example/dead"),
		testSubscription("https://push.example/alive"),
	})

	sender := &fakeSender{fail: map[string]error{"https://push.example/dead": ErrGone}}
	result, err := NewDispatcher(s, sender, utc(9, 0)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if result.Removed != 1 {
		t.Fatalf("removed = %d, want 1", result.Removed)
	}
	if result.Sent != 1 {
		t.Fatalf("sent = %d, want the surviving subscription's reminder", result.Sent)
	}
	if result.ActiveSubscriptions != 1 {
		t.Fatalf("active = %d, want 1", result.ActiveSubscriptions)
	}

	saved := loadSubscriptions(t, s)
	if len(saved) != 1 || saved[0].Endpoint != "https://push.example/alive" {
		t.Fatalf("saved endpoints = %+v", saved)
	}
}

func TestRun_UsesSubscriptionTimeZone(t *testing.T) {
	s := store.NewMemory()
	sub := testSubscription("https://push.example/ny")
	sub.TimeZone = "America/New_York"
	seedSubscriptions(t, s, []*Subscription{sub})

	// 13:02 UTC is 09:02 in New York during DST.
	sender := &fakeSender{}
	result, err := NewDispatcher(s, sender, utc(13, 2)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Sent != 1 {
		t.Fatalf("sent = %d, want the local-time morning reminder", result.Sent)
	}

	saved := loadSubscriptions(t, s)
	if saved[0].LastMorningKey != "2024-05-01:09:00" {
		t.Fatalf("lastMorningKey = %q, want the local date", saved[0].LastMorningKey)
	}
}

func TestRun_PrunesOldTaskAlerts(t *testing.T) {
	s := store.NewMemory()
	sub := testSubscription("https://push.example/a")
	sub.LastMorningKey = "2024-05-01:09:00"
	sub.TaskAlerts = map[string]string{
		"2024-04-28:old:10:00":  "2024-04-28T09:50:00Z",
		"2024-04-29:keep:10:00": "2024-04-29T09:50:00Z",
		"2024-05-01:keep:10:00": "2024-05-01T09:50:00Z",
	}
	seedSubscriptions(t, s, []*Subscription{sub})

	// A send marks the document dirty so the pruned alerts persist.
	seedState(t, s, `{"days":{"2024-05-01":{"users":{"me":{"tasks":[
		{"id":"t1","text":"Stretch","reminderTime":"10:02"}
	]}}}}}`)

	sender := &fakeSender{}
	if _, err := NewDispatcher(s, sender, utc(9, 52)).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	alerts := loadSubscriptions(t, s)[0].TaskAlerts
	if _, ok := alerts["2024-04-28:old:10:00"]; ok {
		t.Fatal("alert older than two days survived the prune")
	}
	if _, ok := alerts["2024-04-29:keep:10:00"]; !ok {
		t.Fatal("alert at the two-day floor was pruned")
	}
	if _, ok := alerts["2024-05-01:keep:10:00"]; !ok {
		t.Fatal("current alert was pruned")
	}
}

func TestRun_EmptyStoreIsCleanNoOp(t *testing.T) {
	s := store.NewMemory()
	sender := &fakeSender{}

	result, err := NewDispatcher(s, sender, utc(9, 0)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Sent != 0 || result.Removed != 0 || result.ActiveSubscriptions != 0 {
		t.Fatalf("result = %+v, want all zero", result)
	}
}
