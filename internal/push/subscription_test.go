package push

import (
	"context"
	"testing"
	"time"

	"github.com/ourday-app/ourday/internal/model"
	"github.com/ourday-app/ourday/internal/store"
)

func subscribePayload(endpoint string) map[string]any {
	return map[string]any{
		"endpoint": endpoint,
		"keys":     map[string]any{"p256dh": "p256", "auth": "auth"},
	}
}

func TestUpsert_InsertsThenUpdatesByEndpoint(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	list, created := Upsert(nil, UpsertParams{
		Subscription:        subscribePayload("https://push.example/a"),
		UserID:              "partner",
		MorningReminderTime: "07:30",
		TimeZone:            "Europe/Berlin",
	}, now)

	if created == nil || len(list) != 1 {
		t.Fatalf("insert failed: entry=%v len=%d", created, len(list))
	}
	if created.ID != Fingerprint("https://push.example/a") {
		t.Fatalf("id = %q, want the endpoint fingerprint", created.ID)
	}
	if created.UserID != model.UserPartner || created.MorningReminderTime != "07:30" {
		t.Fatalf("entry = %+v", created)
	}

	// Same endpoint again updates in place.
	list, updated := Upsert(list, UpsertParams{
		Subscription:        subscribePayload("https://push.example/a"),
		UserID:              "me",
		MorningReminderTime: "bogus",
		TimeZone:            "Not/AZone",
	}, now.Add(time.Hour))

	if len(list) != 1 {
		t.Fatalf("list grew to %d on an update", len(list))
	}
	if updated != created {
		t.Fatal("update created a new entry instead of mutating")
	}
	if updated.UserID != model.UserMe {
		t.Fatalf("userId = %q", updated.UserID)
	}
	if updated.MorningReminderTime != model.DefaultMorningReminderTime {
		t.Fatalf("morningReminderTime = %q, want the default for bad input", updated.MorningReminderTime)
	}
	if updated.TimeZone != "UTC" {
		t.Fatalf("timeZone = %q, want the UTC fallback", updated.TimeZone)
	}
	if updated.CreatedAt == updated.UpdatedAt {
		t.Fatal("updatedAt did not advance")
	}
}

func TestUpsert_RejectsIncompletePayload(t *testing.T) {
	inputs := []any{
		nil,
		"not an object",
		map[string]any{"endpoint": "https://push.example/a"},
		map[string]any{"endpoint": "", "keys": map[string]any{"p256dh": "p", "auth": "a"}},
		map[string]any{"endpoint": "https://push.example/a", "keys": map[string]any{"p256dh": "p"}},
	}

	for _, input := range inputs {
		list, entry := Upsert(nil, UpsertParams{Subscription: input}, time.Now())
		if entry != nil || len(list) != 0 {
			t.Errorf("Upsert(%v) accepted an incomplete payload", input)
		}
	}
}

func TestRegistry_LoadDropsGarbageEntries(t *testing.T) {
	s := store.NewMemory()
	blob := `[
		{"endpoint":"https://push.example/good","keys":{"p256dh":"p","auth":"a"},
		 "userId":"partner","morningReminderTime":"08:00","timeZone":"UTC",
		 "lastMorningKey":"2024-05-01:08:00",
		 "taskAlerts":{"2024-05-01:t1:10:00":"2024-05-01T09:50:00Z","junk":"x"}},
		{"endpoint":"https://push.example/nokeys"},
		"just a string",
		null
	]`
	if err := s.Set(context.Background(), store.SubscriptionsKey, []byte(blob)); err != nil {
		t.Fatal(err)
	}

	list, err := NewRegistry(s).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("loaded %d entries, want the single valid one", len(list))
	}

	sub := list[0]
	if sub.UserID != model.UserPartner || sub.MorningReminderTime != "08:00" {
		t.Fatalf("entry = %+v", sub)
	}
	if sub.LastMorningKey != "2024-05-01:08:00" {
		t.Fatalf("lastMorningKey = %q", sub.LastMorningKey)
	}
	if len(sub.TaskAlerts) != 1 {
		t.Fatalf("taskAlerts = %v, want the malformed key dropped", sub.TaskAlerts)
	}
}

func TestPruneTaskAlerts_KeepsTwoDayTail(t *testing.T) {
	alerts := map[string]string{
		"2024-04-28:a:10:00": "x",
		"2024-04-29:b:10:00": "x",
		"2024-04-30:c:10:00": "x",
		"bogus":              "x",
	}

	pruned := PruneTaskAlerts(alerts, "2024-05-01")
	if len(pruned) != 2 {
		t.Fatalf("pruned = %v", pruned)
	}
	if _, ok := pruned["2024-04-29:b:10:00"]; !ok {
		t.Fatal("floor entry dropped")
	}
}
