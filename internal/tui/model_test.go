package tui

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ourday-app/ourday/internal/ledger"
	"github.com/ourday-app/ourday/internal/localstate"
	"github.com/ourday-app/ourday/internal/model"
	"github.com/ourday-app/ourday/internal/sync"
)

type offlineTransport struct{}

func (offlineTransport) Fetch(ctx context.Context) (any, error) {
	return nil, errors.New("offline")
}

func (offlineTransport) Push(ctx context.Context, payload sync.StatePayload) (any, error) {
	return nil, errors.New("offline")
}

func TestTaskRows_MarksOnTimeCompletion(t *testing.T) {
	day := model.NewDay("2024-05-01")

	early, err := model.DayClock("2024-05-01", "10:00")
	if err != nil {
		t.Fatalf("day clock: %v", err)
	}
	lateDue, err := model.DayClock("2024-05-01", "11:00")
	if err != nil {
		t.Fatalf("day clock: %v", err)
	}

	day.Users[model.UserMe].Tasks = []*model.Task{
		{
			ID: "t1", Text: "Run", Done: true, ReminderTime: "10:00",
			DoneAt:    model.Timestamp(early.Add(-5 * time.Minute)),
			Reactions: model.EmptyReactions(),
		},
		{
			ID: "t2", Text: "Read", Done: true, ReminderTime: "11:00",
			DoneAt:    model.Timestamp(lateDue.Add(30 * time.Minute)),
			Reactions: model.EmptyReactions(),
		},
		{
			ID: "t3", Text: "Call mom", Done: true,
			DoneAt:    model.Timestamp(early),
			Reactions: model.EmptyReactions(),
		},
	}

	rows := taskRows(day, model.UserMe)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if !rows[0].OnTime {
		t.Error("completion before the reminder target should count as on time")
	}
	if rows[1].OnTime {
		t.Error("late completion counted as on time")
	}
	if rows[2].OnTime {
		t.Error("untimed task counted as on time")
	}
}

func TestProfileAndViewSwitchesStayLocal(t *testing.T) {
	db, err := localstate.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open local state: %v", err)
	}
	defer db.Close()

	l := ledger.New(model.NewStateDocument(), nil)
	engine := sync.NewEngine(offlineTransport{}, l, sync.Options{})

	m := &Model{db: db, engine: engine}
	m.loadData()

	m.handleSwitchProfile()
	if engine.Dirty() {
		t.Fatal("profile switch queued a sync push")
	}
	if m.board.Profile != model.UserPartner {
		t.Fatalf("profile = %s, want partner", m.board.Profile)
	}

	m.handleCycleView()
	if engine.Dirty() {
		t.Fatal("calendar view cycle queued a sync push")
	}
	if m.board.CalendarView != model.ViewMonth {
		t.Fatalf("view = %s, want month", m.board.CalendarView)
	}

	// Both changes still land in the local snapshot.
	saved, err := db.Load()
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if saved.Profile != model.UserPartner {
		t.Fatalf("saved profile = %s, want partner", saved.Profile)
	}
	if saved.Preferences.CalendarView != model.ViewMonth {
		t.Fatalf("saved view = %s, want month", saved.Preferences.CalendarView)
	}
}
