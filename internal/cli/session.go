package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ourday-app/ourday/internal/config"
	"github.com/ourday-app/ourday/internal/ledger"
	"github.com/ourday-app/ourday/internal/localstate"
	"github.com/ourday-app/ourday/internal/logger"
	"github.com/ourday-app/ourday/internal/model"
	"github.com/ourday-app/ourday/internal/sync"
)

// session is the shared setup of every one-shot command: config, the
// local snapshot and a ledger rolled forward to today.
type session struct {
	cfg    *config.Config
	db     *localstate.DB
	ledger *ledger.Ledger
}

func openSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		logger.Warn("Failed to load config, using defaults", logger.F("error", err))
		cfg = config.DefaultConfig()
	}

	db, err := localstate.OpenDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to open local state: %w", err)
	}

	doc, err := db.Load()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	l := ledger.New(doc, nil)
	l.EnsureDaySpace()

	return &session{cfg: cfg, db: db, ledger: l}, nil
}

func (s *session) close() {
	_ = s.db.Close()
}

// profile resolves the acting identity: --profile flag first, then
// config, then me.
func (s *session) profile() model.UserID {
	name := s.cfg.Profile
	if profileFlag != "" {
		name = profileFlag
	}
	if id := model.UserID(name); id.Valid() {
		return id
	}
	return model.UserMe
}

// save persists the snapshot and pushes the document to the sync
// server best effort. One-shot commands cannot wait out a debounce
// window, so they push directly and shrug off failures.
func (s *session) save() error {
	doc := s.ledger.Document()
	if err := s.db.Save(doc); err != nil {
		return err
	}

	client := sync.NewClient(s.cfg.ServerURL)
	payload := sync.StatePayload{
		Days: doc.Days,
		Settings: sync.Settings{
			MorningReminderTimes: doc.Preferences.MorningReminderTimes,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := client.Push(ctx, payload); err != nil {
		logger.Debug("Best-effort push failed", logger.F("error", err))
		fmt.Println("(offline: change saved locally, will sync next time the board runs)")
	}
	return nil
}

// findTask matches an ID prefix against identity's visible tasks on
// today's board.
func (s *session) findTask(identity model.UserID, idPrefix string) (*model.Task, error) {
	day := s.ledger.Today()
	var match *model.Task
	for _, task := range ledger.VisibleTasks(day.Users[identity].Tasks) {
		if strings.HasPrefix(task.ID, idPrefix) {
			if match != nil {
				return nil, fmt.Errorf("task id %q is ambiguous", idPrefix)
			}
			match = task
		}
	}
	if match == nil {
		return nil, fmt.Errorf("task not found: %s", idPrefix)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
