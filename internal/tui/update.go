package tui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ourday-app/ourday/internal/ledger"
	"github.com/ourday-app/ourday/internal/logger"
	"github.com/ourday-app/ourday/internal/model"
)

// tickMsg is sent every second for the clock and midnight countdown
type tickMsg time.Time

// watchTickMsg drives the day rollover and reminder checks
type watchTickMsg time.Time

// dispatchTickMsg drives the server dispatch keepalive ping
type dispatchTickMsg time.Time

// syncRefreshMsg is sent when remote changes are pulled
type syncRefreshMsg struct{}

// offlineMsg is sent once when the server reports no store configured
type offlineMsg struct{}

// Watcher cadences from the source deployment: 30s day and reminder
// checks, 90s dispatch keepalive.
const (
	watchInterval    = 30 * time.Second
	dispatchInterval = 90 * time.Second
)

// Init initializes the model with its tick commands
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		watchCmd(),
		dispatchCmd(),
		m.waitForRefresh(),
		m.waitForOffline(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func watchCmd() tea.Cmd {
	return tea.Every(watchInterval, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

func dispatchCmd() tea.Cmd {
	return tea.Every(dispatchInterval, func(t time.Time) tea.Msg {
		return dispatchTickMsg(t)
	})
}

// waitForRefresh listens for remote merge signals
func (m Model) waitForRefresh() tea.Cmd {
	return func() tea.Msg {
		<-m.refreshChan
		return syncRefreshMsg{}
	}
}

// waitForOffline listens for the one-shot unavailable signal
func (m Model) waitForOffline() tea.Cmd {
	return func() tea.Msg {
		<-m.offlineChan
		return offlineMsg{}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		// Re-render for the clock; data is unchanged
		return m, tickCmd()

	case watchTickMsg:
		m.runWatchers()
		return m, watchCmd()

	case dispatchTickMsg:
		// Keepalive so reminders fire even with no cron configured
		go m.pingDispatch()
		return m, dispatchCmd()

	case syncRefreshMsg:
		m.loadData()
		m.message = "Synced"
		return m, m.waitForRefresh()

	case offlineMsg:
		m.offline = true
		m.message = "Server has no store configured, working locally"
		return m, m.waitForOffline()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeAddTask:
			return m.updateAddInput(msg)
		case ModeReact:
			return m.updateReactInput(msg)
		case ModeHelp:
			m.mode = ModeNormal
			return m, nil
		}
		return m.handleNormalKeys(msg)
	}

	return m, nil
}

// runWatchers rolls the day forward and evaluates reminders, the same
// pass a fresh launch does. Reminder stamps persist locally only; a
// rollover queues a push because closed days must reach the partner.
func (m *Model) runWatchers() {
	rollover := false
	m.engine.View(func(l *ledger.Ledger) {
		rollover = l.EnsureDaySpace()
		if m.evaluator.Check(l, time.Now()) || rollover {
			m.persistLocal(l)
		}
	})
	if rollover {
		m.engine.QueueSync()
	}

	for {
		select {
		case notice := <-m.notices:
			m.message = notice
		default:
			m.loadData()
			return
		}
	}
}

// pingDispatch asks the server to run a push dispatch pass. Best
// effort; an open client is just one more trigger besides cron.
func (m Model) pingDispatch() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.ServerURL+"/api/push/dispatch", nil)
	if err != nil {
		return
	}
	if m.cfg.DispatchSecret != "" {
		req.Header.Set("Authorization", "Bearer "+m.cfg.DispatchSecret)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.Debug("Dispatch ping failed", logger.F("error", err))
		return
	}
	_ = resp.Body.Close()
}

// handleNormalKeys handles key presses in normal mode
func (m Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.engine.SyncNow(false)
		m.engine.Stop()
		return m, tea.Quit

	case key.Matches(msg, keys.Tab):
		if m.pane == PaneMine {
			m.pane = PanePartner
		} else {
			m.pane = PaneMine
		}

	case key.Matches(msg, keys.Left):
		m.pane = PaneMine

	case key.Matches(msg, keys.Right):
		m.pane = PanePartner

	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)

	case key.Matches(msg, keys.Down):
		m.moveCursor(1)

	case key.Matches(msg, keys.Add):
		return m.startAddTask()

	case key.Matches(msg, keys.Done), key.Matches(msg, keys.Enter):
		m.handleToggleDone()

	case key.Matches(msg, keys.Delete):
		m.handleDelete()

	case key.Matches(msg, keys.React):
		return m.startReact()

	case key.Matches(msg, keys.Photo):
		m.handleViewPhoto()

	case key.Matches(msg, keys.Profile):
		m.handleSwitchProfile()

	case key.Matches(msg, keys.View):
		m.handleCycleView()

	case key.Matches(msg, keys.Refresh):
		m.engine.QueueSync()
		go m.engine.Pull()
		m.message = "Sync queued"

	case key.Matches(msg, keys.Help):
		m.mode = ModeHelp

	case key.Matches(msg, keys.Escape):
		m.message = ""
	}

	return m, nil
}

func (m *Model) moveCursor(delta int) {
	if m.pane == PaneMine {
		next := m.mineCursor + delta
		if next >= 0 && next < len(m.board.Mine) {
			m.mineCursor = next
		}
	} else {
		next := m.partnerCursor + delta
		if next >= 0 && next < len(m.board.Partner) {
			m.partnerCursor = next
		}
	}
}

// apply runs a mutation through the engine and translates rejections
// into status bar text.
func (m *Model) apply(fn func(*ledger.Ledger) error) bool {
	err := m.engine.Apply(fn)
	if err != nil {
		m.message = rejectionText(err)
		return false
	}
	m.loadData()
	return true
}

func rejectionText(err error) string {
	switch {
	case errors.Is(err, ledger.ErrDayClosed):
		return "Today's board is closed"
	case errors.Is(err, ledger.ErrTaskCapReached):
		return "Five tasks max per day, finish or delete one"
	case errors.Is(err, ledger.ErrEmptyText):
		return "Task text is empty"
	case errors.Is(err, ledger.ErrInvalidReminderTime):
		return "Time must be HH:MM"
	case errors.Is(err, ledger.ErrTaskNotDone):
		return "React once the task is completed"
	case errors.Is(err, ledger.ErrEmptyReaction):
		return "Reaction is empty"
	default:
		return err.Error()
	}
}

func (m Model) startAddTask() (tea.Model, tea.Cmd) {
	m.pane = PaneMine
	m.mode = ModeAddTask
	m.input.SetValue("")
	m.input.Placeholder = "Task text, optionally @HH:MM..."
	m.input.Focus()
	return m, textinput.Blink
}

func (m *Model) handleToggleDone() {
	if m.pane != PaneMine {
		m.message = "Only your own tasks can be toggled"
		return
	}
	row := m.currentRow()
	if row == nil {
		return
	}

	me := m.board.Profile
	taskID := row.ID
	if m.apply(func(l *ledger.Ledger) error {
		_, err := l.ToggleTask(me, me, taskID)
		return err
	}) {
		m.message = ""
	}
}

func (m *Model) handleDelete() {
	if m.pane != PaneMine {
		m.message = "Only your own tasks can be deleted"
		return
	}
	row := m.currentRow()
	if row == nil {
		return
	}

	me := m.board.Profile
	taskID := row.ID
	text := row.Text
	if m.apply(func(l *ledger.Ledger) error {
		return l.DeleteTask(me, me, taskID)
	}) {
		m.message = fmt.Sprintf("Deleted: %s", text)
	}
}

func (m Model) startReact() (tea.Model, tea.Cmd) {
	if m.pane != PanePartner {
		m.message = "Reactions go on your partner's tasks"
		return m, nil
	}
	row := m.currentRow()
	if row == nil {
		return m, nil
	}
	if !row.Done {
		m.message = "React once the task is completed"
		return m, nil
	}

	m.mode = ModeReact
	m.reactTaskID = row.ID
	m.input.SetValue("")
	m.input.Placeholder = "Say something nice..."
	m.input.Focus()
	return m, textinput.Blink
}

// handleViewPhoto consumes a reaction photo on one of my completed
// tasks. Consumption is a document change, so it syncs.
func (m *Model) handleViewPhoto() {
	if m.pane != PaneMine {
		return
	}
	row := m.currentRow()
	if row == nil || !row.HasPhoto {
		m.message = "No photo to view here"
		return
	}

	me := m.board.Profile
	taskID := row.ID
	var image *model.ReactionImage
	if m.apply(func(l *ledger.Ledger) error {
		var err error
		image, err = l.ConsumeReactionImage(me, taskID)
		return err
	}) {
		m.message = fmt.Sprintf("Photo viewed (%s, %d bytes), now gone", image.MimeType, len(image.DataURL))
	}
}

// handleSwitchProfile flips the acting identity. Profile is a local
// preference: the snapshot is saved but no push is queued.
func (m *Model) handleSwitchProfile() {
	var switched model.UserID
	m.engine.View(func(l *ledger.Ledger) {
		l.SwitchProfile(l.Document().Profile.Partner())
		switched = l.Document().Profile
		m.persistLocal(l)
	})
	m.loadData()
	m.mineCursor = 0
	m.partnerCursor = 0
	m.message = fmt.Sprintf("Now acting as %s", switched.DisplayName())
}

// handleCycleView advances the calendar view, local only like the
// profile switch.
func (m *Model) handleCycleView() {
	var view model.CalendarView
	m.engine.View(func(l *ledger.Ledger) {
		view = l.CycleCalendarView()
		m.persistLocal(l)
	})
	m.loadData()
	m.message = fmt.Sprintf("Calendar view: %s", view)
}

func (m *Model) persistLocal(l *ledger.Ledger) {
	if m.db == nil {
		return
	}
	if err := m.db.Save(l.Document()); err != nil {
		logger.Warn("Snapshot save failed", logger.F("error", err))
	}
}

func (m Model) updateAddInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.mode = ModeNormal
		return m, nil

	case key.Matches(msg, keys.Enter):
		value := m.input.Value()
		if value == "" {
			m.mode = ModeNormal
			return m, nil
		}

		text, reminderTime := splitReminderSuffix(value)
		me := m.board.Profile
		if m.apply(func(l *ledger.Ledger) error {
			_, err := l.AddTask(me, text, reminderTime)
			return err
		}) {
			m.message = fmt.Sprintf("Added: %s", text)
			m.mode = ModeNormal
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateReactInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.mode = ModeNormal
		return m, nil

	case key.Matches(msg, keys.Enter):
		value := m.input.Value()
		if value == "" {
			m.mode = ModeNormal
			return m, nil
		}

		me := m.board.Profile
		taskID := m.reactTaskID
		if m.apply(func(l *ledger.Ledger) error {
			return l.SendReaction(me, me.Partner(), taskID, value, nil)
		}) {
			m.message = "Reaction sent"
			m.mode = ModeNormal
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// splitReminderSuffix peels a trailing @HH:MM token off the composer
// text.
func splitReminderSuffix(value string) (string, string) {
	fields := strings.Fields(value)
	if len(fields) < 2 {
		return value, ""
	}

	last := fields[len(fields)-1]
	if strings.HasPrefix(last, "@") && model.ValidClock(strings.TrimPrefix(last, "@")) {
		return strings.Join(fields[:len(fields)-1], " "), strings.TrimPrefix(last, "@")
	}
	return value, ""
}
