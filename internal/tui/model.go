package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/ourday-app/ourday/internal/config"
	"github.com/ourday-app/ourday/internal/ledger"
	"github.com/ourday-app/ourday/internal/localstate"
	"github.com/ourday-app/ourday/internal/logger"
	"github.com/ourday-app/ourday/internal/model"
	"github.com/ourday-app/ourday/internal/reminder"
	"github.com/ourday-app/ourday/internal/sync"
)

// Pane represents which board is focused
type Pane int

const (
	PaneMine Pane = iota
	PanePartner
)

// Mode represents the current UI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeAddTask
	ModeReact
	ModeHelp
)

// taskRow is one rendered task, copied out of the document under the
// engine lock so the view never touches shared state.
type taskRow struct {
	ID           string
	Text         string
	Done         bool
	OnTime       bool
	ReminderTime string
	Reaction     string
	HasPhoto     bool
}

// board is the render snapshot of one day.
type board struct {
	DateKey       string
	Closed        bool
	Mine          []taskRow
	Partner       []taskRow
	MyDone        int
	PartnerDone   int
	MyStreak      int
	PartnerStreak int
	WeekDone      int
	CalendarView  model.CalendarView
	Profile       model.UserID
}

// Params wires the board to its dependencies.
type Params struct {
	Config  *config.Config
	DB      *localstate.DB
	Ledger  *ledger.Ledger
	Profile model.UserID
}

// Model is the main TUI model
type Model struct {
	cfg    *config.Config
	db     *localstate.DB
	engine *sync.Engine

	evaluator *reminder.Evaluator
	notices   chan string

	// Channels the engine signals from its own goroutines
	refreshChan chan struct{}
	offlineChan chan struct{}

	board   board
	offline bool

	// UI state
	width         int
	height        int
	pane          Pane
	mode          Mode
	mineCursor    int
	partnerCursor int

	// Input
	input       textinput.Model
	reactTaskID string

	message string
}

// noticeNotifier turns fired reminders into status bar notices.
type noticeNotifier struct {
	ch chan string
}

func (n noticeNotifier) MorningReminder(identity model.UserID, reminderTime string) {
	select {
	case n.ch <- "Good morning! Write your tasks for today.":
	default:
	}
}

func (n noticeNotifier) TaskReminder(identity model.UserID, task *model.Task) {
	select {
	case n.ch <- "Starting soon: " + task.Text + " at " + task.ReminderTime:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(p Params) Model {
	logger.Info("Initializing board model", logger.F("profile", p.Profile))

	ti := textinput.New()
	ti.Placeholder = "Task text, optionally @HH:MM..."
	ti.CharLimit = 200
	ti.Width = 50

	notices := make(chan string, 8)
	refreshChan := make(chan struct{}, 1)
	offlineChan := make(chan struct{}, 1)

	p.Ledger.SwitchProfile(p.Profile)

	db := p.DB
	engine := sync.NewEngine(sync.NewClient(p.Config.ServerURL), p.Ledger, sync.Options{
		OnApplied: func() {
			select {
			case refreshChan <- struct{}{}:
			default:
			}
		},
		OnUnavailable: func() {
			select {
			case offlineChan <- struct{}{}:
			default:
			}
		},
		Persist: func(doc *model.StateDocument) {
			if err := db.Save(doc); err != nil {
				logger.Warn("Snapshot save failed", logger.F("error", err))
			}
		},
	})

	m := Model{
		cfg:         p.Config,
		db:          db,
		engine:      engine,
		evaluator:   reminder.New(noticeNotifier{ch: notices}),
		notices:     notices,
		refreshChan: refreshChan,
		offlineChan: offlineChan,
		pane:        PaneMine,
		mode:        ModeNormal,
		input:       ti,
	}

	engine.Start()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		engine.Bootstrap(ctx)
	}()

	m.loadData()
	logger.Debug("Board model initialized", logger.F("dateKey", m.board.DateKey))
	return m
}

// loadData copies the render snapshot out of the document.
func (m *Model) loadData() {
	m.engine.View(func(l *ledger.Ledger) {
		doc := l.Document()
		me := doc.Profile
		partner := me.Partner()
		day := l.Today()

		m.board = board{
			DateKey:       day.DateKey,
			Closed:        day.Closed,
			Mine:          taskRows(day, me),
			Partner:       taskRows(day, partner),
			MyDone:        ledger.CountDone(day, me),
			PartnerDone:   ledger.CountDone(day, partner),
			MyStreak:      l.CurrentStreak(me),
			PartnerStreak: l.CurrentStreak(partner),
			WeekDone:      l.WeekDoneCount(me, day.DateKey, true),
			CalendarView:  doc.Preferences.CalendarView,
			Profile:       me,
		}
	})

	if m.mineCursor >= len(m.board.Mine) {
		m.mineCursor = max(0, len(m.board.Mine)-1)
	}
	if m.partnerCursor >= len(m.board.Partner) {
		m.partnerCursor = max(0, len(m.board.Partner)-1)
	}
}

// taskRows flattens one identity's day for rendering. The reaction
// column shows what the other identity sent.
func taskRows(day *model.DayRecord, identity model.UserID) []taskRow {
	tasks := ledger.OrderedTasks(day.Users[identity].Tasks)
	rows := make([]taskRow, 0, len(tasks))
	for _, task := range tasks {
		row := taskRow{
			ID:           task.ID,
			Text:         task.Text,
			Done:         task.Done,
			OnTime:       ledger.WasTaskDoneOnTime(task, day.DateKey),
			ReminderTime: task.ReminderTime,
		}
		if entry := task.Reactions[identity.Partner()]; entry != nil {
			row.Reaction = entry.Message
			row.HasPhoto = entry.Image != nil
		}
		rows = append(rows, row)
	}
	return rows
}

func (m *Model) currentRow() *taskRow {
	if m.pane == PaneMine {
		if m.mineCursor < len(m.board.Mine) {
			return &m.board.Mine[m.mineCursor]
		}
		return nil
	}
	if m.partnerCursor < len(m.board.Partner) {
		return &m.board.Partner[m.partnerCursor]
	}
	return nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
