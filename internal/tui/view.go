package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	header := m.renderHeader()
	mine := m.renderBoard(PaneMine)
	partner := m.renderBoard(PanePartner)
	statusBar := m.renderStatusBar()

	mainContent := lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.JoinHorizontal(lipgloss.Top, mine, partner),
	)

	if m.mode == ModeAddTask || m.mode == ModeReact {
		modal := m.renderModal()
		mainContent = lipgloss.Place(
			m.width, m.height-2,
			lipgloss.Center, lipgloss.Center,
			modal,
			lipgloss.WithWhitespaceChars(" "),
		)
	}

	if m.mode == ModeHelp {
		mainContent = m.renderHelp()
	}

	return lipgloss.JoinVertical(lipgloss.Left, mainContent, statusBar)
}

func (m Model) renderHeader() string {
	now := time.Now()
	left := HeaderStyle.Render("OurDay") + HelpStyle.Render("  "+m.board.DateKey+"  "+now.Format("15:04"))

	state := fmt.Sprintf("closes in %s", untilMidnight(now))
	if m.board.Closed {
		state = "closed"
	}

	streaks := fmt.Sprintf("streak %d · partner %d · %d done this week",
		m.board.MyStreak, m.board.PartnerStreak, m.board.WeekDone)

	right := HelpStyle.Render(state + "  |  " + streaks + "  |  " + string(m.board.CalendarView))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderBoard(pane Pane) string {
	width := m.width/2 - 2
	var s string

	rows := m.board.Mine
	cursor := m.mineCursor
	title := m.board.Profile.DisplayName() + " (you)"
	done := m.board.MyDone
	if pane == PanePartner {
		rows = m.board.Partner
		cursor = m.partnerCursor
		title = m.board.Profile.Partner().DisplayName()
		done = m.board.PartnerDone
	}

	header := fmt.Sprintf("%s  %d/%d done", title, done, len(rows))
	s += lipgloss.NewStyle().Bold(true).Foreground(Primary).Render(header) + "\n"
	s += lipgloss.NewStyle().Foreground(Border).Render(strings.Repeat("─", max(1, width-6))) + "\n\n"

	if len(rows) == 0 {
		if pane == PaneMine {
			s += HelpStyle.Render("  No tasks. Press 'a' to add one.")
		} else {
			s += HelpStyle.Render("  Nothing here yet.")
		}
	}

	for i, row := range rows {
		marker := "  "
		style := TaskItemStyle
		if i == cursor && m.pane == pane {
			marker = "❯ "
			style = TaskItemSelectedStyle
		}

		icon := "[ ]"
		if row.Done {
			icon = "[x]"
			style = TaskDoneStyle
		}

		at := "     "
		if row.ReminderTime != "" {
			clock := row.ReminderTime
			if row.OnTime {
				clock += " ✓"
			}
			at = TimeStyle.Render(clock)
		}

		line := style.Render(marker+icon+" "+truncate(row.Text, max(4, width-20))) + " " + at
		s += line + "\n"

		if row.Reaction != "" || row.HasPhoto {
			note := row.Reaction
			if row.HasPhoto {
				if note != "" {
					note += " "
				}
				note += "📷"
			}
			s += ReactionStyle.Render("      ← "+truncate(note, max(4, width-12))) + "\n"
		}
	}

	style := PaneStyle
	if m.pane == pane {
		style = PaneFocusedStyle
	}
	return style.Width(width).Height(m.height - 5).Render(s)
}

func (m Model) renderStatusBar() string {
	help := "a:add  x:done  d:del  r:react  v:photo  tab:boards  s:profile  R:sync  ?:help  q:quit"
	if m.message != "" {
		help = m.message
	}

	syncMsg := ""
	if m.offline {
		syncMsg = "Offline mode"
	} else if m.engine.Dirty() {
		syncMsg = "Syncing..."
	}

	if syncMsg != "" {
		avail := m.width - len(help) - len(syncMsg) - 2
		if avail > 0 {
			help += strings.Repeat(" ", avail) + syncMsg
		} else {
			help += " " + syncMsg
		}
	}

	return StatusBarStyle.Width(m.width).Render(help)
}

func (m Model) renderModal() string {
	title := "Add Task"
	hint := "Enter:save  Esc:cancel  (append @HH:MM for a reminder)"
	if m.mode == ModeReact {
		title = "React to your partner"
		hint = "Enter:send  Esc:cancel"
	}

	content := lipgloss.NewStyle().Bold(true).Render(title) + "\n\n"
	content += m.input.View() + "\n\n"
	content += HelpStyle.Render(hint)

	return ModalStyle.Render(content)
}

func (m Model) renderHelp() string {
	help := `
╭──── Keyboard Shortcuts ────╮
│                            │
│  Navigation                │
│  ──────────                │
│  j/↓     Move down         │
│  k/↑     Move up           │
│  h/l/Tab Switch board      │
│                            │
│  Actions                   │
│  ───────                   │
│  a       Add task          │
│  x/Enter Toggle done       │
│  d       Delete            │
│  r       React (partner)   │
│  v       View photo        │
│  s       Switch profile    │
│  c       Calendar view     │
│  R       Sync now          │
│                            │
│  Other                     │
│  ─────                     │
│  ?       Toggle help       │
│  q       Quit              │
│                            │
╰────────────────────────────╯

     Press any key to close
`
	return lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, help)
}

// untilMidnight formats the time left before the day closes.
func untilMidnight(now time.Time) string {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	left := midnight.Sub(now)
	hours := int(left.Hours())
	minutes := int(left.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
