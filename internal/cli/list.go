package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ourday-app/ourday/internal/ledger"
	"github.com/ourday-app/ourday/internal/model"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Show today's board",
	Long: `Show today's board for both people: timed tasks first in time
order, then the rest.

Examples:
  ourday list
  ourday list --date 2026-08-27`,
	RunE: runList,
}

var listDate string

func init() {
	listCmd.Flags().StringVar(&listDate, "date", "", "Show a past day (YYYY-MM-DD)")
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	dateKey := s.ledger.CurrentDateKey()
	if listDate != "" {
		if !model.ValidDateKey(listDate) {
			return fmt.Errorf("invalid date: %s (want YYYY-MM-DD)", listDate)
		}
		dateKey = listDate
	}

	day := s.ledger.Day(dateKey)
	if day == nil {
		fmt.Printf("No board for %s.\n", dateKey)
		return nil
	}

	status := "open"
	if day.Closed {
		status = "closed"
	}
	fmt.Printf("\n%s (%s)\n", dateKey, status)

	acting := s.profile()
	for _, identity := range []model.UserID{acting, acting.Partner()} {
		printUserDay(day, identity, identity == acting)
	}
	return nil
}

func printUserDay(day *model.DayRecord, identity model.UserID, acting bool) {
	tasks := ledger.OrderedTasks(day.Users[identity].Tasks)
	label := identity.DisplayName()
	if acting {
		label += " (you)"
	}

	fmt.Printf("\n%s  %d/%d done\n", label, ledger.CountDone(day, identity), len(tasks))
	fmt.Println(strings.Repeat("─", 60))

	if len(tasks) == 0 {
		fmt.Println("  (no tasks yet)")
		return
	}

	for _, task := range tasks {
		printTask(task, day.DateKey)
	}
}

func printTask(task *model.Task, dateKey string) {
	icon := "[ ]"
	if task.Done {
		icon = "[x]"
	}

	at := "     "
	if task.ReminderTime != "" {
		at = task.ReminderTime
	}

	line := fmt.Sprintf("  %s  %s  %s  %s", icon, shortID(task.ID), at, task.Text)
	if ledger.WasTaskDoneOnTime(task, dateKey) {
		line += "  (on time)"
	}

	if notes := reactionNotes(task); len(notes) > 0 {
		line += "  ← " + strings.Join(notes, ", ")
	}

	fmt.Println(line)
}

// reactionNotes renders a task's reactions in identity order, so the
// board prints the same way every run.
func reactionNotes(task *model.Task) []string {
	var notes []string
	for _, id := range model.Users {
		entry := task.Reactions[id]
		if entry == nil {
			continue
		}
		if entry.Message != "" {
			notes = append(notes, fmt.Sprintf("%q", entry.Message))
		}
		if entry.Image != nil {
			notes = append(notes, "photo")
		}
	}
	return notes
}
