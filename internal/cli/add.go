package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ourday-app/ourday/internal/ledger"
)

var addCmd = &cobra.Command{
	Use:   "add [text]",
	Short: "Add a task to today's board",
	Long: `Add a task for today. A day holds at most five tasks per person.

Examples:
  ourday add "Morning run"
  ourday add "Team standup" --at 09:30`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var addAt string

func init() {
	addCmd.Flags().StringVar(&addAt, "at", "", "Reminder time (HH:MM, alerts 10 minutes before)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	text := strings.Join(args, " ")
	task, err := s.ledger.AddTask(s.profile(), text, addAt)
	if errors.Is(err, ledger.ErrTaskCapReached) {
		return fmt.Errorf("today already has five tasks; finish or delete one first")
	}
	if errors.Is(err, ledger.ErrDayClosed) {
		return fmt.Errorf("today's board is closed")
	}
	if err != nil {
		return err
	}

	if err := s.save(); err != nil {
		return err
	}

	if task.ReminderTime != "" {
		fmt.Printf("✓ Added: \"%s\" at %s (%s)\n", task.Text, task.ReminderTime, shortID(task.ID))
	} else {
		fmt.Printf("✓ Added: \"%s\" (%s)\n", task.Text, shortID(task.ID))
	}
	return nil
}
