package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var doneCmd = &cobra.Command{
	Use:   "done [task-id]",
	Short: "Toggle a task done",
	Long: `Toggle completion of one of your tasks on today's board.
Toggling a completed task back to open clears any reactions it earned.

Examples:
  ourday done abc12345`,
	Args: cobra.ExactArgs(1),
	RunE: runDone,
}

func runDone(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	acting := s.profile()
	task, err := s.findTask(acting, args[0])
	if err != nil {
		return err
	}

	task, err = s.ledger.ToggleTask(acting, acting, task.ID)
	if err != nil {
		return err
	}

	if err := s.save(); err != nil {
		return err
	}

	if task.Done {
		fmt.Printf("✓ Completed: \"%s\"\n", task.Text)
	} else {
		fmt.Printf("○ Reopened: \"%s\"\n", task.Text)
	}
	return nil
}
