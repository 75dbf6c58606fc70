package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete [task-id]",
	Aliases: []string{"rm"},
	Short:   "Delete a task",
	Long: `Delete one of your tasks from today's board. The slot frees up
for a new task; the deletion itself cannot be undone.

Examples:
  ourday delete abc12345
  ourday rm abc12345`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
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

	if err := s.ledger.DeleteTask(acting, acting, task.ID); err != nil {
		return err
	}

	if err := s.save(); err != nil {
		return err
	}

	fmt.Printf("Deleted: \"%s\"\n", task.Text)
	return nil
}
