package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ourday-app/ourday/internal/model"
)

var streakCmd = &cobra.Command{
	Use:   "streak",
	Short: "Show completion streaks",
	Long: `Show both people's current streaks. A day counts toward a streak
when it closed with every task completed; an empty day breaks it.`,
	RunE: runStreak,
}

func runStreak(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	acting := s.profile()
	dateKey := s.ledger.CurrentDateKey()

	for _, identity := range []model.UserID{acting, acting.Partner()} {
		label := identity.DisplayName()
		if identity == acting {
			label += " (you)"
		}
		streak := s.ledger.CurrentStreak(identity)
		week := s.ledger.WeekDoneCount(identity, dateKey, true)
		fmt.Printf("%s: %d day streak, %d done this week\n", label, streak, week)
	}
	return nil
}
