package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ourday-app/ourday/internal/config"
	"github.com/ourday-app/ourday/internal/logger"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Trigger a push dispatch pass",
	Long: `Ask the server to evaluate every stored push subscription and
send whatever reminders fall due right now. Meant for cron; each pass
is idempotent inside its five-minute window.

Examples:
  ourday dispatch
  */2 * * * *  ourday dispatch`,
	RunE: runDispatch,
}

func runDispatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		logger.Warn("Failed to load config, using defaults", logger.F("error", err))
		cfg = config.DefaultConfig()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.ServerURL+"/api/push/dispatch", nil)
	if err != nil {
		return err
	}
	if cfg.DispatchSecret != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.DispatchSecret)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("dispatch failed (%d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Sent                int `json:"sent"`
		Removed             int `json:"removed"`
		ActiveSubscriptions int `json:"activeSubscriptions"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to decode dispatch result: %w", err)
	}

	fmt.Printf("Dispatch done: %d sent, %d retired, %d active subscriptions\n",
		result.Sent, result.Removed, result.ActiveSubscriptions)
	return nil
}
