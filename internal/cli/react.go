package cli

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ourday-app/ourday/internal/model"
)

var reactCmd = &cobra.Command{
	Use:   "react [task-id]",
	Short: "React to your partner's completed task",
	Long: `Send a short message, a photo, or both to a task your partner
completed today. Sending again replaces what you sent before; a photo
disappears after your partner views it once.

Examples:
  ourday react abc12345 -m "So proud of you!"
  ourday react abc12345 --photo celebration.jpg
  ourday react abc12345 -m "🎉" --photo cake.png`,
	Args: cobra.ExactArgs(1),
	RunE: runReact,
}

var (
	reactMessage string
	reactPhoto   string
)

func init() {
	reactCmd.Flags().StringVarP(&reactMessage, "message", "m", "", "Reaction message (up to 120 characters)")
	reactCmd.Flags().StringVar(&reactPhoto, "photo", "", "Path to an image to attach")
}

func runReact(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	acting := s.profile()
	owner := acting.Partner()

	task, err := s.findTask(owner, args[0])
	if err != nil {
		return err
	}

	var image *model.ReactionImage
	if reactPhoto != "" {
		image, err = loadReactionImage(reactPhoto)
		if err != nil {
			return err
		}
	}

	if err := s.ledger.SendReaction(acting, owner, task.ID, reactMessage, image); err != nil {
		return err
	}

	if err := s.save(); err != nil {
		return err
	}

	fmt.Printf("♥ Reaction sent for \"%s\"\n", task.Text)
	return nil
}

// loadReactionImage inlines a local image file as a data URL, the way
// reactions travel inside the shared document.
func loadReactionImage(path string) (*model.ReactionImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}

	mime := "image/jpeg"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		mime = "image/png"
	case ".gif":
		mime = "image/gif"
	case ".webp":
		mime = "image/webp"
	}

	return &model.ReactionImage{
		DataURL:  "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data),
		MimeType: mime,
	}, nil
}
