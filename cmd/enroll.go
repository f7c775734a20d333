package cmd

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/smart-presence/internal/config"
	"github.com/kozaktomas/smart-presence/internal/enroll"
	"github.com/kozaktomas/smart-presence/internal/frame"
	"github.com/kozaktomas/smart-presence/internal/store"
	"github.com/kozaktomas/smart-presence/internal/vision"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Build reference vectors from student photos",
	Long: `Enroll students from a directory of photos laid out as
people/<student name>/<photo>.jpg. Each photo must contain exactly one
face; its feature vector becomes a reference for recognition. Run the
restart control endpoint (or restart the service) afterwards so the
engine picks up the new vectors.`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("people", "", "Photo directory (overrides PEOPLE_DIR)")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dir := mustGetString(cmd, "people")
	if dir == "" {
		dir = cfg.Enroll.PeopleDir
	}

	ctx := context.Background()

	st, err := store.Open(ctx, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	remote := vision.NewRemoteClient(
		cfg.Vision.ServiceURL,
		time.Duration(cfg.Vision.TimeoutSec)*time.Second,
		func(img *image.RGBA) ([]byte, error) { return frame.EncodeJPEG(img) },
	)

	photos, err := enroll.ListPhotos(dir)
	if err != nil {
		return err
	}
	total := enroll.CountPhotos(photos)
	if total == 0 {
		return fmt.Errorf("no photos found under %s", dir)
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Encoding faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	enroller := enroll.New(st, remote, remote, logger)
	enroller.Progress = func() { _ = bar.Add(1) }

	res, err := enroller.Run(ctx, photos)
	if err != nil {
		return err
	}

	fmt.Printf("\nEnrolled %d students from %d photos (%d skipped)\n",
		res.Students, res.Photos, res.Skipped)
	return nil
}
