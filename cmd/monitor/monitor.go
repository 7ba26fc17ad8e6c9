package monitor

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tphakala/ppewatch/internal/analysis"
	"github.com/tphakala/ppewatch/internal/buildinfo"
	"github.com/tphakala/ppewatch/internal/conf"
)

// Command creates the monitor command: evaluate a detection stream, store
// violations and dispatch notifications until the stream ends or a signal
// arrives.
func Command(build *buildinfo.Context) *cobra.Command {
	var (
		source   string
		location string
		camera   string
		workers  int
		stride   int
		strict   bool
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Evaluate a detection stream and dispatch violation notifications",
		Long: `Read detector frames as JSON lines, one frame per line, and evaluate every
person for helmet, vest and goggles.

Examples:
  # Read frames from stdin
  detector --json | ppewatch monitor

  # Replay a recorded stream at a named location
  ppewatch monitor --source frames.jsonl --location "Gate 1"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := conf.GetSettings()
			flags := cmd.Flags()
			if flags.Changed("source") {
				settings.Pipeline.Source = source
			}
			if flags.Changed("location") {
				settings.Pipeline.Location = location
			}
			if flags.Changed("camera") {
				settings.Pipeline.CameraID = camera
			}
			if flags.Changed("workers") {
				settings.Pipeline.Workers = workers
			}
			if flags.Changed("stride") {
				settings.Pipeline.FrameStride = stride
			}
			if strict {
				settings.Detection.Assignment = conf.AssignmentStrict
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			src, err := analysis.OpenSource(settings.Pipeline.Source)
			if err != nil {
				return err
			}

			svc, err := analysis.NewServices(settings)
			if err != nil {
				_ = src.Close()
				return err
			}
			defer svc.Close()

			return analysis.Monitor(ctx, svc, build, src)
		},
	}

	cmd.Flags().StringVar(&source, "source", "-", "JSON lines detection stream, \"-\" reads stdin")
	cmd.Flags().StringVar(&location, "location", "", "Location used when a frame carries none")
	cmd.Flags().StringVar(&camera, "camera", "", "Camera id used when a frame carries none")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent frame evaluators")
	cmd.Flags().IntVar(&stride, "stride", 0, "Evaluate every Nth frame")
	cmd.Flags().BoolVar(&strict, "strict", false, "Match each equipment detection to at most one person")

	return cmd
}
