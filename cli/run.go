package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/raushankrgupta/fitly-client/config"
	"github.com/raushankrgupta/fitly-client/models"
	"github.com/raushankrgupta/fitly-client/screen"
	"github.com/raushankrgupta/fitly-client/utils"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	qualityFlag string
	outFlag     string
	autoFlag    bool
	jsonFlag    bool
)

var runCmd = &cobra.Command{
	Use:   "run <person> <garment>",
	Short: "Try a garment on a person photo",
	Long: `Run selects the two images, submits them and prints the result.

With --auto the submit is triggered by the screen's own timer once both
images are selected (AUTO_SUBMIT_DELAY), the same way the kiosk screen does.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			return runTryOn(cmd.Context(), cmd.OutOrStdout(), a, args[0], args[1])
		})
	},
}

func init() {
	runCmd.Flags().StringVarP(&qualityFlag, "quality", "q", "", "Quality tier sent to the backend (default from TRYON_QUALITY)")
	runCmd.Flags().StringVarP(&outFlag, "out", "o", "", "Write the result image to this path")
	runCmd.Flags().BoolVar(&autoFlag, "auto", false, "Let the auto-submit timer trigger the try-on")
	runCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the final screen state as JSON")
}

type autoOutcome struct {
	result *models.TryOnResult
	err    error
}

func runTryOn(ctx context.Context, out io.Writer, a *app, personSrc, garmentSrc string) error {
	auto := autoFlag || config.AutoSubmit
	outcomes := make(chan autoOutcome, 1)
	ctrl := a.newScreen(screen.Options{
		AutoSubmit: auto,
		OnAutoSubmit: func(r *models.TryOnResult, err error) {
			select {
			case outcomes <- autoOutcome{r, err}:
			default:
			}
		},
	})
	defer ctrl.Close()
	if qualityFlag != "" {
		ctrl.SetQuality(qualityFlag)
	}

	// an unreachable backend here is not fatal; the try-on may still go through anonymously
	if err := ctrl.Restore(ctx); err != nil {
		log.Warn().Err(err).Msg("Could not restore session, continuing without it")
	} else if ctrl.Snapshot().Session != nil {
		if err := ctrl.LoadPlans(ctx); err != nil {
			log.Warn().Err(err).Msg("Could not load plans")
		}
	}

	if _, err := ctrl.SelectImage(ctx, models.SlotPerson, personSrc); err != nil {
		return fmt.Errorf("person image: %w", err)
	}
	if _, err := ctrl.SelectImage(ctx, models.SlotGarment, garmentSrc); err != nil {
		return fmt.Errorf("garment image: %w", err)
	}

	var result *models.TryOnResult
	var err error
	if auto {
		fmt.Fprintf(out, "Submitting in %s...\n", config.AutoSubmitDelay)
		select {
		case o := <-outcomes:
			result, err = o.result, o.err
		case <-ctx.Done():
			return ctx.Err()
		}
	} else {
		result, err = ctrl.Submit(ctx)
	}
	if err != nil {
		return err
	}

	if jsonFlag {
		b, err := json.MarshalIndent(ctrl.Snapshot(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
	}
	return reportResult(ctx, out, ctrl.Snapshot(), result)
}

func reportResult(ctx context.Context, out io.Writer, state screen.State, result *models.TryOnResult) error {
	if !result.Success {
		return errors.New(result.ErrorMessage)
	}

	fmt.Fprintf(out, "Try-on finished in %.1fs (cost %.2f)\n", result.ProcessingTime, result.Cost)
	if state.RemainingUsage != nil {
		fmt.Fprintf(out, "Remaining today: %d\n", *state.RemainingUsage)
	}

	if outFlag == "" {
		if !jsonFlag {
			fmt.Fprintln(out, "Use --out to save the result image")
		}
		return nil
	}
	path, err := utils.SaveResultImage(ctx, utils.DefaultHTTPClient, result.ResultImage, outFlag)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	fmt.Fprintf(out, "Saved result to %s\n", path)
	return nil
}
