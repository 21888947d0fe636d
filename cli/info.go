package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/raushankrgupta/fitly-client/screen"
	"github.com/spf13/cobra"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List pricing plans",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			ctrl := a.newScreen(screen.Options{})
			defer ctrl.Close()
			if err := ctrl.LoadPlans(cmd.Context()); err != nil {
				return err
			}

			plans := ctrl.Snapshot().Plans
			ids := make([]string, 0, len(plans))
			for id := range plans {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool {
				return plans[ids[i]].MonthlyPrice < plans[ids[j]].MonthlyPrice
			})

			out := cmd.OutOrStdout()
			for _, id := range ids {
				p := plans[id]
				limit := fmt.Sprintf("%d/day", p.DailyLimit)
				if p.Unlimited() {
					limit = "unlimited"
				}
				fmt.Fprintf(out, "%-10s %-14s $%7.2f/mo  %s\n", id, p.DisplayName, p.MonthlyPrice, limit)
				if len(p.Features) > 0 {
					fmt.Fprintf(out, "           %s\n", strings.Join(p.Features, ", "))
				}
			}
			return nil
		})
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the backend is up",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			status, err := a.client.Health(cmd.Context())
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(status, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		})
	},
}
