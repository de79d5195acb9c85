package cli

import (
	"fmt"
	"text/tabwriter"

	"cardvault-api/internal/app"
	"cardvault-api/internal/model"
	"cardvault-api/internal/repository"

	"github.com/spf13/cobra"
)

func newSweepCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-trades",
		Short: "Expire pending trade requests past their deadline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app.App) error {
				n, err := a.Service.ExpireTrades(cmd.Context())
				if err != nil {
					return err
				}
				if opts.wantJSON() {
					return writeJSON(cmd.OutOrStdout(), map[string]int{"expired": n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "expired %d trade request(s)\n", n)
				return nil
			})
		},
	}
}

func newGrantCommand(opts *RootOptions) *cobra.Command {
	var userID string
	var credits int

	cmd := &cobra.Command{
		Use:   "grant-bonus",
		Short: "Grant bonus draw credits to a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app.App) error {
				total, err := a.Service.GrantBonusDraws(cmd.Context(), userID, credits)
				if err != nil {
					return err
				}
				if opts.wantJSON() {
					return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
						"user_id":       userID,
						"bonus_credits": total,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s now has %d bonus credit(s)\n", userID, total)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id (required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().IntVar(&credits, "credits", 1, "credits to grant")

	return cmd
}

func newBoardCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "List public board offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app.App) error {
				offers, err := a.Service.ListBoard(cmd.Context())
				if err != nil {
					return err
				}
				if opts.wantJSON() {
					return writeJSON(cmd.OutOrStdout(), offers)
				}
				if len(offers) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "board is empty")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tOWNER\tITEM\tCOMMENT")
				for _, o := range offers {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", o.ID, o.OwnerName, o.Item, o.Comment)
				}
				return tw.Flush()
			})
		},
	}
}

func newDiscoveriesCommand(opts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "discoveries",
		Short: "List first discoveries in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app.App) error {
				list, err := a.Service.GetDiscoveries(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if opts.wantJSON() {
					return writeJSON(cmd.OutOrStdout(), list)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "#\tITEM\tDISCOVERER\tWHEN")
				for _, d := range list {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", d.Index, d.Item, d.DiscovererName, d.Timestamp.Format("2006-01-02 15:04"))
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of records (0 for all)")

	return cmd
}

func newStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show economy totals and table sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app.App) error {
				return runStats(cmd, opts, a)
			})
		},
	}
}

func runStats(cmd *cobra.Command, opts *RootOptions, a *app.App) error {
	st, err := a.Service.GetEconomyStats(cmd.Context())
	if err != nil {
		return err
	}
	if opts.wantJSON() {
		return writeJSON(cmd.OutOrStdout(), st)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "catalog items:        %d\n", st.CatalogSize)
	fmt.Fprintf(out, "owners:               %d\n", st.Owners)
	fmt.Fprintf(out, "items in circulation: %d\n", st.ItemsInCirculation)
	fmt.Fprintf(out, "items in vaults:      %d\n", st.ItemsInVaults)
	fmt.Fprintf(out, "board offers:         %d\n", st.BoardOffers)
	fmt.Fprintf(out, "discoveries:          %d\n", st.Discoveries)
	for _, status := range []model.TradeStatus{model.TradePending, model.TradeAccepted, model.TradeDeclined, model.TradeCancelled, model.TradeExpired} {
		fmt.Fprintf(out, "trades %-13s %d\n", string(status)+":", st.Trades[string(status)])
	}

	if counts, ok := st.Store["rows"].(map[string]int64); ok {
		fmt.Fprintln(out, "tables:")
		for _, name := range repository.SortedTableNames(counts) {
			fmt.Fprintf(out, "  %-12s %d\n", name, counts[name])
		}
	}
	return nil
}
