package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/quarks/internal/report"
	"github.com/rustyeddy/quarks/market"
	"github.com/spf13/cobra"
)

var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "Follow symbols without holding them",
	Long: `Keep named lists of symbols and see how each moved since it was added.

Subcommands:
  create - Start an empty watchlist
  add    - Follow a symbol at its current price
  remove - Stop following a symbol
  list   - List watchlists
  show   - Show symbols with their change since added
  delete - Remove a watchlist

Examples:
  quarks watchlist create tech
  quarks watchlist add 1 MSFT --notes "earnings in April"
  quarks watchlist show 1 --date 2024-03-28`,
}

var watchlistCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Start an empty watchlist",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatchlistCreate,
}

var watchlistAddCmd = &cobra.Command{
	Use:   "add <id> <symbol>",
	Short: "Follow a symbol",
	Args:  cobra.ExactArgs(2),
	RunE:  runWatchlistAdd,
}

var watchlistRemoveCmd = &cobra.Command{
	Use:   "remove <id> <symbol>",
	Short: "Stop following a symbol",
	Args:  cobra.ExactArgs(2),
	RunE:  runWatchlistRemove,
}

var watchlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List watchlists",
	Args:  cobra.NoArgs,
	RunE:  runWatchlistList,
}

var watchlistShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a watchlist",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatchlistShow,
}

var watchlistDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a watchlist",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatchlistDelete,
}

var (
	watchNotes    string
	watchPrice    float64
	watchAddDate  string
	watchShowDate string
)

func init() {
	rootCmd.AddCommand(watchlistCmd)
	watchlistCmd.AddCommand(watchlistCreateCmd, watchlistAddCmd, watchlistRemoveCmd,
		watchlistListCmd, watchlistShowCmd, watchlistDeleteCmd)

	watchlistAddCmd.Flags().StringVar(&watchNotes, "notes", "", "note kept with the symbol")
	watchlistAddCmd.Flags().Float64Var(&watchPrice, "price", 0, "price to record instead of looking it up")
	watchlistAddCmd.Flags().StringVar(&watchAddDate, "date", "", "price at the close on or before YYYY-MM-DD")
	watchlistShowCmd.Flags().StringVar(&watchShowDate, "date", "", "value at the close on or before YYYY-MM-DD")
}

func runWatchlistCreate(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	id, err := j.CreateWatchlist(cmd.Context(), cfg.Account.UserID, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Created watchlist %d: %s\n", id, args[0])
	return nil
}

func runWatchlistAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := watchlistID(args[0])
	if err != nil {
		return err
	}
	symbol := strings.ToUpper(args[1])

	price := watchPrice
	if price <= 0 {
		if price, err = lookupPrice(ctx, symbol, watchAddDate); err != nil {
			return fmt.Errorf("price %s: %w (pass --price to record one)", symbol, err)
		}
	}

	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	if err := j.AddToWatchlist(ctx, cfg.Account.UserID, id, symbol, price, watchNotes); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Added %s to watchlist %d at %.2f\n", symbol, id, price)
	return nil
}

func runWatchlistRemove(cmd *cobra.Command, args []string) error {
	id, err := watchlistID(args[0])
	if err != nil {
		return err
	}
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	symbol := strings.ToUpper(args[1])
	if err := j.RemoveFromWatchlist(cmd.Context(), cfg.Account.UserID, id, symbol); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %s from watchlist %d\n", symbol, id)
	return nil
}

func runWatchlistList(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	lists, err := j.ListWatchlists(cmd.Context(), cfg.Account.UserID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(lists) == 0 {
		fmt.Fprintln(out, "No watchlists.")
		return nil
	}
	fmt.Fprintf(out, "%-4s  %-24s  %s\n", "ID", "NAME", "CREATED")
	for _, w := range lists {
		fmt.Fprintf(out, "%-4d  %-24s  %s\n", w.ID, w.Name, w.Created.Format(time.DateOnly))
	}
	return nil
}

func runWatchlistShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := watchlistID(args[0])
	if err != nil {
		return err
	}
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	wl, err := j.GetWatchlist(ctx, cfg.Account.UserID, id)
	if err != nil {
		return err
	}
	report.PrintWatchlist(cmd.OutOrStdout(), wl, func(symbol string) (float64, bool) {
		px, err := lookupPrice(ctx, symbol, watchShowDate)
		return px, err == nil
	})
	return nil
}

func runWatchlistDelete(cmd *cobra.Command, args []string) error {
	id, err := watchlistID(args[0])
	if err != nil {
		return err
	}
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	if err := j.DeleteWatchlist(cmd.Context(), cfg.Account.UserID, id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted watchlist %d\n", id)
	return nil
}

func watchlistID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("watchlist id: %w", err)
	}
	return id, nil
}

// lookupPrice prices symbol at the close on or before date. Without a
// date the live quote is tried first, then the latest close.
func lookupPrice(ctx context.Context, symbol, date string) (float64, error) {
	provider, quoter, err := openProvider()
	if err != nil {
		return 0, err
	}
	asOf := time.Now()
	if date != "" {
		if asOf, err = market.ParseDate(date); err != nil {
			return 0, fmt.Errorf("date: %w", err)
		}
	} else if quoter != nil {
		if px, err := quoter.Quote(ctx, symbol); err == nil {
			return px, nil
		}
	}
	return market.LatestClose(ctx, provider, symbol, asOf, 14)
}
