package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/gregtusar/armadex/internal/config"
	"github.com/gregtusar/armadex/pkg/clock"
	"github.com/gregtusar/armadex/pkg/format"
	"github.com/gregtusar/armadex/pkg/models"
	"github.com/gregtusar/armadex/pkg/orderbook"
	"github.com/gregtusar/armadex/pkg/tape"
	"github.com/spf13/cobra"
)

func newBookCmd() *cobra.Command {
	var market string

	cmd := &cobra.Command{
		Use:   "book",
		Short: "Print one simulated order book snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closeLog := setup()
			defer closeLog()

			m, err := resolveMarket(cfg, market)
			if err != nil {
				return err
			}

			clk := clock.NewManual(time.Now())
			sim := orderbook.NewSimulator(m, cfg.Simulation.OrderBook, cfg.Assets.Table(), newRandom(cfg.Simulation.Seed), clk, logger)
			sim.Tick()
			snap, _ := sim.Snapshot()

			return printBook(cmd.OutOrStdout(), snap)
		},
	}
	cmd.Flags().StringVar(&market, "market", "", "market to simulate (default is simulation.default_market)")
	return cmd
}

func newTapeCmd() *cobra.Command {
	var (
		market string
		ticks  int
	)

	cmd := &cobra.Command{
		Use:   "tape",
		Short: "Print the simulated trade tape after a number of ticks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, closeLog := setup()
			defer closeLog()

			m, err := resolveMarket(cfg, market)
			if err != nil {
				return err
			}
			if ticks < 0 {
				return fmt.Errorf("ticks must not be negative, got %d", ticks)
			}

			clk := clock.NewManual(time.Now())
			tp := tape.New(m, cfg.Simulation.Tape, cfg.Assets.Table(), newRandom(cfg.Simulation.Seed), clk, logger)
			tp.Start()
			for i := 0; i < ticks; i++ {
				clk.Advance(cfg.Simulation.Tape.Interval)
			}
			tp.Stop()

			return printTrades(cmd.OutOrStdout(), m, tp.Trades())
		},
	}
	cmd.Flags().StringVar(&market, "market", "", "market to simulate (default is simulation.default_market)")
	cmd.Flags().IntVar(&ticks, "ticks", 10, "number of simulated ticks")
	return cmd
}

func resolveMarket(cfg *config.Config, flag string) (models.Market, error) {
	if flag == "" {
		return cfg.Simulation.DefaultMarket, nil
	}
	return models.ParseMarket(flag)
}

func printBook(out io.Writer, snap models.OrderBookSnapshot) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "PRICE (%s)\tAMOUNT (%s)\tSUM\t\n", snap.Market.Quote(), snap.Market.Base())

	// asks print highest first so the spread sits in the middle
	for i := len(snap.Asks) - 1; i >= 0; i-- {
		e := snap.Asks[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t\n", format.Price(snap.Market, e.Price), format.Amount(e.Amount), format.Fixed(e.Notional(), 2))
	}
	fmt.Fprintf(w, "%s\tspread %s\t%s\t\n",
		format.Price(snap.Market, snap.LastPrice),
		format.Price(snap.Market, snap.Spread),
		format.Percent(snap.SpreadPercent))
	for _, e := range snap.Bids {
		fmt.Fprintf(w, "%s\t%s\t%s\t\n", format.Price(snap.Market, e.Price), format.Amount(e.Amount), format.Fixed(e.Notional(), 2))
	}
	return w.Flush()
}

func printTrades(out io.Writer, market models.Market, trades []models.Trade) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSIDE\tPRICE\tAMOUNT\t")
	for _, t := range trades {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
			format.Clock(t.Timestamp, time.Local),
			t.Side,
			format.Price(market, t.Price),
			format.Amount(t.Amount))
	}
	return w.Flush()
}
