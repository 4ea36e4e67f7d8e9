package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"cryptid-vote-backend/models"
	"cryptid-vote-backend/state"

	"github.com/spf13/cobra"
)

func catalogCommand(a *app) *cobra.Command {
	var byTier bool
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List every cryptid with its tier and current votes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl := state.NewController(a.gateway(), a.log)
			if err := ctrl.Start(cmd.Context()); err != nil {
				a.log.Warn("partial data", "error", err)
			}
			snap := ctrl.Snapshot()
			if len(snap.Cryptids) == 0 {
				fmt.Fprintln(a.out, "No cryptids found")
				return nil
			}

			cryptids := snap.Cryptids
			if byTier {
				sort.SliceStable(cryptids, func(i, j int) bool {
					return cryptids[i].Tier.Rank() < cryptids[j].Tier.Rank()
				})
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTIER\tRESEARCH\tVOTES")
			for _, c := range cryptids {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%d\n", c.ID, c.Name, c.Tier.Label(), c.ResearchCompletion, snap.Tally.Count(c.ID))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&byTier, "by-tier", false, "order by tier, rarest first")
	return cmd
}

func votingCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "voting",
		Short: "Show the active voting event and its tally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl := state.NewController(a.gateway(), a.log)
			if err := ctrl.Start(cmd.Context()); err != nil {
				a.log.Warn("partial data", "error", err)
			}
			snap := ctrl.Snapshot()
			if snap.ActiveEvent == nil {
				fmt.Fprintln(a.out, "No active voting event")
				return nil
			}
			printEvent(a, snap)
			return nil
		},
	}
}

func printEvent(a *app, snap state.Snapshot) {
	e := snap.ActiveEvent
	fmt.Fprintf(a.out, "%s (%s)\n", e.Name, e.ID)
	if e.Description != nil && *e.Description != "" {
		fmt.Fprintln(a.out, *e.Description)
	}
	fmt.Fprintf(a.out, "Open %s until %s\n\n", e.StartTime.UTC().Format("2006-01-02 15:04 MST"), e.EndTime.UTC().Format("2006-01-02 15:04 MST"))

	names := make(map[string]string, len(snap.Cryptids))
	for _, c := range snap.Cryptids {
		names[c.ID] = c.Name
	}
	type row struct {
		id    string
		count int64
	}
	rows := make([]row, 0, len(snap.Tally))
	for id, n := range snap.Tally {
		rows = append(rows, row{id, n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].id < rows[j].id
	})

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CRYPTID\tVOTES")
	for _, r := range rows {
		name := names[r.id]
		if name == "" {
			name = r.id
		}
		fmt.Fprintf(tw, "%s\t%d\n", name, r.count)
	}
	fmt.Fprintf(tw, "TOTAL\t%d\n", snap.Tally.Total())
	_ = tw.Flush()
}

// findCryptid looks a card up by id or case-sensitive name
func findCryptid(cryptids []models.Cryptid, key string) (models.Cryptid, bool) {
	for _, c := range cryptids {
		if c.ID == key || c.Name == key {
			return c, true
		}
	}
	return models.Cryptid{}, false
}
