package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, cfg, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), cfg.DBPath)
	if err != nil {
		exitErr("stats", err)
	}

	if textOutput() {
		fmt.Printf("database   %s (%s)\n", stats.DBPath, humanize.Bytes(uint64(stats.DBSizeBytes)))
		fmt.Printf("revisions  %s total, %s live\n", humanize.Comma(int64(stats.TotalRevisions)), humanize.Comma(int64(stats.LiveRevisions)))
		fmt.Printf("cards      %s\n", humanize.Comma(int64(stats.TotalCards)))
		fmt.Printf("local keys %d\n", stats.LocalKeys)
		for _, snap := range stats.Snapshots {
			fmt.Printf("  %s  %d versions  %s\n", snap.ID, snap.Versions, humanizeBytes(snap.Bytes))
		}
		return
	}
	printJSON(stats)
}

func humanizeBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
