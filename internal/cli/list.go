package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/cardfolio/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		Long:  "List the latest revision of every snapshot held by the SQLite repository.",
		Run:   runList,
	}

	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().Bool("ids-only", false, "Only output snapshot ids")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	s, _, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	revs, err := s.List(cmd.Context(), store.ListParams{Limit: limit})
	if err != nil {
		exitErr("list", err)
	}

	if idsOnly {
		for _, r := range revs {
			fmt.Println(r.ID)
		}
		return
	}
	if textOutput() {
		for _, r := range revs {
			fmt.Printf("%s  v%d  %d cards  %s  saved %s\n", r.ID, r.Version, r.Cards, humanizeBytes(int64(r.Bytes)), formatAge(r.CreatedAt))
		}
		return
	}
	printJSON(revs)
}
