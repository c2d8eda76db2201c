package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "Show the revisions of a snapshot",
		Long:  "Show every stored revision of a snapshot, newest first. Defaults to the current session's snapshot.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runHistory,
	}

	RootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	id := a.ctl.SessionID()
	if len(args) == 1 {
		id = args[0]
	}
	if id == "" {
		exitErr("history", fmt.Errorf("no saved session; pass a snapshot id"))
	}

	revs, err := a.db.History(cmd.Context(), id)
	if err != nil {
		exitErr("history", err)
	}

	if textOutput() {
		for _, r := range revs {
			fmt.Printf("v%-3d %s  %s  %d cards  %s\n", r.Version, r.RevID, r.SavedAt, r.Cards, humanizeBytes(int64(r.Bytes)))
		}
		return
	}
	printJSON(revs)
}
