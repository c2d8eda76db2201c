package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Dump stored snapshots as JSON",
		Long:  "Dump the latest revision of every stored snapshot as a JSON array. Restore it with the restore command.",
		Run:   runBackup,
	}

	RootCmd.AddCommand(cmd)
}

func runBackup(cmd *cobra.Command, args []string) {
	s, _, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	snaps, err := s.ExportAll(cmd.Context())
	if err != nil {
		exitErr("backup", err)
	}
	printJSON(snaps)
}
