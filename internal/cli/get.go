package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Retrieve a stored snapshot",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	cmd.Flags().IntP("version", "v", 0, "Specific version number (default: latest)")

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	version, _ := cmd.Flags().GetInt("version")

	s, _, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	snap, err := s.GetVersion(cmd.Context(), args[0], version)
	if err != nil {
		exitErr("get", err)
	}
	printJSON(snap)
}
