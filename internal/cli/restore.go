package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/cardfolio/internal/model"
	"github.com/rcliao/cardfolio/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Load snapshots from a backup",
		Long:  "Load snapshots from JSON on stdin. Expects the format produced by backup.",
		Run:   runRestore,
	}

	RootCmd.AddCommand(cmd)
}

func runRestore(cmd *cobra.Command, args []string) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}

	var snaps []model.SavedContent
	if err := json.Unmarshal(data, &snaps); err != nil {
		exitErr("parse json", err)
	}

	s, _, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	restored, err := store.Import(cmd.Context(), s, snaps)
	if err != nil {
		exitErr("restore", err)
	}

	fmt.Printf(`{"ok":true,"restored":%d}`+"\n", restored)
}
