package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import an export file and save it",
		Long:  "Replace the document with the blocks of an export file (stdin when no file is given), then save.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var r io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open file", err)
		}
		defer f.Close()
		r = f
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	if err := a.ctl.Import(cmd.Context(), r); err != nil {
		exitErr("import", err)
	}
	snap, err := a.ctl.Save(cmd.Context())
	if err != nil {
		exitErr("save", err)
	}

	fmt.Printf(`{"ok":true,"id":%q,"blocks":%d}`+"\n", snap.ID, len(snap.Content.Blocks))
}
