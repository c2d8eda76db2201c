package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save the document",
		Long:  "Save the current document. With --file, replace the document with the blocks of an export file first.",
		Run:   runSave,
	}

	cmd.Flags().String("file", "", "Blocks file to load before saving")

	RootCmd.AddCommand(cmd)
}

func runSave(cmd *cobra.Command, args []string) {
	file, _ := cmd.Flags().GetString("file")

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			exitErr("open file", err)
		}
		err = a.ctl.Import(cmd.Context(), f)
		f.Close()
		if err != nil {
			exitErr("read blocks", err)
		}
	}

	snap, err := a.ctl.Save(cmd.Context())
	if err != nil {
		exitErr("save", err)
	}

	if textOutput() {
		fmt.Printf("saved %s at %s (%d blocks, %d cards)\n",
			snap.ID, snap.SavedAt, len(snap.Content.Blocks), len(snap.Content.ProjectCards))
		return
	}
	fmt.Printf(`{"ok":true,"id":%q,"savedAt":%q}`+"\n", snap.ID, snap.SavedAt)
}
