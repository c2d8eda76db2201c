package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the document as JSON",
		Long:  "Write an export file with the blocks, the card index and the export time. Use -o - for stdout.",
		Run:   runExport,
	}

	cmd.Flags().StringP("output", "o", "", "Output file (default: portfolio-export-<millis>.json)")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("output")

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	name, data, err := a.ctl.Export(cmd.Context())
	if err != nil {
		exitErr("export", err)
	}

	if out == "-" {
		os.Stdout.Write(append(data, '\n'))
		return
	}
	if out == "" {
		out = name
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		exitErr("write export", err)
	}
	fmt.Printf(`{"ok":true,"file":%q,"bytes":%d}`+"\n", out, len(data))
}
