package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/cardfolio/internal/render"
)

func init() {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Print the restored document",
		Run:   runLoad,
	}

	RootCmd.AddCommand(cmd)
}

func runLoad(cmd *cobra.Command, args []string) {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	content := a.ctl.Content()
	if textOutput() {
		fmt.Print(render.BlocksToMarkdown(content.Blocks))
		return
	}
	printJSON(content)
}
