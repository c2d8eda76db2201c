package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/cardfolio/internal/render"
)

func init() {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the portfolio as HTML or markdown",
		Run:   runRender,
	}

	cmd.Flags().StringP("output", "o", "-", "Output file, - for stdout")
	cmd.Flags().Bool("markdown", false, "Write markdown instead of HTML")

	RootCmd.AddCommand(cmd)
}

func runRender(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("output")
	markdown, _ := cmd.Flags().GetBool("markdown")

	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	content := a.ctl.Content()
	var buf bytes.Buffer
	if markdown {
		buf.WriteString(render.BlocksToMarkdown(content.Blocks))
	} else {
		r, err := render.New()
		if err != nil {
			exitErr("renderer", err)
		}
		if err := r.Portfolio(&buf, a.cfg.Title, content); err != nil {
			exitErr("render", err)
		}
	}

	if out == "-" {
		os.Stdout.Write(buf.Bytes())
		return
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		exitErr("write", err)
	}
	fmt.Printf(`{"ok":true,"file":%q,"bytes":%d}`+"\n", out, buf.Len())
}
