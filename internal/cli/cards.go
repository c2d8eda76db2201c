package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rcliao/cardfolio/internal/model"
	"github.com/rcliao/cardfolio/internal/render"
)

func init() {
	cmd := &cobra.Command{
		Use:   "cards",
		Short: "List the project cards in the document",
		Run:   runCards,
	}

	RootCmd.AddCommand(cmd)
}

func runCards(cmd *cobra.Command, args []string) {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open", err)
	}
	defer a.Close()

	index := a.adapter.Index(a.doc.Blocks())
	cards := make([]model.ProjectCardData, 0, len(index))
	for _, d := range index {
		cards = append(cards, d)
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].UpdatedAt > cards[j].UpdatedAt })

	now := time.Now()
	if textOutput() {
		for _, d := range cards {
			p := render.NewPreview(d, now)
			fmt.Printf("%s  %-30s  %d blocks  updated %s\n", d.ID, d.Title, p.BlockCount, p.Age)
		}
		return
	}

	previews := make([]render.CardPreview, 0, len(cards))
	for _, d := range cards {
		previews = append(previews, render.NewPreview(d, now))
	}
	printJSON(previews)
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
