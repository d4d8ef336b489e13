package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"

	"github.com/eric8810/authy/internal/authresolver"
	"github.com/eric8810/authy/internal/client"
)

var tuiCmd = &cobra.Command{
	Use:     "tui",
	GroupID: "observability",
	Short:   "Browse secret names and metadata in an interactive dashboard",
	Long: `Tui is a read-only dashboard: a list of secret names on the left,
and the selected secret's metadata (version, tags, timestamps — never
its value) on the right. Press q or Ctrl-C to quit.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	paths, err := vaultPaths()
	if err != nil {
		return err
	}
	key, ctx, err := authresolver.Resolve(paths, false, authresolver.PromptHidden)
	if err != nil {
		return err
	}
	c, err := client.FromContext(paths, key, ctx)
	if err != nil {
		return err
	}

	names, err := c.List("")
	if err != nil {
		return err
	}

	app := tview.NewApplication()
	defer recoverTerminal()

	list := tview.NewList().ShowSecondaryText(false)
	for _, name := range names {
		list.AddItem(name, "", 0, nil)
	}

	detail := tview.NewTextView().SetDynamicColors(true)
	detail.SetBorder(true).SetTitle(" metadata ")
	list.SetBorder(true).SetTitle(" secrets ")

	refresh := func(name string) {
		meta, found, err := c.Describe(name)
		if err != nil {
			detail.SetText(fmt.Sprintf("[red]error: %v", err))
			return
		}
		if !found {
			detail.SetText("[gray]no metadata")
			return
		}
		desc := "(none)"
		if meta.Description != nil {
			desc = *meta.Description
		}
		tags := "(none)"
		if len(meta.Tags) > 0 {
			tags = strings.Join(meta.Tags, ", ")
		}
		detail.SetText(fmt.Sprintf(
			"name:        %s\nversion:     %d\ndescription: %s\ntags:        %s\ncreated:     %s\nmodified:    %s",
			name, meta.Version, desc, tags,
			meta.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			meta.ModifiedAt.Format("2006-01-02T15:04:05Z07:00"),
		))
	}

	list.SetChangedFunc(func(i int, name string, secondary string, shortcut rune) {
		refresh(name)
	})
	if len(names) > 0 {
		refresh(names[0])
	}

	flex := tview.NewFlex().
		AddItem(list, 0, 1, true).
		AddItem(detail, 0, 2, false)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Rune() == 'q' {
			app.Stop()
			return nil
		}
		return event
	})

	return app.SetRoot(flex, true).EnableMouse(true).Run()
}

// recoverTerminal attempts to restore the terminal if the dashboard
// panics, so a crash doesn't leave the shell in raw mode.
func recoverTerminal() {
	if r := recover(); r != nil {
		if screen, err := tcell.NewScreen(); err == nil {
			screen.Fini()
		}
		fmt.Fprintf(os.Stderr, "tui panic: %v\n", r)
		os.Exit(1)
	}
}
