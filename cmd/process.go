// Copyright (c) 2025 GridRows
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"atomicgo.dev/cursor"
	"github.com/spf13/cobra"

	"gridrows/internal/api"
	"gridrows/internal/client"
	gerrors "gridrows/internal/errors"
	"gridrows/internal/grid"
	"gridrows/internal/httperrors"
	"gridrows/internal/selection"
)

var (
	processAction      string
	processRows        []string
	processWhere       string
	processArgs        []string
	processItems       []string
	processReturn      []string
	processRefreshGrid bool
	processRefreshSel  bool
	processRemoveSel   bool
	processShowEmpty   bool
	processEmptyMsg    string
	processNoSubst     bool
	processNoEscape    bool
	processDismiss     time.Duration
)

// processCmd dispatches one action against the server. Rows given with --row
// form the selection; --where switches to filtered mode and sends the
// predicate instead.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run an action against selected or filtered rows",
	Long: `The process command sends one processing request to the gridrows server.

Selection mode targets the rows named with --row; each value is one
identifier tuple, with composite keys joined by ':' (for example
--row 1001 or --row "1001:EMEA"). Filtered mode, chosen by passing
--where, targets every row matching the predicate instead.

Items submitted with --item NAME=VALUE are visible to the action's SQL as
named arguments; --return NAME asks the server to send an item's final
value back.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if processAction == "" {
			return gerrors.New(gerrors.ConfigInvalid, "--action is required")
		}

		mode := api.ModeSelection
		var filter *api.Filter
		if processWhere != "" {
			mode = api.ModeFiltered
			fargs := make([]any, len(processArgs))
			for i, a := range processArgs {
				fargs[i] = a
			}
			filter = &api.Filter{Where: processWhere, Args: fargs}
		}

		g := grid.New()
		if mode == api.ModeSelection {
			tuples := make([]selection.Tuple, 0, len(processRows))
			for _, r := range processRows {
				tuples = append(tuples, selection.Tuple(strings.Split(r, ":")))
			}
			g.SetSelection(tuples)
		}

		var itemNames []string
		for _, it := range processItems {
			name, value, ok := strings.Cut(it, "=")
			if !ok {
				return gerrors.New(gerrors.ConfigInvalid, fmt.Sprintf("bad --item %q, want NAME=VALUE", it))
			}
			g.SetItem(name, value)
			itemNames = append(itemNames, name)
		}

		c, err := resolveClient()
		if err != nil {
			return err
		}

		cursor.Hide()
		defer cursor.Show()
		stopSpinner := sync.OnceFunc(startInlineSpinner(os.Stdout, "processing rows", []string{"-", "\\", "|", "/"}, 100*time.Millisecond))

		// The spinner line must be gone before any notification prints
		d := client.NewDispatcher(c, g, quietingNotifier{stop: stopSpinner, inner: client.TerminalNotifier{}})

		var cancelled bool
		err = d.Dispatch(cmd.Context(), client.Options{
			Action:                processAction,
			Mode:                  mode,
			Filter:                filter,
			ItemsToSubmit:         itemNames,
			ItemsToReturn:         processReturn,
			RefreshSelection:      processRefreshSel,
			RefreshGrid:           processRefreshGrid,
			RemoveSelection:       processRemoveSel,
			PerformSubstitutions:  !processNoSubst,
			EscapeMessage:         !processNoEscape,
			ShowEmptyMessage:      processShowEmpty,
			EmptySelectionMessage: processEmptyMsg,
			DismissAfter:          processDismiss,
		}, func(c bool) {
			stopSpinner()
			cancelled = c
		})
		if err != nil {
			return httperrors.FormatNetworkError(err, "processing rows")
		}

		for _, name := range processReturn {
			if v, ok := g.Item(name); ok {
				fmt.Printf("%s=%v\n", name, v)
			}
		}
		if cancelled {
			return gerrors.New(gerrors.RequestFailed, "the server reported a failure; no rows were changed")
		}
		return nil
	},
}

// quietingNotifier stops the in-flight spinner before the first
// notification renders.
type quietingNotifier struct {
	stop  func()
	inner client.Notifier
}

func (q quietingNotifier) Notify(n client.Notification) {
	q.stop()
	q.inner.Notify(n)
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().StringVarP(&processAction, "action", "a", "", "Action name to run (required)")
	processCmd.Flags().StringArrayVar(&processRows, "row", nil, "Identifier tuple to select; repeatable, composite keys joined by ':'")
	processCmd.Flags().StringVar(&processWhere, "where", "", "Filter predicate; switches to filtered mode")
	processCmd.Flags().StringArrayVar(&processArgs, "arg", nil, "Positional argument for the --where predicate; repeatable")
	processCmd.Flags().StringArrayVar(&processItems, "item", nil, "Item to submit as NAME=VALUE; repeatable")
	processCmd.Flags().StringArrayVar(&processReturn, "return", nil, "Item name whose final value is printed; repeatable")
	processCmd.Flags().BoolVar(&processRefreshGrid, "refresh-grid", false, "Refresh the whole view after processing")
	processCmd.Flags().BoolVar(&processRefreshSel, "refresh-selection", false, "Re-fetch the processed rows after processing")
	processCmd.Flags().BoolVar(&processRemoveSel, "remove-selection", false, "Clear the selection after processing")
	processCmd.Flags().BoolVar(&processShowEmpty, "show-empty-message", false, "Show the empty-selection message instead of a silent no-op")
	processCmd.Flags().StringVar(&processEmptyMsg, "empty-message", "", "Message for empty selections (with --show-empty-message)")
	processCmd.Flags().BoolVar(&processNoSubst, "no-substitutions", false, "Disable error token substitution in messages")
	processCmd.Flags().BoolVar(&processNoEscape, "no-escape", false, "Disable message escaping")
	processCmd.Flags().DurationVar(&processDismiss, "dismiss-after", 0, "Auto-dismiss delay echoed with the notification")
}
