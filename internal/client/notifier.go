// Copyright (c) 2025 GridRows
// Licensed under the MIT License. See LICENSE file in the project root for details.

package client

import (
	"fmt"

	"github.com/pterm/pterm"
)

// TerminalNotifier renders notifications with pterm prefix printers. The
// auto-dismiss delay has no meaning on a scrolling terminal and is only
// echoed for visibility.
type TerminalNotifier struct{}

// Notify implements Notifier.
func (TerminalNotifier) Notify(n Notification) {
	msg := n.Message
	if n.Title != "" {
		msg = pterm.Bold.Sprint(n.Title) + "\n" + msg
	}
	if n.DismissAfter > 0 {
		msg = fmt.Sprintf("%s\n%s", msg, pterm.Gray(fmt.Sprintf("(auto-dismiss after %s)", n.DismissAfter)))
	}
	switch n.Type {
	case "error":
		pterm.Error.Println(msg)
	case "warning":
		pterm.Warning.Println(msg)
	case "info":
		pterm.Info.Println(msg)
	default:
		pterm.Success.Println(msg)
	}
}
