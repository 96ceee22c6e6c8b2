// Package terminal provides small terminal utilities, currently the cleanup
// of previously printed prompt lines.
package terminal

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// ClearPreviousLines erases prompt text that was already printed. It derives
// how many terminal lines the text wrapped onto from the current width, then
// moves up and clears each one with ANSI escape sequences.
//
// textLength is the total number of characters printed (prompt plus the
// user's input). One extra line is cleared for the newline the user's Enter
// produced.
func ClearPreviousLines(textLength int) {
	width := 80 // fallback when the size is unavailable
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}

	lines := (textLength + width - 1) / width
	if lines < 1 {
		lines = 1
	}
	lines++ // the empty line the cursor landed on after Enter

	for i := 0; i < lines; i++ {
		fmt.Print("\r\x1b[2K") // clear the whole line
		if i < lines-1 {
			fmt.Print("\x1b[1A") // move up one line
		}
	}
}
