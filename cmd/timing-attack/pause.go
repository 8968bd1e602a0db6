package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// isTerminal reports whether in is a terminal.
func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// pause waits for Enter, but only when in is a terminal.
func pause(in io.Reader, out io.Writer, enabled bool) {
	if !enabled || !isTerminal(in) {
		return
	}
	fmt.Fprint(out, "Press Enter to continue...")
	_, _ = bufio.NewReader(in).ReadString('\n')
}
