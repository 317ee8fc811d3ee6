package assistant

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Run reads command lines from in until close, exit or the end of the input, and writes the
// replies to out. The prompt is only shown when in is a terminal. Saving the address book at the
// end of the session is up to the caller.
func (a *Assistant) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	a.styles = newStyles(lipgloss.NewRenderer(out))
	interactive := isTerminal(in)

	fmt.Fprintln(out, "Welcome to the assistant bot!")
	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if interactive {
			fmt.Fprint(out, "Enter a command: ")
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("assistant: reading input: %w", err)
			}
			fmt.Fprintln(out, "Good bye!")
			return nil
		}
		reply, err := a.Dispatch(scanner.Text())
		if err != nil {
			return err
		}
		if reply.Message != "" {
			fmt.Fprintln(out, reply.Message)
		}
		if reply.Quit {
			return nil
		}
	}
}

// isTerminal reports whether r is a file attached to a terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
