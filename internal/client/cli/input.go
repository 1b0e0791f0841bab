package cli

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// stdinFd is the descriptor secrets are read from.
var stdinFd = func() int { return int(os.Stdin.Fd()) }

// promptSecret shows prompt on w and reads one line from the terminal with
// echo disabled. The caller wipes the result.
func promptSecret(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	secret, err := readPassword(stdinFd())
	// the terminal swallowed the user's newline
	fmt.Fprintln(w)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", prompt, err)
	}
	if len(secret) == 0 {
		return nil, errEmptySecret
	}
	return secret, nil
}
