package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/dmitrijs2005/realmchat/internal/protocol"
)

// SendFile reads a local file and sends it with send_file.
func (a *App) SendFile(ctx context.Context, args []string) error {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "Usage: file <recipient> <path>")
		return errUsage
	}
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "not logged in")
		return errNotLoggedIn
	}

	data, err := os.ReadFile(args[1])
	if err != nil {
		fmt.Fprintln(a.out, "cannot read file:", err)
		return err
	}

	_, err = a.send(ctx, protocol.FormatRequest("send_file",
		a.token, args[0], args[1], base64.StdEncoding.EncodeToString(data)))
	return err
}
