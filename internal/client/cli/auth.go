package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/realmchat/internal/common"
	"github.com/dmitrijs2005/realmchat/internal/protocol"
)

// Login authenticates as args[0] with a password read from the terminal.
func (a *App) Login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: login <user>")
		return errUsage
	}
	return a.openSession(ctx, args[0], func(pw string) string {
		return protocol.FormatRequest("authenticate", args[0], pw)
	})
}

// Register creates args[0]; the display name may use "_" for spaces.
func (a *App) Register(ctx context.Context, args []string) error {
	if len(args) != 3 {
		fmt.Fprintln(a.out, "Usage: register <user> <name> <country>")
		return errUsage
	}
	return a.openSession(ctx, args[0], func(pw string) string {
		return protocol.FormatRequest("register", args[0], pw, args[1], args[2])
	})
}

func (a *App) openSession(ctx context.Context, user string, request func(pw string) string) error {
	pw, err := promptSecret(a.out, "Password: ")
	if err != nil {
		fmt.Fprintln(a.out, "cannot read password:", err)
		return err
	}
	defer common.WipeByteArray(pw)

	if strings.ContainsAny(string(pw), " \r\n") {
		fmt.Fprintln(a.out, "passwords cannot contain spaces")
		return errUsage
	}

	resp, err := a.send(ctx, request(string(pw)))
	if err != nil {
		return err
	}
	if resp.IsOK() && resp.TokenID != "" {
		a.userName = user
		a.token = resp.TokenID
	}
	return nil
}

// Logout ends the current session on the server and forgets the token.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "not logged in")
		return errNotLoggedIn
	}
	_, err := a.send(ctx, protocol.FormatRequest("logout", a.token))
	a.userName, a.token = "", ""
	return err
}
