package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/realmchat/internal/client"
	"github.com/dmitrijs2005/realmchat/internal/client/config"
	"github.com/dmitrijs2005/realmchat/internal/protocol"
)

// TokenPlaceholder is replaced by the session token in raw lines.
const TokenPlaceholder = "$TOKEN"

// conn is the part of client.Client the shell uses.
type conn interface {
	Do(ctx context.Context, line string) (protocol.Response, error)
	Close() error
}

type App struct {
	config *config.Config
	conn   conn
	reader *bufio.Reader
	out    io.Writer

	userName string
	token    string
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	cl, err := client.Dial(ctx, c.ServerEndpointAddr, c.DialTimeout)
	if err != nil {
		return nil, err
	}
	return newApp(c, cl, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, cn conn, in io.Reader, out io.Writer) *App {
	return &App{config: c, conn: cn, reader: bufio.NewReader(in), out: out}
}

func (a *App) Run(ctx context.Context) {
	defer a.conn.Close()
	fmt.Fprintf(a.out, "realmchat shell, connected to %s (type 'help' for commands)\n", a.config.ServerEndpointAddr)
	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.token != ""
}

func (a *App) status() string {
	if a.isLoggedIn() {
		return a.userName
	}
	return "anonymous"
}

// Raw sends line with $TOKEN substituted and prints the response.
func (a *App) Raw(ctx context.Context, line string) error {
	if strings.Contains(line, TokenPlaceholder) {
		if !a.isLoggedIn() {
			fmt.Fprintln(a.out, "not logged in, $TOKEN is empty")
			return errNotLoggedIn
		}
		line = strings.ReplaceAll(line, TokenPlaceholder, a.token)
	}
	_, err := a.send(ctx, line)
	return err
}

// send runs one request and prints the response. The request is bounded by
// the configured timeout.
func (a *App) send(ctx context.Context, line string) (protocol.Response, error) {
	if a.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.RequestTimeout)
		defer cancel()
	}

	resp, err := a.conn.Do(ctx, line)
	if err != nil {
		fmt.Fprintln(a.out, "request failed:", err)
		return protocol.Response{}, err
	}

	b, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return resp, err
	}
	fmt.Fprintln(a.out, string(b))
	return resp, nil
}
