package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL needs.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context, args []string) error
	Register(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
	SendFile(ctx context.Context, args []string) error
	Raw(ctx context.Context, line string) error
}

// runREPL reads lines until EOF or exit/quit. Local commands are handled by
// name; anything else goes to the server verbatim. Handler errors are not
// fatal; handlers print their own messages.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("chat> %s > ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return
		}
		line = strings.TrimRight(line, "\r\n")

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Local commands: file <recipient> <path>, logout, exit. Anything else is sent as is; $TOKEN is your session.")
			} else {
				printlnFn("Local commands: login <user>, register <user> <name> <country>, exit. Anything else is sent as is.")
			}

		case "login":
			_ = a.Login(ctx, parts[1:])

		case "register":
			_ = a.Register(ctx, parts[1:])

		case "logout":
			_ = a.Logout(ctx)

		case "file":
			_ = a.SendFile(ctx, parts[1:])

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			_ = a.Raw(ctx, line)
		}

		if err != nil {
			// last line had no terminator
			return
		}
	}
}
