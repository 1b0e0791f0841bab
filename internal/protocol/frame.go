// Package protocol implements the realmchat wire format: space-delimited
// request lines terminated by "\r\n", and JSON responses terminated by
// "\r\n\r\n".
//
// Request arguments are positional. Message bodies take the rest of the line,
// and recipient lists are comma-joined without escaping, so a body cannot be
// told apart from extra positional tokens. That is kept for compatibility
// with existing clients and peers.
package protocol

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/dmitrijs2005/realmchat/internal/common"
)

// RequestTerminator ends every request line.
const RequestTerminator = "\r\n"

// Frame is one parsed request: a command name and its ordered arguments.
type Frame struct {
	Command string
	Args    []string
}

// Parse splits line on single spaces. The first token is the command name,
// matched case-sensitively by the dispatcher.
func Parse(line string) (Frame, error) {
	line = strings.TrimRight(line, "\r\n")
	parts := strings.Split(line, " ")

	command := strings.TrimSpace(parts[0])
	if command == "" {
		return Frame{}, common.ErrInvalidProtocol
	}

	return Frame{Command: command, Args: parts[1:]}, nil
}

// Arg returns the i-th positional argument. A missing or blank argument is a
// protocol error.
func (f Frame) Arg(i int) (string, error) {
	if i < 0 || i >= len(f.Args) {
		return "", common.ErrInvalidProtocol
	}
	arg := strings.TrimSpace(f.Args[i])
	if arg == "" {
		return "", common.ErrInvalidProtocol
	}
	return arg, nil
}

// Rest rejoins every token from position i onward with single spaces. At
// least one token must be present, though it may be empty.
func (f Frame) Rest(i int) (string, error) {
	if i < 0 || i >= len(f.Args) {
		return "", common.ErrInvalidProtocol
	}
	return strings.Join(f.Args[i:], " "), nil
}

// List splits the i-th argument on commas. Items are not unescaped; empty
// items are rejected.
func (f Frame) List(i int) ([]string, error) {
	arg, err := f.Arg(i)
	if err != nil {
		return nil, err
	}
	items := strings.Split(arg, ",")
	for _, item := range items {
		if item == "" {
			return nil, common.ErrInvalidProtocol
		}
	}
	return items, nil
}

// FormatRequest builds a request line, terminator included.
func FormatRequest(command string, args ...string) string {
	var b strings.Builder
	b.WriteString(command)
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(a)
	}
	b.WriteString(RequestTerminator)
	return b.String()
}

// ReadFrame reads one request line from r and returns it without its line
// terminator. Lines longer than maxBytes fail with common.ErrFrameTooLarge;
// maxBytes <= 0 disables the limit. A final line without terminator is
// returned as is; the following call reports io.EOF.
func ReadFrame(r *bufio.Reader, maxBytes int) (string, error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if maxBytes > 0 && len(buf)+len(chunk) > maxBytes {
			return "", common.ErrFrameTooLarge
		}
		buf = append(buf, chunk...)

		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) && len(buf) > 0 {
			break
		}
		return "", err
	}
	return strings.TrimRight(string(buf), "\r\n"), nil
}
