package protocol

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ResponseTerminator ends every response payload. Readers must buffer until
// they see it; a payload may arrive over several reads.
const ResponseTerminator = "\r\n\r\n"

const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// Entry is the wire form of a mailbox entry.
type Entry struct {
	ID        string `json:"id"`
	Sender    string `json:"sender,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Message   string `json:"message,omitempty"`
	FilePath  string `json:"file_path,omitempty"`
	Realm     string `json:"realm,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Response is the structured result of one command.
type Response struct {
	Status  string  `json:"status"`
	Message string  `json:"message,omitempty"`
	TokenID string  `json:"token_id,omitempty"`
	Inbox   []Entry `json:"inbox,omitzero"`
	Chat    []Entry `json:"chat,omitzero"`
}

func OK() Response {
	return Response{Status: StatusOK}
}

func OKMessage(msg string) Response {
	return Response{Status: StatusOK, Message: msg}
}

func Error(msg string) Response {
	return Response{Status: StatusError, Message: msg}
}

func (r Response) IsOK() bool {
	return r.Status == StatusOK
}

// WriteResponse writes resp as JSON followed by the response terminator.
func WriteResponse(w io.Writer, resp Response) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	b = append(b, ResponseTerminator...)
	_, err = w.Write(b)
	return err
}

// ReadResponse reads from r until the response terminator and decodes the
// payload in front of it.
func ReadResponse(r *bufio.Reader) (Response, error) {
	var b strings.Builder
	for {
		chunk, err := r.ReadString('\n')
		b.WriteString(chunk)
		if strings.HasSuffix(b.String(), ResponseTerminator) {
			break
		}
		if err != nil {
			return Response{}, err
		}
	}

	var resp Response
	payload := strings.TrimSuffix(b.String(), ResponseTerminator)
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}
