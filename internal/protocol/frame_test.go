package protocol

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"github.com/dmitrijs2005/realmchat/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Frame
		wantErr bool
	}{
		{
			name: "command with args",
			line: "authenticate messi surabaya\r\n",
			want: Frame{Command: "authenticate", Args: []string{"messi", "surabaya"}},
		},
		{
			name: "no args",
			line: "info\r\n",
			want: Frame{Command: "info", Args: []string{}},
		},
		{
			name: "trailing space keeps empty token",
			line: "inbox tok \r\n",
			want: Frame{Command: "inbox", Args: []string{"tok", ""}},
		},
		{name: "empty line", line: "\r\n", wantErr: true},
		{name: "leading space", line: " info", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.line)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrProtocol)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFrame_Arg(t *testing.T) {
	f, err := Parse("message tok  bob hi there")
	require.NoError(t, err)

	got, err := f.Arg(0)
	require.NoError(t, err)
	assert.Equal(t, "tok", got)

	_, err = f.Arg(1)
	assert.ErrorIs(t, err, common.ErrInvalidProtocol, "blank argument")

	_, err = f.Arg(10)
	assert.ErrorIs(t, err, common.ErrInvalidProtocol, "missing argument")
}

func TestFrame_Rest(t *testing.T) {
	f, err := Parse("message tok bob hi  there, all\r\n")
	require.NoError(t, err)

	body, err := f.Rest(2)
	require.NoError(t, err)
	assert.Equal(t, "hi  there, all", body)

	_, err = f.Rest(7)
	assert.ErrorIs(t, err, common.ErrInvalidProtocol)

	// a trailing space yields an empty body, as older clients send it
	f, err = Parse("message tok bob \r\n")
	require.NoError(t, err)
	body, err = f.Rest(2)
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestFrame_List(t *testing.T) {
	f, err := Parse("message_group tok a,b,c hello")
	require.NoError(t, err)

	got, err := f.List(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)

	f, err = Parse("message_group tok a,,c hello")
	require.NoError(t, err)
	_, err = f.List(1)
	assert.ErrorIs(t, err, common.ErrInvalidProtocol)
}

func TestFormatRequest(t *testing.T) {
	assert.Equal(t, "info\r\n", FormatRequest("info"))
	assert.Equal(t,
		"receive_private_realm_message messi east bob hi there\r\n",
		FormatRequest("receive_private_realm_message", "messi", "east", "bob", "hi there"))
}

func TestFormatThenParse(t *testing.T) {
	f, err := Parse(FormatRequest("send_file", "tok", "bob", "a.txt", "aGVsbG8="))
	require.NoError(t, err)
	assert.Equal(t, "send_file", f.Command)
	assert.Equal(t, []string{"tok", "bob", "a.txt", "aGVsbG8="}, f.Args)
}

func TestReadFrame(t *testing.T) {
	r := bufio.NewReaderSize(strings.NewReader("info\r\ninbox tok\r\npartial"), 16)

	line, err := ReadFrame(r, 0)
	require.NoError(t, err)
	assert.Equal(t, "info", line)

	line, err = ReadFrame(r, 0)
	require.NoError(t, err)
	assert.Equal(t, "inbox tok", line)

	line, err = ReadFrame(r, 0)
	require.NoError(t, err)
	assert.Equal(t, "partial", line)

	_, err = ReadFrame(r, 0)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrame_LongerThanBuffer(t *testing.T) {
	payload := strings.Repeat("A", 100)
	r := bufio.NewReaderSize(strings.NewReader("send_file t b f "+payload+"\r\n"), 16)

	line, err := ReadFrame(r, 0)
	require.NoError(t, err)
	assert.Equal(t, "send_file t b f "+payload, line)
}

func TestReadFrame_TooLarge(t *testing.T) {
	r := bufio.NewReaderSize(strings.NewReader(strings.Repeat("x", 64)+"\r\n"), 16)

	_, err := ReadFrame(r, 32)
	assert.ErrorIs(t, err, common.ErrFrameTooLarge)
}
