package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/realmchat/internal/client"
	"github.com/dmitrijs2005/realmchat/internal/client/config"
	"github.com/dmitrijs2005/realmchat/internal/protocol"
)

type fakeConn struct {
	mu      sync.Mutex
	lines   []string
	replies []protocol.Response
	err     error
	closed  bool
}

func (f *fakeConn) Do(_ context.Context, line string) (protocol.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, line)
	if f.err != nil {
		return protocol.Response{}, f.err
	}
	if len(f.replies) == 0 {
		return protocol.OK(), nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func stubPassword(t *testing.T, pw string, err error) *[]byte {
	t.Helper()
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	var returned []byte
	readPassword = func(int) ([]byte, error) {
		if err != nil {
			return nil, err
		}
		returned = []byte(pw)
		return returned, nil
	}
	return &returned
}

func testApp(fc *fakeConn) (*App, *bytes.Buffer) {
	out := &bytes.Buffer{}
	cfg := &config.Config{ServerEndpointAddr: "test:1", RequestTimeout: time.Second}
	return newApp(cfg, fc, strings.NewReader(""), out), out
}

func TestLogin(t *testing.T) {
	fc := &fakeConn{replies: []protocol.Response{{Status: protocol.StatusOK, TokenID: "tok"}}}
	a, out := testApp(fc)
	pw := stubPassword(t, "secret", nil)

	require.NoError(t, a.Login(context.Background(), []string{"alice"}))

	assert.Equal(t, []string{"authenticate alice secret\r\n"}, fc.lines)
	assert.True(t, a.isLoggedIn())
	assert.Equal(t, "alice", a.status())
	assert.Contains(t, out.String(), `"token_id": "tok"`)
	assert.Equal(t, make([]byte, len("secret")), *pw, "password buffer must be wiped")
}

func TestLogin_Rejected(t *testing.T) {
	fc := &fakeConn{replies: []protocol.Response{protocol.Error("Incorrect Password")}}
	a, out := testApp(fc)
	stubPassword(t, "nope", nil)

	require.NoError(t, a.Login(context.Background(), []string{"alice"}))

	assert.False(t, a.isLoggedIn())
	assert.Equal(t, "anonymous", a.status())
	assert.Contains(t, out.String(), "Incorrect Password")
}

func TestLogin_Usage(t *testing.T) {
	fc := &fakeConn{}
	a, _ := testApp(fc)

	assert.ErrorIs(t, a.Login(context.Background(), nil), errUsage)
	assert.Empty(t, fc.lines)
}

func TestLogin_PasswordErrors(t *testing.T) {
	t.Run("read fails", func(t *testing.T) {
		fc := &fakeConn{}
		a, _ := testApp(fc)
		stubPassword(t, "", errors.New("no tty"))

		assert.Error(t, a.Login(context.Background(), []string{"alice"}))
		assert.Empty(t, fc.lines)
	})

	t.Run("contains space", func(t *testing.T) {
		fc := &fakeConn{}
		a, _ := testApp(fc)
		stubPassword(t, "two words", nil)

		assert.ErrorIs(t, a.Login(context.Background(), []string{"alice"}), errUsage)
		assert.Empty(t, fc.lines)
	})
}

func TestRegister(t *testing.T) {
	fc := &fakeConn{replies: []protocol.Response{{Status: protocol.StatusOK, TokenID: "t2"}}}
	a, _ := testApp(fc)
	stubPassword(t, "pw", nil)

	require.NoError(t, a.Register(context.Background(), []string{"bob", "Bob_Smith", "LV"}))

	assert.Equal(t, []string{"register bob pw Bob_Smith LV\r\n"}, fc.lines)
	assert.Equal(t, "bob", a.status())

	assert.ErrorIs(t, a.Register(context.Background(), []string{"bob"}), errUsage)
}

func TestLogout(t *testing.T) {
	fc := &fakeConn{}
	a, _ := testApp(fc)

	assert.ErrorIs(t, a.Logout(context.Background()), errNotLoggedIn)

	a.userName, a.token = "alice", "tok"
	require.NoError(t, a.Logout(context.Background()))

	assert.Equal(t, []string{"logout tok\r\n"}, fc.lines)
	assert.False(t, a.isLoggedIn())
}

func TestRaw_TokenSubstitution(t *testing.T) {
	fc := &fakeConn{}
	a, _ := testApp(fc)

	assert.ErrorIs(t, a.Raw(context.Background(), "fetch_inbox $TOKEN"), errNotLoggedIn)
	assert.Empty(t, fc.lines)

	a.userName, a.token = "alice", "tok"
	require.NoError(t, a.Raw(context.Background(), "send_private_message $TOKEN bob hi $TOKEN"))
	require.NoError(t, a.Raw(context.Background(), "info"))

	assert.Equal(t, []string{"send_private_message tok bob hi tok", "info"}, fc.lines)
}

func TestRaw_TransportError(t *testing.T) {
	fc := &fakeConn{err: client.ErrUnavailable}
	a, out := testApp(fc)

	err := a.Raw(context.Background(), "info")

	assert.ErrorIs(t, err, client.ErrUnavailable)
	assert.Contains(t, out.String(), "request failed")
}

func TestSendFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pic.png")
	require.NoError(t, os.WriteFile(path, []byte("png!"), 0o600))

	fc := &fakeConn{}
	a, _ := testApp(fc)

	assert.ErrorIs(t, a.SendFile(context.Background(), []string{"bob", path}), errNotLoggedIn)

	a.userName, a.token = "alice", "tok"
	require.NoError(t, a.SendFile(context.Background(), []string{"bob", path}))

	want := "send_file tok bob " + path + " " + base64.StdEncoding.EncodeToString([]byte("png!")) + "\r\n"
	assert.Equal(t, []string{want}, fc.lines)

	assert.Error(t, a.SendFile(context.Background(), []string{"bob", filepath.Join(t.TempDir(), "none")}))
	assert.ErrorIs(t, a.SendFile(context.Background(), []string{"bob"}), errUsage)
}

func TestRun_ClosesConnection(t *testing.T) {
	orig := printlnFn
	t.Cleanup(func() { printlnFn = orig })
	printlnFn = func(...any) (int, error) { return 0, nil }

	fc := &fakeConn{}
	out := &bytes.Buffer{}
	a := newApp(&config.Config{ServerEndpointAddr: "test:1"}, fc, strings.NewReader("info\nexit\n"), out)

	a.Run(context.Background())

	assert.True(t, fc.closed)
	assert.Equal(t, []string{"info"}, fc.lines)
	assert.Contains(t, out.String(), "connected to test:1")
}
