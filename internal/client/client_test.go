package client

import (
	"bufio"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/realmchat/internal/protocol"
)

// fakeServer answers each request line through handle. Responses are
// written in two pieces to exercise partial reads.
type fakeServer struct {
	ln   net.Listener
	wg   sync.WaitGroup
	mu   sync.Mutex
	seen []string
}

func startFakeServer(t *testing.T, handle func(line string) (protocol.Response, bool)) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeServer{ln: ln}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer conn.Close()
				r := bufio.NewReader(conn)
				for {
					line, err := protocol.ReadFrame(r, 0)
					if err != nil {
						return
					}
					s.mu.Lock()
					s.seen = append(s.seen, line)
					s.mu.Unlock()

					resp, ok := handle(line)
					if !ok {
						return
					}
					var buf writeRecorder
					_ = protocol.WriteResponse(&buf, resp)
					half := len(buf.b) / 2
					_, _ = conn.Write(buf.b[:half])
					time.Sleep(5 * time.Millisecond)
					_, _ = conn.Write(buf.b[half:])
				}
			}()
		}
	}()

	t.Cleanup(func() {
		_ = ln.Close()
		s.wg.Wait()
	})
	return s
}

func (s *fakeServer) lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.seen...)
}

type writeRecorder struct{ b []byte }

func (w *writeRecorder) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}

func TestClient_Do(t *testing.T) {
	srv := startFakeServer(t, func(line string) (protocol.Response, bool) {
		if line == "info" {
			return protocol.OKMessage("realmchat"), true
		}
		return protocol.Error("Invalid Protocol"), true
	})

	ctx := context.Background()
	c, err := Dial(ctx, srv.ln.Addr().String(), time.Second)
	require.NoError(t, err)
	defer c.Close()

	resp, err := c.Do(ctx, "info")
	require.NoError(t, err)
	assert.True(t, resp.IsOK())
	assert.Equal(t, "realmchat", resp.Message)

	resp, err = c.Call(ctx, "bogus", "a", "b")
	require.NoError(t, err)
	assert.False(t, resp.IsOK())
	assert.Equal(t, "Invalid Protocol", resp.Message)

	assert.Equal(t, []string{"info", "bogus a b"}, srv.lines())
}

func TestClient_ServerHangsUp(t *testing.T) {
	srv := startFakeServer(t, func(string) (protocol.Response, bool) {
		return protocol.Response{}, false
	})

	ctx := context.Background()
	c, err := Dial(ctx, srv.ln.Addr().String(), time.Second)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Do(ctx, "info")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := startFakeServer(t, func(string) (protocol.Response, bool) {
		<-release
		return protocol.OK(), true
	})
	defer close(release)

	c, err := Dial(context.Background(), srv.ln.Addr().String(), time.Second)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = c.Do(ctx, "info")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClient_Closed(t *testing.T) {
	srv := startFakeServer(t, func(string) (protocol.Response, bool) {
		return protocol.OK(), true
	})

	c, err := Dial(context.Background(), srv.ln.Addr().String(), time.Second)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = c.Do(context.Background(), "info")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDial_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Dial(context.Background(), addr, 200*time.Millisecond)
	assert.ErrorIs(t, err, ErrUnavailable)
}
