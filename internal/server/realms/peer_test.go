package realms

import (
	"bufio"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/realmchat/internal/protocol"
)

// fakePeer is a minimal realm server. handle decides the answer for every
// request line; returning false hangs up the connection.
type fakePeer struct {
	ln     net.Listener
	handle func(line string) (protocol.Response, bool)

	wg    sync.WaitGroup
	mu    sync.Mutex
	conns []net.Conn
	lines []string
	got   chan string
}

func startPeer(t *testing.T, handle func(line string) (protocol.Response, bool)) *fakePeer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	p := &fakePeer{ln: ln, handle: handle, got: make(chan string, 1024)}
	p.wg.Add(1)
	go p.serve()
	t.Cleanup(p.stop)
	return p
}

func acceptAll(string) (protocol.Response, bool) { return protocol.OK(), true }

func (p *fakePeer) hostPort(t *testing.T) (string, string) {
	t.Helper()
	host, port, err := net.SplitHostPort(p.ln.Addr().String())
	require.NoError(t, err)
	return host, port
}

func (p *fakePeer) serve() {
	defer p.wg.Done()
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}
		p.mu.Lock()
		p.conns = append(p.conns, conn)
		p.mu.Unlock()

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			defer conn.Close()
			r := bufio.NewReader(conn)
			for {
				line, err := protocol.ReadFrame(r, 0)
				if err != nil {
					return
				}
				p.mu.Lock()
				p.lines = append(p.lines, line)
				p.mu.Unlock()
				p.got <- line

				resp, ok := p.handle(line)
				if !ok {
					return
				}
				if err := protocol.WriteResponse(conn, resp); err != nil {
					return
				}
			}
		}()
	}
}

func (p *fakePeer) received() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.lines...)
}

func (p *fakePeer) stop() {
	_ = p.ln.Close()
	p.mu.Lock()
	for _, c := range p.conns {
		_ = c.Close()
	}
	p.mu.Unlock()
	p.wg.Wait()
}
