package tcp

import (
	"context"
	"encoding/base64"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/realmchat/internal/client"
	"github.com/dmitrijs2005/realmchat/internal/logging"
	"github.com/dmitrijs2005/realmchat/internal/protocol"
	"github.com/dmitrijs2005/realmchat/internal/server/dispatch"
	"github.com/dmitrijs2005/realmchat/internal/server/identity"
	"github.com/dmitrijs2005/realmchat/internal/server/mailbox"
	"github.com/dmitrijs2005/realmchat/internal/server/metrics"
	"github.com/dmitrijs2005/realmchat/internal/server/realms"
	"github.com/dmitrijs2005/realmchat/internal/server/storage"
)

type node struct {
	host, port string
	conn       *client.Client
}

// startNode runs a seeded chat server that announces itself to peers as name.
func startNode(t *testing.T, name string) *node {
	t.Helper()
	ctx := context.Background()

	users := identity.NewStore([]byte(t.Name()), identity.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, users.Seed(ctx, identity.DefaultSeeds()...))
	mail := mailbox.NewStore(users, storage.NewMemoryStore())

	reg := realms.NewRegistry(realms.Config{LocalName: name, DialTimeout: time.Second, RequestTimeout: time.Second}, logging.Nop())
	t.Cleanup(func() { reg.Close(context.Background()) })

	d := dispatch.New(users, mail, reg, logging.Nop(), metrics.Nop{})
	addr := startServer(t, Config{MaxFrameBytes: 1 << 20}, d)

	c, err := client.Dial(ctx, addr, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	return &node{host: host, port: port, conn: c}
}

func (n *node) call(t *testing.T, command string, args ...string) protocol.Response {
	t.Helper()
	resp, err := n.conn.Call(context.Background(), command, args...)
	require.NoError(t, err)
	return resp
}

func (n *node) login(t *testing.T, user string) string {
	t.Helper()
	resp := n.call(t, "authenticate", user, "surabaya")
	require.True(t, resp.IsOK(), resp.Message)
	return resp.TokenID
}

func TestFederation_RoundTrip(t *testing.T) {
	a := startNode(t, "")
	b := startNode(t, "")

	require.True(t, a.call(t, "add_realm", "north", b.host, b.port).IsOK())
	require.True(t, b.call(t, "add_realm", "north", a.host, a.port).IsOK())

	messi := a.login(t, "messi")
	require.True(t, a.call(t, "message_private_realm", messi, "north", "henderson", "hello", "from", "A").IsOK())

	pic := base64.StdEncoding.EncodeToString([]byte{0xde, 0xad, 0xbe, 0xef})
	require.True(t, a.call(t, "send_group_file_realm", messi, "north", "henderson,lineker", "/tmp/x/pic.jpg", pic).IsOK())

	hendo := b.login(t, "henderson")
	var inbox protocol.Response
	require.Eventually(t, func() bool {
		inbox = b.call(t, "fetch_realm_inbox", hendo, "north")
		return inbox.IsOK() && len(inbox.Inbox) == 2
	}, 3*time.Second, 20*time.Millisecond)

	assert.Equal(t, "messi", inbox.Inbox[0].Sender)
	assert.Equal(t, "hello from A", inbox.Inbox[0].Message)
	assert.Equal(t, "north", inbox.Inbox[0].Realm)
	assert.Equal(t, "mem/pic.jpg", inbox.Inbox[1].FilePath)

	lineker := b.login(t, "lineker")
	require.Eventually(t, func() bool {
		resp := b.call(t, "fetch_realm_inbox", lineker, "north")
		return len(resp.Inbox) == 1
	}, 3*time.Second, 20*time.Millisecond)

	chat := a.call(t, "fetch_realm_chat", "north", "messi")
	require.True(t, chat.IsOK())
	assert.Len(t, chat.Chat, 3)

	// a relay to an unknown user is rejected by the peer but the link survives
	require.True(t, a.call(t, "message_private_realm", messi, "north", "ghost", "anyone?").IsOK())
	require.True(t, a.call(t, "message_private_realm", messi, "north", "henderson", "still", "there").IsOK())
	require.Eventually(t, func() bool {
		resp := b.call(t, "fetch_realm_inbox", hendo, "north")
		return len(resp.Inbox) == 3
	}, 3*time.Second, 20*time.Millisecond)
}

func TestFederation_DistinctRealmNames(t *testing.T) {
	a := startNode(t, "realmA")
	b := startNode(t, "realmB")

	require.True(t, a.call(t, "add_realm", "realmB", b.host, b.port).IsOK())
	require.True(t, b.call(t, "add_realm", "realmA", a.host, a.port).IsOK())

	messi := a.login(t, "messi")
	require.True(t, a.call(t, "message_private_realm", messi, "realmB", "henderson", "hi", "B").IsOK())

	hendo := b.login(t, "henderson")
	var inbox protocol.Response
	require.Eventually(t, func() bool {
		inbox = b.call(t, "fetch_realm_inbox", hendo, "realmA")
		return inbox.IsOK() && len(inbox.Inbox) == 1
	}, 3*time.Second, 20*time.Millisecond)

	assert.Equal(t, "realmA", inbox.Inbox[0].Realm)
	assert.Equal(t, "hi B", inbox.Inbox[0].Message)
	assert.Empty(t, b.call(t, "fetch_realm_inbox", hendo, "realmB").Inbox)

	// the sender's history is kept under its own name for the peer
	chat := a.call(t, "fetch_realm_chat", "realmB", "messi")
	require.Len(t, chat.Chat, 1)
	assert.Equal(t, "henderson", chat.Chat[0].Recipient)

	// replies flow back and are tagged with B's announced name
	require.True(t, b.call(t, "message_private_realm", hendo, "realmA", "messi", "cheers").IsOK())
	require.Eventually(t, func() bool {
		resp := a.call(t, "fetch_realm_inbox", messi, "realmB")
		return len(resp.Inbox) == 1 && resp.Inbox[0].Sender == "henderson"
	}, 3*time.Second, 20*time.Millisecond)
}

func TestFederation_UnreachableRealm(t *testing.T) {
	a := startNode(t, "")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port, _ := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, ln.Close())

	resp := a.call(t, "add_realm", "void", host, port)
	assert.Equal(t, protocol.Error("Realm Unreachable"), resp)

	messi := a.login(t, "messi")
	resp = a.call(t, "message_private_realm", messi, "void", "henderson", "hi")
	assert.Equal(t, protocol.Error("Realm Not Found"), resp)
}
