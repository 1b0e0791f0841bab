// Package dispatch turns request lines into responses. It owns the command
// table, checks sessions for commands that need one and maps failures to the
// wire error messages.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/dmitrijs2005/realmchat/internal/common"
	"github.com/dmitrijs2005/realmchat/internal/logging"
	"github.com/dmitrijs2005/realmchat/internal/protocol"
	"github.com/dmitrijs2005/realmchat/internal/server/identity"
	"github.com/dmitrijs2005/realmchat/internal/server/mailbox"
	"github.com/dmitrijs2005/realmchat/internal/server/metrics"
	"github.com/dmitrijs2005/realmchat/internal/server/realms"
)

// Realms is the part of the realm registry the dispatcher drives.
type Realms interface {
	Create(ctx context.Context, id, host, port string) error
	Route(id string, relay *realms.Relay) error
	RouteGroup(id string, relays ...*realms.Relay) error
	Exists(id string) bool
}

// request is what a handler sees. user is set for commands that need a
// session; args then start after the token.
type request struct {
	frame protocol.Frame
	user  identity.User
	base  int
}

func (r request) arg(i int) (string, error)    { return r.frame.Arg(r.base + i) }
func (r request) rest(i int) (string, error)   { return r.frame.Rest(r.base + i) }
func (r request) list(i int) ([]string, error) { return r.frame.List(r.base + i) }

type handlerFunc func(ctx context.Context, req request) (protocol.Response, error)

type command struct {
	auth   bool
	handle handlerFunc
}

// Dispatcher is stateless between calls and safe for concurrent use.
type Dispatcher struct {
	users   *identity.Store
	mail    *mailbox.Store
	realms  Realms
	log     logging.Logger
	metrics metrics.Recorder

	commands map[string]command
}

func New(users *identity.Store, mail *mailbox.Store, rlm Realms, log logging.Logger, rec metrics.Recorder) *Dispatcher {
	d := &Dispatcher{
		users:   users,
		mail:    mail,
		realms:  rlm,
		log:     log,
		metrics: rec,
	}

	d.commands = map[string]command{
		"authenticate": {handle: d.authenticate},
		"register":     {handle: d.register},
		"logout":       {handle: d.logout},
		"info":         {handle: d.info},

		"message":         {auth: true, handle: d.message},
		"message_group":   {auth: true, handle: d.messageGroup},
		"inbox":           {auth: true, handle: d.inbox},
		"send_file":       {auth: true, handle: d.sendFile},
		"send_group_file": {auth: true, handle: d.sendGroupFile},

		"add_realm":             {handle: d.addRealm},
		"receive_realm":         {handle: d.addRealm},
		"message_private_realm": {auth: true, handle: d.messageRealm},
		"message_group_realm":   {auth: true, handle: d.messageGroupRealm},
		"send_file_realm":       {auth: true, handle: d.sendFileRealm},
		"send_group_file_realm": {auth: true, handle: d.sendGroupFileRealm},
		"fetch_realm_inbox":     {auth: true, handle: d.fetchRealmInbox},
		"fetch_realm_chat":      {handle: d.fetchRealmChat},

		"receive_private_realm_message": {handle: d.receiveRealmMessage},
		"receive_group_realm_message":   {handle: d.receiveGroupRealmMessage},
		"receive_file_realm":            {handle: d.receiveFileRealm},
		"receive_group_file_realm":      {handle: d.receiveGroupFileRealm},
	}

	return d
}

// Process handles one request line. It never panics and always returns a
// response.
func (d *Dispatcher) Process(ctx context.Context, line string) (resp protocol.Response) {
	start := time.Now()
	name := "unknown"

	defer func() {
		if r := recover(); r != nil {
			d.log.Error(ctx, "command panicked", "command", name, "panic", r, "stack", string(debug.Stack()))
			resp = protocol.Error(common.PublicMessage(fmt.Errorf("panic: %v", r)))
		}
		d.metrics.RecordCommand(name, resp.Status, time.Since(start))
	}()

	frame, err := protocol.Parse(line)
	if err != nil {
		return d.fail(ctx, name, err)
	}

	cmd, ok := d.commands[frame.Command]
	if !ok {
		d.log.Debug(ctx, "unknown command", "command", frame.Command)
		return d.fail(ctx, name, common.ErrInvalidProtocol)
	}
	name = frame.Command

	req := request{frame: frame}
	if cmd.auth {
		token, err := frame.Arg(0)
		if err != nil {
			return d.fail(ctx, name, err)
		}
		user, err := d.users.Resolve(ctx, token)
		if err != nil {
			return d.fail(ctx, name, err)
		}
		req.user = user
		req.base = 1
	}

	resp, err = cmd.handle(ctx, req)
	if err != nil {
		return d.fail(ctx, name, err)
	}

	d.log.Debug(ctx, "command processed", "command", name, "user", req.user.Username)
	return resp
}

func (d *Dispatcher) fail(ctx context.Context, command string, err error) protocol.Response {
	if common.IsClassified(err) {
		d.log.Debug(ctx, "command failed", "command", command, "error", err)
	} else {
		d.log.Error(ctx, "command failed", "command", command, "error", err)
	}
	return protocol.Error(common.PublicMessage(err))
}
