package dispatch

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/dmitrijs2005/realmchat/internal/common"
	"github.com/dmitrijs2005/realmchat/internal/protocol"
	"github.com/dmitrijs2005/realmchat/internal/server/mailbox"
	"github.com/dmitrijs2005/realmchat/internal/server/realms"
	"github.com/dmitrijs2005/realmchat/internal/server/storage"
)

const (
	infoMessage   = "Chat Server Running"
	logoutMessage = "Logout successful"
)

func (d *Dispatcher) authenticate(ctx context.Context, req request) (protocol.Response, error) {
	username, err := req.arg(0)
	if err != nil {
		return protocol.Response{}, err
	}
	password, err := req.arg(1)
	if err != nil {
		return protocol.Response{}, err
	}

	token, err := d.users.Authenticate(ctx, username, password)
	if err != nil {
		return protocol.Response{}, err
	}
	return protocol.Response{Status: protocol.StatusOK, TokenID: token}, nil
}

func (d *Dispatcher) register(ctx context.Context, req request) (protocol.Response, error) {
	var f [4]string
	for i := range f {
		v, err := req.arg(i)
		if err != nil {
			return protocol.Response{}, err
		}
		f[i] = v
	}
	username, password, country := f[0], f[1], f[3]
	name := strings.ReplaceAll(f[2], "_", " ")

	token, err := d.users.Register(ctx, username, password, name, country)
	if err != nil {
		return protocol.Response{}, err
	}
	d.log.Info(ctx, "user registered", "user", username)
	return protocol.Response{Status: protocol.StatusOK, TokenID: token}, nil
}

// logout without arguments is accepted and changes nothing, as existing
// clients expect. With a token it ends that session.
func (d *Dispatcher) logout(ctx context.Context, req request) (protocol.Response, error) {
	if token, err := req.arg(0); err == nil {
		if err := d.users.Revoke(ctx, token); err != nil {
			return protocol.Response{}, err
		}
	}
	return protocol.OKMessage(logoutMessage), nil
}

func (d *Dispatcher) info(ctx context.Context, req request) (protocol.Response, error) {
	return protocol.OKMessage(infoMessage), nil
}

func (d *Dispatcher) message(ctx context.Context, req request) (protocol.Response, error) {
	recipient, err := req.arg(0)
	if err != nil {
		return protocol.Response{}, err
	}
	body, err := req.rest(1)
	if err != nil {
		return protocol.Response{}, err
	}

	if err := d.mail.Deliver(ctx, req.user.Username, recipient, body); err != nil {
		return protocol.Response{}, err
	}
	return protocol.OK(), nil
}

func (d *Dispatcher) messageGroup(ctx context.Context, req request) (protocol.Response, error) {
	recipients, err := req.list(0)
	if err != nil {
		return protocol.Response{}, err
	}
	body, err := req.rest(1)
	if err != nil {
		return protocol.Response{}, err
	}

	if err := d.mail.DeliverGroup(ctx, req.user.Username, recipients, body); err != nil {
		return protocol.Response{}, err
	}
	return protocol.OK(), nil
}

func (d *Dispatcher) inbox(ctx context.Context, req request) (protocol.Response, error) {
	return protocol.Response{
		Status: protocol.StatusOK,
		Inbox:  toWire(d.mail.Inbox(req.user.Username)),
	}, nil
}

func (d *Dispatcher) sendFile(ctx context.Context, req request) (protocol.Response, error) {
	recipient, err := req.arg(0)
	if err != nil {
		return protocol.Response{}, err
	}
	name, data, err := attachment(req, 1)
	if err != nil {
		return protocol.Response{}, err
	}

	if err := d.mail.DeliverFile(ctx, req.user.Username, recipient, name, data); err != nil {
		return protocol.Response{}, err
	}
	return protocol.OK(), nil
}

func (d *Dispatcher) sendGroupFile(ctx context.Context, req request) (protocol.Response, error) {
	recipients, err := req.list(0)
	if err != nil {
		return protocol.Response{}, err
	}
	name, data, err := attachment(req, 1)
	if err != nil {
		return protocol.Response{}, err
	}

	if err := d.mail.DeliverGroupFile(ctx, req.user.Username, recipients, name, data); err != nil {
		return protocol.Response{}, err
	}
	return protocol.OK(), nil
}

func (d *Dispatcher) addRealm(ctx context.Context, req request) (protocol.Response, error) {
	var f [3]string
	for i := range f {
		v, err := req.arg(i)
		if err != nil {
			return protocol.Response{}, err
		}
		f[i] = v
	}

	if err := d.realms.Create(ctx, f[0], f[1], f[2]); err != nil {
		return protocol.Response{}, err
	}
	return protocol.OK(), nil
}

func (d *Dispatcher) messageRealm(ctx context.Context, req request) (protocol.Response, error) {
	realm, err := d.realmArg(req, 0)
	if err != nil {
		return protocol.Response{}, err
	}
	recipient, err := req.arg(1)
	if err != nil {
		return protocol.Response{}, err
	}
	body, err := req.rest(2)
	if err != nil {
		return protocol.Response{}, err
	}

	sender := req.user.Username
	if err := d.realms.Route(realm, &realms.Relay{Sender: sender, Recipient: recipient, Message: body}); err != nil {
		return protocol.Response{}, err
	}
	d.mail.RecordRealmSend(realm, sender, recipient, mailbox.Text(body))
	return protocol.OK(), nil
}

func (d *Dispatcher) messageGroupRealm(ctx context.Context, req request) (protocol.Response, error) {
	realm, err := d.realmArg(req, 0)
	if err != nil {
		return protocol.Response{}, err
	}
	recipients, err := req.list(1)
	if err != nil {
		return protocol.Response{}, err
	}
	body, err := req.rest(2)
	if err != nil {
		return protocol.Response{}, err
	}

	sender := req.user.Username
	relays := make([]*realms.Relay, len(recipients))
	for i, r := range recipients {
		relays[i] = &realms.Relay{Sender: sender, Recipient: r, Message: body}
	}
	if err := d.realms.RouteGroup(realm, relays...); err != nil {
		return protocol.Response{}, err
	}
	for _, r := range recipients {
		d.mail.RecordRealmSend(realm, sender, r, mailbox.Text(body))
	}
	return protocol.OK(), nil
}

func (d *Dispatcher) sendFileRealm(ctx context.Context, req request) (protocol.Response, error) {
	realm, err := d.realmArg(req, 0)
	if err != nil {
		return protocol.Response{}, err
	}
	recipient, err := req.arg(1)
	if err != nil {
		return protocol.Response{}, err
	}
	name, data, err := attachment(req, 2)
	if err != nil {
		return protocol.Response{}, err
	}

	// a local copy is kept for the sender's chat history
	handle, err := d.mail.StoreFile(ctx, name, data)
	if err != nil {
		return protocol.Response{}, err
	}

	sender := req.user.Username
	relay := &realms.Relay{Sender: sender, Recipient: recipient, FileName: baseName(name), Data: data}
	if err := d.realms.Route(realm, relay); err != nil {
		return protocol.Response{}, err
	}
	d.mail.RecordRealmSend(realm, sender, recipient, mailbox.File(handle))
	return protocol.OK(), nil
}

func (d *Dispatcher) sendGroupFileRealm(ctx context.Context, req request) (protocol.Response, error) {
	realm, err := d.realmArg(req, 0)
	if err != nil {
		return protocol.Response{}, err
	}
	recipients, err := req.list(1)
	if err != nil {
		return protocol.Response{}, err
	}
	name, data, err := attachment(req, 2)
	if err != nil {
		return protocol.Response{}, err
	}

	handle, err := d.mail.StoreFile(ctx, name, data)
	if err != nil {
		return protocol.Response{}, err
	}

	sender := req.user.Username
	relays := make([]*realms.Relay, len(recipients))
	for i, r := range recipients {
		relays[i] = &realms.Relay{Sender: sender, Recipient: r, FileName: baseName(name), Data: data}
	}
	if err := d.realms.RouteGroup(realm, relays...); err != nil {
		return protocol.Response{}, err
	}
	for _, r := range recipients {
		d.mail.RecordRealmSend(realm, sender, r, mailbox.File(handle))
	}
	return protocol.OK(), nil
}

// fetchRealmInbox filters by the origin tag peers put on their relays. The
// origin need not be registered here, since inbound traffic is peer-trusted.
func (d *Dispatcher) fetchRealmInbox(ctx context.Context, req request) (protocol.Response, error) {
	realm, err := req.arg(0)
	if err != nil {
		return protocol.Response{}, err
	}
	return protocol.Response{
		Status: protocol.StatusOK,
		Inbox:  toWire(d.mail.InboxFromRealm(req.user.Username, realm)),
	}, nil
}

func (d *Dispatcher) fetchRealmChat(ctx context.Context, req request) (protocol.Response, error) {
	realm, err := d.realmArg(req, 0)
	if err != nil {
		return protocol.Response{}, err
	}
	username, err := req.arg(1)
	if err != nil {
		return protocol.Response{}, err
	}
	if !d.users.Exists(username) {
		return protocol.Response{}, common.ErrUserNotFound
	}
	return protocol.Response{
		Status: protocol.StatusOK,
		Chat:   toWire(d.mail.OutboxToRealm(username, realm)),
	}, nil
}

func (d *Dispatcher) receiveRealmMessage(ctx context.Context, req request) (protocol.Response, error) {
	sender, realm, err := peerOrigin(req)
	if err != nil {
		return protocol.Response{}, err
	}
	recipient, err := req.arg(2)
	if err != nil {
		return protocol.Response{}, err
	}
	body, err := req.rest(3)
	if err != nil {
		return protocol.Response{}, err
	}

	if err := d.mail.ReceiveFromRealm(ctx, realm, sender, recipient, mailbox.Text(body)); err != nil {
		return protocol.Response{}, err
	}
	return protocol.OK(), nil
}

func (d *Dispatcher) receiveGroupRealmMessage(ctx context.Context, req request) (protocol.Response, error) {
	sender, realm, err := peerOrigin(req)
	if err != nil {
		return protocol.Response{}, err
	}
	recipients, err := req.list(2)
	if err != nil {
		return protocol.Response{}, err
	}
	body, err := req.rest(3)
	if err != nil {
		return protocol.Response{}, err
	}

	if err := d.mail.ReceiveGroupFromRealm(ctx, realm, sender, recipients, mailbox.Text(body)); err != nil {
		return protocol.Response{}, err
	}
	return protocol.OK(), nil
}

func (d *Dispatcher) receiveFileRealm(ctx context.Context, req request) (protocol.Response, error) {
	sender, realm, err := peerOrigin(req)
	if err != nil {
		return protocol.Response{}, err
	}
	recipient, err := req.arg(2)
	if err != nil {
		return protocol.Response{}, err
	}
	name, data, err := attachment(req, 3)
	if err != nil {
		return protocol.Response{}, err
	}

	if !d.users.Exists(recipient) {
		return protocol.Response{}, common.ErrRecipientNotFound
	}
	handle, err := d.mail.StoreFile(ctx, name, data)
	if err != nil {
		return protocol.Response{}, err
	}
	if err := d.mail.ReceiveFromRealm(ctx, realm, sender, recipient, mailbox.File(handle)); err != nil {
		return protocol.Response{}, err
	}
	return protocol.OK(), nil
}

func (d *Dispatcher) receiveGroupFileRealm(ctx context.Context, req request) (protocol.Response, error) {
	sender, realm, err := peerOrigin(req)
	if err != nil {
		return protocol.Response{}, err
	}
	recipients, err := req.list(2)
	if err != nil {
		return protocol.Response{}, err
	}
	name, data, err := attachment(req, 3)
	if err != nil {
		return protocol.Response{}, err
	}

	handle, err := d.mail.StoreFile(ctx, name, data)
	if err != nil {
		return protocol.Response{}, err
	}
	if err := d.mail.ReceiveGroupFromRealm(ctx, realm, sender, recipients, mailbox.File(handle)); err != nil {
		return protocol.Response{}, err
	}
	return protocol.OK(), nil
}

// realmArg reads a realm id and requires it to be registered here.
func (d *Dispatcher) realmArg(req request, i int) (string, error) {
	realm, err := req.arg(i)
	if err != nil {
		return "", err
	}
	if !d.realms.Exists(realm) {
		return "", common.ErrRealmNotFound
	}
	return realm, nil
}

// peerOrigin reads the sender and realm id that open every receive_* frame.
func peerOrigin(req request) (sender, realm string, err error) {
	if sender, err = req.arg(0); err != nil {
		return "", "", err
	}
	if realm, err = req.arg(1); err != nil {
		return "", "", err
	}
	return sender, realm, nil
}

// attachment reads a file path and its base64 payload starting at i.
func attachment(req request, i int) (string, []byte, error) {
	name, err := req.arg(i)
	if err != nil {
		return "", nil, err
	}
	encoded, err := req.arg(i + 1)
	if err != nil {
		return "", nil, err
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, common.ErrInvalidFileEncoding
	}
	return name, data, nil
}

// baseName is only called once the name has been accepted by the storage.
func baseName(name string) string {
	base, _ := storage.BaseName(name)
	return base
}

func toWire(entries []mailbox.Entry) []protocol.Entry {
	out := make([]protocol.Entry, len(entries))
	for i, e := range entries {
		out[i] = protocol.Entry{
			ID:        e.ID,
			Sender:    e.Sender,
			Recipient: e.Recipient,
			Message:   e.Message,
			FilePath:  e.FilePath,
			Realm:     e.Realm,
			Timestamp: e.CreatedAt.Format(common.TimestampLayout),
		}
	}
	return out
}
