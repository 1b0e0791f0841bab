// Package mailbox holds per-user incoming and outgoing entries and the
// delivery operations over them.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/realmchat/internal/common"
	"github.com/dmitrijs2005/realmchat/internal/server/storage"
)

// Directory answers whether a username is registered locally.
type Directory interface {
	Exists(username string) bool
}

type box struct {
	incoming []Entry
	outgoing []Entry
}

// Store is safe for concurrent use. All appends happen under one mutex, so a
// recipient's entries are ordered by commit order.
type Store struct {
	mu    sync.RWMutex
	boxes map[string]*box

	users Directory
	files storage.Store
	now   func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(users Directory, files storage.Store, opts ...Option) *Store {
	s := &Store{
		boxes: make(map[string]*box),
		users: users,
		files: files,
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Deliver appends an incoming entry for recipient and the mirrored outgoing
// entry for sender.
func (s *Store) Deliver(ctx context.Context, sender, recipient, message string) error {
	if !s.users.Exists(recipient) {
		return common.ErrRecipientNotFound
	}
	s.deliver(sender, recipient, "", Text(message))
	return nil
}

// DeliverGroup delivers to each recipient in order. It stops at the first
// unknown recipient; deliveries made before that are kept.
func (s *Store) DeliverGroup(ctx context.Context, sender string, recipients []string, message string) error {
	return s.deliverGroup(sender, recipients, "", Text(message))
}

// DeliverFile stores data under the base name of filename and delivers the
// resulting handle.
func (s *Store) DeliverFile(ctx context.Context, sender, recipient, filename string, data []byte) error {
	if !s.users.Exists(recipient) {
		return common.ErrRecipientNotFound
	}
	handle, err := s.StoreFile(ctx, filename, data)
	if err != nil {
		return err
	}
	s.deliver(sender, recipient, "", File(handle))
	return nil
}

// DeliverGroupFile stores data once and delivers the handle to every
// recipient with DeliverGroup semantics.
func (s *Store) DeliverGroupFile(ctx context.Context, sender string, recipients []string, filename string, data []byte) error {
	handle, err := s.StoreFile(ctx, filename, data)
	if err != nil {
		return err
	}
	return s.deliverGroup(sender, recipients, "", File(handle))
}

// StoreFile hands data to the file storage and returns its handle.
func (s *Store) StoreFile(ctx context.Context, filename string, data []byte) (string, error) {
	handle, err := s.files.Put(ctx, filename, data)
	if err != nil {
		return "", fmt.Errorf("store attachment: %w", err)
	}
	return handle, nil
}

// ReceiveFromRealm records an entry relayed by a peer realm. The sender lives
// on the peer, so only the recipient's incoming side is written.
func (s *Store) ReceiveFromRealm(ctx context.Context, realm, sender, recipient string, c Content) error {
	if !s.users.Exists(recipient) {
		return common.ErrRecipientNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.boxLocked(recipient)
	b.incoming = append(b.incoming, s.entry(sender, recipient, realm, c))
	return nil
}

// ReceiveGroupFromRealm applies ReceiveFromRealm per recipient and stops at
// the first unknown one.
func (s *Store) ReceiveGroupFromRealm(ctx context.Context, realm, sender string, recipients []string, c Content) error {
	for _, r := range recipients {
		if err := s.ReceiveFromRealm(ctx, realm, sender, r, c); err != nil {
			if errors.Is(err, common.ErrRecipientNotFound) {
				return &common.RecipientNotFoundError{Username: r}
			}
			return err
		}
	}
	return nil
}

// RecordRealmSend mirrors a relayed message in the local sender's outgoing
// mailbox.
func (s *Store) RecordRealmSend(realm, sender, recipient string, c Content) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.boxLocked(sender)
	b.outgoing = append(b.outgoing, s.entry(sender, recipient, realm, c))
}

// Inbox returns a snapshot of username's incoming entries in arrival order.
func (s *Store) Inbox(username string) []Entry {
	return s.snapshot(username, true, nil)
}

// Outbox returns a snapshot of username's outgoing entries.
func (s *Store) Outbox(username string) []Entry {
	return s.snapshot(username, false, nil)
}

// InboxFromRealm returns incoming entries relayed from realm.
func (s *Store) InboxFromRealm(username, realm string) []Entry {
	return s.snapshot(username, true, func(e Entry) bool { return e.Realm == realm })
}

// OutboxToRealm returns outgoing entries sent to realm.
func (s *Store) OutboxToRealm(username, realm string) []Entry {
	return s.snapshot(username, false, func(e Entry) bool { return e.Realm == realm })
}

func (s *Store) deliverGroup(sender string, recipients []string, realm string, c Content) error {
	for _, r := range recipients {
		if !s.users.Exists(r) {
			return &common.RecipientNotFoundError{Username: r}
		}
		s.deliver(sender, r, realm, c)
	}
	return nil
}

func (s *Store) deliver(sender, recipient, realm string, c Content) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in := s.boxLocked(recipient)
	in.incoming = append(in.incoming, s.entry(sender, recipient, realm, c))

	out := s.boxLocked(sender)
	out.outgoing = append(out.outgoing, s.entry(sender, recipient, realm, c))
}

func (s *Store) snapshot(username string, incoming bool, keep func(Entry) bool) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boxes[username]
	if !ok {
		return []Entry{}
	}
	src := b.outgoing
	if incoming {
		src = b.incoming
	}

	out := make([]Entry, 0, len(src))
	for _, e := range src {
		if keep == nil || keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// boxLocked must be called with s.mu held for writing.
func (s *Store) boxLocked(username string) *box {
	b, ok := s.boxes[username]
	if !ok {
		b = &box{}
		s.boxes[username] = b
	}
	return b
}

func (s *Store) entry(sender, recipient, realm string, c Content) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Sender:    sender,
		Recipient: recipient,
		Message:   c.Message,
		FilePath:  c.FilePath,
		Realm:     realm,
		CreatedAt: s.now(),
	}
}
