// Package realms keeps the peer realms this server relays to. Every realm
// owns a Link: one outbound connection, per-recipient queues and a worker
// that forwards queued relays with the receive_* commands.
package realms

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/realmchat/internal/client"
	"github.com/dmitrijs2005/realmchat/internal/common"
	"github.com/dmitrijs2005/realmchat/internal/logging"
	"github.com/dmitrijs2005/realmchat/internal/netx"
	"github.com/dmitrijs2005/realmchat/internal/server/metrics"
)

// StatusReporter is told when a realm link comes up or goes down.
type StatusReporter interface {
	SetRealmStatus(realm string, serving bool)
}

type nopStatus struct{}

func (nopStatus) SetRealmStatus(string, bool) {}

// DialFunc opens a connection to a peer. ctx carries the dial timeout.
type DialFunc func(ctx context.Context, address string) (Conn, error)

func dialClient(ctx context.Context, address string) (Conn, error) {
	return client.Dial(ctx, address, 0)
}

type Config struct {
	// LocalName is the realm id this server announces in receive_* frames.
	// Empty falls back to the id the peer was registered under, which only
	// works when both servers use the same name for each other.
	LocalName      string
	DialTimeout    time.Duration
	RequestTimeout time.Duration
}

type Option func(*Registry)

func WithDialer(d DialFunc) Option {
	return func(r *Registry) { r.dial = d }
}

func WithStatusReporter(s StatusReporter) Option {
	return func(r *Registry) { r.status = s }
}

func WithMetrics(m metrics.Recorder) Option {
	return func(r *Registry) { r.metrics = m }
}

// Registry is safe for concurrent use.
type Registry struct {
	cfg     Config
	log     logging.Logger
	dial    DialFunc
	status  StatusReporter
	metrics metrics.Recorder

	mu     sync.RWMutex
	links  map[string]*Link // nil value: id reserved, dial in progress
	closed bool

	// workers run under ctx and are awaited by Close
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRegistry(cfg Config, log logging.Logger, opts ...Option) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		cfg:     cfg,
		log:     log,
		dial:    dialClient,
		status:  nopStatus{},
		metrics: metrics.Nop{},
		links:   make(map[string]*Link),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Create connects to the peer at host:port and registers it as id. The id is
// reserved while dialing, so concurrent creates of one id cannot both
// succeed. A failed dial releases the id.
func (r *Registry) Create(ctx context.Context, id, host, port string) error {
	address, err := netx.PeerAddress(host, port)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidProtocol, err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return common.ErrRealmLinkDown
	}
	if _, taken := r.links[id]; taken {
		r.mu.Unlock()
		return common.ErrRealmAlreadyExists
	}
	r.links[id] = nil
	r.mu.Unlock()

	dialCtx := ctx
	if r.cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, r.cfg.DialTimeout)
		defer cancel()
	}

	conn, err := r.dial(dialCtx, address)
	if err != nil {
		r.release(id)
		r.log.Warn(ctx, "realm unreachable", "realm", id, "address", address, "error", err)
		return fmt.Errorf("%w: %w", common.ErrRealmUnreachable, err)
	}

	origin := r.cfg.LocalName
	if origin == "" {
		origin = id
	}
	link := newLink(id, origin, address, conn, r.cfg.RequestTimeout, r.log, r.metrics, r.status)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = conn.Close()
		return common.ErrRealmLinkDown
	}
	r.links[id] = link
	// reported before the worker starts so an early teardown wins
	r.status.SetRealmStatus(id, true)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		link.run(r.ctx)
	}()
	r.mu.Unlock()

	r.log.Info(ctx, "realm added", "realm", id, "address", address)
	return nil
}

// Route queues one relay on the realm's link.
func (r *Registry) Route(id string, relay *Relay) error {
	link, err := r.link(id)
	if err != nil {
		return err
	}
	return link.Enqueue(relay)
}

// RouteGroup queues each relay independently, stopping at the first error.
func (r *Registry) RouteGroup(id string, relays ...*Relay) error {
	link, err := r.link(id)
	if err != nil {
		return err
	}
	for _, relay := range relays {
		if err := link.Enqueue(relay); err != nil {
			return err
		}
	}
	return nil
}

// Exists reports whether id is registered. Ids still being dialed are not.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.links[id] != nil
}

// Realms lists registered realm ids.
func (r *Registry) Realms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.links))
	for id, l := range r.links {
		if l != nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// Close stops every link and waits for the workers. Pending relays are
// dropped.
func (r *Registry) Close(ctx context.Context) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	links := make([]*Link, 0, len(r.links))
	for _, l := range r.links {
		if l != nil {
			links = append(links, l)
		}
	}
	r.mu.Unlock()

	r.cancel()
	for _, l := range links {
		l.stop(ctx)
	}
	r.wg.Wait()
}

func (r *Registry) link(id string) (*Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l := r.links[id]
	if l == nil {
		return nil, common.ErrRealmNotFound
	}
	return l, nil
}

func (r *Registry) release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.links[id] == nil {
		delete(r.links, id)
	}
}
