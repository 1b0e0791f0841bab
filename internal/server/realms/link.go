package realms

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/realmchat/internal/common"
	"github.com/dmitrijs2005/realmchat/internal/logging"
	"github.com/dmitrijs2005/realmchat/internal/protocol"
	"github.com/dmitrijs2005/realmchat/internal/server/metrics"
)

// Conn is the peer connection a link relays over.
type Conn interface {
	Do(ctx context.Context, line string) (protocol.Response, error)
	Close() error
}

// Link owns the connection to one peer realm. Relays are queued per
// recipient and sent by a single worker in arrival order.
type Link struct {
	id      string
	origin  string // realm id the peer tags our relays with
	address string
	conn    Conn

	requestTimeout time.Duration
	log            logging.Logger
	metrics        metrics.Recorder
	status         StatusReporter

	mu     sync.Mutex
	queues map[string][]*Relay // recipient -> FIFO
	order  []string            // recipient of every queued relay, oldest first
	down   bool

	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newLink(id, origin, address string, conn Conn, requestTimeout time.Duration, log logging.Logger, rec metrics.Recorder, status StatusReporter) *Link {
	return &Link{
		id:             id,
		origin:         origin,
		address:        address,
		conn:           conn,
		requestTimeout: requestTimeout,
		log:            log.With("realm", id, "address", address),
		metrics:        rec,
		status:         status,
		queues:         make(map[string][]*Relay),
		notify:         make(chan struct{}, 1),
		done:           make(chan struct{}),
	}
}

// Enqueue appends r to its recipient's queue. It never blocks on I/O.
func (l *Link) Enqueue(r *Relay) error {
	l.mu.Lock()
	if l.down {
		l.mu.Unlock()
		return common.ErrRealmLinkDown
	}
	l.queues[r.Recipient] = append(l.queues[r.Recipient], r)
	l.order = append(l.order, r.Recipient)
	depth := len(l.order)
	l.mu.Unlock()

	l.metrics.SetRealmQueueDepth(l.id, depth)

	select {
	case l.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of queued relays.
func (l *Link) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

// Down reports whether the link has been torn down.
func (l *Link) Down() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.down
}

func (l *Link) run(ctx context.Context) {
	l.log.Info(ctx, "realm link started")
	for {
		r, ok := l.next()
		if !ok {
			select {
			case <-l.notify:
				continue
			case <-l.done:
				return
			}
		}

		if err := l.send(ctx, r); err != nil {
			l.teardown(ctx, err)
			return
		}
	}
}

// next pops the oldest relay, or reports false when idle or down.
func (l *Link) next() (*Relay, bool) {
	l.mu.Lock()
	if l.down || len(l.order) == 0 {
		l.mu.Unlock()
		return nil, false
	}

	recipient := l.order[0]
	l.order = l.order[1:]
	q := l.queues[recipient]
	r := q[0]
	if len(q) == 1 {
		delete(l.queues, recipient)
	} else {
		l.queues[recipient] = q[1:]
	}
	depth := len(l.order)
	l.mu.Unlock()

	l.metrics.SetRealmQueueDepth(l.id, depth)
	return r, true
}

// send relays r and waits for the peer's answer. Only transport failures are
// returned; an ERROR answer is logged and the relay is not retried.
func (l *Link) send(ctx context.Context, r *Relay) error {
	reqCtx := ctx
	if l.requestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, l.requestTimeout)
		defer cancel()
	}

	resp, err := l.conn.Do(reqCtx, r.request(l.origin))
	if err != nil {
		l.metrics.RecordRelay(l.id, metrics.RelayFailed)
		return err
	}

	if !resp.IsOK() {
		l.metrics.RecordRelay(l.id, metrics.RelayRejected)
		l.log.Warn(ctx, "peer rejected relay",
			"sender", r.Sender, "recipient", r.Recipient, "reason", resp.Message)
		return nil
	}

	l.metrics.RecordRelay(l.id, metrics.RelayDelivered)
	l.log.Debug(ctx, "relay delivered", "sender", r.Sender, "recipient", r.Recipient)
	return nil
}

// teardown marks the link down after a transport failure and drops whatever
// is still queued. The link is not recreated.
func (l *Link) teardown(ctx context.Context, cause error) {
	dropped, first := l.shutdown()
	if !first {
		return
	}
	l.log.Error(ctx, "realm link down", "error", cause, "dropped", dropped)
	l.status.SetRealmStatus(l.id, false)
}

// stop ends the worker on process shutdown.
func (l *Link) stop(ctx context.Context) {
	l.once.Do(func() { close(l.done) })
	dropped, first := l.shutdown()
	if first && dropped > 0 {
		l.log.Warn(ctx, "realm link closed with pending relays", "dropped", dropped)
	}
}

// shutdown closes the connection and empties the queues. first is true for
// the call that actually changed the state.
func (l *Link) shutdown() (dropped int, first bool) {
	l.mu.Lock()
	if l.down {
		l.mu.Unlock()
		return 0, false
	}
	l.down = true
	dropped = len(l.order)
	l.order = nil
	l.queues = make(map[string][]*Relay)
	l.mu.Unlock()

	_ = l.conn.Close()
	if dropped > 0 {
		l.metrics.RecordDropped(l.id, dropped)
	}
	l.metrics.SetRealmQueueDepth(l.id, 0)
	return dropped, true
}
