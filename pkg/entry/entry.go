package entry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/submux/submux-go/pkg/log"
	"github.com/submux/submux-go/pkg/pubsub"
)

// Entry is one physical pub/sub connection admitted into a pool, together
// with the subscription state multiplexed onto it.
type Entry struct {
	id   string
	conn Conn
	svc  Service
	cfg  Config

	slots *slotCounter

	// queues maps pubsub.ChannelName to *channelQueue.
	queues sync.Map

	// pending maps pendingKey to *pendingAck.
	pending sync.Map

	// testHookQueueLookup, if set, runs after a registry lookup and before
	// the queue found is locked.
	testHookQueueLookup func(pubsub.ChannelName, *channelQueue)

	logger         *slog.Logger
	protocolLogger log.Logger
}

// New creates an Entry driving conn. svc receives the compensating
// unsubscribes issued on failure and rollback.
func New(conn Conn, svc Service, cfg Config) *Entry {
	cfg = cfg.withDefaults()

	id := ""
	if c, ok := conn.(identifier); ok {
		id = c.ID()
	}
	if id == "" {
		id = uuid.NewString()
	}

	return &Entry{
		id:             id,
		conn:           conn,
		svc:            svc,
		cfg:            cfg,
		slots:          newSlotCounter(cfg.SubscriptionsPerConnection),
		logger:         cfg.Logger,
		protocolLogger: cfg.ProtocolLogger,
	}
}

// ID returns the entry's connection ID.
func (e *Entry) ID() string { return e.id }

// Conn returns the underlying connection.
func (e *Entry) Conn() Conn { return e.conn }

// Capacity returns the configured number of slots.
func (e *Entry) Capacity() int { return e.cfg.SubscriptionsPerConnection }

func (e *Entry) String() string {
	return fmt.Sprintf("Entry [id=%s, freeSlots=%d/%d, conn=%v]",
		e.id, e.slots.load(), e.cfg.SubscriptionsPerConnection, e.conn)
}

func (e *Entry) debugLog(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, append([]any{"entry", e.id}, args...)...)
	}
}

func (e *Entry) logState(entity log.StateEntity, kind pubsub.Kind, channel pubsub.ChannelName, from, to, reason string) {
	if e.protocolLogger == nil {
		return
	}
	e.protocolLogger.Log(log.NewStateEvent(e.id, entity, kind, channel, from, to, reason))
}
