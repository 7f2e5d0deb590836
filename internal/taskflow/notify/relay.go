package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/domain"
)

// DefaultChannel is the redis pub/sub channel shared by every instance.
const DefaultChannel = "taskflow:events"

// Relay shares events between instances through redis pub/sub. Local
// publishes go to redis only; every instance, this one included, delivers
// what it receives from the channel to its own hub. When redis is
// unreachable the event is delivered locally instead.
type Relay struct {
	rdb     redis.UniversalClient
	hub     *Hub
	channel string
	logger  *slog.Logger

	out  chan domain.Event
	wg   sync.WaitGroup
	stop context.CancelFunc
}

func NewRelay(rdb redis.UniversalClient, hub *Hub, channel string, logger *slog.Logger) *Relay {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		rdb:     rdb,
		hub:     hub,
		channel: channel,
		logger:  logger,
		out:     make(chan domain.Event, 256),
	}
}

// Start subscribes to the channel and begins relaying. It returns once the
// subscription is confirmed.
func (r *Relay) Start(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("notify: subscribe %s: %w", r.channel, err)
	}

	ctx, r.stop = context.WithCancel(context.WithoutCancel(ctx))
	r.wg.Add(2)
	go r.listen(ctx, sub)
	go r.forward(ctx)

	r.logger.Info("event relay started", "channel", r.channel)
	return nil
}

// Stop ends both relay loops and waits for them.
func (r *Relay) Stop() {
	if r.stop == nil {
		return
	}
	r.stop()
	r.wg.Wait()
	r.logger.Info("event relay stopped")
}

// Publish queues e for redis. A full queue drops the event.
func (r *Relay) Publish(ctx context.Context, e domain.Event) {
	select {
	case r.out <- e:
	default:
		r.logger.WarnContext(ctx, "relay queue full, event dropped", "type", e.Type, "topic", e.Topic)
	}
}

func (r *Relay) forward(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-r.out:
			payload, err := json.Marshal(e)
			if err == nil {
				err = r.rdb.Publish(ctx, r.channel, payload).Err()
			}
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				r.logger.Warn("relay publish failed, delivering locally", "type", e.Type, "error", err)
				r.hub.Publish(ctx, e)
			}
		}
	}
}

func (r *Relay) listen(ctx context.Context, sub *redis.PubSub) {
	defer r.wg.Done()
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var e domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				r.logger.Warn("relay received malformed event", "error", err)
				continue
			}
			r.hub.Publish(ctx, e)
		}
	}
}
