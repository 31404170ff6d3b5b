package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// clientBuffer is the number of undelivered messages a subscriber may hold
// before new ones are dropped for it.
const clientBuffer = 64

const (
	channelPrefix  = "trackbook:"
	channelSuffix  = ":events"
	channelPattern = channelPrefix + "*" + channelSuffix
)

// Hub fans events out to the subscribers of each track.
//
// With a Redis client every published event is also sent on the track's
// channel, and events published by other instances are relayed to local
// subscribers. A slow subscriber never blocks a publisher: when its buffer
// is full the message is dropped for that subscriber only.
type Hub struct {
	redis  *redis.Client
	pubsub *redis.PubSub
	origin string
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}

	done chan struct{}
}

// Client is one subscriber of a track. Send receives JSON encoded events and
// is closed by Unregister.
type Client struct {
	TrackID uuid.UUID
	Send    chan []byte
}

// envelope is the Redis payload. Origin lets an instance skip its own events,
// which it has already delivered locally.
type envelope struct {
	Origin string          `json:"origin"`
	Event  json.RawMessage `json:"event"`
}

// NewHub returns a hub that only delivers to local subscribers.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		origin:  uuid.NewString(),
		logger:  logger,
		clients: map[uuid.UUID]map[*Client]struct{}{},
		done:    make(chan struct{}),
	}
}

// NewRedisHub returns a hub that also relays events through Redis. It waits
// for the pattern subscription to be confirmed before returning.
func NewRedisHub(ctx context.Context, client *redis.Client, logger *slog.Logger) (*Hub, error) {
	h := NewHub(logger)
	h.redis = client
	h.pubsub = client.PSubscribe(ctx, channelPattern)
	if _, err := h.pubsub.Receive(ctx); err != nil {
		_ = h.pubsub.Close()
		return nil, fmt.Errorf("events.NewRedisHub: subscribe: %w", err)
	}
	go h.relay()
	return h, nil
}

// Register adds a subscriber for trackID.
func (h *Hub) Register(trackID uuid.UUID) *Client {
	c := &Client{TrackID: trackID, Send: make(chan []byte, clientBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[trackID] == nil {
		h.clients[trackID] = map[*Client]struct{}{}
	}
	h.clients[trackID][c] = struct{}{}
	return c
}

// Unregister removes c and closes its Send channel. Calling it twice is safe.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.TrackID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.TrackID)
	}
	close(c.Send)
}

// Subscribers returns the number of local subscribers of trackID.
func (h *Hub) Subscribers(trackID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[trackID])
}

// Publish delivers ev to local subscribers and, when configured, to Redis.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events.Hub.Publish: %w", err)
	}
	h.deliver(ev.TrackID, payload)

	if h.redis == nil {
		return nil
	}
	msg, err := json.Marshal(envelope{Origin: h.origin, Event: payload})
	if err != nil {
		return fmt.Errorf("events.Hub.Publish: %w", err)
	}
	if err := h.redis.Publish(ctx, redisChannel(ev.TrackID), msg).Err(); err != nil {
		return fmt.Errorf("events.Hub.Publish: redis: %w", err)
	}
	return nil
}

// Close stops the Redis relay. Local subscribers stay registered.
func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	err := h.pubsub.Close()
	<-h.done
	return err
}

// deliver sends payload to every local subscriber of trackID without blocking.
// Sends happen under the read lock so Unregister cannot close a channel mid-send.
func (h *Hub) deliver(trackID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[trackID] {
		select {
		case c.Send <- payload:
		default:
			h.logger.Debug("dropping event for slow subscriber", "track_id", trackID)
		}
	}
}

// relay forwards events published by other instances to local subscribers.
func (h *Hub) relay() {
	defer close(h.done)

	for msg := range h.pubsub.Channel() {
		trackID, ok := trackIDFromChannel(msg.Channel)
		if !ok {
			continue
		}
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			h.logger.Warn("discarding malformed redis event", "channel", msg.Channel, "error", err)
			continue
		}
		if env.Origin == h.origin {
			continue
		}
		h.deliver(trackID, env.Event)
	}
}

func redisChannel(trackID uuid.UUID) string {
	return channelPrefix + trackID.String() + channelSuffix
}

// trackIDFromChannel parses trackbook:{id}:events.
func trackIDFromChannel(ch string) (uuid.UUID, bool) {
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(strings.TrimSuffix(strings.TrimPrefix(ch, channelPrefix), channelSuffix))
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}
