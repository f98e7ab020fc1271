package stream

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix = "esterun:session:"
	sendBuffer    = 64
)

// publishTimeout bounds the relay publish so a stalled redis cannot hold up
// the session loop calling Broadcast.
var publishTimeout = 500 * time.Millisecond

// Hub fans live snapshots out to websocket clients. With redis configured,
// every broadcast is relayed so that clients connected to another API
// instance receive it too.
type Hub struct {
	redis   *redis.Client
	origin  string
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex

	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

type Client struct {
	SessionID string
	Send      chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		origin:  uuid.NewString(),
		clients: map[string]map[*Client]struct{}{},
	}
	if redisClient == nil {
		return h
	}

	ctx, cancel := context.WithCancel(context.Background())
	pubsub := redisClient.PSubscribe(ctx, channelPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		log.Printf("stream: redis relay disabled: %v", err)
		_ = pubsub.Close()
		cancel()
		return h
	}
	h.pubsub = pubsub
	h.cancel = cancel
	h.done = make(chan struct{})
	go h.relay()
	return h
}

func (h *Hub) Register(sessionID string) *Client {
	client := &Client{
		SessionID: sessionID,
		Send:      make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = map[*Client]struct{}{}
	}
	h.clients[sessionID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessionClients, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	if _, ok := sessionClients[client]; !ok {
		return
	}
	delete(sessionClients, client)
	if len(sessionClients) == 0 {
		delete(h.clients, client.SessionID)
	}
	close(client.Send)
}

// Subscribers reports how many local clients watch a session.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// Broadcast delivers payload to local clients and relays it through redis.
// Slow clients drop messages rather than block the publisher.
func (h *Hub) Broadcast(sessionID string, payload []byte) {
	h.deliver(sessionID, payload)

	if h.pubsub == nil {
		return
	}
	msg := h.origin + "|" + string(payload)
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := h.redis.Publish(ctx, redisChannel(sessionID), msg).Err(); err != nil {
		log.Printf("stream: redis publish %s: %v", sessionID, err)
	}
}

// Close stops the redis relay. Registered clients are left untouched.
func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	h.cancel()
	err := h.pubsub.Close()
	<-h.done
	return err
}

func (h *Hub) deliver(sessionID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[sessionID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) relay() {
	defer close(h.done)
	for msg := range h.pubsub.Channel() {
		origin, payload, ok := strings.Cut(msg.Payload, "|")
		if !ok || origin == h.origin {
			continue
		}
		sessionID := sessionIDFromChannel(msg.Channel)
		if sessionID == "" {
			continue
		}
		h.deliver(sessionID, []byte(payload))
	}
}

func redisChannel(sessionID string) string {
	return channelPrefix + sessionID
}

func sessionIDFromChannel(ch string) string {
	id, ok := strings.CutPrefix(ch, channelPrefix)
	if !ok {
		return ""
	}
	return id
}
