package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"wayfarer/internal/domain/entity"
	"wayfarer/internal/domain/repository"
	"wayfarer/internal/infrastructure/auth"
	"wayfarer/pkg/errors"
	"wayfarer/pkg/logger"
)

// Manager orchestrates session lifecycle: authenticate, track presence,
// auto-subscribe entitled rooms, route inbound events, clean up on
// disconnect. One instance per process, injected into the websocket handler
// and the usecases that push events.
type Manager struct {
	registry   *Registry
	presence   *PresenceTracker
	dispatcher *Dispatcher
	verifier   auth.TokenVerifier
	users      repository.UserRepository
	trips      repository.TripRepository

	idleTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*Client
}

func NewManager(
	registry *Registry,
	presence *PresenceTracker,
	dispatcher *Dispatcher,
	verifier auth.TokenVerifier,
	users repository.UserRepository,
	trips repository.TripRepository,
	idleTimeout time.Duration,
) *Manager {
	return &Manager{
		registry:    registry,
		presence:    presence,
		dispatcher:  dispatcher,
		verifier:    verifier,
		users:       users,
		trips:       trips,
		idleTimeout: idleTimeout,
		sessions:    make(map[string]*Client),
	}
}

// Connect authenticates the credential and brings a session online. A
// missing, malformed, or unresolvable token all collapse into the same
// rejection so callers learn nothing about account existence.
func (m *Manager) Connect(ctx context.Context, conn Conn, token string) (*Client, error) {
	if token == "" {
		return nil, errors.Unauthorized("Authentication error", nil)
	}

	userID, err := m.verifier.Verify(ctx, token)
	if err != nil {
		return nil, errors.Unauthorized("Authentication error", err)
	}

	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.Unauthorized("Authentication error", err)
	}

	client := NewClient(uuid.New().String(), user.ID, user.Name, conn)

	m.mu.Lock()
	m.sessions[client.SessionID] = client
	m.mu.Unlock()

	m.presence.Connected(ctx, user.ID)

	// Auto-subscribe every trip room the user is entitled to. Joins are
	// silent; only disconnects and explicit events are broadcast.
	trips, err := m.trips.ListForUser(ctx, user.ID)
	if err != nil {
		logger.Error("Failed to list trips for user %s on connect: %v", user.ID, err)
	} else {
		for _, trip := range trips {
			m.registry.Join(client, TripRoom(trip.ID))
		}
	}

	logger.Info("User %s connected with session %s", user.ID, client.SessionID)
	return client, nil
}

// Serve runs the session's pumps. Blocks until the socket closes.
func (m *Manager) Serve(client *Client) {
	go client.WritePump()
	client.ReadPump(m)
}

// HandleEvent routes one inbound frame through the dispatcher.
func (m *Manager) HandleEvent(client *Client, raw []byte) {
	m.dispatcher.Dispatch(context.Background(), client, raw)
}

// Disconnect tears a session down: prune registry entries, flip presence if
// this was the user's last session, and tell trip rooms the user went
// offline. Direct chats never receive coarse presence broadcasts; their
// online flag comes from profile reads.
func (m *Manager) Disconnect(client *Client) {
	m.mu.Lock()
	_, known := m.sessions[client.SessionID]
	delete(m.sessions, client.SessionID)
	m.mu.Unlock()
	if !known {
		return
	}

	roomIDs := m.registry.RemoveClient(client)

	ctx := context.Background()
	wentOffline := m.presence.Disconnected(ctx, client.UserID)

	if wentOffline {
		user := entity.PublicInfo{ID: client.UserID, Name: client.UserName}
		for _, roomID := range roomIDs {
			room, err := ParseRoomID(roomID)
			if err != nil || room.Kind != RoomKindTrip {
				continue
			}
			m.registry.Broadcast(room, EventUserOffline, UserEventPayload{
				TripID: room.ID,
				User:   user,
			}, nil)
		}
	}

	client.Close()
	logger.Info("User %s disconnected session %s", client.UserID, client.SessionID)
}

// BroadcastToTrip pushes an event into a trip room on behalf of the HTTP
// layer (participant confirmations, departures).
func (m *Manager) BroadcastToTrip(tripID, event string, data interface{}) {
	m.registry.Broadcast(TripRoom(tripID), event, data, nil)
}

// BroadcastToChat pushes an event into a chat room, excluding the sender's
// sessions so the HTTP response stays the only echo the sender sees.
func (m *Manager) BroadcastToChat(chatID, event string, data interface{}, excludeUserID string) {
	payload, err := json.Marshal(ServerEvent{Event: event, Data: data})
	if err != nil {
		logger.Error("Failed to marshal %s event for chat %s: %v", event, chatID, err)
		return
	}
	for _, client := range m.registry.Subscribers(ChatRoom(chatID)) {
		if client.UserID == excludeUserID {
			continue
		}
		client.enqueue(payload)
	}
}

// BroadcastGlobal announces an event to every connected session, whatever
// rooms it is in. Used for admin trip approvals.
func (m *Manager) BroadcastGlobal(event string, data interface{}) {
	payload, err := json.Marshal(ServerEvent{Event: event, Data: data})
	if err != nil {
		logger.Error("Failed to marshal global %s event: %v", event, err)
		return
	}

	m.mu.RLock()
	snapshot := make([]*Client, 0, len(m.sessions))
	for _, client := range m.sessions {
		snapshot = append(snapshot, client)
	}
	m.mu.RUnlock()

	for _, client := range snapshot {
		client.enqueue(payload)
	}
}

// SessionCount reports live sessions, used by the health endpoint.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
