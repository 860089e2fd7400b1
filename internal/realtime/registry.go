package realtime

import (
	"encoding/json"
	"sync"

	"wayfarer/pkg/logger"
)

// Registry maps room ids to the sessions currently subscribed to them. It is
// constructed once per process and passed by reference to the manager and
// dispatcher; every mutation and every broadcast enumeration happens under
// the registry lock so a join or leave never races a fan-out snapshot.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[*Client]struct{}),
	}
}

// Join adds the session to the room's subscriber set. Idempotent.
func (r *Registry) Join(client *Client, room RoomRef) {
	key := room.String()

	r.mu.Lock()
	defer r.mu.Unlock()

	subscribers, ok := r.rooms[key]
	if !ok {
		subscribers = make(map[*Client]struct{})
		r.rooms[key] = subscribers
	}
	subscribers[client] = struct{}{}
}

// Leave removes the session from the room's subscriber set. Idempotent.
func (r *Registry) Leave(client *Client, room RoomRef) {
	key := room.String()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(client, key)
}

func (r *Registry) removeLocked(client *Client, key string) {
	subscribers, ok := r.rooms[key]
	if !ok {
		return
	}
	delete(subscribers, client)
	if len(subscribers) == 0 {
		delete(r.rooms, key)
	}
}

// RemoveClient prunes the session from every room and returns the room ids
// it was subscribed to.
func (r *Registry) RemoveClient(client *Client) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var roomIDs []string
	for key, subscribers := range r.rooms {
		if _, ok := subscribers[client]; ok {
			roomIDs = append(roomIDs, key)
			r.removeLocked(client, key)
		}
	}
	return roomIDs
}

// IsJoined reports whether the session is currently subscribed to the room.
func (r *Registry) IsJoined(client *Client, room RoomRef) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subscribers, ok := r.rooms[room.String()]
	if !ok {
		return false
	}
	_, joined := subscribers[client]
	return joined
}

// Subscribers returns a snapshot of the room's current sessions.
func (r *Registry) Subscribers(room RoomRef) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subscribers := r.rooms[room.String()]
	snapshot := make([]*Client, 0, len(subscribers))
	for client := range subscribers {
		snapshot = append(snapshot, client)
	}
	return snapshot
}

// Broadcast delivers the event to every session registered for the room at
// call time, except exclude if given. Best-effort: no buffering for sessions
// that join later, no ack, no retry.
func (r *Registry) Broadcast(room RoomRef, event string, data interface{}, exclude *Client) {
	payload, err := json.Marshal(ServerEvent{Event: event, Data: data})
	if err != nil {
		logger.Error("Failed to marshal %s broadcast for room %s: %v", event, room, err)
		return
	}

	for _, client := range r.Subscribers(room) {
		if client == exclude {
			continue
		}
		client.enqueue(payload)
	}
}
