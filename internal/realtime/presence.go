package realtime

import (
	"context"
	"sync"
	"time"

	"wayfarer/internal/domain/repository"
	"wayfarer/pkg/logger"
)

// PresenceTracker keeps per-user online state by reference-counting live
// sessions: a user is online while at least one tab or device is connected.
// It is the only writer of the persisted isOnline/lastSeen fields.
type PresenceTracker struct {
	mu       sync.Mutex
	sessions map[string]int
	users    repository.UserRepository
}

func NewPresenceTracker(users repository.UserRepository) *PresenceTracker {
	return &PresenceTracker{
		sessions: make(map[string]int),
		users:    users,
	}
}

// Connected records a new session. The online transition fires only for the
// user's first live session.
func (p *PresenceTracker) Connected(ctx context.Context, userID string) {
	p.mu.Lock()
	p.sessions[userID]++
	first := p.sessions[userID] == 1
	p.mu.Unlock()

	if !first {
		return
	}

	if err := p.users.SetOnlineStatus(ctx, userID, true, time.Now()); err != nil {
		logger.Error("Failed to mark user %s online: %v", userID, err)
	}
}

// Disconnected records a closed session and reports whether this was the
// user's last one. The offline transition fires only then.
func (p *PresenceTracker) Disconnected(ctx context.Context, userID string) bool {
	p.mu.Lock()
	count, ok := p.sessions[userID]
	if !ok {
		p.mu.Unlock()
		return false
	}
	count--
	if count <= 0 {
		delete(p.sessions, userID)
	} else {
		p.sessions[userID] = count
	}
	last := count <= 0
	p.mu.Unlock()

	if !last {
		return false
	}

	if err := p.users.SetOnlineStatus(ctx, userID, false, time.Now()); err != nil {
		logger.Error("Failed to mark user %s offline: %v", userID, err)
	}
	return true
}

func (p *PresenceTracker) IsOnline(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions[userID] > 0
}
