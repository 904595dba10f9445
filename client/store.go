package client

import (
	"maps"
	"sync"
	"time"
)

// Status is the lifecycle phase of the local session mirror.
type Status uint8

const (
	// StatusUnauthenticated means no session is present. Either no check
	// has happened yet or the last check came back empty.
	StatusUnauthenticated Status = iota

	// StatusLoading means a session operation is in flight.
	StatusLoading

	// StatusAuthenticated means the last check returned a non-empty user.
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session is an immutable snapshot of the store. Data is non-empty exactly
// when Status is StatusAuthenticated.
type Session struct {
	Status          Status
	Data            map[string]any
	LastRefreshedAt time.Time
	Token           string
}

// Authenticated reports whether the snapshot carries a signed-in user.
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// SessionStore holds the client's view of the current session. All reads
// return copies; mutation happens only through Client operations.
type SessionStore struct {
	mu      sync.RWMutex
	current Session
	subs    map[uint64]chan Session
	nextSub uint64
}

// NewSessionStore returns an empty store in StatusUnauthenticated.
func NewSessionStore() *SessionStore {
	return &SessionStore{subs: make(map[uint64]chan Session)}
}

// Snapshot returns a copy of the current session state.
func (ss *SessionStore) Snapshot() Session {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.copyLocked()
}

// Status returns the current lifecycle phase.
func (ss *SessionStore) Status() Status {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.current.Status
}

// Data returns a copy of the session payload, or nil when signed out.
func (ss *SessionStore) Data() map[string]any {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	if ss.current.Data == nil {
		return nil
	}
	return maps.Clone(ss.current.Data)
}

// LastRefreshedAt returns when the store last absorbed a successful
// session response. Zero until the first success.
func (ss *SessionStore) LastRefreshedAt() time.Time {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.current.LastRefreshedAt
}

// Token returns the bearer token from the last successful sign-in, if the
// backend issued one.
func (ss *SessionStore) Token() string {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.current.Token
}

// Subscribe registers a watcher. The returned channel receives a snapshot
// after every state change; slow consumers see the latest state, not every
// intermediate one. Call cancel to unsubscribe.
func (ss *SessionStore) Subscribe() (<-chan Session, func()) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	id := ss.nextSub
	ss.nextSub++
	ch := make(chan Session, 1)
	ss.subs[id] = ch

	cancel := func() {
		ss.mu.Lock()
		defer ss.mu.Unlock()
		if _, ok := ss.subs[id]; ok {
			delete(ss.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (ss *SessionStore) copyLocked() Session {
	snap := ss.current
	if snap.Data != nil {
		snap.Data = maps.Clone(snap.Data)
	}
	return snap
}

// publishLocked pushes the current snapshot to every subscriber. Buffered
// size-one channels plus drain-before-send keep this non-blocking.
func (ss *SessionStore) publishLocked() {
	for _, ch := range ss.subs {
		snap := ss.copyLocked()
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// beginLoad flips the store into StatusLoading without touching existing
// data, so a refresh does not flash the UI through signed-out.
func (ss *SessionStore) beginLoad() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.current.Status == StatusLoading {
		return
	}
	ss.current.Status = StatusLoading
	ss.publishLocked()
}

// absorb applies a successful session response. Empty data means the
// backend reports no session.
func (ss *SessionStore) absorb(data map[string]any, now time.Time) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if len(data) > 0 {
		ss.current.Status = StatusAuthenticated
		ss.current.Data = maps.Clone(data)
	} else {
		ss.current.Status = StatusUnauthenticated
		ss.current.Data = nil
		ss.current.Token = ""
	}
	ss.current.LastRefreshedAt = now
	ss.publishLocked()
}

// fail records an unsuccessful operation. Data is dropped so status and
// data never disagree, but LastRefreshedAt keeps its last good value.
func (ss *SessionStore) fail() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.current.Status = StatusUnauthenticated
	ss.current.Data = nil
	ss.publishLocked()
}

// clear wipes everything, including the bearer token. Used on sign-out.
func (ss *SessionStore) clear() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.current = Session{LastRefreshedAt: ss.current.LastRefreshedAt}
	ss.publishLocked()
}

func (ss *SessionStore) setToken(token string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.current.Token = token
}
