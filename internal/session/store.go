// Package session holds per-user in-memory state: the workout ledger, the
// coach chat window and the request rate limiter.
//
// A Store is safe for concurrent use. Users are spread across shards so that
// unrelated users rarely contend on the same lock; each user's state has its
// own mutex.
package session

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Defaults match the coach demo.
const (
	DefaultHistoryLimit = 20
	DefaultRateLimit    = 3
	DefaultRateWindow   = 10 * time.Second
	DefaultShards       = 16
)

// Clock returns the current time.
type Clock func() time.Time

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(s *Store) { s.now = c }
}

// WithHistoryLimit sets the number of exchanges kept per user. The window
// holds twice as many turns.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithRateLimit sets how many charges a user may hold within window.
func WithRateLimit(limit int, window time.Duration) Option {
	return func(s *Store) {
		if limit > 0 {
			s.rateLimit = limit
		}
		if window > 0 {
			s.rateWindow = window
		}
	}
}

// WithShards sets the number of shards.
func WithShards(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// Store owns all per-user session state.
type Store struct {
	now          Clock
	historyLimit int
	rateLimit    int
	rateWindow   time.Duration
	shardCount   int
	shards       []*shard
}

type shard struct {
	mu    sync.Mutex
	users map[string]*userState
}

type userState struct {
	mu      sync.Mutex
	ledger  ledger
	chat    chatWindow
	charges rateCharges
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		now:          time.Now,
		historyLimit: DefaultHistoryLimit,
		rateLimit:    DefaultRateLimit,
		rateWindow:   DefaultRateWindow,
		shardCount:   DefaultShards,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{users: make(map[string]*userState)}
	}
	return s
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// ChatCap is the maximum number of turns kept per user.
func (s *Store) ChatCap() int {
	return 2 * s.historyLimit
}

// RateWindow is the lifetime of one rate-limit charge.
func (s *Store) RateWindow() time.Duration {
	return s.rateWindow
}

func (s *Store) shardFor(uid string) *shard {
	return s.shards[xxhash.Sum64String(uid)%uint64(len(s.shards))]
}

// user returns the state for uid, creating it when create is set. A nil
// result means the user has never written anything.
func (s *Store) user(uid string, create bool) *userState {
	sh := s.shardFor(uid)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	u, ok := sh.users[uid]
	if !ok && create {
		u = &userState{chat: newChatWindow(s.ChatCap())}
		sh.users[uid] = u
	}
	return u
}

// Users returns the number of users with state.
func (s *Store) Users() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.users)
		sh.mu.Unlock()
	}
	return n
}
