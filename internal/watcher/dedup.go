package watcher

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
)

// SeenSet remembers which transactions have already produced a
// notification. Backfill and the live subscription overlap around the
// boundary block, and a reconnect replays recent logs, so the same tx
// hash can arrive more than once. The set is bounded; the launchpad only
// ever emits from one contract, so a few thousand entries cover any
// realistic overlap window.
type SeenSet struct {
	mu       sync.Mutex
	done     *lru.Cache
	inflight map[common.Hash]struct{}
}

// NewSeenSet builds a set that remembers the last size committed hashes.
func NewSeenSet(size int) (*SeenSet, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &SeenSet{
		done:     cache,
		inflight: make(map[common.Hash]struct{}),
	}, nil
}

// TryBegin claims a hash for processing. It returns false when the hash
// was already committed or is currently being processed; at most one
// caller can hold a claim for a given hash.
func (s *SeenSet) TryBegin(h common.Hash) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done.Contains(h) {
		return false
	}
	if _, ok := s.inflight[h]; ok {
		return false
	}
	s.inflight[h] = struct{}{}
	return true
}

// Commit marks a claimed hash as fully processed.
func (s *SeenSet) Commit(h common.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inflight, h)
	s.done.Add(h, struct{}{})
}

// Abort releases a claim without marking the hash processed, so a later
// delivery of the same transaction gets another attempt.
func (s *SeenSet) Abort(h common.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inflight, h)
}
