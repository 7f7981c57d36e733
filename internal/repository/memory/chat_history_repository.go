package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"ai-chatstream-be/internal/repository/contract"
	"ai-chatstream-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

// ChatHistoryRepository keeps histories in process memory. It backs local
// runs without Redis.
type ChatHistoryRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewChatHistoryRepository creates a store whose sessions expire after ttl
// of inactivity. A zero ttl keeps them for the life of the process.
func NewChatHistoryRepository(ttl time.Duration) *ChatHistoryRepository {
	expiration := cache.NoExpiration
	if ttl > 0 {
		expiration = ttl
	}
	return &ChatHistoryRepository{
		cache: cache.New(expiration, 10*time.Minute),
	}
}

func cacheKey(session store.SessionKey) string {
	return fmt.Sprintf("chat_history:%s:%d", session.UserName, session.SessionID)
}

func (r *ChatHistoryRepository) Append(ctx context.Context, session store.SessionKey, turn store.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cacheKey(session)
	var turns []store.Turn
	if x, found := r.cache.Get(key); found {
		turns = x.([]store.Turn)
	}
	// Copy on write so earlier readers keep a stable slice.
	next := make([]store.Turn, len(turns), len(turns)+1)
	copy(next, turns)
	r.cache.Set(key, append(next, turn), cache.DefaultExpiration)
	return nil
}

func (r *ChatHistoryRepository) ReadOrdered(ctx context.Context, session store.SessionKey) ([]store.Turn, error) {
	if x, found := r.cache.Get(cacheKey(session)); found {
		return x.([]store.Turn), nil
	}
	return []store.Turn{}, nil
}

func (r *ChatHistoryRepository) Snapshots(ctx context.Context, userName string) ([]contract.SessionSnapshot, error) {
	prefix := "chat_history:" + userName + ":"

	snapshots := []contract.SessionSnapshot{}
	for key, item := range r.cache.Items() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(key, prefix), 10, 64)
		if err != nil {
			continue
		}
		snapshots = append(snapshots, contract.SessionSnapshot{
			UserName:  userName,
			SessionID: id,
			LastMsg:   store.LastQuestion(item.Object.([]store.Turn)),
		})
	}

	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].SessionID > snapshots[j].SessionID })
	return snapshots, nil
}

func (r *ChatHistoryRepository) Delete(ctx context.Context, session store.SessionKey) error {
	r.cache.Delete(cacheKey(session))
	return nil
}
