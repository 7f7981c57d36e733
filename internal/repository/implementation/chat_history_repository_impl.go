package implementation

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"ai-chatstream-be/internal/repository/contract"
	"ai-chatstream-be/pkg/store"

	"github.com/redis/go-redis/v9"
)

const (
	historyKeyPrefix    = "chat_history:"
	historySeqKeyPrefix = "chat_history_seq:"
)

// appendScript allocates the next sequence number and stores the turn under
// it in one step. The member carries the sequence so identical turns stay
// distinct entries of the sorted set.
var appendScript = redis.NewScript(`
local seq = redis.call('INCR', KEYS[2])
redis.call('ZADD', KEYS[1], seq, seq .. ':' .. ARGV[1])
local ttl = tonumber(ARGV[2])
if ttl > 0 then
	redis.call('EXPIRE', KEYS[1], ttl)
	redis.call('EXPIRE', KEYS[2], ttl)
end
return seq
`)

type ChatHistoryRepositoryImpl struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewChatHistoryRepository stores histories in Redis sorted sets. A zero ttl
// keeps them forever.
func NewChatHistoryRepository(rdb *redis.Client, ttl time.Duration) contract.ChatHistoryRepository {
	return &ChatHistoryRepositoryImpl{rdb: rdb, ttl: ttl}
}

func historyKey(session store.SessionKey) string {
	return fmt.Sprintf("%s%s:%d", historyKeyPrefix, session.UserName, session.SessionID)
}

func historySeqKey(session store.SessionKey) string {
	return fmt.Sprintf("%s%s:%d", historySeqKeyPrefix, session.UserName, session.SessionID)
}

func (r *ChatHistoryRepositoryImpl) Append(ctx context.Context, session store.SessionKey, turn store.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("encode turn: %w", err)
	}

	keys := []string{historyKey(session), historySeqKey(session)}
	if err := appendScript.Run(ctx, r.rdb, keys, string(data), int64(r.ttl.Seconds())).Err(); err != nil {
		return fmt.Errorf("append turn to %s: %w", session, err)
	}
	return nil
}

func (r *ChatHistoryRepositoryImpl) ReadOrdered(ctx context.Context, session store.SessionKey) ([]store.Turn, error) {
	return r.readRange(ctx, historyKey(session), 0, -1)
}

func (r *ChatHistoryRepositoryImpl) readRange(ctx context.Context, key string, start, stop int64) ([]store.Turn, error) {
	members, err := r.rdb.ZRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	turns := make([]store.Turn, 0, len(members))
	for _, m := range members {
		_, payload, ok := strings.Cut(m, ":")
		if !ok {
			continue
		}
		var t store.Turn
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			return nil, fmt.Errorf("decode turn in %s: %w", key, err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (r *ChatHistoryRepositoryImpl) Snapshots(ctx context.Context, userName string) ([]contract.SessionSnapshot, error) {
	prefix := historyKeyPrefix + userName + ":"
	iter := r.rdb.Scan(ctx, 0, escapeGlob(prefix)+"*", 100).Iterator()

	var sessions []int64
	for iter.Next(ctx) {
		id, err := strconv.ParseInt(strings.TrimPrefix(iter.Val(), prefix), 10, 64)
		if err != nil {
			// another user whose name extends this one
			continue
		}
		sessions = append(sessions, id)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan sessions of %s: %w", userName, err)
	}

	sort.Slice(sessions, func(i, j int) bool { return sessions[i] > sessions[j] })

	snapshots := make([]contract.SessionSnapshot, 0, len(sessions))
	for _, id := range sessions {
		key := historyKey(store.SessionKey{UserName: userName, SessionID: id})
		// The last two turns are enough to find the latest question.
		tail, err := r.readRange(ctx, key, -2, -1)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, contract.SessionSnapshot{
			UserName:  userName,
			SessionID: id,
			LastMsg:   store.LastQuestion(tail),
		})
	}
	return snapshots, nil
}

func (r *ChatHistoryRepositoryImpl) Delete(ctx context.Context, session store.SessionKey) error {
	if err := r.rdb.Del(ctx, historyKey(session), historySeqKey(session)).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", session, err)
	}
	return nil
}

func escapeGlob(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteRune('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
