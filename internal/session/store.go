package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenKey is the key the access token is persisted under.
const TokenKey = "auth_token"

// TokenStore persists the access token between console runs.
// Load returns "" with a nil error when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// FileStore keeps the token in a JSON key-value file readable only by its owner.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		return "", err
	}
	return values[TokenKey], nil
}

func (s *FileStore) Save(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err != nil {
		values = map[string]string{}
	}
	values[TokenKey] = token
	return s.write(values)
}

func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.read()
	if err == nil {
		delete(values, TokenKey)
		if len(values) > 0 {
			return s.write(values)
		}
	}
	// an unreadable file is removed outright
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	return values, nil
}

func (s *FileStore) write(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// RedisStore keeps the token in Redis for operators sharing a host.
// Unlike the server's cache, Redis errors are returned, so a login that
// cannot be persisted fails.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

const redisTokenKey = "console:" + TokenKey

// NewRedisStore creates a store on rdb. A zero ttl keeps the token until cleared.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context) (string, error) {
	token, err := s.rdb.Get(ctx, redisTokenKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load token from redis: %w", err)
	}
	return token, nil
}

func (s *RedisStore) Save(ctx context.Context, token string) error {
	if err := s.rdb.Set(ctx, redisTokenKey, token, s.ttl).Err(); err != nil {
		return fmt.Errorf("save token to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, redisTokenKey).Err(); err != nil {
		return fmt.Errorf("clear token in redis: %w", err)
	}
	return nil
}

// MemoryStore keeps the token in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemoryStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
