package userstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/authgate/authgate"
)

const defaultKeyPrefix = "ag:user:"

// RedisStore persists user records as JSON values keyed by identifier.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// storedRecord is the wire form of a user record. Kept separate from the
// public type so the storage encoding can evolve independently.
type storedRecord struct {
	UserID       string   `json:"user_id"`
	Identifier   string   `json:"identifier"`
	PasswordHash string   `json:"password_hash"`
	Roles        []string `json:"roles,omitempty"`
}

// NewRedisStore creates a store on the given client. prefix namespaces the
// keys; empty means "ag:user:".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// GetByIdentifier loads the record stored under identifier. A missing key is
// ErrUserNotFound; every other failure wraps ErrUserStoreUnavailable.
func (s *RedisStore) GetByIdentifier(ctx context.Context, identifier string) (authgate.UserRecord, error) {
	data, err := s.client.Get(ctx, s.key(identifier)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return authgate.UserRecord{}, authgate.ErrUserNotFound
		}
		return authgate.UserRecord{}, fmt.Errorf("%w: %v", authgate.ErrUserStoreUnavailable, err)
	}

	var rec storedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return authgate.UserRecord{}, fmt.Errorf("%w: corrupt record for %q", authgate.ErrUserStoreUnavailable, identifier)
	}

	return authgate.UserRecord{
		UserID:       rec.UserID,
		Identifier:   rec.Identifier,
		PasswordHash: rec.PasswordHash,
		Roles:        rec.Roles,
	}, nil
}

// UpdatePasswordHash rewrites the stored hash for the record whose
// identifier matches userID's record. Used by password upgrade-on-login.
func (s *RedisStore) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	// Records are keyed by identifier, so resolve through the index first.
	identifier, err := s.client.Get(ctx, s.indexKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return authgate.ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", authgate.ErrUserStoreUnavailable, err)
	}

	rec, err := s.GetByIdentifier(ctx, identifier)
	if err != nil {
		return err
	}
	rec.PasswordHash = newHash
	return s.Put(ctx, rec)
}

// Put stores or replaces a record. Intended for seeding and administrative
// tooling; the engine itself never creates accounts.
func (s *RedisStore) Put(ctx context.Context, rec authgate.UserRecord) error {
	data, err := json.Marshal(storedRecord{
		UserID:       rec.UserID,
		Identifier:   rec.Identifier,
		PasswordHash: rec.PasswordHash,
		Roles:        rec.Roles,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", authgate.ErrUserStoreUnavailable, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(rec.Identifier), data, 0)
	pipe.Set(ctx, s.indexKey(rec.UserID), rec.Identifier, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", authgate.ErrUserStoreUnavailable, err)
	}
	return nil
}

// Delete removes a record and its ID index entry.
func (s *RedisStore) Delete(ctx context.Context, rec authgate.UserRecord) error {
	if err := s.client.Del(ctx, s.key(rec.Identifier), s.indexKey(rec.UserID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", authgate.ErrUserStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) key(identifier string) string {
	return s.prefix + identifier
}

func (s *RedisStore) indexKey(userID string) string {
	return s.prefix + "id:" + userID
}
