package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrSessionNotFound is returned when no record exists for a session id.
	ErrSessionNotFound = errors.New("refresh session not found")
	// ErrSessionExpired is returned when the record is past its expiry.
	ErrSessionExpired = errors.New("refresh session expired")
	// ErrSessionRevoked is returned when the record is marked revoked.
	ErrSessionRevoked = errors.New("refresh session revoked")
	// ErrSecretMismatch is returned when the presented secret hash does not
	// match the stored one.
	ErrSecretMismatch = errors.New("refresh secret mismatch")
	// ErrRedisUnavailable wraps Redis transport failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const consumeMaxRetries = 4

// Store persists one Record per issued refresh token, plus a per-subject
// index set so RevokeAll can find every live session for a subject.
//
// Keys:
//   - <prefix>:<sessionID>      — binary-encoded Record, TTL = refresh TTL
//   - <prefix>x:<subjectID>     — SET of session ids
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "ors"
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *Store) subjectKey(subjectID string) string {
	return s.prefix + "x:" + subjectID
}

// Save persists a new record and indexes it under its subject.
func (s *Store) Save(ctx context.Context, rec *Record, ttl time.Duration) error {
	encoded, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, s.key(rec.SessionID), encoded, ttl)
	pipe.SAdd(ctx, s.subjectKey(rec.SubjectID), rec.SessionID)
	pipe.Expire(ctx, s.subjectKey(rec.SubjectID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get loads a record without any secret check. Used for diagnostics and
// revocation paths.
func (s *Store) Get(ctx context.Context, sessionID string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return decodeRecord(sessionID, data)
}

// Authorize validates a presented secret hash against the stored record for
// a refresh: the record must exist, be unexpired, unrevoked, and match the
// hash in constant time. The record is NOT rotated or deleted; refresh
// reuses the same refresh token by design.
func (s *Store) Authorize(ctx context.Context, sessionID string, secretHash [32]byte) (*Record, error) {
	rec, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if rec.Revoked {
		return nil, ErrSessionRevoked
	}
	if time.Now().Unix() >= rec.ExpiresAt {
		return nil, ErrSessionExpired
	}
	if subtle.ConstantTimeCompare(rec.SecretHash[:], secretHash[:]) != 1 {
		return nil, ErrSecretMismatch
	}

	return rec, nil
}

// Revoke marks a single record revoked, preserving its TTL so the tombstone
// outlives any copy of the token. The presented secret must match.
func (s *Store) Revoke(ctx context.Context, sessionID string, secretHash [32]byte) (*Record, error) {
	key := s.key(sessionID)

	var revoked *Record
	for i := 0; i < consumeMaxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			rec, err := decodeRecord(sessionID, data)
			if err != nil {
				return err
			}
			if subtle.ConstantTimeCompare(rec.SecretHash[:], secretHash[:]) != 1 {
				return ErrSecretMismatch
			}
			if rec.Revoked {
				revoked = rec
				return nil
			}

			rec.Revoked = true
			encoded, err := encodeRecord(rec)
			if err != nil {
				return err
			}

			ttl := time.Until(time.Unix(rec.ExpiresAt, 0))
			if ttl <= 0 {
				ttl = time.Second
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, ttl)
				return nil
			})
			if err != nil {
				return err
			}

			revoked = rec
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return nil, ErrSessionNotFound
			case errors.Is(err, ErrSecretMismatch), errors.Is(err, errRecordCorrupt):
				return nil, err
			default:
				return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
		}

		return revoked, nil
	}

	return nil, ErrSessionNotFound
}

// RevokeAllForSubject marks every indexed session for the subject revoked
// and returns how many records were touched.
func (s *Store) RevokeAllForSubject(ctx context.Context, subjectID string) (int, error) {
	sessionIDs, err := s.redis.SMembers(ctx, s.subjectKey(subjectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	revoked := 0
	for _, sessionID := range sessionIDs {
		if err := s.revokeUnchecked(ctx, sessionID); err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				continue
			}
			return revoked, err
		}
		revoked++
	}

	return revoked, nil
}

func (s *Store) revokeUnchecked(ctx context.Context, sessionID string) error {
	key := s.key(sessionID)

	for i := 0; i < consumeMaxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			rec, err := decodeRecord(sessionID, data)
			if err != nil {
				return err
			}
			if rec.Revoked {
				return nil
			}

			rec.Revoked = true
			encoded, err := encodeRecord(rec)
			if err != nil {
				return err
			}

			ttl := time.Until(time.Unix(rec.ExpiresAt, 0))
			if ttl <= 0 {
				ttl = time.Second
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, ttl)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return ErrSessionNotFound
			case errors.Is(err, errRecordCorrupt):
				return err
			default:
				return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
		}

		return nil
	}

	return ErrSessionNotFound
}
