package goOTP

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	challengeKeyPrefix      = "oc"
	cooldownKeyPrefix       = "ocd"
	challengeRecordVersionV1 = 1
)

var (
	errChallengeNotFound     = errors.New("challenge record not found")
	errChallengeExpired      = errors.New("challenge record expired")
	errChallengeMismatch     = errors.New("challenge secret mismatch")
	errChallengeExhausted    = errors.New("challenge attempts exhausted")
	errChallengeCooldown     = errors.New("challenge cooldown marker present")
	errChallengeUnavailable  = errors.New("challenge redis unavailable")
	errChallengeRecordCorrupt = errors.New("challenge record corrupt")
)

// challengeRecord is the persisted state of one outstanding challenge.
// At most one record exists per identifier; the raw code is never stored.
type challengeRecord struct {
	Purpose     ChallengePurpose
	Channel     string
	Attempts    uint16
	MaxAttempts uint16
	CreatedAt   int64
	ExpiresAt   int64
	SecretHash  [32]byte
}

type challengeStore struct {
	redis  redis.UniversalClient
	prefix string
}

func newChallengeStore(redisClient redis.UniversalClient) *challengeStore {
	return &challengeStore{
		redis:  redisClient,
		prefix: challengeKeyPrefix,
	}
}

func (s *challengeStore) key(identifier string) string {
	return s.prefix + ":" + identifier
}

func (s *challengeStore) cooldownKey(identifier string) string {
	return cooldownKeyPrefix + ":" + identifier
}

// Create stores a new pending challenge and arms the resend cooldown
// marker. The marker is a separate key with its own TTL, so the cooldown
// holds even after the challenge itself is consumed or expires.
func (s *challengeStore) Create(
	ctx context.Context,
	identifier string,
	record *challengeRecord,
	ttl, cooldown time.Duration,
) error {
	if cooldown > 0 {
		armed, err := s.redis.SetNX(ctx, s.cooldownKey(identifier), "1", cooldown).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", errChallengeUnavailable, err)
		}
		if !armed {
			return errChallengeCooldown
		}
	}

	encoded, err := encodeChallengeRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(identifier), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errChallengeUnavailable, err)
	}

	return nil
}

// CooldownRemaining returns how long the resend cooldown for the identifier
// still holds. Zero means no cooldown is armed.
func (s *challengeStore) CooldownRemaining(ctx context.Context, identifier string) (time.Duration, error) {
	ttl, err := s.redis.PTTL(ctx, s.cooldownKey(identifier)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errChallengeUnavailable, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// Consume matches a candidate hash against the pending challenge under an
// optimistic transaction, so two racing verify attempts for one identifier
// serialize: get-then-increment-then-put is atomic per key.
//
// Returns the remaining attempt budget alongside any mismatch error.
func (s *challengeStore) Consume(
	ctx context.Context,
	identifier string,
	providedHash [32]byte,
) (*challengeRecord, int, error) {
	const maxRetries = 4
	key := s.key(identifier)

	for i := 0; i < maxRetries; i++ {
		var (
			matched   *challengeRecord
			remaining int
		)

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeChallengeRecord(data)
			if err != nil {
				return err
			}

			// Boundary rule: now == expiresAt is already expired.
			if time.Now().Unix() >= record.ExpiresAt {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return errChallengeExpired
			}

			if record.Attempts >= record.MaxAttempts {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return errChallengeExhausted
			}

			if subtle.ConstantTimeCompare(record.SecretHash[:], providedHash[:]) != 1 {
				record.Attempts++
				remaining = int(record.MaxAttempts) - int(record.Attempts)

				if remaining <= 0 {
					_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
						pipe.Del(ctx, key)
						return nil
					})
					if err != nil {
						return err
					}
					return errChallengeMismatch
				}

				ttl := time.Until(time.Unix(record.ExpiresAt, 0))
				if ttl <= 0 {
					_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
						pipe.Del(ctx, key)
						return nil
					})
					if err != nil {
						return err
					}
					return errChallengeExpired
				}

				updated, err := encodeChallengeRecord(record)
				if err != nil {
					return err
				}

				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, key, updated, ttl)
					return nil
				})
				if err != nil {
					return err
				}
				return errChallengeMismatch
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err != nil {
				return err
			}

			matched = record
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return nil, 0, errChallengeNotFound
			case errors.Is(err, errChallengeMismatch):
				return nil, remaining, err
			case errors.Is(err, errChallengeExpired),
				errors.Is(err, errChallengeExhausted),
				errors.Is(err, errChallengeRecordCorrupt):
				return nil, 0, err
			default:
				return nil, 0, fmt.Errorf("%w: %v", errChallengeUnavailable, err)
			}
		}

		return matched, int(matched.MaxAttempts) - int(matched.Attempts), nil
	}

	return nil, 0, errChallengeNotFound
}

// Peek loads the pending challenge without mutating it.
func (s *challengeStore) Peek(ctx context.Context, identifier string) (*challengeRecord, error) {
	data, err := s.redis.Get(ctx, s.key(identifier)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", errChallengeUnavailable, err)
	}

	return decodeChallengeRecord(data)
}

// Delete removes the pending challenge, leaving the cooldown marker armed.
func (s *challengeStore) Delete(ctx context.Context, identifier string) error {
	if err := s.redis.Del(ctx, s.key(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", errChallengeUnavailable, err)
	}
	return nil
}

func encodeChallengeRecord(record *challengeRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(challengeRecordVersionV1)
	buf.WriteByte(byte(record.Purpose))

	if len(record.Channel) > 255 {
		return nil, errors.New("challenge channel name too long")
	}
	buf.WriteByte(byte(len(record.Channel)))
	buf.WriteString(record.Channel)

	for _, v := range []uint16{record.Attempts, record.MaxAttempts} {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			return nil, err
		}
	}
	for _, v := range []int64{record.CreatedAt, record.ExpiresAt} {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			return nil, err
		}
	}

	buf.Write(record.SecretHash[:])

	return buf.Bytes(), nil
}

func decodeChallengeRecord(data []byte) (*challengeRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil || version != challengeRecordVersionV1 {
		return nil, errChallengeRecordCorrupt
	}

	purpose, err := reader.ReadByte()
	if err != nil {
		return nil, errChallengeRecordCorrupt
	}

	channelLen, err := reader.ReadByte()
	if err != nil {
		return nil, errChallengeRecordCorrupt
	}
	channel := make([]byte, channelLen)
	if _, err := io.ReadFull(reader, channel); err != nil {
		return nil, errChallengeRecordCorrupt
	}

	record := &challengeRecord{
		Purpose: ChallengePurpose(purpose),
		Channel: string(channel),
	}

	for _, target := range []*uint16{&record.Attempts, &record.MaxAttempts} {
		if err := binary.Read(reader, binary.BigEndian, target); err != nil {
			return nil, errChallengeRecordCorrupt
		}
	}
	for _, target := range []*int64{&record.CreatedAt, &record.ExpiresAt} {
		if err := binary.Read(reader, binary.BigEndian, target); err != nil {
			return nil, errChallengeRecordCorrupt
		}
	}

	if _, err := io.ReadFull(reader, record.SecretHash[:]); err != nil {
		return nil, errChallengeRecordCorrupt
	}

	return record, nil
}
