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

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	bypassTokenKeyPrefix      = "ob"
	bypassIdentifierKeyPrefix = "obi"
	bypassRecordVersionV1     = 1
)

var (
	errBypassNotFound    = errors.New("bypass token not found")
	errBypassMismatch    = errors.New("bypass token identifier mismatch")
	errBypassUnavailable = errors.New("bypass redis unavailable")
	errBypassCorrupt     = errors.New("bypass record corrupt")
)

// bypassRecord is the persisted state of one emergency bypass token.
type bypassRecord struct {
	Identifier string
	Reason     string
	CreatedAt  int64
	ExpiresAt  int64
}

// bypassStore answers "may this identifier skip verification". Two
// sources: a static allow-list fixed at construction, and time-boxed
// emergency tokens persisted in redis. Allow-list entries never expire;
// emergency tokens always do.
type bypassStore struct {
	redis     redis.UniversalClient
	allowList map[string]struct{}
	config    BypassConfig
}

func newBypassStore(redisClient redis.UniversalClient, cfg BypassConfig) (*bypassStore, error) {
	allow := make(map[string]struct{}, len(cfg.AllowList))
	for _, raw := range cfg.AllowList {
		normalized, err := NormalizeIdentifier(raw)
		if err != nil {
			return nil, fmt.Errorf("bypass allow-list entry %q: %w", raw, err)
		}
		allow[normalized] = struct{}{}
	}

	return &bypassStore{
		redis:     redisClient,
		allowList: allow,
		config:    cfg,
	}, nil
}

func (s *bypassStore) tokenKey(token string) string {
	return bypassTokenKeyPrefix + ":" + token
}

func (s *bypassStore) identifierKey(identifier string) string {
	return bypassIdentifierKeyPrefix + ":" + identifier
}

// IsBypassed checks the static allow-list first, then any live emergency
// token marker for the identifier.
func (s *bypassStore) IsBypassed(ctx context.Context, identifier string) (bool, error) {
	if _, ok := s.allowList[identifier]; ok {
		return true, nil
	}
	if !s.config.EnableEmergencyTokens {
		return false, nil
	}

	exists, err := s.redis.Exists(ctx, s.identifierKey(identifier)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", errBypassUnavailable, err)
	}
	return exists > 0, nil
}

// IssueEmergencyBypass mints a single-identifier token valid for the
// configured window. The token is opaque; validation needs both the token
// value and the identifier it was issued for.
func (s *bypassStore) IssueEmergencyBypass(ctx context.Context, identifier, reason string) (string, error) {
	token := uuid.NewString()
	now := time.Now()
	ttl := s.config.EmergencyTokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	record := &bypassRecord{
		Identifier: identifier,
		Reason:     reason,
		CreatedAt:  now.Unix(),
		ExpiresAt:  now.Add(ttl).Unix(),
	}

	encoded, err := encodeBypassRecord(record)
	if err != nil {
		return "", err
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, s.tokenKey(token), encoded, ttl)
	pipe.Set(ctx, s.identifierKey(identifier), token, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", errBypassUnavailable, err)
	}

	return token, nil
}

// ValidateEmergencyBypass checks token existence, identifier binding, and
// expiry. Expiry is normally enforced by the key TTL; the recorded
// ExpiresAt is re-checked so a lagging eviction cannot extend the window.
func (s *bypassStore) ValidateEmergencyBypass(ctx context.Context, token, identifier string) error {
	data, err := s.redis.Get(ctx, s.tokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return errBypassNotFound
		}
		return fmt.Errorf("%w: %v", errBypassUnavailable, err)
	}

	record, err := decodeBypassRecord(data)
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare([]byte(record.Identifier), []byte(identifier)) != 1 {
		return errBypassMismatch
	}
	if time.Now().Unix() >= record.ExpiresAt {
		return errBypassNotFound
	}

	return nil
}

// RevokeEmergencyBypass drops a token and its identifier marker early.
func (s *bypassStore) RevokeEmergencyBypass(ctx context.Context, token string) error {
	data, err := s.redis.Get(ctx, s.tokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return errBypassNotFound
		}
		return fmt.Errorf("%w: %v", errBypassUnavailable, err)
	}

	record, err := decodeBypassRecord(data)
	if err != nil {
		return err
	}

	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, s.tokenKey(token))
	pipe.Del(ctx, s.identifierKey(record.Identifier))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", errBypassUnavailable, err)
	}

	return nil
}

func encodeBypassRecord(record *bypassRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(bypassRecordVersionV1)

	for _, s := range []string{record.Identifier, record.Reason} {
		if len(s) > 255 {
			return nil, errors.New("bypass record field too long")
		}
		buf.WriteByte(byte(len(s)))
		buf.WriteString(s)
	}

	for _, v := range []int64{record.CreatedAt, record.ExpiresAt} {
		if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func decodeBypassRecord(data []byte) (*bypassRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil || version != bypassRecordVersionV1 {
		return nil, errBypassCorrupt
	}

	fields := make([]string, 2)
	for i := range fields {
		n, err := reader.ReadByte()
		if err != nil {
			return nil, errBypassCorrupt
		}
		raw := make([]byte, n)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, errBypassCorrupt
		}
		fields[i] = string(raw)
	}

	record := &bypassRecord{
		Identifier: fields[0],
		Reason:     fields[1],
	}

	for _, target := range []*int64{&record.CreatedAt, &record.ExpiresAt} {
		if err := binary.Read(reader, binary.BigEndian, target); err != nil {
			return nil, errBypassCorrupt
		}
	}

	return record, nil
}
