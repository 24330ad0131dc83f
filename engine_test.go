package goOTP

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

type stubSubjects struct {
	mu       sync.Mutex
	subjects map[string]string
	calls    int
	failWith error
}

func newStubSubjects() *stubSubjects {
	return &stubSubjects{subjects: make(map[string]string)}
}

func (s *stubSubjects) FindOrCreateSubject(_ context.Context, identifier string, _ ChallengePurpose) (Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.failWith != nil {
		return Subject{}, s.failWith
	}

	id, ok := s.subjects[identifier]
	if !ok {
		id = fmt.Sprintf("subj-%d", len(s.subjects)+1)
		s.subjects[identifier] = id
	}

	return Subject{ID: id, Kind: "patient"}, nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	// Keep the default throttles out of the way unless a test opts in.
	cfg.Challenge.ResendCooldown = 0
	cfg.RateLimit.MaxRequestsPerIdentifier = 1000
	cfg.RateLimit.MaxRequestsPerIP = 1000
	cfg.RateLimit.MaxVerifiesPerIdentifier = 1000
	cfg.RateLimit.MaxVerifiesPerIP = 1000
	return cfg
}

func buildTestEngine(t *testing.T, mutators ...func(*Config)) (*Engine, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)

	cfg := testConfig()
	for _, mutate := range mutators {
		mutate(&cfg)
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithSubjectDirectory(newStubSubjects()).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return engine, mr, func() {
		engine.Close()
		mr.Close()
	}
}

func TestBuildRequiresRedis(t *testing.T) {
	_, err := New().
		WithConfig(testConfig()).
		WithSubjectDirectory(newStubSubjects()).
		Build()
	if err == nil {
		t.Fatal("expected Build to fail without redis")
	}
}

func TestBuildRequiresSubjectDirectory(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	_, err := New().
		WithConfig(testConfig()).
		WithRedis(rdb).
		Build()
	if err == nil {
		t.Fatal("expected Build to fail without subject directory")
	}
}

func TestBuildRejectsMalformedAllowListEntry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	cfg := testConfig()
	cfg.Bypass.AllowList = []string{"not-a-phone-or-email"}

	_, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithSubjectDirectory(newStubSubjects()).
		Build()
	if err == nil {
		t.Fatal("expected Build to reject malformed allow-list entry")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	engine, mr, done := buildTestEngine(t)
	defer done()
	_ = engine
	_ = mr

	b := New()
	mr2, rdb := newTestRedis(t)
	defer mr2.Close()

	if _, err := b.WithConfig(testConfig()).WithRedis(rdb).WithSubjectDirectory(newStubSubjects()).Build(); err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestLimitsReflectConfig(t *testing.T) {
	engine, _, done := buildTestEngine(t, func(cfg *Config) {
		cfg.Challenge.MaxAttempts = 4
		cfg.Challenge.TTL = 7 * time.Minute
	})
	defer done()

	limits := engine.Limits()
	if limits.Challenge.MaxAttempts != 4 {
		t.Fatalf("expected MaxAttempts 4, got %d", limits.Challenge.MaxAttempts)
	}
	if limits.Challenge.TTL != 7*time.Minute {
		t.Fatalf("expected TTL 7m, got %s", limits.Challenge.TTL)
	}
}
