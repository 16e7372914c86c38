package goContacts_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	goContacts "github.com/MrEthical07/goContacts"
	"github.com/MrEthical07/goContacts/cache"
	"github.com/MrEthical07/goContacts/internal/memstore"
	"github.com/MrEthical07/goContacts/token"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type outbox struct {
	mu   sync.Mutex
	sent []goContacts.Notification
	fail bool
}

func (o *outbox) Send(_ context.Context, n goContacts.Notification) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail {
		return errors.New("smtp: connection refused")
	}
	o.sent = append(o.sent, n)
	return nil
}

func (o *outbox) setFail(v bool) {
	o.mu.Lock()
	o.fail = v
	o.mu.Unlock()
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

func (o *outbox) last(t *testing.T, purpose token.Purpose) goContacts.Notification {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.sent) - 1; i >= 0; i-- {
		if o.sent[i].Purpose == purpose {
			return o.sent[i]
		}
	}
	t.Fatalf("no %s notification sent", purpose)
	return goContacts.Notification{}
}

// countingStore counts writes on top of the in-memory store.
type countingStore struct {
	*memstore.Store
	mu          sync.Mutex
	setVerified int
	findByID    int
}

func (s *countingStore) SetVerified(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	s.setVerified++
	s.mu.Unlock()
	return s.Store.SetVerified(ctx, id, at)
}

func (s *countingStore) FindByID(ctx context.Context, id string) (goContacts.Identity, error) {
	s.mu.Lock()
	s.findByID++
	s.mu.Unlock()
	return s.Store.FindByID(ctx, id)
}

func (s *countingStore) lookups() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findByID
}

type harness struct {
	engine *goContacts.Engine
	store  *countingStore
	outbox *outbox
	clock  *testClock
	cache  *cache.Memory
}

func testConfig() goContacts.Config {
	cfg := goContacts.DefaultConfig()
	cfg.Token.Secret = []byte("test-secret-test-secret-test-sec")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.RateLimit.Max = 100
	return cfg
}

func newHarness(t *testing.T, mutate func(*goContacts.Config, *goContacts.Builder)) *harness {
	t.Helper()

	h := &harness{
		store:  &countingStore{Store: memstore.New()},
		outbox: &outbox{},
		clock:  newTestClock(),
	}
	h.cache = cache.NewMemory(time.Hour, cache.WithMemoryClock(h.clock.Now))
	t.Cleanup(func() { _ = h.cache.Close() })

	cfg := testConfig()
	b := goContacts.New().
		WithCredentialStore(h.store).
		WithNotifier(h.outbox).
		WithCache(h.cache).
		WithClock(h.clock.Now).
		WithDefaultAvatar(func(email string) string { return "https://avatars.test/" + email })
	if mutate != nil {
		mutate(&cfg, b)
	}
	e, err := b.WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(e.Close)
	h.engine = e
	return h
}

// verifiedUser registers and confirms an identity and returns its ID.
func (h *harness) verifiedUser(t *testing.T, email, username, password string) string {
	t.Helper()
	ctx := context.Background()
	res, err := h.engine.Register(ctx, goContacts.RegisterInput{Email: email, Username: username, Password: password})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	n := h.outbox.last(t, token.PurposeVerification)
	if _, err := h.engine.Confirm(ctx, n.Token); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	return res.Identity.ID
}

func (h *harness) login(t *testing.T, email, password string) string {
	t.Helper()
	tok, err := h.engine.Login(context.Background(), email, password)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return tok.Token
}

// tamper flips the first signature character, which always carries data bits.
func tamper(tok string) string {
	dot := strings.LastIndexByte(tok, '.')
	sig := []byte(tok[dot+1:])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	return tok[:dot+1] + string(sig)
}

type brokenCache struct{}

var errCacheDown = errors.New("dial tcp: connection refused")

func (brokenCache) Get(context.Context, string) (*cache.Snapshot, error) { return nil, errCacheDown }
func (brokenCache) Put(context.Context, string, *cache.Snapshot, time.Duration) error {
	return errCacheDown
}
func (brokenCache) Invalidate(context.Context, string) error         { return errCacheDown }
func (brokenCache) InvalidateIdentity(context.Context, string) error { return errCacheDown }
func (brokenCache) Ping(context.Context) error                       { return errCacheDown }

type stubLimiter struct {
	allowed bool
	err     error
}

func (l stubLimiter) Allow(context.Context, string) (bool, error) { return l.allowed, l.err }

type stubAvatars struct {
	url string
	err error
	key string
}

func (s *stubAvatars) Upload(_ context.Context, key string, _ []byte, _ string) (string, error) {
	s.key = key
	return s.url, s.err
}
