// Command contacts-loadtest measures Authorize and Refresh throughput of the
// engine against a redis-backed identity cache.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goContacts "github.com/MrEthical07/goContacts"
	"github.com/MrEthical07/goContacts/internal/memstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type identityState struct {
	mu    sync.Mutex
	token string
}

func main() {
	var (
		identities  = flag.Int("identities", 1000, "number of identities to register and log in")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (authorize + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "lt", "identity cache key prefix")
	)
	flag.Parse()

	if *identities <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "identities, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		fmt.Printf("using redis at %s\n", addr)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer client.Close()

	engine, mailbox, err := buildEngine(client, *prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d identities...\n", *identities)
	startSeed := time.Now()
	states, err := seed(ctx, engine, mailbox, *identities)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authorizeStats := runPhase(states, *ops, *concurrency, 7919, func(s *identityState) error {
		s.mu.Lock()
		tok := s.token
		s.mu.Unlock()
		_, err := engine.Authorize(ctx, tok, goContacts.RoleUser)
		return err
	})
	refreshStats := runPhase(states, *ops, *concurrency, 6151, func(s *identityState) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		next, err := engine.Refresh(ctx, s.token)
		if err == nil {
			s.token = next.Token
		}
		return err
	})

	fmt.Println("---- results ----")
	printStats("authorize", authorizeStats)
	printStats("refresh", refreshStats)
	snap := engine.MetricsSnapshot()
	fmt.Printf("cache: hits=%d misses=%d errors=%d\n",
		snap.Counters[goContacts.MetricCacheHit],
		snap.Counters[goContacts.MetricCacheMiss],
		snap.Counters[goContacts.MetricCacheError],
	)
}

// mailbox keeps the last verification token per address.
type mailbox struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (m *mailbox) Send(_ context.Context, n goContacts.Notification) error {
	m.mu.Lock()
	m.tokens[n.To] = n.Token
	m.mu.Unlock()
	return nil
}

func buildEngine(client redis.UniversalClient, prefix string) (*goContacts.Engine, *mailbox, error) {
	cfg := goContacts.DefaultConfig()
	cfg.Token.Secret = []byte("contacts-loadtest-secret-0123456789")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Cache.Backend = goContacts.CacheRedis
	cfg.Cache.RedisPrefix = prefix
	cfg.RateLimit.Enabled = false

	mb := &mailbox{tokens: make(map[string]string)}
	e, err := goContacts.New().
		WithConfig(cfg).
		WithRedis(client).
		WithCredentialStore(memstore.New()).
		WithNotifier(mb).
		Build()
	return e, mb, err
}

func seed(ctx context.Context, e *goContacts.Engine, mb *mailbox, n int) ([]identityState, error) {
	const password = "loadtest password"
	states := make([]identityState, n)
	for i := 0; i < n; i++ {
		email := fmt.Sprintf("user-%d@loadtest.local", i)
		if _, err := e.Register(ctx, goContacts.RegisterInput{
			Email:    email,
			Username: fmt.Sprintf("user%d", i),
			Password: password,
		}); err != nil {
			return nil, err
		}
		mb.mu.Lock()
		verify := mb.tokens[email]
		mb.mu.Unlock()
		if _, err := e.Confirm(ctx, verify); err != nil {
			return nil, err
		}
		tok, err := e.Login(ctx, email, password)
		if err != nil {
			return nil, err
		}
		states[i].token = tok.Token
	}
	return states, nil
}

func runPhase(states []identityState, ops, concurrency int, seedMul int64, op func(*identityState) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seedMul))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := &states[r.Intn(len(states))]
				t0 := time.Now()
				err := op(state)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
