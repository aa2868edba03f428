package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"silver-jubilee-backend/apperrors"
)

// LoginLimiter compte les échecs de connexion par client sur une fenêtre fixe.
// Les connexions réussies ne sont jamais comptées.
type LoginLimiter interface {
	// Check retourne le délai restant si le client est bloqué, 0 sinon
	Check(ctx context.Context, key string) (time.Duration, error)
	RecordFailure(ctx context.Context, key string) error
}

// LoginBlockedError signale un client bloqué et le délai avant nouvel essai
type LoginBlockedError struct {
	RetryAfter time.Duration
}

func (e *LoginBlockedError) Error() string {
	return fmt.Sprintf("trop de tentatives, réessayer dans %s", e.RetryAfter.Round(time.Second))
}

// Unwrap rattache l'erreur à TOO_MANY_ATTEMPTS
func (e *LoginBlockedError) Unwrap() error {
	return apperrors.ErrTooManyAttempts
}

// RetryAfterSeconds alimente l'en-tête Retry-After
func (e *LoginBlockedError) RetryAfterSeconds() int {
	return int(math.Ceil(e.RetryAfter.Seconds()))
}

// MemoryLoginLimiter garde les compteurs en mémoire (une seule instance du serveur)
type MemoryLoginLimiter struct {
	mu          sync.Mutex
	maxFailures int
	window      time.Duration
	entries     map[string]*failureWindow
	now         func() time.Time
}

type failureWindow struct {
	count   int
	resetAt time.Time
}

// NewMemoryLoginLimiter crée un limiteur en mémoire
func NewMemoryLoginLimiter(maxFailures int, window time.Duration) *MemoryLoginLimiter {
	return &MemoryLoginLimiter{
		maxFailures: maxFailures,
		window:      window,
		entries:     make(map[string]*failureWindow),
		now:         time.Now,
	}
}

// Check implémente LoginLimiter
func (l *MemoryLoginLimiter) Check(_ context.Context, key string) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[key]
	if !ok {
		return 0, nil
	}
	if !now.Before(entry.resetAt) {
		delete(l.entries, key)
		return 0, nil
	}
	if entry.count >= l.maxFailures {
		return entry.resetAt.Sub(now), nil
	}
	return 0, nil
}

// RecordFailure implémente LoginLimiter
func (l *MemoryLoginLimiter) RecordFailure(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	entry, ok := l.entries[key]
	if !ok || !now.Before(entry.resetAt) {
		entry = &failureWindow{resetAt: now.Add(l.window)}
		l.entries[key] = entry
	}
	entry.count++
	return nil
}

// sweep purge les fenêtres expirées, appelé sous verrou
func (l *MemoryLoginLimiter) sweep(now time.Time) {
	for key, entry := range l.entries {
		if !now.Before(entry.resetAt) {
			delete(l.entries, key)
		}
	}
}

// RedisLoginLimiter partage les compteurs entre instances via Redis
type RedisLoginLimiter struct {
	client      *redis.Client
	maxFailures int
	window      time.Duration
	prefix      string
}

// NewRedisLoginLimiter crée un limiteur adossé à Redis
func NewRedisLoginLimiter(client *redis.Client, maxFailures int, window time.Duration) *RedisLoginLimiter {
	return &RedisLoginLimiter{
		client:      client,
		maxFailures: maxFailures,
		window:      window,
		prefix:      "silverjubilee:admin_login_failures:",
	}
}

// Check implémente LoginLimiter
func (l *RedisLoginLimiter) Check(ctx context.Context, key string) (time.Duration, error) {
	redisKey := l.prefix + key
	count, err := l.client.Get(ctx, redisKey).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lecture du compteur de connexion: %w", err)
	}
	if count < l.maxFailures {
		return 0, nil
	}

	ttl, err := l.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("lecture du TTL de connexion: %w", err)
	}
	if ttl <= 0 {
		// clé sans expiration: on considère la fenêtre entière
		ttl = l.window
	}
	return ttl, nil
}

// RecordFailure implémente LoginLimiter. INCR et EXPIRE NX partent dans la
// même transaction: la fenêtre démarre au premier échec.
func (l *RedisLoginLimiter) RecordFailure(ctx context.Context, key string) error {
	redisKey := l.prefix + key
	pipe := l.client.TxPipeline()
	pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enregistrement de l'échec de connexion: %w", err)
	}
	return nil
}
