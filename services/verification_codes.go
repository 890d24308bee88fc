package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"permit_flow_app_go/logging"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	// VerificationCodeTTL is how long a pending code stays valid
	VerificationCodeTTL = 10 * time.Minute
	// MaxVerificationAttempts is the number of wrong guesses before a code is burned
	MaxVerificationAttempts = 3

	verificationCodeKeyPrefix = "permitflow:vcode:"
)

var (
	ErrCodeNotFound      = errors.New("verification code expired or not requested")
	ErrCodeMismatch      = errors.New("verification code does not match")
	ErrTooManyAttempts   = errors.New("too many verification attempts, request a new code")
	ErrCodeIdentityEmpty = errors.New("identity is required")
)

// VerificationCodeStore keeps short-lived codes keyed by the pending identity.
// Expiry and attempt counting are enforced by the store, not by callers.
type VerificationCodeStore interface {
	Save(ctx context.Context, identity string, codeHash []byte) error
	// Check compares a code and consumes it on success. Failures count against the attempt budget.
	Check(ctx context.Context, identity string, code string) error
}

// RedisCodeStore shares codes between instances and survives restarts
type RedisCodeStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCodeStore constructs a Redis-backed code store
func NewRedisCodeStore(client *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{client: client, ttl: VerificationCodeTTL}
}

// Save replaces any pending code for the identity and resets its attempts
func (s *RedisCodeStore) Save(ctx context.Context, identity string, codeHash []byte) error {
	key := verificationCodeKeyPrefix + identity
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "hash", string(codeHash), "attempts", 0)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	return err
}

// Check validates a code against the stored hash
func (s *RedisCodeStore) Check(ctx context.Context, identity string, code string) error {
	key := verificationCodeKeyPrefix + identity
	values, err := s.client.HGetAll(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to read verification code: %w", err)
	}
	if len(values) == 0 {
		return ErrCodeNotFound
	}

	attempts, _ := strconv.Atoi(values["attempts"])
	if attempts >= MaxVerificationAttempts {
		s.client.Del(ctx, key)
		return ErrTooManyAttempts
	}

	if bcrypt.CompareHashAndPassword([]byte(values["hash"]), []byte(code)) != nil {
		n, err := s.client.HIncrBy(ctx, key, "attempts", 1).Result()
		if err != nil {
			return fmt.Errorf("failed to count verification attempt: %w", err)
		}
		if n >= MaxVerificationAttempts {
			s.client.Del(ctx, key)
			return ErrTooManyAttempts
		}
		return ErrCodeMismatch
	}

	return s.client.Del(ctx, key).Err()
}

type pendingCode struct {
	hash     []byte
	attempts int
}

// MemoryCodeStore is the single-instance fallback when no Redis is configured
type MemoryCodeStore struct {
	mu    sync.Mutex
	codes *cache.Cache
}

// NewMemoryCodeStore creates an in-process store with the given TTL
func NewMemoryCodeStore(ttl time.Duration) *MemoryCodeStore {
	return &MemoryCodeStore{codes: cache.New(ttl, time.Minute)}
}

// Save replaces any pending code for the identity
func (s *MemoryCodeStore) Save(ctx context.Context, identity string, codeHash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes.Set(identity, &pendingCode{hash: codeHash}, cache.DefaultExpiration)
	return nil
}

// Check validates a code against the stored hash
func (s *MemoryCodeStore) Check(ctx context.Context, identity string, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, found := s.codes.Get(identity)
	if !found {
		return ErrCodeNotFound
	}
	pending := value.(*pendingCode)

	if bcrypt.CompareHashAndPassword(pending.hash, []byte(code)) != nil {
		pending.attempts++
		if pending.attempts >= MaxVerificationAttempts {
			s.codes.Delete(identity)
			return ErrTooManyAttempts
		}
		return ErrCodeMismatch
	}

	s.codes.Delete(identity)
	return nil
}

// VerificationService issues and confirms one-time codes for pending identities
type VerificationService struct {
	store      VerificationCodeStore
	dispatcher *Dispatcher
}

// NewVerificationService creates the service
func NewVerificationService(store VerificationCodeStore, dispatcher *Dispatcher) *VerificationService {
	return &VerificationService{store: store, dispatcher: dispatcher}
}

// Issue generates a code, stores its hash and emails it to the identity
func (s *VerificationService) Issue(ctx context.Context, email string) error {
	identity := normalizeIdentity(email)
	if identity == "" {
		return ErrCodeIdentityEmpty
	}

	code, err := GenerateVerificationCode()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash verification code: %w", err)
	}
	if err := s.store.Save(ctx, identity, hash); err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}

	if s.dispatcher != nil {
		s.dispatcher.Emit(Notification{
			Kind:     NotificationVerificationCode,
			To:       identity,
			Subject:  "Código de verificación",
			TextBody: fmt.Sprintf("Su código de verificación es %s. Vence en %d minutos.", code, int(VerificationCodeTTL.Minutes())),
		}, nil)
	}
	logging.Log.WithField("identity", identity).Info("Verification code issued")
	return nil
}

// Confirm checks a code for the identity
func (s *VerificationService) Confirm(ctx context.Context, email, code string) error {
	identity := normalizeIdentity(email)
	if identity == "" {
		return ErrCodeIdentityEmpty
	}
	return s.store.Check(ctx, identity, strings.TrimSpace(code))
}

// GenerateVerificationCode returns a random 6 digit code
func GenerateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func normalizeIdentity(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
