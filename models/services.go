// msgboard/models/services.go
package models

import (
	"crypto/subtle"
	"fmt"
	mrand "math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// StorageService persists uploaded or generated files and returns their public path.
type StorageService interface {
	SaveFile(filename string, data []byte, contentType string) (string, error)
	DeleteFile(path string) error
}

// Notifier delivers new-reply notifications to topic subscribers.
type Notifier interface {
	Notify(n Notification) error
}

// --- Stateful Services ---

type RateLimiter struct {
	Mu       sync.RWMutex
	Limiters map[string]*rate.Limiter
	LastSeen map[string]time.Time

	every  time.Duration
	burst  int
	expire time.Duration
}

type ChallengeStore struct {
	Mu         sync.RWMutex
	Challenges map[string]string
}

// --- Rate Limiter Methods ---

// NewRateLimiter creates a keyed rate limiter and starts its pruning loop.
func NewRateLimiter(every time.Duration, burst int, prune, expire time.Duration) *RateLimiter {
	rl := &RateLimiter{
		Limiters: make(map[string]*rate.Limiter),
		LastSeen: make(map[string]time.Time),
		every:    every,
		burst:    burst,
		expire:   expire,
	}
	go rl.cleanup(prune)
	return rl
}

// GetLimiter retrieves or creates a rate limiter for a given key (user or IP).
func (rl *RateLimiter) GetLimiter(key string) *rate.Limiter {
	rl.Mu.Lock()
	defer rl.Mu.Unlock()
	limiter, exists := rl.Limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rate.Every(rl.every), rl.burst)
		rl.Limiters[key] = limiter
	}
	rl.LastSeen[key] = time.Now()
	return limiter
}

// Allow reports whether key may perform one more action now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.GetLimiter(key).Allow()
}

func (rl *RateLimiter) cleanup(every time.Duration) {
	for range time.Tick(every) {
		rl.prune(time.Now().Add(-rl.expire))
	}
}

func (rl *RateLimiter) prune(cutoff time.Time) {
	rl.Mu.Lock()
	defer rl.Mu.Unlock()
	for key, lastSeen := range rl.LastSeen {
		if lastSeen.Before(cutoff) {
			delete(rl.Limiters, key)
			delete(rl.LastSeen, key)
		}
	}
}

// --- Challenge Store Methods ---

func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{Challenges: make(map[string]string)}
}

// GenerateChallenge creates a new math question challenge.
func (cs *ChallengeStore) GenerateChallenge() (token, question string) {
	a, b := mrand.Intn(10)+1, mrand.Intn(10)+1
	answer := strconv.Itoa(a + b)
	question = fmt.Sprintf("What is %d + %d?", a, b)
	token = uuid.New().String()

	cs.Mu.Lock()
	cs.Challenges[token] = answer
	cs.Mu.Unlock()

	time.AfterFunc(5*time.Minute, func() {
		cs.Mu.Lock()
		delete(cs.Challenges, token)
		cs.Mu.Unlock()
	})
	return token, question
}

// Verify checks a challenge answer. Tokens are single-use.
func (cs *ChallengeStore) Verify(token, answer string) bool {
	cs.Mu.Lock()
	defer cs.Mu.Unlock()

	correctAnswer, exists := cs.Challenges[token]
	delete(cs.Challenges, token)
	if !exists {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(answer), []byte(correctAnswer)) == 1
}
