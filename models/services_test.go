package models

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"msgboard/config"
)

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(time.Hour, 2, time.Hour, 24*time.Hour)

	if !rl.Allow("user:1") || !rl.Allow("user:1") {
		t.Fatal("Expected the first two actions within the burst to be allowed")
	}
	if rl.Allow("user:1") {
		t.Error("Expected the third action to be throttled")
	}
	if !rl.Allow("user:2") {
		t.Error("Expected a different key to have its own budget")
	}
}

func TestRateLimiterPrune(t *testing.T) {
	rl := NewRateLimiter(time.Hour, 1, time.Hour, time.Minute)
	rl.GetLimiter("stale")
	rl.Mu.Lock()
	rl.LastSeen["stale"] = time.Now().Add(-2 * time.Hour)
	rl.Mu.Unlock()
	rl.GetLimiter("fresh")

	rl.prune(time.Now().Add(-time.Hour))

	rl.Mu.RLock()
	defer rl.Mu.RUnlock()
	if _, ok := rl.Limiters["stale"]; ok {
		t.Error("Expected stale limiter to be pruned")
	}
	if _, ok := rl.Limiters["fresh"]; !ok {
		t.Error("Expected fresh limiter to survive pruning")
	}
}

func TestChallengeStore(t *testing.T) {
	cs := NewChallengeStore()
	token, question := cs.GenerateChallenge()

	parts := strings.Fields(question)
	a, _ := strconv.Atoi(parts[2])
	b, _ := strconv.Atoi(strings.TrimSuffix(parts[4], "?"))
	answer := strconv.Itoa(a + b)

	if cs.Verify(token, "wrong") {
		t.Fatal("Expected wrong answer to fail")
	}
	// The failed attempt consumed the token.
	if cs.Verify(token, answer) {
		t.Error("Expected token to be single-use")
	}

	token, question = cs.GenerateChallenge()
	parts = strings.Fields(question)
	a, _ = strconv.Atoi(parts[2])
	b, _ = strconv.Atoi(strings.TrimSuffix(parts[4], "?"))
	if !cs.Verify(token, strconv.Itoa(a+b)) {
		t.Error("Expected correct answer to verify")
	}
}

func TestNewTopicInputValidate(t *testing.T) {
	testCases := []struct {
		name  string
		input NewTopicInput
		ok    bool
		msg   string
	}{
		{"Valid", NewTopicInput{Title: " Hello ", Content: "Body", ForumID: 1}, true, ""},
		{"Missing title", NewTopicInput{Title: "  ", Content: "Body", ForumID: 1}, false, "The title field is required."},
		{"Missing forum", NewTopicInput{Title: "Hi", Content: "Body"}, false, "The forumid field is required."},
		{"Title too long", NewTopicInput{Title: strings.Repeat("a", config.MaxTitleLen+1), Content: "Body", ForumID: 1}, false, "The title field is too long."},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := tc.input
			err := in.Validate()
			if tc.ok && err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if !tc.ok {
				if err == nil {
					t.Fatal("Expected a validation error")
				}
				if got := ValidationMessage(err); got != tc.msg {
					t.Errorf("Expected message %q, got %q", tc.msg, got)
				}
			}
			if tc.ok && in.Title != "Hello" {
				t.Errorf("Expected title to be trimmed, got %q", in.Title)
			}
		})
	}
}

func TestRegisterInputLimits(t *testing.T) {
	valid := RegisterInput{Login: "alice", Email: "alice@example.com", Password: strings.Repeat("p", config.MinPasswordLen)}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Expected a password of the minimum length to pass, got %v", err)
	}

	short := valid
	short.Password = strings.Repeat("p", config.MinPasswordLen-1)
	if got := ValidationMessage(short.Validate()); got != "The password field is too short." {
		t.Errorf("Expected a short password message, got %q", got)
	}

	long := valid
	long.Login = strings.Repeat("a", config.MaxLoginLen+1)
	if got := ValidationMessage(long.Validate()); got != "The login field is too long." {
		t.Errorf("Expected a long login message, got %q", got)
	}

	reply := NewReplyInput{Content: strings.Repeat("x", config.MaxContentLen+1), TopicID: 1}
	if got := ValidationMessage(reply.Validate()); got != "The content field is too long." {
		t.Errorf("Expected a long content message, got %q", got)
	}
}

func TestStatusAllowed(t *testing.T) {
	if !StatusAllowed(TypeTopic, StatusSpam) {
		t.Error("Expected topics to accept spam status")
	}
	if StatusAllowed(TypeForum, StatusSpam) {
		t.Error("Expected forums to reject spam status")
	}
	if StatusAllowed(TypeReply, StatusClose) {
		t.Error("Expected replies to reject close status")
	}
}
