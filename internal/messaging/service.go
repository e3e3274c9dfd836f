// Package messaging is the out-of-scope-in-depth chat CRUD collaborator
// SPEC_FULL §3 names: validation and a banned-words filter in front of
// MessageRepository, grounded on original_source's MessagesRoute
// (crates/indexer/src/routes/messages/mod.rs) for the CRUD shape and its
// chat_moderation.rs for the filter mechanics (leetspeak-normalize, then
// substring-match a deny list) — scoped down to the single global channel
// models.Message actually persists, rather than the original's
// per-recipient conversations.
package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ponziland/chainindexer/internal/models"
	"github.com/ponziland/chainindexer/internal/repository"
)

const maxBodyLength = 2000

// DefaultBannedWords is intentionally empty: chat_moderation.rs's deny list
// is a slur/hate-speech list that doesn't belong hardcoded into source, so
// operators supply their own via NewService's bannedWords argument (e.g.
// loaded from an ops-owned config file, not checked into this repo).
var DefaultBannedWords []string

type Service struct {
	messages    *repository.MessageRepository
	bannedWords []string
}

func NewService(messages *repository.MessageRepository, bannedWords ...string) *Service {
	if len(bannedWords) == 0 {
		bannedWords = DefaultBannedWords
	}
	return &Service{messages: messages, bannedWords: bannedWords}
}

// Post validates and persists a chat message, matching original_source's
// send_message: reject empty or over-length bodies, then run the
// moderation filter, before touching the repository.
func (s *Service) Post(ctx context.Context, author, body string) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("message body cannot be empty")
	}
	if len(body) > maxBodyLength {
		return nil, fmt.Errorf("message body too long (max %d characters)", maxBodyLength)
	}
	if matched, blocked := s.checkMessage(body); blocked {
		return nil, fmt.Errorf("message body contains a blocked word: %s", matched)
	}
	return s.messages.Create(ctx, author, body)
}

func (s *Service) Recent(ctx context.Context, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	return s.messages.ListRecent(ctx, limit)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.messages.SoftDelete(ctx, id, time.Now().UTC())
}

// checkMessage mirrors chat_moderation.rs's check_message: lowercase,
// normalize common letter substitutions used to evade a naive filter, then
// substring-match against the deny list both with and without whitespace
// stripped out.
func (s *Service) checkMessage(body string) (string, bool) {
	normalized := normalizeText(strings.ToLower(body))
	stripped := strings.Join(strings.Fields(normalized), "")
	for _, pattern := range s.bannedWords {
		if pattern == "" {
			continue
		}
		if strings.Contains(stripped, pattern) || strings.Contains(normalized, pattern) {
			return pattern, true
		}
	}
	return "", false
}

var leetSubstitutions = map[rune]rune{
	'0': 'o', '1': 'i', '!': 'i', '3': 'e', '4': 'a', '5': 's', '7': 't', '@': 'a', '$': 's',
}

func normalizeText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if sub, ok := leetSubstitutions[r]; ok {
			r = sub
		}
		if r == ' ' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
