// Package persona provides the system prompt for the role-played
// character. The prompt is a markdown persona card with placeholders
// that are rendered fresh each turn from the caller-supplied user
// context.
package persona

import (
	"bufio"
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ayokoji/aiko/internal/conversation"
)

//go:embed card.md
var defaultCard string

// Provider serves the persona card template. Placeholders:
//
//	{username}       the caller-supplied display name
//	{intimacy}       the numeric relationship score
//	{intimacy_tier}  a human-readable tier derived from the score
type Provider struct {
	name     string
	template string
}

// Default returns a provider backed by the embedded persona card.
func Default() *Provider {
	return &Provider{
		name:     cardName(defaultCard),
		template: defaultCard,
	}
}

// LoadFile returns a provider backed by a persona card on disk.
func LoadFile(path string) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona card: %w", err)
	}
	card := string(data)
	if strings.TrimSpace(card) == "" {
		return nil, fmt.Errorf("persona card %s is empty", path)
	}
	return &Provider{name: cardName(card), template: card}, nil
}

// Name returns the persona's display name (the card's first heading).
func (p *Provider) Name() string { return p.name }

// Card returns the raw markdown card with placeholders intact.
func (p *Provider) Card() string { return p.template }

// Render returns the system prompt for one turn.
func (p *Provider) Render(user conversation.UserContext) string {
	username := user.Username
	if username == "" {
		username = "a stranger"
	}
	r := strings.NewReplacer(
		"{username}", username,
		"{intimacy}", strconv.Itoa(user.Intimacy),
		"{intimacy_tier}", IntimacyTier(user.Intimacy),
	)
	return r.Replace(p.template)
}

// IntimacyTier maps a relationship score onto a named tier. Thresholds
// match the gamification layer's leveling curve.
func IntimacyTier(score int) string {
	switch {
	case score >= 500:
		return "soulmate"
	case score >= 250:
		return "confidant"
	case score >= 100:
		return "close friend"
	case score >= 40:
		return "friend"
	case score >= 10:
		return "acquaintance"
	default:
		return "stranger"
	}
}

// cardName extracts the first level-1 heading, falling back to "Aiko".
func cardName(card string) string {
	scanner := bufio.NewScanner(strings.NewReader(card))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return "Aiko"
}
