package tools

import (
	"context"
	"fmt"

	"github.com/ayokoji/aiko/internal/lyrics"
)

// maxLyricsRunes bounds how much lyric text is fed back into the
// prompt. Full lyrics for long songs would crowd out the history.
const maxLyricsRunes = 4000

// RegisterLyrics adds the get_lyrics tool backed by the content cache.
// A cache miss degrades to a "not available" message; the persona is
// expected to react in character rather than surface an error.
func RegisterLyrics(r *Registry, store *lyrics.Store) {
	r.Register(&Tool{
		Name:        "get_lyrics",
		Description: "Look up the lyrics of a song. Use when someone asks about a song's words, wants to quote a song, or is guessing a lyric.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"song": map[string]any{
					"type":        "string",
					"description": "The song title",
				},
				"artist": map[string]any{
					"type":        "string",
					"description": "The performing artist",
				},
			},
			"required": []string{"song", "artist"},
		},
		Handler: func(_ context.Context, args map[string]any) Result {
			song := stringArg(args, "song")
			artist := stringArg(args, "artist")
			if song == "" || artist == "" {
				return Degraded("Both song and artist are required to look up lyrics.")
			}

			body, ok, err := store.Get(artist, song)
			if err != nil {
				return Fatal(fmt.Sprintf("The lyrics lookup for %q by %q is unavailable right now.", song, artist), err)
			}
			if !ok {
				return Degraded(fmt.Sprintf("Lyrics for %q by %q are not available.", song, artist))
			}

			if runes := []rune(body); len(runes) > maxLyricsRunes {
				body = string(runes[:maxLyricsRunes]) + "\n[...]"
			}
			return OK(fmt.Sprintf("Lyrics for %q by %q:\n\n%s", song, artist, body))
		},
	})
}
