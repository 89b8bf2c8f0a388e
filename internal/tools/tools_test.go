package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/ayokoji/aiko/internal/conversation"
	"github.com/ayokoji/aiko/internal/lyrics"
)

func TestExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	res := r.Execute(context.Background(), "not_a_tool", "{}")
	if res.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded", res.Status)
	}
	if res.Text != "Unknown tool: not_a_tool" {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestExecuteBadArguments(t *testing.T) {
	r := NewRegistry()
	r.Register(&Tool{
		Name: "echo",
		Handler: func(_ context.Context, args map[string]any) Result {
			return OK("called")
		},
	})

	res := r.Execute(context.Background(), "echo", "{not json")
	if res.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded", res.Status)
	}
	if !strings.HasPrefix(res.Text, "Invalid arguments for echo:") {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestExecuteEmptyArguments(t *testing.T) {
	r := NewRegistry()
	r.Register(&Tool{
		Name: "echo",
		Handler: func(_ context.Context, args map[string]any) Result {
			if args != nil {
				return Degraded("expected nil args")
			}
			return OK("ok")
		},
	})

	if res := r.Execute(context.Background(), "echo", ""); res.Status != StatusOK {
		t.Errorf("empty args: %v %q", res.Status, res.Text)
	}
}

func TestSpecsDeterministicOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		r.Register(&Tool{Name: name, Handler: func(_ context.Context, _ map[string]any) Result { return OK("x") }})
	}

	for range 3 {
		specs := r.Specs()
		var names []string
		for _, s := range specs {
			fn := s["function"].(map[string]any)
			names = append(names, fn["name"].(string))
		}
		want := []string{"alpha", "mid", "zeta"}
		for i := range want {
			if names[i] != want[i] {
				t.Fatalf("specs order = %v, want %v", names, want)
			}
		}
	}
}

func TestDiceRoll(t *testing.T) {
	r := NewRegistry()
	RegisterDice(r)

	res := r.Execute(context.Background(), "roll_dice", `{"sides": 6, "count": 1}`)
	if res.Status != StatusOK {
		t.Fatalf("Status = %v: %s", res.Status, res.Text)
	}
	if !strings.HasPrefix(res.Text, "Rolled a d6: ") {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestDiceRollMulti(t *testing.T) {
	r := NewRegistry()
	RegisterDice(r)

	res := r.Execute(context.Background(), "roll_dice", `{"sides": 20, "count": 3}`)
	if res.Status != StatusOK {
		t.Fatalf("Status = %v: %s", res.Status, res.Text)
	}
	if !strings.HasPrefix(res.Text, "Rolled 3d20: ") || !strings.Contains(res.Text, "total") {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestDiceRollBadSides(t *testing.T) {
	r := NewRegistry()
	RegisterDice(r)

	res := r.Execute(context.Background(), "roll_dice", `{"sides": 1}`)
	if res.Status != StatusDegraded {
		t.Errorf("Status = %v: %s", res.Status, res.Text)
	}
}

func TestDiceDefaults(t *testing.T) {
	r := NewRegistry()
	RegisterDice(r)

	res := r.Execute(context.Background(), "roll_dice", "{}")
	if res.Status != StatusOK {
		t.Fatalf("Status = %v: %s", res.Status, res.Text)
	}
	if !strings.HasPrefix(res.Text, "Rolled a d6: ") {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestRelationshipStatus(t *testing.T) {
	r := NewRegistry()
	RegisterRelationship(r)

	ctx := WithUserContext(context.Background(), conversation.UserContext{
		Username: "mika",
		Intimacy: 55,
	})
	res := r.Execute(ctx, "relationship_status", "{}")
	if res.Status != StatusOK {
		t.Fatalf("Status = %v: %s", res.Status, res.Text)
	}
	if !strings.Contains(res.Text, "mika") || !strings.Contains(res.Text, "friend") {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestRelationshipStatusNoContext(t *testing.T) {
	r := NewRegistry()
	RegisterRelationship(r)

	res := r.Execute(context.Background(), "relationship_status", "{}")
	if res.Status != StatusDegraded {
		t.Errorf("Status = %v: %s", res.Status, res.Text)
	}
}

func newLyricsStore(t *testing.T) *lyrics.Store {
	t.Helper()
	store, err := lyrics.NewStore(filepath.Join(t.TempDir(), "lyrics.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLyricsHit(t *testing.T) {
	store := newLyricsStore(t)
	if err := store.Put("Johnny Cash", "Hurt", "I hurt myself today"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	r := NewRegistry()
	RegisterLyrics(r, store)

	res := r.Execute(context.Background(), "get_lyrics", `{"song": "Hurt", "artist": "Johnny Cash"}`)
	if res.Status != StatusOK {
		t.Fatalf("Status = %v: %s", res.Status, res.Text)
	}
	if !strings.Contains(res.Text, "I hurt myself today") {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestLyricsMiss(t *testing.T) {
	store := newLyricsStore(t)

	r := NewRegistry()
	RegisterLyrics(r, store)

	res := r.Execute(context.Background(), "get_lyrics", `{"song": "Nope", "artist": "Nobody"}`)
	if res.Status != StatusDegraded {
		t.Fatalf("Status = %v: %s", res.Status, res.Text)
	}
	if !strings.Contains(res.Text, "not available") {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestLyricsMissingArgs(t *testing.T) {
	store := newLyricsStore(t)

	r := NewRegistry()
	RegisterLyrics(r, store)

	res := r.Execute(context.Background(), "get_lyrics", `{"song": "Hurt"}`)
	if res.Status != StatusDegraded {
		t.Errorf("Status = %v: %s", res.Status, res.Text)
	}
}

func TestLyricsTruncation(t *testing.T) {
	store := newLyricsStore(t)
	long := strings.Repeat("la ", maxLyricsRunes)
	if err := store.Put("someone", "endless", long); err != nil {
		t.Fatalf("Put: %v", err)
	}

	r := NewRegistry()
	RegisterLyrics(r, store)

	res := r.Execute(context.Background(), "get_lyrics", `{"song": "endless", "artist": "someone"}`)
	if res.Status != StatusOK {
		t.Fatalf("Status = %v", res.Status)
	}
	if !strings.HasSuffix(res.Text, "[...]") {
		t.Errorf("expected truncation marker, got tail %q", res.Text[len(res.Text)-20:])
	}
}

func TestDispatchOrderAndIDs(t *testing.T) {
	r := NewRegistry()
	r.Register(&Tool{
		Name: "echo",
		Handler: func(_ context.Context, args map[string]any) Result {
			return OK(fmt.Sprintf("echo:%s", stringArg(args, "v")))
		},
	})
	d := NewDispatcher(r, nil)

	calls := []conversation.ToolCall{
		{ID: "c1", Name: "echo", Arguments: `{"v": "first"}`},
		{ID: "c2", Name: "no_such_tool", Arguments: "{}"},
		{ID: "c3", Name: "echo", Arguments: `{"v": "third"}`},
	}

	msgs, results := d.Dispatch(context.Background(), calls)
	if len(msgs) != 3 || len(results) != 3 {
		t.Fatalf("got %d msgs, %d results", len(msgs), len(results))
	}

	wantText := []string{"echo:first", "Unknown tool: no_such_tool", "echo:third"}
	wantStatus := []Status{StatusOK, StatusDegraded, StatusOK}
	for i, m := range msgs {
		if m.Role != conversation.RoleTool {
			t.Errorf("msg %d role = %q", i, m.Role)
		}
		if m.ToolCallID != calls[i].ID {
			t.Errorf("msg %d ToolCallID = %q, want %q", i, m.ToolCallID, calls[i].ID)
		}
		if m.Content != wantText[i] {
			t.Errorf("msg %d content = %q, want %q", i, m.Content, wantText[i])
		}
		if results[i].Status != wantStatus[i] {
			t.Errorf("result %d status = %v, want %v", i, results[i].Status, wantStatus[i])
		}
	}
}

func TestThreadIDContext(t *testing.T) {
	ctx := WithThreadID(context.Background(), "thread-9")
	if got := ThreadIDFromContext(ctx); got != "thread-9" {
		t.Errorf("got %q", got)
	}
	if got := ThreadIDFromContext(context.Background()); got != "default" {
		t.Errorf("fallback got %q", got)
	}
}
