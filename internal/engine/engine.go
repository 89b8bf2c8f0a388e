// Package engine implements the conversation turn engine: a finite
// state machine that runs one turn per invocation, from gap detection
// through generation, tool dispatch, and history compaction.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ayokoji/aiko/internal/attachments"
	"github.com/ayokoji/aiko/internal/config"
	"github.com/ayokoji/aiko/internal/conversation"
	"github.com/ayokoji/aiko/internal/events"
	"github.com/ayokoji/aiko/internal/llm"
	"github.com/ayokoji/aiko/internal/persona"
	"github.com/ayokoji/aiko/internal/summary"
	"github.com/ayokoji/aiko/internal/tools"
)

// TurnRequest is one inbound message for a thread.
type TurnRequest struct {
	ThreadID    string                   `json:"thread_id"`
	Text        string                   `json:"text"`
	User        conversation.UserContext `json:"user"`
	Attachments []attachments.Raw        `json:"attachments,omitempty"`
}

// TurnResponse is the finalized answer for one turn.
type TurnResponse struct {
	ThreadID string        `json:"thread_id"`
	Reply    string        `json:"reply"`
	Model    string        `json:"model"`
	Rounds   int           `json:"rounds"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Engine runs turns. One Engine serves all threads; turns for the same
// thread are serialized so read-modify-write cycles never interleave.
type Engine struct {
	store      conversation.Store
	router     *llm.Router
	dispatcher *tools.Dispatcher
	summarizer *summary.Summarizer
	persona    *persona.Provider
	bus        *events.Bus
	logger     *slog.Logger
	cfg        config.EngineConfig

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	// clock is swapped in tests to drive the gap detector.
	clock func() time.Time

	stats struct {
		mu       sync.Mutex
		turns    int64
		lastTurn time.Time
	}
}

// New creates an engine. bus may be nil; events are then dropped.
func New(store conversation.Store, router *llm.Router, dispatcher *tools.Dispatcher, summarizer *summary.Summarizer, provider *persona.Provider, bus *events.Bus, cfg config.EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:      store,
		router:     router,
		dispatcher: dispatcher,
		summarizer: summarizer,
		persona:    provider,
		bus:        bus,
		logger:     logger,
		cfg:        cfg,
		locks:      make(map[string]*sync.Mutex),
		clock:      time.Now,
	}
}

// threadLock returns the mutex serializing turns for one thread.
func (e *Engine) threadLock(threadID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.locks[threadID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[threadID] = lock
	}
	return lock
}

// Run executes one complete turn and returns the final assistant
// message. State is loaded once, mutated only in a working copy, and
// committed only when the turn reaches its terminal state; a failed
// turn leaves the thread exactly as it was.
func (e *Engine) Run(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	if req.ThreadID == "" {
		req.ThreadID = "default"
	}

	lock := e.threadLock(req.ThreadID)
	lock.Lock()
	defer lock.Unlock()

	if e.cfg.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.TurnTimeout.Std())
		defer cancel()
	}

	started := time.Now()
	now := e.clock()

	conv, err := e.store.Load(ctx, req.ThreadID)
	if err != nil {
		return nil, err
	}

	images := attachments.ProcessImages(req.Attachments, e.logger)
	binding := e.router.Pick(len(images) > 0)

	e.bus.Emit(events.SourceEngine, events.KindTurnStart, map[string]any{
		"thread_id":  req.ThreadID,
		"has_images": len(images) > 0,
	})
	e.logger.Info("turn started",
		"thread", req.ThreadID,
		"user", req.User.Username,
		"model", binding.Model(),
		"images", len(images))

	ts := &turnState{
		req:     req,
		conv:    conv,
		binding: binding,
		images:  images,
		now:     now,
	}

	if err := e.dispatch(ctx, ts); err != nil {
		e.bus.Emit(events.SourceEngine, events.KindTurnFailed, map[string]any{
			"thread_id": req.ThreadID,
			"error":     err.Error(),
		})
		e.logger.Error("turn failed", "thread", req.ThreadID, "error", err)
		return nil, err
	}

	if err := e.store.Commit(ctx, ts.conv); err != nil {
		return nil, err
	}

	elapsed := time.Since(started)
	e.recordTurn()
	e.bus.Emit(events.SourceEngine, events.KindTurnComplete, map[string]any{
		"thread_id":  req.ThreadID,
		"rounds":     ts.rounds,
		"elapsed_ms": elapsed.Milliseconds(),
	})
	e.logger.Info("turn completed",
		"thread", req.ThreadID,
		"rounds", ts.rounds,
		"messages", len(ts.conv.Messages),
		"elapsed", elapsed.Round(time.Millisecond).String())

	return &TurnResponse{
		ThreadID: req.ThreadID,
		Reply:    ts.reply,
		Model:    binding.Model(),
		Rounds:   ts.rounds,
		Elapsed:  elapsed,
	}, nil
}

func (e *Engine) recordTurn() {
	e.stats.mu.Lock()
	defer e.stats.mu.Unlock()
	e.stats.turns++
	e.stats.lastTurn = time.Now().UTC()
}

// Stats reports engine counters for the stats endpoint.
func (e *Engine) Stats() map[string]any {
	e.stats.mu.Lock()
	defer e.stats.mu.Unlock()
	out := map[string]any{
		"turns": e.stats.turns,
	}
	if !e.stats.lastTurn.IsZero() {
		out["last_turn"] = e.stats.lastTurn.Format(time.RFC3339)
	}
	return out
}
