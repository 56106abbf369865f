package story

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storychat/core"
)

// ErrSessionBusy is returned when a send or initialize overlaps an in-flight
// request for the same session. Callers retry after the current request
// settles; the orchestrator never queues turns.
var ErrSessionBusy = errors.New("story: a request is already in flight for this session")

// ErrSessionReset is returned when the session was reset while a request was
// in flight. The late response has been discarded.
var ErrSessionReset = errors.New("story: session was reset while the request was in flight")

// ChatCompleter is the transport slice the orchestrator needs from an AI
// backend. *llm.OpenAIChatTransport satisfies it.
type ChatCompleter interface {
	Complete(ctx context.Context, history []core.WireMessage, temperature float32, maxTokens int) (string, error)
}

// TokenBudgetSource supplies the max-token budget for narrative replies. It is
// consulted on every send, so settings changes apply to the next turn without
// rebuilding the orchestrator.
type TokenBudgetSource interface {
	StoryMaxTokens() int
}

// OrchestratorConfig holds the sampling parameters for the three request
// kinds the orchestrator issues.
type OrchestratorConfig struct {
	// Temperature applies to narrative replies and action descriptions.
	Temperature float32
	// InitialTemperature applies to the opening beat only.
	InitialTemperature float32
	// MaxTokens is the reply budget used when no TokenBudgetSource is set.
	MaxTokens int
	// InitialMaxTokens caps the opening beat.
	InitialMaxTokens int
	// ActionMaxTokens caps the short third-person action description.
	ActionMaxTokens int
	// NarrateAction, when set, is called with a freshly appended action
	// description before the narrative request is issued. A non-nil return
	// is awaited until playback ends, bounded by the description's
	// estimated spoken duration, so the narration leads the world's
	// reaction. A nil return skips the pause.
	NarrateAction func(ctx context.Context, msg core.ChatMessage) <-chan struct{}
}

func (c OrchestratorConfig) withDefaults() OrchestratorConfig {
	if c.Temperature == 0 {
		c.Temperature = 0.85
	}
	if c.InitialTemperature == 0 {
		c.InitialTemperature = 0.9
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 500
	}
	if c.InitialMaxTokens == 0 {
		c.InitialMaxTokens = 300
	}
	if c.ActionMaxTokens == 0 {
		c.ActionMaxTokens = 150
	}
	return c
}

// Orchestrator drives a single turn-based conversation with one character.
// It owns the message history and enforces the single-in-flight rule: at most
// one request per session, overlapping sends are rejected.
type Orchestrator struct {
	transport ChatCompleter
	budget    TokenBudgetSource
	config    OrchestratorConfig
	logger    *core.Logger

	mu         sync.Mutex
	character  core.Character
	messages   []core.ChatMessage
	pending    bool
	opened     bool
	lastErr    error
	generation uint64

	// injectable for tests
	now   func() time.Time
	newID func() string
	await func(ctx context.Context, done <-chan struct{}, max time.Duration)
}

// NewOrchestrator creates a session for the given character. budget may be
// nil, in which case config.MaxTokens applies to every narrative reply.
func NewOrchestrator(transport ChatCompleter, character core.Character, budget TokenBudgetSource, config OrchestratorConfig, logger *core.Logger) *Orchestrator {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Orchestrator{
		transport: transport,
		budget:    budget,
		config:    config.withDefaults(),
		logger:    logger.With(map[string]interface{}{"component": "story", "character": character.ID}),
		character: character,
		now:       time.Now,
		newID:     uuid.NewString,
		await:     awaitNarration,
	}
}

// InitializeSession requests the opening beat and stores it as the first
// message of the history. On failure the session stays empty and the call may
// be retried. A second call on an opened session returns the existing opening
// beat without issuing a request.
func (o *Orchestrator) InitializeSession(ctx context.Context) (core.ChatMessage, error) {
	o.mu.Lock()
	if o.pending {
		o.mu.Unlock()
		return core.ChatMessage{}, ErrSessionBusy
	}
	if o.opened {
		first := o.messages[0]
		o.mu.Unlock()
		return first, nil
	}
	o.pending = true
	gen := o.generation
	character := o.character
	o.mu.Unlock()

	wire := []core.WireMessage{
		{Role: string(core.MessageRoleSystem), Content: buildSystemPrompt(character)},
		{Role: string(core.MessageRoleUser), Content: initialSituationPrompt(character)},
	}
	content, err := o.transport.Complete(ctx, wire, o.config.InitialTemperature, o.config.InitialMaxTokens)

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation {
		return core.ChatMessage{}, ErrSessionReset
	}
	o.pending = false
	if err != nil {
		o.lastErr = err
		o.logger.Error("opening beat request failed", "error", err)
		return core.ChatMessage{}, err
	}
	opening := core.ChatMessage{
		ID:        o.newID(),
		Role:      core.MessageRoleSystem,
		Content:   content,
		CreatedAt: o.now(),
	}
	o.messages = append(o.messages, opening)
	o.opened = true
	o.lastErr = nil
	return opening, nil
}

// SendMessage appends the user turn, requests the narrative reply, and
// returns the messages added by this turn. Empty or whitespace-only input is
// a silent no-op. When isAction is set, a short third-person description of
// the action is generated and appended before the narrative request; failure
// of that secondary request is logged and swallowed.
//
// On transport failure of the main request the history is rolled back to its
// pre-call state, including the optimistically appended user turn.
func (o *Orchestrator) SendMessage(ctx context.Context, userText string, isAction bool) ([]core.ChatMessage, error) {
	trimmed := strings.TrimSpace(userText)
	if trimmed == "" {
		return nil, nil
	}

	o.mu.Lock()
	if o.pending {
		o.mu.Unlock()
		return nil, ErrSessionBusy
	}
	o.pending = true
	gen := o.generation
	character := o.character
	baseLen := len(o.messages)
	userMsg := core.ChatMessage{
		ID:        o.newID(),
		Role:      core.MessageRoleUser,
		Content:   trimmed,
		CreatedAt: o.now(),
	}
	o.messages = append(o.messages, userMsg)
	history := core.ToWire(o.messages[:baseLen])
	o.mu.Unlock()

	appended := []core.ChatMessage{userMsg}

	if isAction {
		if desc, ok := o.describeAction(ctx, gen, character, trimmed); ok {
			appended = append(appended, desc)
			if o.config.NarrateAction != nil {
				if done := o.config.NarrateAction(ctx, desc); done != nil {
					o.await(ctx, done, core.EstimateSpeechDuration(desc.Content))
				}
			}
		}
	}

	wire := make([]core.WireMessage, 0, len(history)+2)
	wire = append(wire, core.WireMessage{Role: string(core.MessageRoleSystem), Content: buildSystemPrompt(character)})
	wire = append(wire, history...)
	wire = append(wire, core.WireMessage{Role: string(core.MessageRoleUser), Content: wrapUserTurn(character, trimmed)})

	reply, err := o.transport.Complete(ctx, wire, o.config.Temperature, o.maxTokens())

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation {
		return nil, ErrSessionReset
	}
	o.pending = false
	if err != nil {
		o.messages = o.messages[:baseLen]
		o.lastErr = err
		o.logger.Error("narrative request failed, turn rolled back", "error", err)
		return nil, err
	}
	assistantMsg := core.ChatMessage{
		ID:        o.newID(),
		Role:      core.MessageRoleAssistant,
		Content:   reply,
		CreatedAt: o.now(),
	}
	o.messages = append(o.messages, assistantMsg)
	o.lastErr = nil
	appended = append(appended, assistantMsg)
	return appended, nil
}

// describeAction issues the best-effort secondary request for an action
// description and appends the result to the history. Returns ok=false when
// the request failed or the session was reset meanwhile.
func (o *Orchestrator) describeAction(ctx context.Context, gen uint64, character core.Character, action string) (core.ChatMessage, bool) {
	wire := []core.WireMessage{
		{Role: string(core.MessageRoleSystem), Content: buildSystemPrompt(character)},
		{Role: string(core.MessageRoleUser), Content: actionDescriptionPrompt(character, action)},
	}
	content, err := o.transport.Complete(ctx, wire, o.config.Temperature, o.config.ActionMaxTokens)
	if err != nil {
		o.logger.Warn("action description request failed, continuing without it", "error", err)
		return core.ChatMessage{}, false
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation {
		return core.ChatMessage{}, false
	}
	msg := core.ChatMessage{
		ID:        o.newID(),
		Role:      core.MessageRoleAssistant,
		Content:   content,
		CreatedAt: o.now(),
	}
	o.messages = append(o.messages, msg)
	return msg, true
}

// ResetSession clears the history and invalidates any in-flight request. The
// late response of an invalidated request is discarded when it lands. Reset
// is idempotent.
func (o *Orchestrator) ResetSession() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.generation++
	o.messages = nil
	o.pending = false
	o.opened = false
	o.lastErr = nil
}

// Messages returns a copy of the current history.
func (o *Orchestrator) Messages() []core.ChatMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]core.ChatMessage, len(o.messages))
	copy(out, o.messages)
	return out
}

// Pending reports whether a request is in flight.
func (o *Orchestrator) Pending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending
}

// LastError returns the error of the most recent failed request, or nil after
// a success or reset.
func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Opened reports whether the opening beat has been stored.
func (o *Orchestrator) Opened() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opened
}

// Character returns the character bound to this session.
func (o *Orchestrator) Character() core.Character {
	return o.character
}

func (o *Orchestrator) maxTokens() int {
	if o.budget != nil {
		if n := o.budget.StoryMaxTokens(); n > 0 {
			return n
		}
	}
	return o.config.MaxTokens
}

// awaitNarration blocks until playback ends. The estimated spoken duration
// caps the wait so a wedged player cannot stall the turn.
func awaitNarration(ctx context.Context, done <-chan struct{}, max time.Duration) {
	timer := time.NewTimer(max)
	defer timer.Stop()
	select {
	case <-done:
	case <-ctx.Done():
	case <-timer.C:
	}
}
