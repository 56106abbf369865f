package story

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"storychat/core"
)

type completionCall struct {
	history     []core.WireMessage
	temperature float32
	maxTokens   int
}

// fakeCompleter scripts one response per call, in order. An optional gate
// blocks every call until released, for in-flight tests.
type fakeCompleter struct {
	mu      sync.Mutex
	calls   []completionCall
	respond []func() (string, error)
	gate    chan struct{}
}

func (f *fakeCompleter) Complete(ctx context.Context, history []core.WireMessage, temperature float32, maxTokens int) (string, error) {
	f.mu.Lock()
	idx := len(f.calls)
	f.calls = append(f.calls, completionCall{
		history:     append([]core.WireMessage(nil), history...),
		temperature: temperature,
		maxTokens:   maxTokens,
	})
	f.mu.Unlock()

	if f.gate != nil {
		<-f.gate
	}
	if idx < len(f.respond) {
		return f.respond[idx]()
	}
	return "", fmt.Errorf("unexpected call %d", idx)
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeCompleter) call(i int) completionCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

func reply(s string) func() (string, error) {
	return func() (string, error) { return s, nil }
}

func fail(err error) func() (string, error) {
	return func() (string, error) { return "", err }
}

func testCharacter() core.Character {
	return core.Character{
		ID:          "tanjiro",
		Name:        "Tanjiro Kamado",
		Type:        core.CharacterHero,
		Title:       "Der Träger des Sonnen-Atems",
		Personality: "Freundlich, mitfühlend, entschlossen.",
	}
}

func newTestOrchestrator(transport ChatCompleter) *Orchestrator {
	o := NewOrchestrator(transport, testCharacter(), nil, OrchestratorConfig{}, core.NewDiscardLogger())
	o.await = func(context.Context, <-chan struct{}, time.Duration) {}
	return o
}

func TestInitializeSessionStoresOpeningBeat(t *testing.T) {
	t.Parallel()

	transport := &fakeCompleter{respond: []func() (string, error){reply("Die Nacht ist still.")}}
	o := newTestOrchestrator(transport)

	opening, err := o.InitializeSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, core.MessageRoleSystem, opening.Role)
	require.Equal(t, "Die Nacht ist still.", opening.Content)
	require.NotEmpty(t, opening.ID)
	require.True(t, o.Opened())
	require.Len(t, o.Messages(), 1)

	call := o.transport.(*fakeCompleter).call(0)
	require.InDelta(t, 0.9, call.temperature, 0.001)
	require.Equal(t, 300, call.maxTokens)
	require.Len(t, call.history, 2)
	require.Equal(t, "system", call.history[0].Role)
	require.Contains(t, call.history[0].Content, "Tanjiro Kamado")
}

func TestInitializeSessionIsIdempotentOnceOpened(t *testing.T) {
	t.Parallel()

	transport := &fakeCompleter{respond: []func() (string, error){reply("Anfang.")}}
	o := newTestOrchestrator(transport)

	first, err := o.InitializeSession(context.Background())
	require.NoError(t, err)
	second, err := o.InitializeSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, transport.callCount())
}

func TestInitializeSessionFailureLeavesSessionEmpty(t *testing.T) {
	t.Parallel()

	upstream := &core.UpstreamError{Provider: "openai", StatusCode: 500, Message: "boom"}
	transport := &fakeCompleter{respond: []func() (string, error){
		fail(upstream),
		reply("Anfang."),
	}}
	o := newTestOrchestrator(transport)

	_, err := o.InitializeSession(context.Background())
	require.Error(t, err)
	require.Empty(t, o.Messages())
	require.False(t, o.Opened())
	require.Equal(t, upstream, o.LastError())

	// A retry goes through.
	opening, err := o.InitializeSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Anfang.", opening.Content)
	require.NoError(t, o.LastError())
}

func TestSendMessageEmptyInputIsSilentNoOp(t *testing.T) {
	t.Parallel()

	transport := &fakeCompleter{}
	o := newTestOrchestrator(transport)

	appended, err := o.SendMessage(context.Background(), "   \n\t ", false)
	require.NoError(t, err)
	require.Nil(t, appended)
	require.Zero(t, transport.callCount())
	require.Empty(t, o.Messages())
}

func TestSendMessageAppendsUserAndReply(t *testing.T) {
	t.Parallel()

	transport := &fakeCompleter{respond: []func() (string, error){reply("Er lächelt.")}}
	o := newTestOrchestrator(transport)

	appended, err := o.SendMessage(context.Background(), "Hallo Tanjiro", false)
	require.NoError(t, err)
	require.Len(t, appended, 2)
	require.Equal(t, core.MessageRoleUser, appended[0].Role)
	require.Equal(t, "Hallo Tanjiro", appended[0].Content)
	require.Equal(t, core.MessageRoleAssistant, appended[1].Role)
	require.Equal(t, "Er lächelt.", appended[1].Content)
	require.Len(t, o.Messages(), 2)

	call := transport.call(0)
	require.InDelta(t, 0.85, call.temperature, 0.001)
	require.Equal(t, 500, call.maxTokens)
	last := call.history[len(call.history)-1]
	require.Equal(t, "user", last.Role)
	require.Equal(t, `Als Tanjiro Kamado sage/tue ich: "Hallo Tanjiro"`, last.Content)
}

func TestSendMessageRejectsWhilePending(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	transport := &fakeCompleter{
		gate:    gate,
		respond: []func() (string, error){reply("Antwort.")},
	}
	o := newTestOrchestrator(transport)

	firstDone := make(chan error, 1)
	go func() {
		_, err := o.SendMessage(context.Background(), "erste", false)
		firstDone <- err
	}()

	require.Eventually(t, o.Pending, time.Second, time.Millisecond)

	_, err := o.SendMessage(context.Background(), "zweite", false)
	require.ErrorIs(t, err, ErrSessionBusy)

	close(gate)
	require.NoError(t, <-firstDone)
	require.False(t, o.Pending())
	require.Len(t, o.Messages(), 2)
}

func TestSendMessageRollsBackOnTransportFailure(t *testing.T) {
	t.Parallel()

	netErr := &core.NetworkError{Provider: "openai", Err: errors.New("connection refused")}
	transport := &fakeCompleter{respond: []func() (string, error){
		reply("Anfang."),
		fail(netErr),
	}}
	o := newTestOrchestrator(transport)

	_, err := o.InitializeSession(context.Background())
	require.NoError(t, err)

	_, err = o.SendMessage(context.Background(), "Hallo", false)
	require.Error(t, err)
	require.Equal(t, netErr, o.LastError())

	// The optimistically appended user turn is gone; only the opening beat
	// remains.
	messages := o.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, core.MessageRoleSystem, messages[0].Role)
	require.False(t, o.Pending())
}

func TestSendMessageActionAppendsDescriptionFirst(t *testing.T) {
	t.Parallel()

	transport := &fakeCompleter{respond: []func() (string, error){
		reply("Tanjiro stürmt mit gezogener Klinge vor."),
		reply("Der Dämon weicht zurück."),
	}}
	o := newTestOrchestrator(transport)

	appended, err := o.SendMessage(context.Background(), "Ich greife an", true)
	require.NoError(t, err)
	require.Len(t, appended, 3)
	require.Equal(t, core.MessageRoleUser, appended[0].Role)
	require.Equal(t, core.MessageRoleAssistant, appended[1].Role)
	require.Equal(t, "Tanjiro stürmt mit gezogener Klinge vor.", appended[1].Content)
	require.Equal(t, "Der Dämon weicht zurück.", appended[2].Content)

	require.Equal(t, 2, transport.callCount())
	descCall := transport.call(0)
	require.Equal(t, 150, descCall.maxTokens)
	require.Contains(t, descCall.history[1].Content, "Ich greife an")

	// The action description stays out of the narrative request history;
	// the wrapped user turn is its final entry.
	mainCall := transport.call(1)
	for _, msg := range mainCall.history {
		require.NotEqual(t, "Tanjiro stürmt mit gezogener Klinge vor.", msg.Content)
	}
	last := mainCall.history[len(mainCall.history)-1]
	require.True(t, strings.HasPrefix(last.Content, "Als Tanjiro Kamado sage/tue ich:"))

	require.Len(t, o.Messages(), 3)
}

func TestSendMessageActionNarrationAwaitsPlayback(t *testing.T) {
	t.Parallel()

	transport := &fakeCompleter{respond: []func() (string, error){
		reply("Tanjiro stürmt mit gezogener Klinge vor."),
		reply("Der Dämon weicht zurück."),
	}}
	playbackDone := make(chan struct{})
	close(playbackDone)
	var narrated []string
	o := NewOrchestrator(transport, testCharacter(), nil, OrchestratorConfig{
		NarrateAction: func(_ context.Context, msg core.ChatMessage) <-chan struct{} {
			narrated = append(narrated, msg.Content)
			return playbackDone
		},
	}, core.NewDiscardLogger())
	var awaited []time.Duration
	o.await = func(_ context.Context, done <-chan struct{}, max time.Duration) {
		awaited = append(awaited, max)
		<-done
	}

	appended, err := o.SendMessage(context.Background(), "Ich greife an", true)
	require.NoError(t, err)
	require.Len(t, appended, 3)

	// The description reaches the narration hook before the narrative
	// request goes out, and the pause is capped by its estimated duration.
	require.Equal(t, []string{"Tanjiro stürmt mit gezogener Klinge vor."}, narrated)
	require.Equal(t, []time.Duration{core.EstimateSpeechDuration("Tanjiro stürmt mit gezogener Klinge vor.")}, awaited)
}

func TestSendMessageActionSkipsPauseWhenNothingPlays(t *testing.T) {
	t.Parallel()

	awaitCalls := 0
	countAwait := func(context.Context, <-chan struct{}, time.Duration) { awaitCalls++ }

	// A hook that declines to play returns nil; no pause follows.
	transport := &fakeCompleter{respond: []func() (string, error){
		reply("Er hebt die Klinge."),
		reply("Nichts geschieht."),
	}}
	o := NewOrchestrator(transport, testCharacter(), nil, OrchestratorConfig{
		NarrateAction: func(context.Context, core.ChatMessage) <-chan struct{} { return nil },
	}, core.NewDiscardLogger())
	o.await = countAwait
	appended, err := o.SendMessage(context.Background(), "Ich greife an", true)
	require.NoError(t, err)
	require.Len(t, appended, 3)
	require.Zero(t, awaitCalls)

	// Without a hook there is no pause either.
	transport = &fakeCompleter{respond: []func() (string, error){
		reply("Er hebt die Klinge."),
		reply("Nichts geschieht."),
	}}
	o = NewOrchestrator(transport, testCharacter(), nil, OrchestratorConfig{}, core.NewDiscardLogger())
	o.await = countAwait
	appended, err = o.SendMessage(context.Background(), "Ich greife an", true)
	require.NoError(t, err)
	require.Len(t, appended, 3)
	require.Zero(t, awaitCalls)
}

func TestAwaitNarrationReturnsWhenPlaybackEnds(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(done)
	}()
	start := time.Now()
	awaitNarration(context.Background(), done, 30*time.Second)
	require.Less(t, time.Since(start), time.Second)

	// A wedged player cannot stall past the cap.
	start = time.Now()
	awaitNarration(context.Background(), make(chan struct{}), 10*time.Millisecond)
	require.Less(t, time.Since(start), time.Second)
}

func TestSendMessageActionDescriptionFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	transport := &fakeCompleter{respond: []func() (string, error){
		fail(&core.UpstreamError{Provider: "openai", StatusCode: 500, Message: "boom"}),
		reply("Der Dämon weicht zurück."),
	}}
	o := newTestOrchestrator(transport)

	appended, err := o.SendMessage(context.Background(), "Ich greife an", true)
	require.NoError(t, err)
	require.Len(t, appended, 2)
	require.Equal(t, core.MessageRoleUser, appended[0].Role)
	require.Equal(t, core.MessageRoleAssistant, appended[1].Role)
	require.Len(t, o.Messages(), 2)
}

func TestResetDiscardsInFlightResponse(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	transport := &fakeCompleter{
		gate:    gate,
		respond: []func() (string, error){reply("verspätete Antwort")},
	}
	o := newTestOrchestrator(transport)

	sendDone := make(chan error, 1)
	go func() {
		_, err := o.SendMessage(context.Background(), "Hallo", false)
		sendDone <- err
	}()

	require.Eventually(t, o.Pending, time.Second, time.Millisecond)
	o.ResetSession()
	close(gate)

	require.ErrorIs(t, <-sendDone, ErrSessionReset)
	require.Empty(t, o.Messages())
	require.False(t, o.Pending())

	// The session accepts a fresh turn afterwards.
	transport.mu.Lock()
	transport.respond = append(transport.respond, reply("neuer Anfang"))
	transport.mu.Unlock()
	appended, err := o.SendMessage(context.Background(), "nochmal", false)
	require.NoError(t, err)
	require.Len(t, appended, 2)
}

func TestResetSessionIsIdempotent(t *testing.T) {
	t.Parallel()

	transport := &fakeCompleter{respond: []func() (string, error){reply("Anfang.")}}
	o := newTestOrchestrator(transport)

	_, err := o.InitializeSession(context.Background())
	require.NoError(t, err)

	o.ResetSession()
	o.ResetSession()
	require.Empty(t, o.Messages())
	require.False(t, o.Opened())
	require.NoError(t, o.LastError())
}

type fixedBudget int

func (b fixedBudget) StoryMaxTokens() int { return int(b) }

func TestSendMessageReadsTokenBudgetPerCall(t *testing.T) {
	t.Parallel()

	transport := &fakeCompleter{respond: []func() (string, error){reply("ok")}}
	o := NewOrchestrator(transport, testCharacter(), fixedBudget(555), OrchestratorConfig{}, core.NewDiscardLogger())
	o.await = func(context.Context, <-chan struct{}, time.Duration) {}

	_, err := o.SendMessage(context.Background(), "Hallo", false)
	require.NoError(t, err)
	require.Equal(t, 555, transport.call(0).maxTokens)
}
