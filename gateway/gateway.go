// Package gateway exposes the story and speech stack over HTTP and a
// WebSocket event stream. REST endpoints drive sessions, speech, and
// settings; every state change is also pushed to all connected WebSocket
// clients.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"storychat/core"
	"storychat/factories"
	"storychat/handlers/story"
	ttshandler "storychat/handlers/tts"
	"storychat/protocol"
)

// Config configures the gateway server.
type Config struct {
	// Addr is the listen address. Defaults to ":8080".
	Addr string
	// ShutdownTimeout bounds graceful shutdown. Defaults to 10s.
	ShutdownTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return c
}

// Server wires sessions, the speech dispatcher, and the settings store behind
// one HTTP surface.
type Server struct {
	config     Config
	settings   *factories.SettingsStore
	dispatcher *ttshandler.Dispatcher
	transport  story.ChatCompleter
	sessions   *sessionManager
	hub        *hub
	logger     *core.Logger

	httpServer *http.Server
	baseCtx    context.Context
	cancel     context.CancelFunc
	newID      func() string
}

// NewServer assembles a gateway. transport is shared by all sessions.
func NewServer(config Config, settings *factories.SettingsStore, dispatcher *ttshandler.Dispatcher, transport story.ChatCompleter, logger *core.Logger) *Server {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Server{
		config:     config.withDefaults(),
		settings:   settings,
		dispatcher: dispatcher,
		transport:  transport,
		sessions:   newSessionManager(),
		hub:        newHub(logger),
		logger:     logger.With(map[string]interface{}{"component": "gateway"}),
		newID:      uuid.NewString,
	}
}

// routes builds the HTTP mux. Split out of Start so tests can serve the
// handler without binding a listener.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/characters", s.handleCharacters)
	mux.HandleFunc("GET /api/voices/{backend}", s.handleVoices)
	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handlePutSettings)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/messages", s.handleSendMessage)
	mux.HandleFunc("POST /api/sessions/{id}/reset", s.handleResetSession)
	mux.HandleFunc("GET /api/sessions/{id}/actions", s.handleActions)
	mux.HandleFunc("POST /api/speak", s.handleSpeak)
	mux.HandleFunc("POST /api/speech/stop", s.handleStopSpeech)
	mux.HandleFunc("POST /api/speech/pause", s.handlePauseSpeech)
	mux.HandleFunc("POST /api/speech/resume", s.handleResumeSpeech)
	mux.HandleFunc("GET /api/speech/status", s.handleSpeechStatus)
	mux.HandleFunc("POST /api/cache/clear", s.handleClearCache)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

// Start begins serving. It returns once the listener is set up; the server
// runs until Shutdown or a listener error.
func (s *Server) Start(ctx context.Context) error {
	s.baseCtx, s.cancel = context.WithCancel(ctx)
	mux := s.routes()

	s.httpServer = &http.Server{
		Addr:        s.config.Addr,
		Handler:     mux,
		BaseContext: func(net.Listener) context.Context { return s.baseCtx },
	}

	s.logger.Info("gateway listening", "addr", s.config.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("gateway listener failed", "error", err)
			s.cancel()
		}
	}()
	return nil
}

// Shutdown stops the listener, closes all WebSocket clients, and stops any
// active speech.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.hub.closeAll()
	s.dispatcher.Stop()
	if s.cancel != nil {
		s.cancel()
	}
	return err
}

// Done reports server termination, either from Shutdown or a listener error.
func (s *Server) Done() <-chan struct{} {
	return s.baseCtx.Done()
}

// --- session endpoints ---

type createSessionRequest struct {
	CharacterID string `json:"character_id"`
}

type sessionResponse struct {
	SessionID string             `json:"session_id"`
	Character core.Character     `json:"character"`
	Messages  []core.ChatMessage `json:"messages"`
	Pending   bool               `json:"pending"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	character, ok := factories.FindCharacter(req.CharacterID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown character %q", req.CharacterID))
		return
	}

	orchestrator := story.NewOrchestrator(s.transport, character, s.settings, story.OrchestratorConfig{
		NarrateAction: s.narrateAction,
	}, s.logger)

	opening, err := orchestrator.InitializeSession(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	sess := &session{
		ID:           s.newID(),
		Character:    character,
		CreatedAt:    time.Now(),
		orchestrator: orchestrator,
	}
	s.sessions.add(sess)

	s.hub.broadcast(protocol.MsgSessionOpened, protocol.SessionOpenedPayload{
		SessionID:   sess.ID,
		CharacterID: character.ID,
		Opening:     opening,
	})
	s.autoplay(opening.Content)

	writeJSON(w, http.StatusCreated, s.sessionResponse(sess))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.sessions.list()
	out := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, s.sessionResponse(sess))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": out})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("session not found"))
		return
	}
	writeJSON(w, http.StatusOK, s.sessionResponse(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.sessions.remove(id) {
		writeError(w, http.StatusNotFound, errors.New("session not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sendMessageRequest struct {
	Text     string `json:"text"`
	IsAction bool   `json:"is_action,omitempty"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("session not found"))
		return
	}
	var req sendMessageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	appended, err := sess.orchestrator.SendMessage(r.Context(), req.Text, req.IsAction)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if len(appended) > 0 {
		s.hub.broadcast(protocol.MsgMessageAppended, protocol.MessageAppendedPayload{
			SessionID: sess.ID,
			Messages:  appended,
		})
		last := appended[len(appended)-1]
		if last.Role == core.MessageRoleAssistant {
			s.autoplay(last.Content)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": appended})
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("session not found"))
		return
	}
	s.resetSession(sess)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resetSession(sess *session) {
	sess.orchestrator.ResetSession()
	s.dispatcher.Stop()
	s.hub.broadcast(protocol.MsgSessionReset, protocol.SessionResetPayload{
		SessionID: sess.ID,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("session not found"))
		return
	}
	category := story.ActionCategory(r.URL.Query().Get("category"))
	actions := story.ActionsForCategory(sess.Character, category)
	if actions == nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown action category %q", category))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"actions": actions})
}

func (s *Server) sessionResponse(sess *session) sessionResponse {
	return sessionResponse{
		SessionID: sess.ID,
		Character: sess.Character,
		Messages:  sess.orchestrator.Messages(),
		Pending:   sess.orchestrator.Pending(),
	}
}

// --- speech endpoints ---

type speakRequest struct {
	Text    string         `json:"text"`
	Backend core.BackendID `json:"backend,omitempty"`
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.speak(req.Text, req.Backend); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// speak starts narration on the configured or requested backend. It returns
// once playback has started; completion is pushed over the event stream.
func (s *Server) speak(text string, backend core.BackendID) error {
	settings := s.settings.Get()
	if !settings.TTS.Enabled {
		return nil
	}
	tts := settings.TTS
	if backend != "" {
		tts.Provider = backend
	}
	_, err := s.startSpeech(text, tts)
	return err
}

// startSpeech dispatches one utterance and pushes speech-state events for its
// start and end. The returned channel closes when playback ends.
func (s *Server) startSpeech(text string, tts factories.TTSSettings) (<-chan struct{}, error) {
	done, err := s.dispatcher.Speak(s.baseCtx, core.UtteranceRequest{
		Text:    text,
		Backend: tts.Provider,
		Voice:   tts.VoiceParams(),
	})
	if err != nil {
		return nil, err
	}
	s.broadcastSpeechState(tts.Provider)
	go func(backend core.BackendID) {
		select {
		case <-done:
		case <-s.baseCtx.Done():
			return
		}
		s.broadcastSpeechState(backend)
	}(tts.Provider)
	return done, nil
}

// narrateAction speaks an action description so the pause before the world's
// reaction covers actual playback. Settings are read per turn; when speech or
// autoplay is off, or playback cannot start, it returns nil and the turn
// proceeds without a pause.
func (s *Server) narrateAction(_ context.Context, msg core.ChatMessage) <-chan struct{} {
	settings := s.settings.Get()
	if !settings.TTS.Enabled || !settings.TTS.Autoplay {
		return nil
	}
	done, err := s.startSpeech(msg.Content, settings.TTS)
	if err != nil {
		s.logger.Warn("action narration failed", "error", err)
		return nil
	}
	return done
}

// autoplay narrates a fresh reply when settings ask for it. Failures only log;
// the chat turn already succeeded.
func (s *Server) autoplay(text string) {
	settings := s.settings.Get()
	if !settings.TTS.Enabled || !settings.TTS.Autoplay {
		return
	}
	go func() {
		if err := s.speak(text, ""); err != nil {
			s.logger.Warn("autoplay failed", "error", err)
		}
	}()
}

func (s *Server) handleStopSpeech(w http.ResponseWriter, r *http.Request) {
	s.dispatcher.Stop()
	s.broadcastSpeechState(s.settings.Get().TTS.Provider)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePauseSpeech(w http.ResponseWriter, r *http.Request) {
	backend := s.settings.Get().TTS.Provider
	if err := s.dispatcher.Pause(backend); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.broadcastSpeechState(backend)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResumeSpeech(w http.ResponseWriter, r *http.Request) {
	backend := s.settings.Get().TTS.Provider
	if err := s.dispatcher.Resume(backend); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	s.broadcastSpeechState(backend)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSpeechStatus(w http.ResponseWriter, r *http.Request) {
	backend := core.BackendID(r.URL.Query().Get("backend"))
	if backend == "" {
		backend = s.settings.Get().TTS.Provider
	}
	state, err := s.dispatcher.Status(backend)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.SpeechStatePayload{Backend: backend, State: state})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	var req protocol.ClearCachePayload
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	removed := s.dispatcher.ClearCache(req.Backends...)
	writeJSON(w, http.StatusOK, map[string]interface{}{"removed": removed})
}

func (s *Server) broadcastSpeechState(backend core.BackendID) {
	state, err := s.dispatcher.Status(backend)
	if err != nil {
		return
	}
	s.hub.broadcast(protocol.MsgSpeechState, protocol.SpeechStatePayload{
		Backend: backend,
		State:   state,
	})
}

// --- catalog and settings endpoints ---

func (s *Server) handleCharacters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"heroes": factories.Heroes(),
		"demons": factories.Demons(),
	})
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	backend := core.BackendID(r.PathValue("backend"))
	voices := factories.VoicesForBackend(backend)
	if voices == nil {
		if backend != core.BackendLocal {
			writeError(w, http.StatusNotFound, fmt.Errorf("unknown backend %q", backend))
			return
		}
		// The local engine enumerates voices on the device; clients still
		// get a list, not null.
		voices = []factories.Voice{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"voices": voices})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Get())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var next factories.AppSettings
	if err := decodeBody(r, &next); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	applied, err := s.settings.Replace(next)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.hub.broadcast(protocol.MsgSettings, applied)
	writeJSON(w, http.StatusOK, applied)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"backends": s.dispatcher.Backends(),
	})
}

// --- websocket ---

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.hub.serve(w, r, s.handleCommand)
}

func (s *Server) handleCommand(c *wsClient, msgType protocol.MessageType, payload json.RawMessage) {
	switch msgType {
	case protocol.MsgSendMessage:
		p, err := protocol.UnmarshalPayload[protocol.SendMessagePayload](payload)
		if err != nil {
			s.hub.sendTo(c, protocol.MsgError, protocol.ErrorPayload{Command: msgType, Message: err.Error()})
			return
		}
		sess, ok := s.sessions.get(p.SessionID)
		if !ok {
			s.hub.sendTo(c, protocol.MsgError, protocol.ErrorPayload{Command: msgType, Message: "session not found"})
			return
		}
		// The narrative request takes seconds. Run it off the read loop so
		// the client can still stop speech meanwhile.
		go func() {
			appended, err := sess.orchestrator.SendMessage(s.baseCtx, p.Text, p.IsAction)
			if err != nil {
				s.hub.sendTo(c, protocol.MsgError, protocol.ErrorPayload{Command: msgType, Message: err.Error()})
				return
			}
			if len(appended) == 0 {
				return
			}
			s.hub.broadcast(protocol.MsgMessageAppended, protocol.MessageAppendedPayload{
				SessionID: sess.ID,
				Messages:  appended,
			})
			last := appended[len(appended)-1]
			if last.Role == core.MessageRoleAssistant {
				s.autoplay(last.Content)
			}
		}()
		s.hub.sendTo(c, protocol.MsgAck, protocol.AckPayload{AckedType: msgType, OK: true})

	case protocol.MsgResetSession:
		p, err := protocol.UnmarshalPayload[protocol.ResetSessionPayload](payload)
		if err != nil {
			s.hub.sendTo(c, protocol.MsgError, protocol.ErrorPayload{Command: msgType, Message: err.Error()})
			return
		}
		sess, ok := s.sessions.get(p.SessionID)
		if !ok {
			s.hub.sendTo(c, protocol.MsgError, protocol.ErrorPayload{Command: msgType, Message: "session not found"})
			return
		}
		s.resetSession(sess)
		s.hub.sendTo(c, protocol.MsgAck, protocol.AckPayload{AckedType: msgType, OK: true})

	case protocol.MsgSpeak:
		p, err := protocol.UnmarshalPayload[protocol.SpeakPayload](payload)
		if err != nil {
			s.hub.sendTo(c, protocol.MsgError, protocol.ErrorPayload{Command: msgType, Message: err.Error()})
			return
		}
		if err := s.speak(p.Text, p.Backend); err != nil {
			s.hub.sendTo(c, protocol.MsgError, protocol.ErrorPayload{Command: msgType, Message: err.Error()})
			return
		}
		s.hub.sendTo(c, protocol.MsgAck, protocol.AckPayload{AckedType: msgType, OK: true})

	case protocol.MsgStopSpeech, protocol.MsgPauseSpeech, protocol.MsgResumeSpeech:
		backend := s.settings.Get().TTS.Provider
		var err error
		switch msgType {
		case protocol.MsgStopSpeech:
			s.dispatcher.Stop()
		case protocol.MsgPauseSpeech:
			err = s.dispatcher.Pause(backend)
		case protocol.MsgResumeSpeech:
			err = s.dispatcher.Resume(backend)
		}
		if err != nil {
			s.hub.sendTo(c, protocol.MsgError, protocol.ErrorPayload{Command: msgType, Message: err.Error()})
			return
		}
		s.broadcastSpeechState(backend)
		s.hub.sendTo(c, protocol.MsgAck, protocol.AckPayload{AckedType: msgType, OK: true})

	case protocol.MsgUpdateSettings:
		next, err := protocol.UnmarshalPayload[factories.AppSettings](payload)
		if err != nil {
			s.hub.sendTo(c, protocol.MsgError, protocol.ErrorPayload{Command: msgType, Message: err.Error()})
			return
		}
		applied, err := s.settings.Replace(next)
		if err != nil {
			s.hub.sendTo(c, protocol.MsgError, protocol.ErrorPayload{Command: msgType, Message: err.Error()})
			return
		}
		s.hub.broadcast(protocol.MsgSettings, applied)
		s.hub.sendTo(c, protocol.MsgAck, protocol.AckPayload{AckedType: msgType, OK: true})

	case protocol.MsgClearCache:
		p, err := protocol.UnmarshalPayload[protocol.ClearCachePayload](payload)
		if err != nil {
			s.hub.sendTo(c, protocol.MsgError, protocol.ErrorPayload{Command: msgType, Message: err.Error()})
			return
		}
		s.dispatcher.ClearCache(p.Backends...)
		s.hub.sendTo(c, protocol.MsgAck, protocol.AckPayload{AckedType: msgType, OK: true})

	default:
		s.hub.sendTo(c, protocol.MsgError, protocol.ErrorPayload{
			Command: msgType,
			Message: "unknown command",
		})
	}
}

// --- helpers ---

func decodeBody(r *http.Request, v interface{}) error {
	data, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSONError(w, status, err.Error())
}

// statusFor maps stack errors onto HTTP status codes.
func statusFor(err error) int {
	var authErr *core.AuthError
	var rateErr *core.RateLimitError
	var upstreamErr *core.UpstreamError
	var netErr *core.NetworkError
	var synthErr *core.SynthesisError
	var playErr *core.PlaybackError
	var cfgErr *core.ConfigError
	switch {
	case errors.Is(err, story.ErrSessionBusy), errors.Is(err, story.ErrSessionReset):
		return http.StatusConflict
	case errors.As(err, &cfgErr):
		return http.StatusBadRequest
	case errors.As(err, &authErr):
		return http.StatusBadGateway
	case errors.As(err, &rateErr):
		return http.StatusTooManyRequests
	case errors.As(err, &upstreamErr), errors.As(err, &netErr), errors.As(err, &synthErr):
		return http.StatusBadGateway
	case errors.As(err, &playErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
