package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"factzap-service/internal/app"
	"factzap-service/internal/domain"
	"factzap-service/internal/trivia"
	"github.com/gorilla/websocket"
)

// questionSeconds mirrors the session engine countdown.
const questionSeconds = 10

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Index  int    `json:"index"`
	Option string `json:"option"`
}

type questionEvent struct {
	Index      int      `json:"index"`
	Total      int      `json:"total"`
	Text       string   `json:"question"`
	Options    []string `json:"options"`
	Type       string   `json:"type"`
	Difficulty string   `json:"difficulty"`
	Category   string   `json:"category"`
	TimeLimit  int      `json:"timeLimit"`
}

type answerResultEvent struct {
	Index         int    `json:"index"`
	Correct       bool   `json:"correct"`
	TimedOut      bool   `json:"timedOut"`
	Awarded       int    `json:"awarded"`
	CorrectAnswer string `json:"correctAnswer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// playState tracks the countdown for the question currently on screen.
type playState struct {
	mu        sync.Mutex
	timer     *time.Timer
	startedAt time.Time
	index     int
}

func (p *playState) arm(index int, fire func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.index = index
	p.startedAt = time.Now()
	p.timer = time.AfterFunc(questionSeconds*time.Second, fire)
}

func (p *playState) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// remaining returns whole seconds left on the countdown, clamped to [0,10].
func (p *playState) remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	elapsed := int(time.Since(p.startedAt).Seconds())
	left := questionSeconds - elapsed
	if left < 0 {
		left = 0
	}
	if left > questionSeconds {
		left = questionSeconds
	}
	return left
}

// ServeWS upgrades the connection and drives one quiz run over it. The
// client opens /ws?userId=&name= with either daily=1 or custom quiz
// parameters (amount, category, difficulty, type).
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	name := r.URL.Query().Get("name")
	if userID == "" || name == "" {
		http.Error(w, "missing userId or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	if _, err := h.service.Register(ctx, userID, name); err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	session, err := h.startSession(ctx, userID, r)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: clientMessage(err)}})
		return
	}
	defer h.service.Abandon(userID)

	send := make(chan outboundMessage[any], 16)
	done := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-send:
				if err := conn.WriteJSON(msg); err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
			case <-done:
				// Flush whatever is still buffered so the final summary
				// reaches the client before the connection closes.
				for {
					select {
					case msg := <-send:
						if err := conn.WriteJSON(msg); err != nil {
							return
						}
					default:
						return
					}
				}
			}
		}
	}()

	// emit never blocks past connection teardown; late timer goroutines
	// drop their messages instead of panicking on a closed channel.
	emit := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-done:
		}
	}

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	state := &playState{}

	var pushQuestion func()
	pushQuestion = func() {
		question, index, total := session.Current()
		emit(outboundMessage[any]{Type: "question", Payload: questionEvent{
			Index:      index,
			Total:      total,
			Text:       question.Text,
			Options:    trivia.ShuffleOptions(question, rnd),
			Type:       question.Type,
			Difficulty: question.Difficulty,
			Category:   question.Category,
			TimeLimit:  questionSeconds,
		}})
		state.arm(index, func() {
			h.onTimeout(ctx, userID, session, state, index, emit, pushQuestion)
		})
	}

	pushQuestion()

readLoop:
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
				continue
			}
			if finished := h.onAnswer(ctx, userID, state, payload.Index, payload.Option, emit, pushQuestion); finished {
				break readLoop
			}
		default:
			emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	state.stop()
	close(done)
	<-writerDone
}

func (h *WSHandler) startSession(ctx context.Context, userID string, r *http.Request) (*app.Session, error) {
	query := r.URL.Query()
	if query.Get("daily") == "1" {
		return h.service.StartDaily(ctx, userID)
	}

	params := domain.QuizParams{
		Difficulty: query.Get("difficulty"),
		Type:       query.Get("type"),
	}
	params.Amount, _ = strconv.Atoi(query.Get("amount"))
	params.Category, _ = strconv.Atoi(query.Get("category"))
	return h.service.StartQuiz(ctx, userID, params)
}

// onAnswer handles one submission: records the answer against the question
// index the client saw, then either pushes the next question or the final
// summary. Returns true once the session is finished. A submission that lost
// the race against its own countdown is dropped without touching the timer,
// which by then belongs to the next question.
func (h *WSHandler) onAnswer(ctx context.Context, userID string, state *playState, index int, option string, emit func(outboundMessage[any]), pushQuestion func()) bool {
	remaining := state.remaining()

	outcome, err := h.service.Answer(ctx, userID, index, option, remaining)
	if err != nil {
		emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: clientMessage(err)}})
		return false
	}
	if !outcome.Recorded {
		return false
	}
	state.stop()

	emit(outboundMessage[any]{Type: "answerResult", Payload: answerResultEvent{
		Index:         index,
		Correct:       outcome.Correct,
		Awarded:       outcome.Awarded,
		CorrectAnswer: outcome.CorrectAnswer,
	}})
	return h.advance(ctx, userID, emit, pushQuestion)
}

// onTimeout fires when the countdown expires. The index guard keeps a late
// timer from expiring a question the user already moved past.
func (h *WSHandler) onTimeout(ctx context.Context, userID string, session *app.Session, state *playState, index int, emit func(outboundMessage[any]), pushQuestion func()) {
	if session.Terminal() {
		return
	}
	question, current, _ := session.Current()
	if current != index || session.Answered() {
		return
	}

	h.service.Timeout(userID)
	emit(outboundMessage[any]{Type: "answerResult", Payload: answerResultEvent{
		Index:         index,
		TimedOut:      true,
		CorrectAnswer: question.CorrectAnswer,
	}})

	// After a timeout the next question (or the summary) goes out directly;
	// there is nothing for the client to acknowledge.
	h.advance(ctx, userID, emit, pushQuestion)
}

// advance moves the session forward; a terminal session produces the
// finished summary plus one achievement event per fresh unlock.
func (h *WSHandler) advance(ctx context.Context, userID string, emit func(outboundMessage[any]), pushQuestion func()) bool {
	summary, err := h.service.Advance(ctx, userID)
	if err != nil {
		emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: clientMessage(err)}})
		return false
	}
	if summary == nil {
		pushQuestion()
		return false
	}

	for _, unlocked := range summary.Unlocked {
		emit(outboundMessage[any]{Type: "achievement", Payload: unlocked})
	}
	emit(outboundMessage[any]{Type: "finished", Payload: summary})
	return true
}

// clientMessage maps domain errors to user-facing text; remote failures
// stay generic so internals never leak to the client.
func clientMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyAttempted):
		return "You already attempted today's daily question."
	case errors.Is(err, domain.ErrNoQuestions):
		return "Sorry, we don't have questions available for this topic."
	case errors.Is(err, domain.ErrSessionActive):
		return "A quiz is already in progress."
	case errors.Is(err, domain.ErrRemoteUnavailable):
		return "Failed, please try again."
	default:
		return err.Error()
	}
}
