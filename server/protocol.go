package server

import (
	"context"
	"encoding/json"
	"log"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/mpuig/rentagpt/internal/models"
	"github.com/mpuig/rentagpt/pkg/llm"
)

// userErrorMessage is the only failure text a client ever sees.
// Internal detail stays in the server log.
const userErrorMessage = "Sorry, something went wrong. Try again."

// inboundMessage is one client question. The OpenAI credential rides
// along with every message; the server holds no keys of its own.
type inboundMessage struct {
	Query  string `json:"query"`
	APIKey string `json:"apiKey"`
}

// Backend is the per-connection query pipeline behind the protocol:
// embed the question, retrieve candidates, filter them, stream the
// answer. Sessions own their backend; the vector index behind
// Retrieve is the only shared piece and is read-only.
type Backend interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Retrieve(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error)
	FilterRelevant(ctx context.Context, question string, candidates []models.SearchResult) ([]llm.Verdict, error)
	StreamAnswer(ctx context.Context, question string, docs []models.SearchResult, onToken func(token string) error) (string, error)
}

// turnStatus is the explicit per-turn outcome the session loop
// consumes. Only a disconnect exits the loop; recoverable failures
// leave the connection open for the next question.
type turnStatus int

const (
	turnDone turnStatus = iota
	turnRecoverable
	turnDisconnected
)

type exchange struct {
	Question string
	Answer   string
}

// Session serves one websocket connection. It is single-threaded: the
// steps of a turn run strictly in sequence and the next question is
// not read until the current turn finished.
type Session struct {
	conn       *websocket.Conn
	newBackend func(apiKey string) (Backend, error)
	topK       int
	backend    Backend
	backendKey string
	history    []exchange
}

func NewSession(conn *websocket.Conn, topK int, newBackend func(apiKey string) (Backend, error)) *Session {
	if topK <= 0 {
		topK = 4
	}
	return &Session{
		conn:       conn,
		newBackend: newBackend,
		topK:       topK,
	}
}

// Run reads questions until the peer disconnects. Each question is a
// turn; a failed turn emits one error frame and the loop continues.
func (s *Session) Run(ctx context.Context) {
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("malformed message: %v", err)
			continue
		}

		if s.serveTurn(ctx, msg) == turnDisconnected {
			return
		}
	}
}

// serveTurn walks one question through the frame sequence:
// stream("you"), start, info with the surviving sources, one stream
// frame per answer token, end. Frame write failures mean the peer is
// gone; everything else degrades to a single error frame.
func (s *Session) serveTurn(parent context.Context, msg inboundMessage) turnStatus {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	if err := s.send(models.ChatFrame{Sender: models.SenderYou, Message: msg.Query, Type: models.FrameStream}); err != nil {
		return turnDisconnected
	}
	if err := s.send(models.ChatFrame{Sender: models.SenderBot, Type: models.FrameStart}); err != nil {
		return turnDisconnected
	}

	backend, err := s.backendFor(msg.APIKey)
	if err != nil {
		return s.recoverable(err)
	}

	vector, err := backend.EmbedQuery(ctx, msg.Query)
	if err != nil {
		return s.recoverable(err)
	}

	candidates, err := backend.Retrieve(ctx, vector, s.topK)
	if err != nil {
		return s.recoverable(err)
	}

	verdicts, err := backend.FilterRelevant(ctx, msg.Query, candidates)
	if err != nil {
		return s.recoverable(err)
	}

	// Sources go out before any answer text so the client can render
	// citation targets ahead of the stream.
	sources := models.SourceList{Sources: make([]models.SourceRef, 0, len(verdicts))}
	for _, verdict := range verdicts {
		sources.Sources = append(sources.Sources, models.SourceRef{
			Text: strconv.Itoa(verdict.ID),
			URL:  verdict.Source,
		})
	}
	payload, err := json.Marshal(sources)
	if err != nil {
		return s.recoverable(err)
	}
	if err := s.send(models.ChatFrame{Sender: models.SenderBot, Message: string(payload), Type: models.FrameInfo}); err != nil {
		return turnDisconnected
	}

	filtered := llm.SelectBySources(candidates, verdicts)

	disconnected := false
	answer, err := backend.StreamAnswer(ctx, msg.Query, filtered, func(token string) error {
		if err := s.send(models.ChatFrame{Sender: models.SenderBot, Message: token, Type: models.FrameStream}); err != nil {
			disconnected = true
			cancel() // abort the in-flight model call
			return err
		}
		return nil
	})
	if disconnected {
		return turnDisconnected
	}
	if err != nil {
		return s.recoverable(err)
	}

	if err := s.send(models.ChatFrame{Sender: models.SenderBot, Type: models.FrameEnd}); err != nil {
		return turnDisconnected
	}

	// Bookkeeping only. History is never fed back into prompts and
	// dies with the connection.
	s.history = append(s.history, exchange{Question: msg.Query, Answer: answer})
	return turnDone
}

func (s *Session) backendFor(apiKey string) (Backend, error) {
	if s.backend != nil && s.backendKey == apiKey {
		return s.backend, nil
	}

	backend, err := s.newBackend(apiKey)
	if err != nil {
		return nil, err
	}
	s.backend = backend
	s.backendKey = apiKey
	return backend, nil
}

func (s *Session) recoverable(err error) turnStatus {
	log.Printf("turn failed: %v", err)
	if err := s.send(models.ChatFrame{Sender: models.SenderBot, Message: userErrorMessage, Type: models.FrameError}); err != nil {
		return turnDisconnected
	}
	return turnRecoverable
}

func (s *Session) send(frame models.ChatFrame) error {
	return s.conn.WriteJSON(frame)
}
