package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/singleflight"

	"github.com/mpuig/rentagpt/internal/models"
	"github.com/mpuig/rentagpt/internal/types"
	"github.com/mpuig/rentagpt/pkg/config"
	"github.com/mpuig/rentagpt/pkg/llm"
	"github.com/mpuig/rentagpt/pkg/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server holds the process-wide pieces shared by every connection: the
// configuration and the lazily opened, read-only vector index.
type Server struct {
	config  *config.Config
	variant llm.PromptVariant

	group     singleflight.Group
	mu        sync.RWMutex
	retriever *store.Retriever
}

// New validates the startup precondition: without a built index there
// is nothing to serve, and the fix is to run the ingest command.
func New(cfg *config.Config) (*Server, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %v", errs[0])
	}

	variant, err := llm.ParsePromptVariant(cfg.Chat.PromptTemplate)
	if err != nil {
		return nil, err
	}

	if !store.IndexExists(cfg.CollectionDir()) {
		return nil, fmt.Errorf(
			"index for collection %q not found in %s: run the ingest command first",
			cfg.Store.Collection, cfg.CollectionDir())
	}

	return &Server{
		config:  cfg,
		variant: variant,
	}, nil
}

// Handler returns the HTTP surface: the chat websocket plus the thin
// page/static/health endpoints around it.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if dir := s.config.API.StaticDir; dir != "" {
		mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(dir))))
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
		})
	}

	return mux
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	retriever, err := s.retrieverHandle(r.Context())
	if err != nil {
		log.Printf("index unavailable: %v", err)
		conn.WriteJSON(models.ChatFrame{
			Sender:  models.SenderBot,
			Message: userErrorMessage,
			Type:    models.FrameError,
		})
		return
	}

	session := NewSession(conn, s.config.Chat.TopK, func(apiKey string) (Backend, error) {
		return s.newBackend(apiKey, retriever)
	})
	session.Run(r.Context())
}

// retrieverHandle opens the shared index once. Concurrent first
// connections wait on a single load instead of racing it.
func (s *Server) retrieverHandle(ctx context.Context) (*store.Retriever, error) {
	s.mu.RLock()
	retriever := s.retriever
	s.mu.RUnlock()
	if retriever != nil {
		return retriever, nil
	}

	v, err, _ := s.group.Do("index", func() (interface{}, error) {
		st, err := s.openStore(ctx)
		if err != nil {
			return nil, err
		}

		retriever := store.NewRetriever(st, s.config.Chat.FetchK, float32(s.config.Chat.Lambda))
		s.mu.Lock()
		s.retriever = retriever
		s.mu.Unlock()
		return retriever, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*store.Retriever), nil
}

func (s *Server) openStore(ctx context.Context) (types.VectorStore, error) {
	switch s.config.Store.Backend {
	case "pgvector":
		return store.NewPgStore(ctx, store.PgConfig{
			ConnString: s.config.Store.URL,
			TableName:  s.config.Store.TableName,
			VectorDim:  s.config.Store.VectorDim,
		})
	default:
		return store.OpenFileStore(store.FileConfig{
			Dir:       s.config.CollectionDir(),
			VectorDim: s.config.Store.VectorDim,
		})
	}
}

// newBackend wires the client-supplied credential to the OpenAI
// pipeline, sharing the process-wide retriever.
func (s *Server) newBackend(apiKey string, retriever *store.Retriever) (Backend, error) {
	embedder, err := llm.NewEmbedder(llm.EmbedderConfig{
		APIKey: apiKey,
		Model:  s.config.OpenAI.EmbeddingModel,
	})
	if err != nil {
		return nil, err
	}

	filter, err := llm.NewFilter(llm.FilterConfig{
		APIKey:      apiKey,
		Model:       s.config.OpenAI.Model,
		MaxTokens:   s.config.OpenAI.MaxTokens,
		Temperature: s.config.OpenAI.Temperature,
	})
	if err != nil {
		return nil, err
	}

	streamer, err := llm.NewStreamer(llm.StreamerConfig{
		APIKey:      apiKey,
		Model:       s.config.OpenAI.Model,
		MaxTokens:   s.config.OpenAI.MaxTokens,
		Temperature: s.config.OpenAI.Temperature,
		Variant:     s.variant,
	})
	if err != nil {
		return nil, err
	}

	return &pipelineBackend{
		embedder:  embedder,
		retriever: retriever,
		filter:    filter,
		streamer:  streamer,
	}, nil
}

type pipelineBackend struct {
	embedder  *llm.Embedder
	retriever *store.Retriever
	filter    *llm.Filter
	streamer  *llm.Streamer
}

func (b *pipelineBackend) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return b.embedder.EmbedQuery(ctx, text)
}

func (b *pipelineBackend) Retrieve(ctx context.Context, vector []float32, k int) ([]models.SearchResult, error) {
	return b.retriever.Search(ctx, vector, k)
}

func (b *pipelineBackend) FilterRelevant(ctx context.Context, question string, candidates []models.SearchResult) ([]llm.Verdict, error) {
	return b.filter.Relevant(ctx, question, candidates)
}

func (b *pipelineBackend) StreamAnswer(ctx context.Context, question string, docs []models.SearchResult, onToken func(token string) error) (string, error) {
	return b.streamer.Stream(ctx, question, docs, onToken)
}

// ListenAndServe runs the HTTP server on the configured address.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.config.API.Host, s.config.API.Port)
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	log.Printf("serving collection %q on %s", s.config.Store.Collection, addr)
	return http.ListenAndServe(addr, s.Handler())
}
