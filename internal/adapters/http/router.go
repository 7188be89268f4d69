package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/askerfotball/club-assistant/internal/core/domain"
	"github.com/askerfotball/club-assistant/internal/core/ports"
	"github.com/askerfotball/club-assistant/internal/observability/metrics"
)

const serviceName = "club-assistant-api"

// Router exposes the question-answering service: answers, reindex
// requests and index introspection.
type Router struct {
	answerer ports.QuestionAnswerer
	queue    ports.MessageQueue
	registry ports.BuildRegistry
	store    ports.IndexStore
	metrics  *metrics.APIMetrics
	limiter  *rateLimiter
	log      *slog.Logger
}

func NewRouter(
	answerer ports.QuestionAnswerer,
	queue ports.MessageQueue,
	registry ports.BuildRegistry,
	store ports.IndexStore,
	apiMetrics *metrics.APIMetrics,
	requestsPerSecond float64,
	log *slog.Logger,
) *Router {
	return &Router{
		answerer: answerer,
		queue:    queue,
		registry: registry,
		store:    store,
		metrics:  apiMetrics,
		limiter:  newRateLimiter(requestsPerSecond),
		log:      log,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.Handle("/metrics", rt.metrics.Handler())
	mux.HandleFunc("/v1/answer", rt.answer)
	mux.HandleFunc("/v1/reindex", rt.reindex)
	mux.HandleFunc("/v1/index", rt.indexInfo)

	handler := rt.metrics.Middleware(serviceName, mux)
	handler = rt.limiter.middleware(handler)
	handler = accessLogMiddleware(rt.log, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type answerRequest struct {
	Question string `json:"question"`
	K        int    `json:"k"`
	History  []struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	} `json:"history"`
}

type sourceResponse struct {
	ID      string  `json:"id"`
	Source  string  `json:"source"`
	Title   string  `json:"title"`
	DocType string  `json:"doc_type"`
	Score   float64 `json:"score"`
	Page    *int    `json:"page,omitempty"`
}

type answerResponse struct {
	Answer  string           `json:"answer"`
	Sources []sourceResponse `json:"sources"`
}

func (rt *Router) answer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("question is required"))
		return
	}

	history := make([]domain.Turn, 0, len(req.History))
	for _, turn := range req.History {
		history = append(history, domain.Turn{Question: turn.Question, Answer: turn.Answer})
	}

	start := time.Now()
	answer, err := rt.answerer.Answer(r.Context(), req.Question, req.K, history)
	if err != nil {
		rt.log.Error("answer failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
		writeJSON(w, statusForError(err), errorBody(messageForError(err)))
		return
	}

	outcome := "answered"
	if answer.Text == domain.DontKnowAnswer {
		outcome = "dont_know"
	}
	rt.metrics.RecordAnswer(serviceName, outcome, len(answer.Sources), time.Since(start))

	response := answerResponse{Answer: answer.Text, Sources: make([]sourceResponse, 0, len(answer.Sources))}
	for _, hit := range answer.Sources {
		response.Sources = append(response.Sources, sourceResponse{
			ID:      hit.ID,
			Source:  hit.Source,
			Title:   hit.Title,
			DocType: string(hit.DocType),
			Score:   hit.Score,
			Page:    hit.Page,
		})
	}
	writeJSON(w, http.StatusOK, response)
}

func (rt *Router) reindex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	buildID := uuid.NewString()
	if err := rt.queue.PublishReindexRequested(r.Context(), buildID); err != nil {
		rt.log.Error("reindex request failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err,
		)
		writeJSON(w, statusForError(err), errorBody(messageForError(err)))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"build_id": buildID})
}

type indexInfoResponse struct {
	Manifest *domain.IndexManifest `json:"manifest"`
	Build    *domain.IndexBuild    `json:"build,omitempty"`
}

func (rt *Router) indexInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	manifest, err := rt.store.Manifest(r.Context())
	if err != nil {
		writeJSON(w, statusForError(err), errorBody(messageForError(err)))
		return
	}

	response := indexInfoResponse{Manifest: manifest}
	if rt.registry != nil {
		if build, err := rt.registry.LatestBuild(r.Context()); err == nil {
			response.Build = build
		}
	}
	writeJSON(w, http.StatusOK, response)
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
