package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/ragline/ragline/internal/pipeline"
)

// chatHandler serves the question-answering endpoints.
type chatHandler struct {
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

// chatRequest is the POST /api/v1/chat body. An omitted thread_id starts a
// new conversation under a server-generated id.
type chatRequest struct {
	Question string `json:"question"`
	ThreadID string `json:"thread_id,omitempty"`
}

// chatResponse is the successful turn shape, shared by chat and ask.
type chatResponse struct {
	Answer             string `json:"answer"`
	Question           string `json:"question"`
	StandaloneQuestion string `json:"standalone_question,omitempty"`
	ThreadID           string `json:"thread_id"`
	ContextCount       int    `json:"context_count"`
	HistoryLen         int    `json:"history_len"`
}

func turnResponse(turn *pipeline.Turn) chatResponse {
	resp := chatResponse{
		Answer:       turn.Answer,
		Question:     turn.Question,
		ThreadID:     turn.ThreadID,
		ContextCount: len(turn.Context),
		HistoryLen:   turn.HistoryLen,
	}
	if turn.StandaloneQuestion != turn.Question {
		resp.StandaloneQuestion = turn.StandaloneQuestion
	}
	return resp
}

// send handles POST /api/v1/chat.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON", h.logger)
		return
	}

	h.answer(r.Context(), w, req.ThreadID, req.Question)
}

// ask handles GET /api/v1/ask?question=...&thread_id=....
func (h *chatHandler) ask(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.answer(r.Context(), w, q.Get("thread_id"), q.Get("question"))
}

func (h *chatHandler) answer(ctx context.Context, w http.ResponseWriter, threadID, question string) {
	if threadID == "" {
		threadID = uuid.New().String()
	}

	turn, err := h.pipeline.Ask(ctx, threadID, question)
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, err.Error(), h.logger)
		return
	}

	writeJSON(w, http.StatusOK, turnResponse(turn))
}

// chatbot handles /api/v1/chatbot with either method, for frontends that
// cannot choose: POST reads the chat JSON body, GET reads query parameters.
func (h *chatHandler) chatbot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.send(w, r)
	case http.MethodGet:
		h.ask(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET or POST", h.logger)
	}
}

// batchRequest is the POST /api/v1/chat/batch body.
type batchRequest struct {
	Items []chatRequest `json:"items"`
}

// batchItemResult reports one item's outcome; status is "ok" or "error".
type batchItemResult struct {
	Status string        `json:"status"`
	Result *chatResponse `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
	Code   string        `json:"code,omitempty"`
}

// sendBatch handles POST /api/v1/chat/batch. Oversized batches are rejected
// wholesale; an individual item failure is reported in place.
func (h *chatHandler) sendBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body is not valid JSON", h.logger)
		return
	}

	items := make([]pipeline.BatchItem, len(req.Items))
	for i, item := range req.Items {
		threadID := item.ThreadID
		if threadID == "" {
			threadID = uuid.New().String()
		}
		items[i] = pipeline.BatchItem{ThreadID: threadID, Question: item.Question}
	}

	results, err := h.pipeline.AskBatch(r.Context(), items)
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, err.Error(), h.logger)
		return
	}

	out := make([]batchItemResult, len(results))
	for i, res := range results {
		if res.Err != nil {
			_, code := classify(res.Err)
			out[i] = batchItemResult{Status: "error", Error: res.Err.Error(), Code: code}
			continue
		}
		resp := turnResponse(res.Turn)
		out[i] = batchItemResult{Status: "ok", Result: &resp}
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

// classify maps pipeline errors onto HTTP status and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, pipeline.ErrValidation):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, pipeline.ErrRetrieval):
		return http.StatusBadGateway, "retrieval_failed"
	case errors.Is(err, pipeline.ErrSynthesis):
		return http.StatusBadGateway, "synthesis_failed"
	case errors.Is(err, pipeline.ErrState):
		return http.StatusInternalServerError, "state_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
