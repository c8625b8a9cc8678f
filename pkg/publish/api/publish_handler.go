package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/summary-publish/pkg/publish"
	"github.com/tendant/summary-publish/pkg/publish/metrics"
)

// APIKeyHeader carries the caller's shared secret
const APIKeyHeader = "X-API-Key"

const unknownRecordID = "unknown"

// Pipeline publishes a validated request. *publish.Publisher implements it.
type Pipeline interface {
	Publish(ctx context.Context, req *publish.PublishRequest) (*publish.Result, error)
}

// PublishResponse is the body of a 200 response
type PublishResponse struct {
	Success    bool   `json:"success"`
	Skipped    bool   `json:"skipped,omitempty"`
	Message    string `json:"message,omitempty"`
	RecordID   string `json:"recordId"`
	QueryParam string `json:"queryParam"`
	CDNURL     string `json:"cdnUrl"`
	Size       int64  `json:"size,omitempty"`
	Duration   string `json:"duration"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Success  bool   `json:"success"`
	Error    string `json:"error"`
	RecordID string `json:"recordId,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// HandlerOptions configures a PublishHandler
type HandlerOptions struct {
	// APIKey is the shared secret callers send in X-API-Key. An empty key
	// rejects every request.
	APIKey       string
	MaxBodyBytes int64
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

// PublishHandler is the single publish endpoint
type PublishHandler struct {
	pipeline     Pipeline
	notifier     publish.Notifier
	apiKey       string
	maxBodyBytes int64
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// NewPublishHandler creates a new publish handler
func NewPublishHandler(pipeline Pipeline, notifier publish.Notifier, opts HandlerOptions) *PublishHandler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = publish.NewNoopNotifier(logger)
	}
	return &PublishHandler{
		pipeline:     pipeline,
		notifier:     notifier,
		apiKey:       opts.APIKey,
		maxBodyBytes: opts.MaxBodyBytes,
		metrics:      opts.Metrics,
		logger:       logger.With("component", "publish-handler"),
	}
}

// Routes returns the router for the endpoint, CORS and preflight included.
// Mount it at the public publish path.
func (h *PublishHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(CORSMiddleware(
		[]string{http.MethodPost, http.MethodOptions},
		[]string{"Content-Type", APIKeyHeader},
	))
	r.Use(RequestSizeLimitMiddleware(h.maxBodyBytes))

	r.Handle("/", h)

	return r
}

// ServeHTTP authenticates, decodes and publishes one record
func (h *PublishHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	logger := h.logger
	if id := RequestIDFromContext(ctx); id != "" {
		logger = logger.With("request_id", id)
	}

	if r.Method != http.MethodPost {
		h.metrics.ObservePublish(metrics.OutcomeMethodNotAllowed, time.Since(start))
		h.writeError(w, r, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed. Use POST."})
		return
	}

	providedKey := r.Header.Get(APIKeyHeader)
	if !h.authorized(providedKey) {
		present := "missing"
		if providedKey != "" {
			present = "present"
		}
		logger.WarnContext(ctx, "Authentication failed", "provided_key", present)
		h.metrics.ObservePublish(metrics.OutcomeUnauthorized, time.Since(start))
		h.writeError(w, r, http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized. Invalid or missing API key."})
		return
	}

	var req publish.PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "Invalid request body", "error", err)
		h.metrics.ObservePublish(metrics.OutcomeBadRequest, time.Since(start))
		h.writeError(w, r, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON body: " + err.Error()})
		return
	}

	recordID := req.RecordID
	if recordID == "" {
		recordID = unknownRecordID
	}
	logger = logger.With("record_id", recordID)
	logger.InfoContext(ctx, "Processing publish request", "content_type", req.ContentType)

	result, err := h.publish(ctx, &req)
	if errors.Is(err, publish.ErrValidation) {
		logger.WarnContext(ctx, "Validation failed", "error", err)
		h.metrics.ObservePublish(metrics.OutcomeBadRequest, time.Since(start))
		h.writeError(w, r, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		elapsed := time.Since(start)
		duration := formatDuration(elapsed)
		logger.ErrorContext(ctx, "Publish failed", "error", err, "duration", duration)

		// The alert must go out even if the caller has disconnected.
		h.metrics.IncNotifications()
		h.notifier.Notify(context.WithoutCancel(ctx), err.Error(), map[string]string{
			"recordId": recordID,
			"duration": duration,
		})

		h.metrics.ObservePublish(metrics.OutcomeError, elapsed)
		h.writeError(w, r, http.StatusInternalServerError, ErrorResponse{
			Error:    err.Error(),
			RecordID: recordID,
			Duration: duration,
		})
		return
	}

	elapsed := time.Since(start)
	resp := PublishResponse{
		Success:    true,
		RecordID:   result.RecordID,
		QueryParam: "r=" + result.RecordID,
		CDNURL:     result.CDNURL,
		Duration:   formatDuration(elapsed),
	}
	if result.Skipped {
		resp.Skipped = true
		resp.Message = "Content already exists"
		h.metrics.ObservePublish(metrics.OutcomeSkipped, elapsed)
	} else {
		resp.Size = result.Size
		h.metrics.AddBytesWritten(result.Size)
		h.metrics.ObservePublish(metrics.OutcomeWritten, elapsed)
		logger.InfoContext(ctx, "Publish complete", "duration", resp.Duration, "size", result.Size)
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

// publish runs the pipeline, converting a panic into an ordinary error so it
// takes the same failure path.
func (h *PublishHandler) publish(ctx context.Context, req *publish.PublishRequest) (result *publish.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return h.pipeline.Publish(ctx, req)
}

func (h *PublishHandler) authorized(provided string) bool {
	if h.apiKey == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(h.apiKey)) == 1
}

func (h *PublishHandler) writeError(w http.ResponseWriter, r *http.Request, status int, resp ErrorResponse) {
	resp.Success = false
	render.Status(r, status)
	render.JSON(w, r, resp)
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}
