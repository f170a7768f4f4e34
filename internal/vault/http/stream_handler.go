package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	"github.com/allisson/credvault/internal/vault/http/dto"
	vaultUseCase "github.com/allisson/credvault/internal/vault/usecase"
)

// StreamHandler pushes periodic credential status summaries over
// Server-Sent Events.
//
// Each connection gets its own ticker, stopped when the client disconnects
// or the server shuts down. The pushed summaries are scoped exactly like the
// list endpoint, so a streaming client never learns about records outside
// its visibility.
type StreamHandler struct {
	credentialUseCase vaultUseCase.CredentialUseCase
	pushInterval      time.Duration
	logger            *slog.Logger
}

// NewStreamHandler creates a new streaming handler pushing summaries every
// pushInterval.
func NewStreamHandler(
	credentialUseCase vaultUseCase.CredentialUseCase,
	pushInterval time.Duration,
	logger *slog.Logger,
) *StreamHandler {
	if pushInterval <= 0 {
		pushInterval = 5 * time.Second
	}
	return &StreamHandler{
		credentialUseCase: credentialUseCase,
		pushInterval:      pushInterval,
		logger:            logger,
	}
}

// StatusStreamHandler streams credential status summaries as SSE events.
//
// GET /v1/credentials/stream
//
// Token transport: streaming clients (EventSource) cannot set headers, so
// the authentication middleware also accepts the access_token query
// parameter on this route.
func (h *StreamHandler) StatusStreamHandler(c *gin.Context) {
	principal, ok := principalFrom(c, h.logger)
	if !ok {
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		h.logger.Error("streaming unsupported by response writer")
		return
	}

	// First event goes out immediately so the client does not stare at an
	// empty stream for a full interval.
	if err := h.push(c, principal, flusher); err != nil {
		return
	}

	ticker := time.NewTicker(h.pushInterval)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.push(c, principal, flusher); err != nil {
				return
			}
		}
	}
}

func (h *StreamHandler) push(c *gin.Context, principal *authDomain.Principal, flusher http.Flusher) error {
	summary, err := h.credentialUseCase.StatusSummary(c.Request.Context(), principal)
	if err != nil {
		h.logger.Error("failed to build status summary for stream", slog.Any("error", err))
		return err
	}

	payload, err := json.Marshal(dto.ToStatusSummaryResponse(summary, time.Now().UTC()))
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(c.Writer, "event: status\ndata: %s\n\n", payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
