package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"loom/internal/boundary"
	"loom/internal/logging"
	"loom/internal/queue"
	"loom/internal/services"
	"loom/internal/substrate"
)

// EventTypeDumpCreated is emitted on the basket timeline for every captured dump.
const EventTypeDumpCreated = "dump.created"

// CaptureHandler ingests raw content into the substrate as immutable dumps.
// Capture never interprets: the dump body is stored verbatim and everything
// smarter waits for the governance stage.
type CaptureHandler struct {
	substrate *substrate.Store
	logger    *slog.Logger
}

// NewCaptureHandler builds the capture stage handler.
func NewCaptureHandler(store *substrate.Store, logger *slog.Logger) *CaptureHandler {
	return &CaptureHandler{
		substrate: store,
		logger:    logging.NewComponentLogger(logger, "capture"),
	}
}

func (h *CaptureHandler) WorkType() queue.WorkType {
	return queue.WorkCapture
}

func (h *CaptureHandler) HealthCheck(ctx context.Context) Health {
	if h.substrate == nil {
		return Health{Detail: "substrate store not configured"}
	}
	return Health{Ready: true}
}

// Process stores the entry's content payload as a dump and emits a timeline
// event. A payload with no content is a permanent validation failure.
func (h *CaptureHandler) Process(ctx context.Context, entry *queue.Entry) (Result, error) {
	payload, err := entry.Payload()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "capture", "decode_payload", "", err)
	}
	if err := boundary.ValidateOperation(queue.WorkCapture, "create_dump", payload); err != nil {
		return nil, services.Wrap(services.ErrValidation, "capture", "boundary_check", "", err)
	}

	content, _ := payload["content"].(string)
	if strings.TrimSpace(content) == "" {
		return nil, services.Wrap(services.ErrValidation, "capture", "create_dump", "payload has no content", nil)
	}
	sourceRef, _ := payload["source_ref"].(string)

	dump, err := h.substrate.CreateDump(ctx, entry.BasketID, content, sourceRef)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "capture", "create_dump", "", err)
	}

	if err := h.substrate.AppendEvent(ctx, entry.BasketID, EventTypeDumpCreated, map[string]any{
		"dump_id": dump.ID,
		"bytes":   len(content),
	}); err != nil {
		h.logger.Warn("dump timeline event failed",
			logging.String(logging.FieldBasketID, entry.BasketID),
			logging.Error(err))
	}

	h.logger.Info("dump captured",
		logging.String(logging.FieldBasketID, entry.BasketID),
		logging.String("dump_id", dump.ID),
		logging.Int("bytes", len(content)))

	return Result{
		"dumps_created": 1,
		"dump_id":       dump.ID,
	}, nil
}

// NewCaptureEntry builds the queue payload for a capture request.
func NewCaptureEntry(basketID, workspaceID, content, sourceRef string) (*queue.Entry, error) {
	entry := &queue.Entry{
		WorkType:    queue.WorkCapture,
		BasketID:    basketID,
		WorkspaceID: workspaceID,
	}
	payload := map[string]any{"content": content}
	if sourceRef != "" {
		payload["source_ref"] = sourceRef
	}
	if err := entry.SetPayload(payload); err != nil {
		return nil, fmt.Errorf("capture entry payload: %w", err)
	}
	return entry, nil
}
