package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"loom/internal/boundary"
	"loom/internal/logging"
	"loom/internal/queue"
	"loom/internal/services"
	"loom/internal/substrate"
)

// EventTypeReflection is emitted on the basket timeline for each computed reflection.
const EventTypeReflection = "reflection.computed"

// ReflectionHandler closes the pipeline: it reads the basket's substrate,
// summarizes what accumulated, and records the summary as a timeline event.
// Reflection mutates nothing.
type ReflectionHandler struct {
	substrate *substrate.Store
	logger    *slog.Logger
}

// NewReflectionHandler builds the reflection stage handler.
func NewReflectionHandler(store *substrate.Store, logger *slog.Logger) *ReflectionHandler {
	return &ReflectionHandler{
		substrate: store,
		logger:    logging.NewComponentLogger(logger, "reflection"),
	}
}

func (h *ReflectionHandler) WorkType() queue.WorkType {
	return queue.WorkReflection
}

func (h *ReflectionHandler) HealthCheck(ctx context.Context) Health {
	if h.substrate == nil {
		return Health{Detail: "substrate store not configured"}
	}
	return Health{Ready: true}
}

func (h *ReflectionHandler) Process(ctx context.Context, entry *queue.Entry) (Result, error) {
	payload, err := entry.Payload()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "reflection", "decode_payload", "", err)
	}
	if err := boundary.ValidateOperation(queue.WorkReflection, "compute_reflection", payload); err != nil {
		return nil, services.Wrap(services.ErrValidation, "reflection", "boundary_check", "", err)
	}

	blocks, err := h.substrate.ListBlocks(ctx, entry.BasketID, substrate.BlockAccepted, substrate.BlockLocked, substrate.BlockConstant)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "reflection", "list_blocks", "", err)
	}
	items, err := h.substrate.ListContextItems(ctx, entry.BasketID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "reflection", "list_context_items", "", err)
	}
	relationships, err := h.substrate.ListRelationships(ctx, entry.BasketID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "reflection", "list_relationships", "", err)
	}

	event := map[string]any{
		"blocks":        len(blocks),
		"context_items": len(items),
		"relationships": len(relationships),
	}
	if themes := topThemes(blocks, 3); len(themes) > 0 {
		event["themes"] = themes
	}
	if err := h.substrate.AppendEvent(ctx, entry.BasketID, EventTypeReflection, event); err != nil {
		return nil, services.Wrap(services.ErrTransient, "reflection", "append_event", "", err)
	}

	h.logger.Info("reflection computed",
		logging.String(logging.FieldBasketID, entry.BasketID),
		logging.Int("blocks", len(blocks)),
		logging.Int("relationships", len(relationships)))

	return Result{"reflections_created": 1}, nil
}

// topThemes surfaces the most frequent meaningful title words.
func topThemes(blocks []*substrate.Block, limit int) []string {
	counts := make(map[string]int)
	for _, block := range blocks {
		for _, word := range strings.Fields(strings.ToLower(block.Title)) {
			if len(word) < 4 {
				continue
			}
			counts[word]++
		}
	}

	themes := make([]string, 0, len(counts))
	for word, count := range counts {
		if count > 1 {
			themes = append(themes, word)
		}
	}
	sort.Slice(themes, func(i, j int) bool {
		if counts[themes[i]] != counts[themes[j]] {
			return counts[themes[i]] > counts[themes[j]]
		}
		return themes[i] < themes[j]
	})
	if len(themes) > limit {
		themes = themes[:limit]
	}
	return themes
}
