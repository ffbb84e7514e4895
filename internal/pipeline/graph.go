package pipeline

import (
	"context"
	"log/slog"

	"loom/internal/boundary"
	"loom/internal/logging"
	"loom/internal/queue"
	"loom/internal/services"
	"loom/internal/substrate"
	"loom/internal/validation"
)

// relationshipThreshold is the minimum title similarity for two blocks to be
// considered related.
const relationshipThreshold = 0.3

// GraphHandler maps connections between accepted substrate units. It compares
// block titles pairwise and records a relationship for every pair above the
// similarity threshold, skipping pairs that are already connected.
type GraphHandler struct {
	substrate *substrate.Store
	logger    *slog.Logger
}

// NewGraphHandler builds the graph stage handler.
func NewGraphHandler(store *substrate.Store, logger *slog.Logger) *GraphHandler {
	return &GraphHandler{
		substrate: store,
		logger:    logging.NewComponentLogger(logger, "graph"),
	}
}

func (h *GraphHandler) WorkType() queue.WorkType {
	return queue.WorkGraph
}

func (h *GraphHandler) HealthCheck(ctx context.Context) Health {
	if h.substrate == nil {
		return Health{Detail: "substrate store not configured"}
	}
	return Health{Ready: true}
}

func (h *GraphHandler) Process(ctx context.Context, entry *queue.Entry) (Result, error) {
	payload, err := entry.Payload()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "graph", "decode_payload", "", err)
	}
	if err := boundary.ValidateOperation(queue.WorkGraph, "create_relationship", payload); err != nil {
		return nil, services.Wrap(services.ErrValidation, "graph", "boundary_check", "", err)
	}

	blocks, err := h.substrate.ListBlocks(ctx, entry.BasketID, substrate.BlockAccepted, substrate.BlockLocked, substrate.BlockConstant)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "graph", "list_blocks", "", err)
	}

	mapped := 0
	for i := 0; i < len(blocks); i++ {
		for j := i + 1; j < len(blocks); j++ {
			score := validation.Similarity(blocks[i].Title, blocks[j].Title)
			if score < relationshipThreshold {
				continue
			}
			exists, err := h.substrate.RelationshipExists(ctx, entry.BasketID, blocks[i].ID, blocks[j].ID)
			if err != nil {
				return nil, services.Wrap(services.ErrTransient, "graph", "check_relationship", "", err)
			}
			if exists {
				continue
			}
			if _, err := h.substrate.CreateRelationship(ctx, substrate.Relationship{
				BasketID: entry.BasketID,
				FromID:   blocks[i].ID,
				ToID:     blocks[j].ID,
				RelType:  "related",
				Strength: score,
			}); err != nil {
				return nil, services.Wrap(services.ErrTransient, "graph", "create_relationship", "", err)
			}
			mapped++
		}
	}

	h.logger.Info("connections mapped",
		logging.String(logging.FieldBasketID, entry.BasketID),
		logging.Int("blocks", len(blocks)),
		logging.Int("connections_mapped", mapped))

	return Result{"connections_mapped": mapped}, nil
}
