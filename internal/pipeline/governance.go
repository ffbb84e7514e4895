package pipeline

import (
	"context"
	"log/slog"

	"loom/internal/boundary"
	"loom/internal/extraction"
	"loom/internal/logging"
	"loom/internal/ops"
	"loom/internal/proposal"
	"loom/internal/queue"
	"loom/internal/services"
	"loom/internal/substrate"
	"loom/internal/validation"
)

// GovernanceHandler interprets captured dumps into proposals. It extracts
// candidate units, checks each resulting operation against the stage boundary
// policy, scores the batch with the validation engine, and files a proposal
// for review. The stage result reports proposals_created: 0 because nothing
// has touched the substrate yet; the cascade into the graph stage fires later,
// when the proposal is approved and executed.
type GovernanceHandler struct {
	substrate     *substrate.Store
	extractor     extraction.Extractor
	engine        *validation.Engine
	proposals     *proposal.Service
	minConfidence float64
	logger        *slog.Logger
}

// NewGovernanceHandler builds the governance stage handler.
func NewGovernanceHandler(
	store *substrate.Store,
	extractor extraction.Extractor,
	engine *validation.Engine,
	proposals *proposal.Service,
	minConfidence float64,
	logger *slog.Logger,
) *GovernanceHandler {
	return &GovernanceHandler{
		substrate:     store,
		extractor:     extractor,
		engine:        engine,
		proposals:     proposals,
		minConfidence: minConfidence,
		logger:        logging.NewComponentLogger(logger, "governance"),
	}
}

func (h *GovernanceHandler) WorkType() queue.WorkType {
	return queue.WorkGovernance
}

func (h *GovernanceHandler) HealthCheck(ctx context.Context) Health {
	if h.extractor == nil {
		return Health{Detail: "no extractor configured"}
	}
	return Health{Ready: true}
}

func (h *GovernanceHandler) Process(ctx context.Context, entry *queue.Entry) (Result, error) {
	payload, err := entry.Payload()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "governance", "decode_payload", "", err)
	}
	dumpID, _ := payload["dump_id"].(string)
	if dumpID == "" {
		return nil, services.Wrap(services.ErrValidation, "governance", "load_dump", "payload has no dump_id", nil)
	}

	dump, err := h.substrate.GetDump(ctx, dumpID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "governance", "load_dump", "", err)
	}
	if dump == nil {
		return nil, services.Wrap(services.ErrNotFound, "governance", "load_dump", "dump "+dumpID+" does not exist", nil)
	}

	candidates, err := h.extractor.Extract(ctx, dump.Body)
	if err != nil {
		return nil, err
	}
	candidates = extraction.Filter(candidates, h.minConfidence)

	operations := candidatesToOps(candidates)
	if len(operations) == 0 {
		h.logger.Info("no candidates extracted",
			logging.String(logging.FieldBasketID, entry.BasketID),
			logging.String("dump_id", dumpID))
		return Result{
			"proposals_created": 0,
			"proposals_pending": 0,
			"candidates":        0,
		}, nil
	}

	for _, op := range operations {
		if err := boundary.ValidateOperation(queue.WorkGovernance, op.Name(), op.Data()); err != nil {
			return nil, services.Wrap(services.ErrValidation, "governance", "boundary_check", "", err)
		}
	}

	report := h.engine.Validate(ctx, validation.Request{
		BasketID:    entry.BasketID,
		WorkspaceID: entry.WorkspaceID,
		Ops:         operations,
		Origin:      proposal.OriginAgent,
		Provenance:  []string{dumpID},
	})

	created, err := h.proposals.Create(ctx, &proposal.Proposal{
		BasketID:    entry.BasketID,
		WorkspaceID: entry.WorkspaceID,
		Kind:        proposal.KindExtraction,
		Origin:      proposal.OriginAgent,
		Ops:         operations,
		Report:      &report,
		Provenance:  []string{dumpID},
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("proposal filed for review",
		logging.String(logging.FieldBasketID, entry.BasketID),
		logging.String(logging.FieldProposalID, created.ID),
		logging.Int("ops_count", len(operations)),
		logging.Float64("confidence", report.Confidence),
		logging.Int("conflicts", len(report.Conflicts)))

	return Result{
		"proposals_created": 0,
		"proposals_pending": 1,
		"proposal_id":       created.ID,
		"candidates":        len(candidates),
	}, nil
}

func candidatesToOps(candidates []extraction.Candidate) []ops.Operation {
	operations := make([]ops.Operation, 0, len(candidates))
	for _, candidate := range candidates {
		switch candidate.Kind {
		case extraction.KindBlock:
			operations = append(operations,
				ops.NewCreateBlock(candidate.Title, candidate.Content, candidate.SemanticType, candidate.Confidence))
		case extraction.KindContextItem:
			operations = append(operations,
				ops.NewCreateContextItem(candidate.Title, candidate.SemanticType, candidate.Confidence))
		}
	}
	return operations
}
