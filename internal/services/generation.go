package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/datatypes"

	"github.com/yungbote/hermes-backend/internal/data/repos"
	types "github.com/yungbote/hermes-backend/internal/domain/collections"
	"github.com/yungbote/hermes-backend/internal/pkg/dbctx"
	"github.com/yungbote/hermes-backend/internal/platform/ctxutil"
	"github.com/yungbote/hermes-backend/internal/platform/logger"
	"github.com/yungbote/hermes-backend/internal/realtime"
	"github.com/yungbote/hermes-backend/internal/temporalx/jobrun"
)

var (
	ErrInvalidSubmit      = errors.New("invalid submit request")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrRunInProgress      = errors.New("a run of this type is already in progress for the collection")
)

type EventPublisher interface {
	Publish(ctx context.Context, msg realtime.RunEvent) error
}

type SubmitRequest struct {
	CollectionID   uuid.UUID
	OwnerUserID    uuid.UUID
	JobType        string
	Amount         int
	Strategy       string
	ComponentClass string
	// Payload carries extra job parameters; reserved keys are overwritten.
	Payload map[string]any
}

type GenerationService interface {
	Submit(ctx context.Context, req SubmitRequest) (*types.GenerationRun, error)
	Get(ctx context.Context, runID uuid.UUID) (*types.GenerationRun, error)
	GetLatest(ctx context.Context, collectionID uuid.UUID, jobType string) (*types.GenerationRun, error)
}

type generationService struct {
	log    *logger.Logger
	repos  repos.Repos
	events EventPublisher

	temporal          temporalsdkclient.Client
	temporalTaskQueue string
	now               func() time.Time
}

// NewGenerationService wires run submission. tc may be nil, in which case the
// polling worker picks submitted runs up.
func NewGenerationService(baseLog *logger.Logger, r repos.Repos, events EventPublisher, tc temporalsdkclient.Client, taskQueue string) GenerationService {
	return &generationService{
		log:               baseLog.With("service", "GenerationService"),
		repos:             r,
		events:            events,
		temporal:          tc,
		temporalTaskQueue: strings.TrimSpace(taskQueue),
		now:               time.Now,
	}
}

func normalizeSubmit(req SubmitRequest) (SubmitRequest, error) {
	req.JobType = strings.TrimSpace(req.JobType)
	req.Strategy = strings.TrimSpace(req.Strategy)
	req.ComponentClass = strings.TrimSpace(req.ComponentClass)
	if req.CollectionID == uuid.Nil {
		return req, fmt.Errorf("%w: missing collection_id", ErrInvalidSubmit)
	}
	if req.OwnerUserID == uuid.Nil {
		return req, fmt.Errorf("%w: missing owner_user_id", ErrInvalidSubmit)
	}
	switch req.JobType {
	case types.JobTypeGenerate:
		if req.Amount <= 0 {
			return req, fmt.Errorf("%w: amount must be positive", ErrInvalidSubmit)
		}
		switch req.Strategy {
		case "":
			req.Strategy = types.StrategyNormalRandom
		case types.StrategyNormalRandom, types.StrategyRandomAfter:
		default:
			return req, fmt.Errorf("%w: unknown generated_type %q", ErrInvalidSubmit, req.Strategy)
		}
		if req.ComponentClass == "" {
			req.ComponentClass = types.DefaultComponentClass
		}
		if !types.ValidComponentClass(req.ComponentClass) {
			return req, fmt.Errorf("%w: unknown generated_class %q", ErrInvalidSubmit, req.ComponentClass)
		}
	case types.JobTypeCountTrait, types.JobTypeShakeTokenID, types.JobTypeExportMetadata:
		req.Amount = 0
		req.Strategy = ""
		req.ComponentClass = ""
	case "":
		return req, fmt.Errorf("%w: missing job_type", ErrInvalidSubmit)
	default:
		return req, fmt.Errorf("%w: unknown job_type %q", ErrInvalidSubmit, req.JobType)
	}
	return req, nil
}

func (s *generationService) Submit(ctx context.Context, req SubmitRequest) (*types.GenerationRun, error) {
	ctx = ctxutil.Default(ctx)
	req, err := normalizeSubmit(req)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.New(ctx)

	col, err := s.repos.Collections.GetByID(dbc, req.CollectionID)
	if err != nil {
		return nil, fmt.Errorf("load collection: %w", err)
	}
	if col == nil {
		return nil, ErrCollectionNotFound
	}
	active, err := s.repos.Runs.HasActiveForCollection(dbc, req.CollectionID, req.JobType)
	if err != nil {
		return nil, fmt.Errorf("check active runs: %w", err)
	}
	if active {
		return nil, ErrRunInProgress
	}

	payload := map[string]any{}
	for k, v := range req.Payload {
		payload[k] = v
	}
	payload["collection_id"] = req.CollectionID.String()
	if req.JobType == types.JobTypeGenerate {
		payload["amount"] = req.Amount
		payload["generated_type"] = req.Strategy
		payload["generated_class"] = req.ComponentClass
	}
	if td := ctxutil.GetTraceData(ctx); td != nil && td.TraceID != "" {
		if _, ok := payload["trace_id"]; !ok {
			payload["trace_id"] = td.TraceID
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	now := s.now()
	run := &types.GenerationRun{
		ID:             uuid.New(),
		CollectionID:   req.CollectionID,
		OwnerUserID:    req.OwnerUserID,
		JobType:        req.JobType,
		Strategy:       req.Strategy,
		ComponentClass: req.ComponentClass,
		Amount:         req.Amount,
		Status:         types.RunStatusSubmitted,
		Stage:          types.RunStatusSubmitted,
		Message:        "Submitted",
		Payload:        datatypes.JSON(b),
		Result:         datatypes.JSON([]byte(`{}`)),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := s.repos.Runs.Create(dbc, []*types.GenerationRun{run}); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	s.publish(ctx, run, realtime.RunEvent{Event: realtime.RunEventCreated, Status: run.Status, Message: run.Message, At: now})
	s.log.Info("Run submitted", "run_id", run.ID, "collection_id", run.CollectionID, "job_type", run.JobType)

	if s.temporal == nil {
		return run, nil
	}
	if err := s.dispatch(ctx, run); err != nil {
		return run, err
	}
	return run, nil
}

func (s *generationService) dispatch(ctx context.Context, run *types.GenerationRun) error {
	_, err := s.temporal.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                    run.ID.String(),
		TaskQueue:             s.temporalTaskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}, jobrun.WorkflowName)
	if err == nil {
		return nil
	}
	var already *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &already) {
		return nil
	}

	now := s.now().UTC()
	_ = s.repos.Runs.UpdateFields(dbctx.New(context.WithoutCancel(ctx)), run.ID, map[string]interface{}{
		"status":        types.RunStatusError,
		"stage":         "dispatch",
		"message":       "",
		"error":         err.Error(),
		"last_error_at": now,
		"locked_at":     nil,
		"updated_at":    now,
	})
	run.Status = types.RunStatusError
	run.Stage = "dispatch"
	run.Error = err.Error()
	s.publish(ctx, run, realtime.RunEvent{Event: realtime.RunEventFailed, Status: run.Status, Error: run.Error, At: now})
	return fmt.Errorf("start temporal workflow: %w", err)
}

func (s *generationService) Get(ctx context.Context, runID uuid.UUID) (*types.GenerationRun, error) {
	rows, err := s.repos.Runs.GetByIDs(dbctx.New(ctx), []uuid.UUID{runID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (s *generationService) GetLatest(ctx context.Context, collectionID uuid.UUID, jobType string) (*types.GenerationRun, error) {
	return s.repos.Runs.GetLatestByCollection(dbctx.New(ctx), collectionID, jobType)
}

func (s *generationService) publish(ctx context.Context, run *types.GenerationRun, ev realtime.RunEvent) {
	if s.events == nil {
		return
	}
	ev.Channel = run.CollectionID.String()
	ev.RunID = run.ID
	ev.CollectionID = run.CollectionID
	ev.JobType = run.JobType
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("publish run event failed", "run_id", run.ID, "event", ev.Event, "error", err)
	}
}
