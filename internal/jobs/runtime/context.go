package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/hermes-backend/internal/data/repos"
	types "github.com/yungbote/hermes-backend/internal/domain/collections"
	"github.com/yungbote/hermes-backend/internal/pkg/dbctx"
	"github.com/yungbote/hermes-backend/internal/platform/ctxutil"
	"github.com/yungbote/hermes-backend/internal/platform/logger"
	"github.com/yungbote/hermes-backend/internal/realtime"
)

// Publisher is the slice of the run bus a job needs.
type Publisher interface {
	Publish(ctx context.Context, msg realtime.RunEvent) error
}

/*
Context is the execution handle for one claimed generation run.
Pipelines report status, progress and the terminal outcome through it and
never write the collection_operation row themselves.
*/
type Context struct {
	Ctx  context.Context
	Run  *types.GenerationRun
	Repo repos.GenerationRunRepo
	Bus  Publisher
	Log  *logger.Logger

	payload map[string]any
}

func NewContext(ctx context.Context, run *types.GenerationRun, repo repos.GenerationRunRepo, bus Publisher, log *logger.Logger) *Context {
	if log == nil {
		log = logger.Nop()
	}
	c := &Context{
		Ctx:  ctxutil.Default(ctx),
		Run:  run,
		Repo: repo,
		Bus:  bus,
	}
	_ = c.decodePayload()
	if run != nil {
		c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{
			TraceID:      strings.TrimSpace(fmt.Sprint(c.Payload()["trace_id"])),
			RunID:        run.ID.String(),
			CollectionID: run.CollectionID.String(),
		})
		log = log.With("run_id", run.ID, "collection_id", run.CollectionID, "job_type", run.JobType)
	}
	c.Log = log
	return c
}

func (c *Context) decodePayload() error {
	if c.Run == nil || len(c.Run.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Run.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

func (c *Context) PayloadString(key, def string) string {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return def
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return def
	}
	return s
}

// PayloadInt accepts JSON numbers and numeric strings.
func (c *Context) PayloadInt(key string, def int) int {
	switch v := c.Payload()[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.PayloadString(key, ""))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// SetStatus records a lifecycle transition. A run already in error is never moved.
func (c *Context) SetStatus(ctx context.Context, status string, at time.Time) error {
	if c == nil || c.Run == nil {
		return nil
	}
	ctx = ctxutil.Default(ctx)
	updates := map[string]interface{}{
		"status":       status,
		"stage":        status,
		"heartbeat_at": at,
		"updated_at":   at,
	}
	if status == types.RunStatusCompleted {
		updates["completed_at"] = at
		updates["progress"] = 100
		updates["locked_at"] = nil
	}
	if c.Repo != nil && c.Run.ID != uuid.Nil {
		ok, err := c.Repo.UpdateFieldsUnlessStatus(dbctx.New(ctx), c.Run.ID, []string{types.RunStatusError}, updates)
		if err != nil {
			return fmt.Errorf("persist run status %s: %w", status, err)
		}
		if !ok {
			return nil
		}
	}
	c.Run.Status = status
	c.Run.Stage = status
	c.Run.HeartbeatAt = &at
	c.Run.UpdatedAt = at
	if status == types.RunStatusCompleted {
		c.Run.CompletedAt = &at
		c.Run.Progress = 100
	}
	c.publish(ctx, realtime.RunEvent{Event: realtime.RunEventStatus, Status: status, At: at})
	return nil
}

func (c *Context) Progress(stage string, pct int, msg string) {
	if c == nil || c.Run == nil {
		return
	}
	now := time.Now()
	if c.Repo != nil && c.Run.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.New(c.Ctx), c.Run.ID, []string{types.RunStatusError, types.RunStatusCompleted}, map[string]interface{}{
			"stage":        stage,
			"progress":     pct,
			"message":      msg,
			"heartbeat_at": now,
			"updated_at":   now,
		})
		if !ok {
			return
		}
	}
	c.Run.Stage = stage
	c.Run.Progress = pct
	c.Run.Message = msg
	c.Run.HeartbeatAt = &now
	c.Run.UpdatedAt = now
	c.publish(c.Ctx, realtime.RunEvent{Event: realtime.RunEventStatus, Status: c.Run.Status, Progress: pct, Message: msg, At: now})
}

// Fail marks the run as error. A completed run is left alone.
func (c *Context) Fail(stage string, err error) {
	if c == nil || c.Run == nil {
		return
	}
	// the job context may already be canceled when a run is aborted
	ctx := context.WithoutCancel(c.Ctx)
	now := time.Now()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if c.Repo != nil && c.Run.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.New(ctx), c.Run.ID, []string{types.RunStatusCompleted}, map[string]interface{}{
			"status":        types.RunStatusError,
			"stage":         stage,
			"message":       "",
			"error":         msg,
			"last_error_at": now,
			"locked_at":     nil,
			"updated_at":    now,
		})
		if !ok {
			return
		}
	}
	c.Run.Status = types.RunStatusError
	c.Run.Stage = stage
	c.Run.Message = ""
	c.Run.Error = msg
	c.Run.LastErrorAt = &now
	c.Run.LockedAt = nil
	c.Run.UpdatedAt = now
	c.publish(ctx, realtime.RunEvent{Event: realtime.RunEventFailed, Status: types.RunStatusError, Error: msg, At: now})
}

// Succeed stores result and marks the run completed.
func (c *Context) Succeed(result any) {
	if c == nil || c.Run == nil {
		return
	}
	now := time.Now()
	var res datatypes.JSON
	if result != nil {
		b, _ := json.Marshal(result)
		res = datatypes.JSON(b)
	}
	if c.Repo != nil && c.Run.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.New(c.Ctx), c.Run.ID, []string{types.RunStatusError}, map[string]interface{}{
			"status":       types.RunStatusCompleted,
			"stage":        types.RunStatusCompleted,
			"progress":     100,
			"message":      "",
			"error":        "",
			"result":       res,
			"locked_at":    nil,
			"heartbeat_at": now,
			"completed_at": now,
			"updated_at":   now,
		})
		if !ok {
			return
		}
	}
	c.Run.Status = types.RunStatusCompleted
	c.Run.Stage = types.RunStatusCompleted
	c.Run.Progress = 100
	c.Run.Message = ""
	c.Run.Error = ""
	c.Run.Result = res
	c.Run.LockedAt = nil
	c.Run.HeartbeatAt = &now
	c.Run.CompletedAt = &now
	c.Run.UpdatedAt = now
	c.publish(c.Ctx, realtime.RunEvent{Event: realtime.RunEventDone, Status: types.RunStatusCompleted, Progress: 100, Data: result, At: now})
}

func (c *Context) publish(ctx context.Context, ev realtime.RunEvent) {
	if c.Bus == nil || c.Run == nil {
		return
	}
	ev.Channel = c.Run.CollectionID.String()
	ev.RunID = c.Run.ID
	ev.CollectionID = c.Run.CollectionID
	ev.JobType = c.Run.JobType
	if err := c.Bus.Publish(ctx, ev); err != nil {
		c.Log.Warn("publish run event failed", "event", ev.Event, "error", err)
	}
}
