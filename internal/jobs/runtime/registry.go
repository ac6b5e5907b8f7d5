package runtime

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Handler runs one generation job type.
type Handler interface {
	Type() string
	Run(ctx *Context) error
}

var (
	ErrNilHandler       = errors.New("runtime: nil handler")
	ErrEmptyJobType     = errors.New("runtime: handler has empty job type")
	ErrDuplicateJobType = errors.New("runtime: job type already registered")
)

// Registry maps job_type to the pipeline that runs it. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byType map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{byType: map[string]Handler{}}
}

// Register adds handlers in order and stops at the first rejected one.
func (r *Registry) Register(handlers ...Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range handlers {
		if h == nil {
			return ErrNilHandler
		}
		jobType := h.Type()
		switch {
		case jobType == "":
			return ErrEmptyJobType
		case r.byType[jobType] != nil:
			return fmt.Errorf("%w: %s", ErrDuplicateJobType, jobType)
		}
		r.byType[jobType] = h
	}
	return nil
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	h, ok := r.byType[jobType]
	r.mu.RUnlock()
	return h, ok
}

// Types lists registered job types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.byType))
	for jobType := range r.byType {
		out = append(out, jobType)
	}
	r.mu.RUnlock()
	slices.Sort(out)
	return out
}
