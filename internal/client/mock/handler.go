// Package mock emulates the issue backend in-process on top of a store.Store.
// It serves the routes the facade needs for offline demos and answers every
// other route with a *common.RouteError so the dispatcher can fall back to
// the network.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sheharfix/civicsync/internal/client/models"
	"github.com/sheharfix/civicsync/internal/client/store"
	"github.com/sheharfix/civicsync/internal/common"
	"github.com/sheharfix/civicsync/internal/logging"
)

// DefaultLatency is the artificial delay applied to every call.
const DefaultLatency = 300 * time.Millisecond

type Handler struct {
	store     *store.Store
	latency   time.Duration
	lifecycle bool
	now       func() time.Time
	log       logging.Logger
}

type Option func(*Handler)

// WithLatency overrides DefaultLatency. Zero disables the delay.
func WithLatency(d time.Duration) Option {
	return func(h *Handler) { h.latency = d }
}

// WithLifecycleRoutes enables the status filter, PATCH, assign and resolve
// routes. They reject transitions that move an issue backwards.
func WithLifecycleRoutes() Option {
	return func(h *Handler) { h.lifecycle = true }
}

func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func WithLogger(l logging.Logger) Option {
	return func(h *Handler) { h.log = l }
}

func NewHandler(s *store.Store, opts ...Option) *Handler {
	h := &Handler{
		store:   s,
		latency: DefaultLatency,
		now:     time.Now,
		log:     logging.Nop(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Handle serves one request. The returned bytes are the JSON response body.
func (h *Handler) Handle(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if err := h.wait(ctx); err != nil {
		return nil, err
	}

	u, err := url.Parse(path)
	if err != nil {
		return nil, &common.RouteError{Method: method, Path: path}
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	query := u.Query()

	var res any
	switch {
	case method == http.MethodPost && len(segs) == 1 && segs[0] == "issues":
		res, err = h.create(ctx, body)
	case method == http.MethodGet && len(segs) == 1 && segs[0] == "issues" && len(query) == 0:
		res = h.store.List()
	case method == http.MethodPost && len(segs) == 3 && segs[0] == "issues" && segs[2] == "upvote":
		res, err = h.upvote(ctx, segs[1])

	case h.lifecycle && method == http.MethodGet && len(segs) == 1 && segs[0] == "issues" && query.Has("status"):
		res = models.FilterByStatus(h.store.List(), models.Status(query.Get("status")))
	case h.lifecycle && method == http.MethodPatch && len(segs) == 2 && segs[0] == "issues":
		res, err = h.patch(ctx, segs[1], body)
	case h.lifecycle && method == http.MethodPost && len(segs) == 3 && segs[0] == "issues" && segs[2] == "assign":
		res, err = h.assign(ctx, segs[1], body)
	case h.lifecycle && method == http.MethodPost && len(segs) == 3 && segs[0] == "issues" && segs[2] == "resolve":
		res, err = h.resolve(ctx, segs[1], body)

	default:
		return nil, &common.RouteError{Method: method, Path: path}
	}
	if err != nil {
		return nil, err
	}

	out, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("mock: encode response: %w", err)
	}
	return out, nil
}

func (h *Handler) wait(ctx context.Context) error {
	if h.latency <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(h.latency)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (h *Handler) create(ctx context.Context, body []byte) (models.Issue, error) {
	if len(body) == 0 {
		return models.Issue{}, &common.ValidationError{Field: "body", Tag: "required"}
	}

	var is models.Issue
	if err := json.Unmarshal(body, &is); err != nil {
		return models.Issue{}, fmt.Errorf("%w: issue body: %v", common.ErrValidation, err)
	}

	is.ID = h.store.AllocateID()
	is.Status = models.StatusReported
	is.Upvotes = 0
	is.ReportedDate = models.Timestamp(h.now())
	is.AfterImage = ""
	is.ResolvedDate = ""
	if is.Images == nil {
		is.Images = []string{}
	}

	h.store.Prepend(ctx, is)
	h.log.Info(ctx, "mock: issue created", "id", is.ID, "images", len(is.Images))
	return is, nil
}

func (h *Handler) upvote(ctx context.Context, id string) (models.Issue, error) {
	is, err := h.store.Update(ctx, id, func(is *models.Issue) error {
		is.Upvotes++
		return nil
	})
	if err != nil {
		return models.Issue{}, fmt.Errorf("issue %s: %w", id, err)
	}
	return is, nil
}

func (h *Handler) assign(ctx context.Context, id string, body []byte) (models.Issue, error) {
	var req models.AssignBody
	if err := decodeBody(body, &req); err != nil {
		return models.Issue{}, err
	}

	is, err := h.store.Update(ctx, id, func(is *models.Issue) error {
		if err := transition(is, models.StatusAssigned); err != nil {
			return err
		}
		is.AssignedTo = req.AssignedTo
		is.EstimatedTime = req.EstimatedTime
		return nil
	})
	if err != nil {
		return models.Issue{}, fmt.Errorf("issue %s: %w", id, err)
	}
	return is, nil
}

func (h *Handler) resolve(ctx context.Context, id string, body []byte) (models.Issue, error) {
	var req models.ResolveBody
	if err := decodeBody(body, &req); err != nil {
		return models.Issue{}, err
	}

	is, err := h.store.Update(ctx, id, func(is *models.Issue) error {
		if err := transition(is, models.StatusResolved); err != nil {
			return err
		}
		h.markResolved(is, req.AfterImage)
		if req.Cost != "" {
			is.Cost = req.Cost
		}
		return nil
	})
	if err != nil {
		return models.Issue{}, fmt.Errorf("issue %s: %w", id, err)
	}
	return is, nil
}

// patch applies a partial update. A photo sent while the issue is not yet
// resolved is a progress photo and is appended to Images.
func (h *Handler) patch(ctx context.Context, id string, body []byte) (models.Issue, error) {
	var req models.UpdateIssueBody
	if err := decodeBody(body, &req); err != nil {
		return models.Issue{}, err
	}

	is, err := h.store.Update(ctx, id, func(is *models.Issue) error {
		if req.Status != "" && req.Status != is.Status {
			if err := transition(is, req.Status); err != nil {
				return err
			}
		} else if is.Status == models.StatusResolved {
			return fmt.Errorf("%w: issue already resolved", common.ErrInvalidTransition)
		}

		if req.AssignedTo != "" {
			is.AssignedTo = req.AssignedTo
		}
		if req.EstimatedTime != "" {
			is.EstimatedTime = req.EstimatedTime
		}
		if req.Cost != "" {
			is.Cost = req.Cost
		}

		if is.Status == models.StatusResolved {
			h.markResolved(is, req.AfterImage)
		} else if req.AfterImage != "" {
			is.Images = append(is.Images, req.AfterImage)
		}
		return nil
	})
	if err != nil {
		return models.Issue{}, fmt.Errorf("issue %s: %w", id, err)
	}
	return is, nil
}

func (h *Handler) markResolved(is *models.Issue, afterImage string) {
	is.ResolvedDate = models.Timestamp(h.now())
	if afterImage != "" {
		is.AfterImage = afterImage
	}
}

func transition(is *models.Issue, next models.Status) error {
	if !next.Valid() {
		return &common.ValidationError{Field: "status", Tag: "oneof"}
	}
	if !is.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, is.Status, next)
	}
	is.Status = next
	return nil
}

func decodeBody(body []byte, v any) error {
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: request body: %v", common.ErrValidation, err)
	}
	return nil
}
