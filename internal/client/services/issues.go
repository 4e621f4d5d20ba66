package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sheharfix/civicsync/internal/client/client"
	"github.com/sheharfix/civicsync/internal/client/models"
	"github.com/sheharfix/civicsync/internal/common"
	"github.com/sheharfix/civicsync/internal/logging"
)

// IssueStream delivers live issue updates. *client.Subscriber implements it.
type IssueStream interface {
	Subscribe(ctx context.Context, fn func(models.Issue)) (func(), error)
}

// UserSource returns the signed-in user, or nil when nobody is signed in.
type UserSource interface {
	User(ctx context.Context) (*models.User, error)
}

// IssueService runs the issue workflow: report, browse, upvote, assign,
// update and resolve.
type IssueService struct {
	api      Requester
	uploader client.Uploader
	stream   IssueStream
	users    UserSource
	authz    Authorizer
	validate *validator.Validate
	log      logging.Logger
}

type IssueOption func(*IssueService)

func WithStream(s IssueStream) IssueOption {
	return func(is *IssueService) { is.stream = s }
}

// WithAuthorizer enables role checks against the user from users.
func WithAuthorizer(a Authorizer, users UserSource) IssueOption {
	return func(is *IssueService) {
		is.authz = a
		is.users = users
	}
}

func WithIssueLogger(l logging.Logger) IssueOption {
	return func(is *IssueService) { is.log = l }
}

func NewIssueService(api Requester, uploader client.Uploader, opts ...IssueOption) *IssueService {
	s := &IssueService{
		api:      api,
		uploader: uploader,
		validate: newValidator(),
		log:      logging.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ReportIssue validates req, uploads its images one at a time in order and
// creates the issue only when every upload succeeded. An upload failure is
// a *common.UploadStepError and nothing is created. req is not modified.
func (s *IssueService) ReportIssue(ctx context.Context, req models.ReportIssueRequest) (models.Issue, error) {
	if err := s.authorize(ctx, OpReport); err != nil {
		return models.Issue{}, err
	}
	if err := s.validate.StructCtx(ctx, req); err != nil {
		return models.Issue{}, validationError(err)
	}

	refs := make([]string, 0, len(req.Images))
	for i, img := range req.Images {
		ref, err := s.uploader.Upload(ctx, client.EndpointIssueImage, img)
		if err != nil {
			s.log.Warn(ctx, "image upload failed, issue not created", "step", i+1, "total", len(req.Images), "error", err)
			return models.Issue{}, &common.UploadStepError{Step: i + 1, Total: len(req.Images), Err: err}
		}
		refs = append(refs, ref)
	}

	reporter := req.ReportedBy
	if req.IsAnonymous {
		reporter = common.AnonymousReporter
	}

	body := models.CreateIssueBody{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Category:    req.Category,
		Priority:    req.Priority,
		Images:      refs,
		IsAnonymous: req.IsAnonymous,
		ReportedBy:  reporter,
	}

	is, err := doJSON[models.Issue](ctx, s.api, http.MethodPost, "/issues", body)
	if err != nil {
		return models.Issue{}, fmt.Errorf("create issue: %w", err)
	}
	s.log.Info(ctx, "issue reported", "id", is.ID, "images", len(is.Images))
	return is, nil
}

// GetIssues lists all issues in backend order.
func (s *IssueService) GetIssues(ctx context.Context) ([]models.Issue, error) {
	if err := s.authorize(ctx, OpList); err != nil {
		return nil, err
	}
	return doJSON[[]models.Issue](ctx, s.api, http.MethodGet, "/issues", nil)
}

func (s *IssueService) GetResolvedIssues(ctx context.Context) ([]models.Issue, error) {
	if err := s.authorize(ctx, OpList); err != nil {
		return nil, err
	}
	return doJSON[[]models.Issue](ctx, s.api, http.MethodGet, "/issues?status="+string(models.StatusResolved), nil)
}

func (s *IssueService) UpvoteIssue(ctx context.Context, id string) (models.Issue, error) {
	if err := s.authorize(ctx, OpUpvote); err != nil {
		return models.Issue{}, err
	}
	if err := requireID(id); err != nil {
		return models.Issue{}, err
	}
	return doJSON[models.Issue](ctx, s.api, http.MethodPost, issuePath(id, "upvote"), nil)
}

func (s *IssueService) AssignIssue(ctx context.Context, id, assignee, eta string) (models.Issue, error) {
	if err := s.authorize(ctx, OpAssign); err != nil {
		return models.Issue{}, err
	}
	if err := requireID(id); err != nil {
		return models.Issue{}, err
	}
	if strings.TrimSpace(assignee) == "" {
		return models.Issue{}, &common.ValidationError{Field: "assignedTo", Tag: "required"}
	}

	body := models.AssignBody{AssignedTo: assignee, EstimatedTime: eta}
	return doJSON[models.Issue](ctx, s.api, http.MethodPost, issuePath(id, "assign"), body)
}

// ResolveIssue marks the issue resolved. afterImage, when given, is
// uploaded first; the issue is not touched if that upload fails.
func (s *IssueService) ResolveIssue(ctx context.Context, id string, afterImage *models.Attachment, cost string) (models.Issue, error) {
	if err := s.authorize(ctx, OpResolve); err != nil {
		return models.Issue{}, err
	}
	if err := requireID(id); err != nil {
		return models.Issue{}, err
	}

	var body models.ResolveBody
	body.Cost = cost
	if afterImage != nil {
		ref, err := s.uploader.Upload(ctx, client.EndpointResolvedImage, *afterImage)
		if err != nil {
			return models.Issue{}, &common.UploadStepError{Step: 1, Total: 1, Err: err}
		}
		body.AfterImage = ref
	}

	is, err := doJSON[models.Issue](ctx, s.api, http.MethodPost, issuePath(id, "resolve"), body)
	if err != nil {
		return models.Issue{}, err
	}
	s.log.Info(ctx, "issue resolved", "id", is.ID)
	return is, nil
}

// UpdateIssue sends a partial update. A photo is uploaded to the progress
// endpoint first and sent as afterImage.
func (s *IssueService) UpdateIssue(ctx context.Context, req models.UpdateIssueRequest) (models.Issue, error) {
	if err := s.authorize(ctx, OpUpdate); err != nil {
		return models.Issue{}, err
	}
	if err := requireID(req.IssueID); err != nil {
		return models.Issue{}, err
	}
	if req.Status != "" && !req.Status.Valid() {
		return models.Issue{}, &common.ValidationError{Field: "status", Tag: "oneof"}
	}

	body := models.UpdateIssueBody{
		IssueID:       req.IssueID,
		Status:        req.Status,
		Cost:          req.Cost,
		AssignedTo:    req.AssignedTo,
		EstimatedTime: req.EstimatedTime,
	}
	if req.AfterImage != nil {
		ref, err := s.uploader.Upload(ctx, client.EndpointProgressImage, *req.AfterImage)
		if err != nil {
			return models.Issue{}, &common.UploadStepError{Step: 1, Total: 1, Err: err}
		}
		body.AfterImage = ref
	}

	return doJSON[models.Issue](ctx, s.api, http.MethodPatch, issuePath(req.IssueID, ""), body)
}

// SubscribeToIssues streams issue updates to fn until the returned function
// is called.
func (s *IssueService) SubscribeToIssues(ctx context.Context, fn func(models.Issue)) (func(), error) {
	if err := s.authorize(ctx, OpSubscribe); err != nil {
		return nil, err
	}
	if s.stream == nil {
		return nil, fmt.Errorf("%w: no issue stream configured", common.ErrUnavailable)
	}
	return s.stream.Subscribe(ctx, fn)
}

func (s *IssueService) GetAnalytics(ctx context.Context) (models.Analytics, error) {
	if err := s.authorize(ctx, OpAnalytics); err != nil {
		return models.Analytics{}, err
	}
	return doJSON[models.Analytics](ctx, s.api, http.MethodGet, "/analytics", nil)
}

func (s *IssueService) authorize(ctx context.Context, op Operation) error {
	if s.authz == nil || s.users == nil {
		return nil
	}
	u, err := s.users.User(ctx)
	if err != nil {
		return err
	}
	if u == nil {
		return nil
	}
	return s.authz.Authorize(u.Role, op)
}

func doJSON[T any](ctx context.Context, api Requester, method, path string, body any) (T, error) {
	var zero T

	var raw []byte
	if body != nil {
		var err error
		if raw, err = json.Marshal(body); err != nil {
			return zero, err
		}
	}

	data, err := api.Do(ctx, client.Request{Method: method, Path: path, Body: raw})
	if err != nil {
		return zero, err
	}
	return client.Decode[T](data)
}

func issuePath(id, action string) string {
	p := "/issues/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return &common.ValidationError{Field: "id", Tag: "required"}
	}
	return nil
}
