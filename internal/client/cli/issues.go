package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/sheharfix/civicsync/internal/client/models"
	"github.com/sheharfix/civicsync/internal/common"
)

// listRetries and listBackoff bound how list commands wait out an
// unavailable backend.
var (
	listRetries uint64 = 2
	listBackoff        = 250 * time.Millisecond
)

// Report prompts for a new issue and submits it. A failed submission is kept
// as a draft for Retry.
func (a *App) Report(ctx context.Context) error {
	req, err := a.promptReport()
	if err != nil {
		return err
	}
	a.draft = &req
	return a.submit(ctx)
}

// Retry resubmits the last failed report without prompting again.
func (a *App) Retry(ctx context.Context) error {
	if a.draft == nil {
		a.printf("Nothing to retry.\n")
		return nil
	}
	return a.submit(ctx)
}

func (a *App) submit(ctx context.Context) error {
	is, err := a.issues.ReportIssue(ctx, *a.draft)
	if err != nil {
		var step *common.UploadStepError
		if errors.As(err, &step) {
			a.printf("Photo %d of %d failed to upload; nothing was submitted.\n", step.Step, step.Total)
		}
		a.printf("Report not submitted. Type 'retry' to try again.\n")
		return err
	}

	a.draft = nil
	a.printf("Issue #%s reported (%s).\n", is.ID, is.Status)
	return nil
}

func (a *App) promptReport() (models.ReportIssueRequest, error) {
	var req models.ReportIssueRequest

	fields := []struct {
		prompt string
		def    string
		dst    *string
	}{
		{prompt: "Title", dst: &req.Title},
		{prompt: "Description", dst: &req.Description},
		{prompt: "Location", dst: &req.Location},
		{prompt: "Category", def: models.CategoryOther, dst: &req.Category},
	}
	for _, f := range fields {
		var err error
		if f.def != "" {
			*f.dst, err = getTextOr(a.reader, f.prompt, f.def, a.out)
		} else {
			*f.dst, err = getSimpleText(a.reader, f.prompt, a.out)
		}
		if err != nil {
			return req, err
		}
	}

	priority, err := getTextOr(a.reader, "Priority (low/medium/high/urgent)", string(models.PriorityMedium), a.out)
	if err != nil {
		return req, err
	}
	req.Priority = models.Priority(priority)

	paths, err := getSimpleText(a.reader, "Photo paths (comma separated, 1-5)", a.out)
	if err != nil {
		return req, err
	}
	if req.Images, err = ReadAttachments(paths); err != nil {
		return req, err
	}

	if a.user == nil {
		a.printf("Not signed in; the report will be anonymous.\n")
		req.IsAnonymous = true
		return req, nil
	}

	anon, err := getTextOr(a.reader, "Report anonymously? (y/n)", "n", a.out)
	if err != nil {
		return req, err
	}
	req.IsAnonymous = yes(anon)
	req.ReportedBy = a.user.Name
	return req, nil
}

// List prints all issues, unresolved first. Failures show an empty list.
func (a *App) List(ctx context.Context) error {
	issues := a.fetch(ctx, a.issues.GetIssues)
	a.printIssues(models.UnresolvedFirst(issues))
	return nil
}

func (a *App) Resolved(ctx context.Context) error {
	a.printIssues(a.fetch(ctx, a.issues.GetResolvedIssues))
	return nil
}

func (a *App) fetch(ctx context.Context, get func(context.Context) ([]models.Issue, error)) []models.Issue {
	var issues []models.Issue
	b := retry.WithMaxRetries(listRetries, retry.NewConstant(listBackoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		var err error
		issues, err = get(ctx)
		if errors.Is(err, common.ErrUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		a.log.Warn(ctx, "failed to load issues", "error", err)
		return nil
	}
	return issues
}

func (a *App) printIssues(issues []models.Issue) {
	if len(issues) == 0 {
		a.printf("No issues to show.\n")
		return
	}
	for _, is := range issues {
		a.printf("#%-4s %-11s %-32s %-24s +%d\n", is.ID, is.Status, is.Title, is.Location, is.Upvotes)
	}
}

func (a *App) Upvote(ctx context.Context, id string) error {
	is, err := a.issues.UpvoteIssue(ctx, id)
	if err != nil {
		return err
	}
	a.printf("Issue #%s now has %d upvotes.\n", is.ID, is.Upvotes)
	return nil
}

func (a *App) Assign(ctx context.Context, id string) error {
	assignee, err := getSimpleText(a.reader, "Assign to", a.out)
	if err != nil {
		return err
	}
	eta, err := getSimpleText(a.reader, "Estimated time", a.out)
	if err != nil {
		return err
	}

	is, err := a.issues.AssignIssue(ctx, id, assignee, eta)
	if err != nil {
		return err
	}
	a.printf("Issue #%s assigned to %s.\n", is.ID, is.AssignedTo)
	return nil
}

// Progress posts a status change with an optional progress photo.
func (a *App) Progress(ctx context.Context, id string) error {
	status, err := getTextOr(a.reader, "New status", string(models.StatusInProgress), a.out)
	if err != nil {
		return err
	}
	path, err := getSimpleText(a.reader, "Progress photo path (optional)", a.out)
	if err != nil {
		return err
	}

	req := models.UpdateIssueRequest{IssueID: id, Status: models.Status(status)}
	if path != "" {
		att, err := ReadAttachment(path)
		if err != nil {
			return err
		}
		req.AfterImage = &att
	}

	is, err := a.issues.UpdateIssue(ctx, req)
	if err != nil {
		return err
	}
	a.printf("Issue #%s is now %s.\n", is.ID, is.Status)
	return nil
}

func (a *App) Resolve(ctx context.Context, id string) error {
	path, err := getSimpleText(a.reader, "After photo path (optional)", a.out)
	if err != nil {
		return err
	}
	cost, err := getSimpleText(a.reader, "Cost (optional)", a.out)
	if err != nil {
		return err
	}

	var after *models.Attachment
	if path != "" {
		att, err := ReadAttachment(path)
		if err != nil {
			return err
		}
		after = &att
	}

	is, err := a.issues.ResolveIssue(ctx, id, after, cost)
	if err != nil {
		return err
	}
	a.printf("Issue #%s resolved on %s.\n", is.ID, is.ResolvedDate)
	return nil
}

// Stats prints figures computed from the local list and, when the backend
// serves them, its analytics.
func (a *App) Stats(ctx context.Context) error {
	sum := models.Summarize(a.fetch(ctx, a.issues.GetIssues))

	a.printf("Total issues: %d\n", sum.Total)
	for _, st := range []models.Status{models.StatusReported, models.StatusAssigned, models.StatusInProgress, models.StatusResolved} {
		a.printf("  %-11s %d\n", st, sum.ByStatus[st])
	}
	a.printf("Resolution rate: %.0f%%\n", sum.ResolutionRate*100)
	if sum.AverageResolution > 0 {
		a.printf("Average resolution: %s\n", sum.AverageResolution.Round(time.Minute))
	}
	if len(sum.ByCategory) > 0 {
		cats := make([]string, 0, len(sum.ByCategory))
		for c, n := range sum.ByCategory {
			cats = append(cats, fmt.Sprintf("%s=%d", c, n))
		}
		sort.Strings(cats)
		a.printf("By category: %s\n", strings.Join(cats, ", "))
	}

	an, err := a.issues.GetAnalytics(ctx)
	if err != nil {
		a.log.Debug(ctx, "analytics unavailable", "error", err)
		a.printf("Backend analytics unavailable.\n")
		return nil
	}
	a.printf("Backend: %d issues, %d resolved, avg response %.1fh, satisfaction %.1f\n",
		an.TotalIssues, an.ResolvedIssues, an.AverageResponseTime, an.CitizenSatisfaction)
	for _, w := range an.WardStats {
		a.printf("  %-16s %4d issues %4d resolved\n", w.Ward, w.Issues, w.Resolved)
	}
	return nil
}

// Watch toggles the live issue stream.
func (a *App) Watch(ctx context.Context) error {
	if a.stopWatch != nil {
		a.stopWatch()
		a.stopWatch = nil
		a.printf("Stopped watching.\n")
		return nil
	}

	stop, err := a.issues.SubscribeToIssues(ctx, func(is models.Issue) {
		a.printf("\n[live] #%s %s: %s\n", is.ID, is.Status, is.Title)
	})
	if err != nil {
		return err
	}
	a.stopWatch = stop
	a.printf("Watching for issue updates. Type 'watch' again to stop.\n")
	return nil
}
