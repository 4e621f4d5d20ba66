package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"

	"github.com/sheharfix/civicsync/internal/client/config"
	"github.com/sheharfix/civicsync/internal/client/models"
	"github.com/sheharfix/civicsync/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type authAPI interface {
	Login(ctx context.Context, email, password string, role models.Role) (models.Session, error)
	Signup(ctx context.Context, name, email, password, phone string, role models.Role) (models.Session, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*models.User, error)
}

type issueAPI interface {
	ReportIssue(ctx context.Context, req models.ReportIssueRequest) (models.Issue, error)
	GetIssues(ctx context.Context) ([]models.Issue, error)
	GetResolvedIssues(ctx context.Context) ([]models.Issue, error)
	UpvoteIssue(ctx context.Context, id string) (models.Issue, error)
	AssignIssue(ctx context.Context, id, assignee, eta string) (models.Issue, error)
	ResolveIssue(ctx context.Context, id string, afterImage *models.Attachment, cost string) (models.Issue, error)
	UpdateIssue(ctx context.Context, req models.UpdateIssueRequest) (models.Issue, error)
	SubscribeToIssues(ctx context.Context, fn func(models.Issue)) (func(), error)
	GetAnalytics(ctx context.Context) (models.Analytics, error)
}

type App struct {
	config *config.Config
	auth   authAPI
	issues issueAPI
	log    logging.Logger
	reader *bufio.Reader

	outMu sync.Mutex
	out   io.Writer

	user  *models.User
	Mode  Mode
	draft *models.ReportIssueRequest

	stopWatch func()
	closers   []func() error
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		if mode != "" {
			a.log.Info(ctx, "switched mode", "mode", mode)
		}
	}
}

func (a *App) isLoggedIn() bool {
	return a.user != nil
}

func (a *App) getStatus() string {
	s := ""
	if a.user != nil {
		s = a.user.Name + " "
	}
	if a.Mode != "" {
		s = s + string(a.Mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

// Run restores a saved session, then runs the REPL until the user exits.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	a.printf("Welcome to SheharFix CLI (type 'help' for commands)\n")

	if u, err := a.auth.CurrentUser(ctx); err != nil {
		a.log.Warn(ctx, "failed to restore session", "error", err)
	} else if u != nil {
		a.user = u
		a.printf("Signed in as %s (%s)\n", u.Name, u.Role)
	}

	runREPL(ctx, a, a.getStatus, a.reader)
	return nil
}

// Close stops live updates and releases storage handles.
func (a *App) Close() error {
	if a.stopWatch != nil {
		a.stopWatch()
		a.stopWatch = nil
	}
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	a.closers = nil
	return err
}
