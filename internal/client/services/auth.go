// Package services contains the domain operations exposed to callers of
// the civicsync client: authentication and the issue workflow. Every call
// goes through a Requester, normally the mock-first client.Dispatcher.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/sheharfix/civicsync/internal/client/client"
	"github.com/sheharfix/civicsync/internal/client/models"
	"github.com/sheharfix/civicsync/internal/common"
	"github.com/sheharfix/civicsync/internal/cryptox"
	"github.com/sheharfix/civicsync/internal/logging"
)

// Requester sends one backend call. *client.Dispatcher and
// *client.HTTPClient implement it.
type Requester interface {
	Do(ctx context.Context, req client.Request) ([]byte, error)
}

// AuthService signs users in and out.
//
// Login goes to the backend first. When the backend cannot be reached, or
// the client runs without one, it falls back to OfflineLogin.
type AuthService struct {
	api     Requester
	session *Session
	log     logging.Logger
}

func NewAuthService(api Requester, session *Session, log logging.Logger) *AuthService {
	if log == nil {
		log = logging.Nop()
	}
	return &AuthService{api: api, session: session, log: log}
}

// Login authenticates with email and password for role and persists the
// token and user. Empty credentials and rejected credentials are
// common.ErrAuth.
func (a *AuthService) Login(ctx context.Context, email, password string, role models.Role) (models.Session, error) {
	if err := checkCredentials(email, password, role); err != nil {
		return models.Session{}, err
	}

	body, err := json.Marshal(models.LoginBody{Email: email, Password: password, Role: role})
	if err != nil {
		return models.Session{}, err
	}

	data, err := a.api.Do(ctx, client.Request{Method: http.MethodPost, Path: "/auth/login", Body: body})
	if err != nil {
		if isOffline(err) {
			a.log.Info(ctx, "backend unreachable, using offline login", "email", email)
			return a.OfflineLogin(ctx, email, password, role)
		}
		return models.Session{}, fmt.Errorf("login: %w", err)
	}

	return a.establish(ctx, data, email, password)
}

// Signup registers a new account and signs it in.
func (a *AuthService) Signup(ctx context.Context, name, email, password, phone string, role models.Role) (models.Session, error) {
	if strings.TrimSpace(name) == "" {
		return models.Session{}, &common.ValidationError{Field: "name", Tag: "required"}
	}
	if err := checkCredentials(email, password, role); err != nil {
		return models.Session{}, err
	}

	body, err := json.Marshal(models.SignupBody{Name: name, Email: email, Password: password, Phone: phone, Role: role})
	if err != nil {
		return models.Session{}, err
	}

	data, err := a.api.Do(ctx, client.Request{Method: http.MethodPost, Path: "/auth/signup", Body: body})
	if err != nil {
		return models.Session{}, fmt.Errorf("signup: %w", err)
	}

	return a.establish(ctx, data, email, password)
}

func (a *AuthService) establish(ctx context.Context, data []byte, email, password string) (models.Session, error) {
	sess, err := client.Decode[models.Session](data)
	if err != nil {
		return models.Session{}, err
	}
	if sess.Token == "" {
		return models.Session{}, fmt.Errorf("%w: response has no token", common.ErrDecode)
	}

	salt, err := cryptox.NewSalt()
	if err != nil {
		return models.Session{}, err
	}
	key := cryptox.DeriveKey([]byte(password), salt)
	cred := &offlineCredentials{email: normalizeEmail(email), salt: salt, verifier: cryptox.MakeVerifier(key)}
	cryptox.Wipe(key)

	if err := a.session.store(ctx, sess, cred); err != nil {
		return models.Session{}, fmt.Errorf("save session: %w", err)
	}

	a.log.Info(ctx, "signed in", "user", sess.User.ID, "role", sess.User.Role)
	return sess, nil
}

// OfflineLogin signs in without the backend. When the email matches the
// verifier cached at the last online login, the password must match it.
// Without a cached verifier a demo profile is created for the role. The
// returned session carries no token.
func (a *AuthService) OfflineLogin(ctx context.Context, email, password string, role models.Role) (models.Session, error) {
	if err := checkCredentials(email, password, role); err != nil {
		return models.Session{}, err
	}

	cred, err := a.session.offline(ctx)
	if err != nil {
		return models.Session{}, fmt.Errorf("read offline credentials: %w", err)
	}

	var user models.User
	if cred != nil && cred.email == normalizeEmail(email) {
		if !cryptox.Verify([]byte(password), cred.salt, cred.verifier) {
			return models.Session{}, fmt.Errorf("%w: offline credentials do not match", common.ErrAuth)
		}
		cached, err := a.session.User(ctx)
		if err != nil {
			return models.Session{}, err
		}
		if cached != nil && normalizeEmail(cached.Email) == cred.email && cached.Role == role {
			user = *cached
		} else {
			user = demoUser(email, role)
		}
	} else {
		user = demoUser(email, role)
	}

	sess := models.Session{User: user}
	if err := a.session.store(ctx, sess, nil); err != nil {
		return models.Session{}, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// Logout tells the backend and always clears the local session, even when
// the backend call fails.
func (a *AuthService) Logout(ctx context.Context) error {
	_, err := a.api.Do(ctx, client.Request{Method: http.MethodPost, Path: "/auth/logout"})
	if err != nil {
		a.log.Warn(ctx, "logout request failed", "error", err)
	}

	if cerr := a.session.Clear(ctx); cerr != nil {
		return fmt.Errorf("clear session: %w", cerr)
	}
	return nil
}

// CurrentUser returns the signed-in user or nil.
func (a *AuthService) CurrentUser(ctx context.Context) (*models.User, error) {
	return a.session.User(ctx)
}

func checkCredentials(email, password string, role models.Role) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return fmt.Errorf("%w: email and password are required", common.ErrAuth)
	}
	if !role.Valid() {
		return &common.ValidationError{Field: "role", Tag: "oneof"}
	}
	return nil
}

// isOffline reports whether err means no backend answered: a transport
// failure, or a route the mock does not model with no network behind it.
func isOffline(err error) bool {
	if errors.Is(err, common.ErrUnavailable) {
		return true
	}
	return errors.Is(err, common.ErrUnimplementedRoute) && !errors.Is(err, common.ErrNetwork)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func demoUser(email string, role models.Role) models.User {
	u := models.User{
		ID:     uuid.NewString(),
		Email:  email,
		Role:   role,
		Avatar: "https://api.dicebear.com/7.x/avataaars/svg?seed=" + url.QueryEscape(email),
	}
	if role == models.RoleCitizen {
		u.Name = "Priya Sharma"
		u.Points = 1247
		u.Level = 5
		u.Badges = []string{"Street Guardian", "Voice of Change"}
	} else {
		u.Name = "Rajesh Kumar"
	}
	return u
}
