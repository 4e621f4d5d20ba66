package cli

import (
	"context"

	"github.com/sheharfix/civicsync/internal/client/models"
	"github.com/sheharfix/civicsync/internal/cryptox"
)

// getSimpleText, getTextOr and getPassword are indirections used to
// facilitate testing.
var (
	getSimpleText = GetSimpleText
	getTextOr     = GetTextOr
	getPassword   = GetPassword
)

// Login prompts for credentials and signs in. When the backend cannot be
// reached the auth service falls back to an offline profile and the app
// switches to offline mode.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer cryptox.Wipe(password)

	role, err := getTextOr(a.reader, "Role (citizen/admin)", string(models.RoleCitizen), a.out)
	if err != nil {
		return err
	}

	sess, err := a.auth.Login(ctx, email, string(password), models.Role(role))
	if err != nil {
		a.log.Warn(ctx, "login unsuccessful", "error", err)
		return err
	}

	a.signedIn(ctx, sess)
	return nil
}

func (a *App) Signup(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter full name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	phone, err := getSimpleText(a.reader, "Enter phone", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer cryptox.Wipe(password)

	role, err := getTextOr(a.reader, "Role (citizen/admin)", string(models.RoleCitizen), a.out)
	if err != nil {
		return err
	}

	sess, err := a.auth.Signup(ctx, name, email, string(password), phone, models.Role(role))
	if err != nil {
		return err
	}

	a.signedIn(ctx, sess)
	return nil
}

func (a *App) signedIn(ctx context.Context, sess models.Session) {
	user := sess.User
	a.user = &user
	if sess.Token == "" {
		a.setMode(ctx, ModeOffline)
	} else {
		a.setMode(ctx, ModeOnline)
	}
	a.printf("Welcome, %s!\n", user.Name)
}

// Logout stops live updates and clears the local session.
func (a *App) Logout(ctx context.Context) error {
	if a.stopWatch != nil {
		a.stopWatch()
		a.stopWatch = nil
	}
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	a.user = nil
	a.setMode(ctx, "")
	a.printf("Signed out.\n")
	return nil
}
