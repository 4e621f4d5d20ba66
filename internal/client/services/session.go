package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/multierr"

	"github.com/sheharfix/civicsync/internal/client/models"
	"github.com/sheharfix/civicsync/internal/client/repositories/metadata"
	"github.com/sheharfix/civicsync/internal/dbx"
	"github.com/sheharfix/civicsync/internal/logging"
)

// Session keeps the credential token and the signed-in user in the
// metadata slot. It is the client's token source.
type Session struct {
	slot metadata.Repository
	// db is set when slot is the SQLite repository so multi-key writes
	// happen in one transaction.
	db  *sql.DB
	log logging.Logger
	now func() time.Time
}

// NewSession binds a session to slot. Pass the *sql.DB behind slot to get
// transactional writes; nil writes key by key.
func NewSession(slot metadata.Repository, db *sql.DB, log logging.Logger) *Session {
	if log == nil {
		log = logging.Nop()
	}
	return &Session{slot: slot, db: db, log: log, now: time.Now}
}

// Token returns the stored bearer token. A JWT whose exp claim has passed
// is dropped from the slot and reported as absent; opaque tokens are
// returned as is.
func (s *Session) Token(ctx context.Context) string {
	raw, err := s.slot.Get(ctx, metadata.KeyAuthToken)
	if err != nil {
		s.log.Warn(ctx, "session: read token failed", "error", err)
		return ""
	}
	tok := string(raw)
	if tok == "" {
		return ""
	}

	if s.expired(tok) {
		s.log.Info(ctx, "session: stored token expired, discarding")
		if err := s.slot.Delete(ctx, metadata.KeyAuthToken); err != nil {
			s.log.Warn(ctx, "session: delete expired token failed", "error", err)
		}
		return ""
	}
	return tok
}

func (s *Session) expired(tok string) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(s.now())
}

// User returns the signed-in user or nil.
func (s *Session) User(ctx context.Context) (*models.User, error) {
	raw, err := s.slot.Get(ctx, metadata.KeyUser)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var u models.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("session: decode user: %w", err)
	}
	return &u, nil
}

type offlineCredentials struct {
	email    string
	salt     []byte
	verifier []byte
}

// store writes the session and, when given, the offline verifier.
func (s *Session) store(ctx context.Context, sess models.Session, cred *offlineCredentials) error {
	user, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("session: encode user: %w", err)
	}

	write := func(ctx context.Context, repo metadata.Repository) error {
		if sess.Token == "" {
			if err := repo.Delete(ctx, metadata.KeyAuthToken); err != nil {
				return err
			}
		} else if err := repo.Set(ctx, metadata.KeyAuthToken, []byte(sess.Token)); err != nil {
			return err
		}
		if err := repo.Set(ctx, metadata.KeyUser, user); err != nil {
			return err
		}
		if cred == nil {
			return nil
		}
		if err := repo.Set(ctx, metadata.KeyOfflineEmail, []byte(cred.email)); err != nil {
			return err
		}
		if err := repo.Set(ctx, metadata.KeyOfflineSalt, cred.salt); err != nil {
			return err
		}
		return repo.Set(ctx, metadata.KeyOfflineHash, cred.verifier)
	}

	if s.db == nil {
		return write(ctx, s.slot)
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return write(ctx, metadata.NewSQLiteRepository(tx))
	})
}

func (s *Session) offline(ctx context.Context) (*offlineCredentials, error) {
	email, err := s.slot.Get(ctx, metadata.KeyOfflineEmail)
	if err != nil {
		return nil, err
	}
	salt, err := s.slot.Get(ctx, metadata.KeyOfflineSalt)
	if err != nil {
		return nil, err
	}
	verifier, err := s.slot.Get(ctx, metadata.KeyOfflineHash)
	if err != nil {
		return nil, err
	}
	if email == nil || salt == nil || verifier == nil {
		return nil, nil
	}
	return &offlineCredentials{email: string(email), salt: salt, verifier: verifier}, nil
}

// Clear removes the token and the user. The offline verifier stays so the
// next login can still be checked without a network.
func (s *Session) Clear(ctx context.Context) error {
	var err error
	for _, k := range []string{metadata.KeyAuthToken, metadata.KeyUser} {
		err = multierr.Append(err, s.slot.Delete(ctx, k))
	}
	return err
}

// ClearOfflineData wipes the cached offline verifier.
func (s *Session) ClearOfflineData(ctx context.Context) error {
	var err error
	for _, k := range []string{metadata.KeyOfflineEmail, metadata.KeyOfflineSalt, metadata.KeyOfflineHash} {
		err = multierr.Append(err, s.slot.Delete(ctx, k))
	}
	return err
}
