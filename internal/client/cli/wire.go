package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/sheharfix/civicsync/internal/client/client"
	"github.com/sheharfix/civicsync/internal/client/config"
	"github.com/sheharfix/civicsync/internal/client/mock"
	"github.com/sheharfix/civicsync/internal/client/repositories/metadata"
	"github.com/sheharfix/civicsync/internal/client/services"
	"github.com/sheharfix/civicsync/internal/client/store"
	"github.com/sheharfix/civicsync/internal/filex"
	"github.com/sheharfix/civicsync/internal/logging"

	_ "modernc.org/sqlite"
)

const dbFileName = "civicsync.db"

// NewApp builds the full client stack from c: metadata slot, mock store
// and handler, HTTP client, dispatcher, uploader, live stream and services.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	app := &App{
		config: c,
		log:    log,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}

	slot, db, err := app.openSlot(ctx)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	st := store.New(ctx, slot, log.With("component", "store"))
	session := services.NewSession(slot, db, log.With("component", "session"))

	mockOpts := []mock.Option{
		mock.WithLatency(c.MockLatency),
		mock.WithLogger(log.With("component", "mock")),
	}
	if c.MockLifecycle {
		mockOpts = append(mockOpts, mock.WithLifecycleRoutes())
	}
	handler := mock.NewHandler(st, mockOpts...)

	hc := client.NewHTTPClient(c.APIBaseURL,
		client.WithTimeout(c.RequestTimeout),
		client.WithTokenSource(session),
		client.WithLogger(log.With("component", "http")),
	)

	mode, err := client.ParseMode(c.DispatchMode)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	api := client.NewDispatcher(handler, hc,
		client.WithMode(mode),
		client.WithDispatchLogger(log.With("component", "dispatcher")),
	)

	uploader, err := newUploader(ctx, c, hc)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	stream := client.NewSubscriber(c.APIBaseURL,
		client.WithBackoff(c.SubscribeBackoffBase, c.SubscribeBackoffMax),
		client.WithSubscriberTokens(session),
		client.WithSubscriberLogger(log.With("component", "stream")),
	)

	issueOpts := []services.IssueOption{
		services.WithStream(stream),
		services.WithIssueLogger(log.With("component", "issues")),
	}
	if c.EnforceRoles {
		authz, err := services.NewCasbinAuthorizer()
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		issueOpts = append(issueOpts, services.WithAuthorizer(authz, session))
	}

	app.auth = services.NewAuthService(api, session, log.With("component", "auth"))
	app.issues = services.NewIssueService(api, uploader, issueOpts...)
	return app, nil
}

func (a *App) openSlot(ctx context.Context) (metadata.Repository, *sql.DB, error) {
	switch a.config.StoreBackend {
	case "redis":
		rc := redis.NewClient(&redis.Options{Addr: a.config.RedisAddr})
		a.closers = append(a.closers, rc.Close)
		if err := rc.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("connect redis %s: %w", a.config.RedisAddr, err)
		}
		return metadata.NewRedisRepository(rc, a.config.RedisNamespace), nil, nil
	default:
		path, err := filex.DataFile(a.config.DataDir, dbFileName)
		if err != nil {
			return nil, nil, err
		}
		db, err := client.InitDatabase(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("error initializing database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		return metadata.NewSQLiteRepository(db), db, nil
	}
}

func newUploader(ctx context.Context, c *config.Config, hc *client.HTTPClient) (client.Uploader, error) {
	httpClient := &http.Client{Timeout: c.RequestTimeout}

	switch c.UploadBackend {
	case "s3":
		return client.NewS3Uploader(ctx, client.S3Config{
			Region:       c.S3.Region,
			BaseEndpoint: c.S3.Endpoint,
			AccessKey:    c.S3.AccessKey,
			SecretKey:    c.S3.SecretKey,
			Bucket:       c.S3.Bucket,
		}, httpClient)
	case "minio":
		return client.NewMinioUploader(client.MinioConfig{
			Endpoint:  c.Minio.Endpoint,
			AccessKey: c.Minio.AccessKey,
			SecretKey: c.Minio.SecretKey,
			Bucket:    c.Minio.Bucket,
			UseSSL:    c.Minio.UseSSL,
		}, httpClient)
	default:
		return hc, nil
	}
}
