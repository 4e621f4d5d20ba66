package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sheharfix/civicsync/internal/client/client"
	"github.com/sheharfix/civicsync/internal/client/mock"
	"github.com/sheharfix/civicsync/internal/client/models"
	"github.com/sheharfix/civicsync/internal/client/repositories/metadata"
	"github.com/sheharfix/civicsync/internal/client/store"
	"github.com/sheharfix/civicsync/internal/common"
)

const (
	testEmail    = "priya@example.in"
	testPassword = "s3cret"
	testToken    = "tok-123"
)

// fakeBackend is the real-backend stand-in for routes the mock does not
// model.
type fakeBackend struct {
	mu       sync.Mutex
	hits     map[string]int
	uploads  []string
	failOn   int // 1-based upload number that returns 500; 0 never
	hangOn   int // 1-based upload number that blocks until the request ends
	hanging  chan struct{}
	auth     []string
	down     bool
	loginErr int
}

func (f *fakeBackend) hit(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[r.Method+" "+r.URL.Path]++
	f.auth = append(f.auth, r.Header.Get(common.AuthorizationHeaderName))
}

func (f *fakeBackend) count(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[route]
}

func (f *fakeBackend) lastAuth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.auth) == 0 {
		return ""
	}
	return f.auth[len(f.auth)-1]
}

func (f *fakeBackend) router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.hit(req)
			f.mu.Lock()
			down := f.down
			f.mu.Unlock()
			if down {
				http.Error(w, "maintenance", http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, req)
		})
	})

	r.Post("/upload/{kind}", func(w http.ResponseWriter, req *http.Request) {
		file, hdr, err := req.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = file.Close()

		f.mu.Lock()
		f.uploads = append(f.uploads, hdr.Filename)
		n := len(f.uploads)
		fail := f.failOn == n
		hang := f.hangOn == n
		f.mu.Unlock()

		if hang {
			close(f.hanging)
			<-req.Context().Done()
			return
		}
		if fail {
			http.Error(w, "storage full", http.StatusInternalServerError)
			return
		}
		writeJSON(w, models.UploadResult{URL: fmt.Sprintf("https://cdn.test/%s/%s", chi.URLParam(req, "kind"), hdr.Filename)})
	})

	r.Post("/auth/login", func(w http.ResponseWriter, req *http.Request) {
		var body models.LoginBody
		_ = json.NewDecoder(req.Body).Decode(&body)
		f.mu.Lock()
		code := f.loginErr
		f.mu.Unlock()
		if code != 0 {
			http.Error(w, "login unavailable", code)
			return
		}
		if body.Password != testPassword {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		writeJSON(w, models.Session{
			User:  models.User{ID: "u-1", Name: "Priya", Email: body.Email, Role: body.Role},
			Token: testToken,
		})
	})

	r.Post("/auth/signup", func(w http.ResponseWriter, req *http.Request) {
		var body models.SignupBody
		_ = json.NewDecoder(req.Body).Decode(&body)
		writeJSON(w, models.Session{
			User:  models.User{ID: "u-2", Name: body.Name, Email: body.Email, Role: body.Role, Phone: body.Phone},
			Token: "tok-new",
		})
	})

	r.Post("/auth/logout", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/analytics", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, models.Analytics{TotalIssues: 10, ResolvedIssues: 7, WardStats: []models.WardStat{{Ward: "Ward 12", Issues: 4, Resolved: 3}}})
	})

	r.Post("/issues/{id}/assign", func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type testEnv struct {
	backend *fakeBackend
	server  *httptest.Server
	db      *sql.DB
	slot    metadata.Repository
	store   *store.Store
	session *Session
	http    *client.HTTPClient
	api     *client.Dispatcher
	issues  *IssueService
	auth    *AuthService
}

type envConfig struct {
	mockOpts []mock.Option
	mode     client.Mode
	issueOpt []IssueOption
}

func newEnv(t *testing.T, cfg envConfig) *testEnv {
	t.Helper()
	ctx := context.Background()

	fb := &fakeBackend{hits: map[string]int{}}
	srv := httptest.NewServer(fb.router())
	t.Cleanup(srv.Close)

	db, err := client.InitDatabase(ctx, filepath.Join(t.TempDir(), "civic.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	slot := metadata.NewSQLiteRepository(db)
	st := store.New(ctx, slot, nil)
	session := NewSession(slot, db, nil)

	hc := client.NewHTTPClient(srv.URL, client.WithTokenSource(session))
	handler := mock.NewHandler(st, append([]mock.Option{mock.WithLatency(0)}, cfg.mockOpts...)...)

	var dopts []client.DispatcherOption
	if cfg.mode != "" {
		dopts = append(dopts, client.WithMode(cfg.mode))
	}
	api := client.NewDispatcher(handler, hc, dopts...)

	return &testEnv{
		backend: fb,
		server:  srv,
		db:      db,
		slot:    slot,
		store:   st,
		session: session,
		http:    hc,
		api:     api,
		issues:  NewIssueService(api, hc, cfg.issueOpt...),
		auth:    NewAuthService(api, session, nil),
	}
}

func image(name string) models.Attachment {
	return models.Attachment{Name: name, ContentType: "image/jpeg", Data: []byte("jpeg:" + name)}
}

func validReport(images ...models.Attachment) models.ReportIssueRequest {
	return models.ReportIssueRequest{
		Title:       "Pothole",
		Description: "deep",
		Location:    "MG Road",
		Category:    models.CategoryPotholes,
		Priority:    models.PriorityHigh,
		Images:      images,
		ReportedBy:  "Priya Sharma",
	}
}
