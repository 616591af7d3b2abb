package handler

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/config"
	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/repository"
)

const testAccessCode = "letmein"

type fakeFeed struct {
	text string
	err  error
}

func (f fakeFeed) Fetch(ctx context.Context) (string, error) {
	return f.text, f.err
}

type recordingPublisher struct {
	mu       sync.Mutex
	keys     []string
	messages []amqp.Publishing
	err      error
}

func (p *recordingPublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.messages = append(p.messages, msg)
	return nil
}

type anyValue struct{}

func (anyValue) ConvertValue(v any) (driver.Value, error) {
	return v, nil
}

type testEnv struct {
	handler   *Handler
	mock      sqlmock.Sqlmock
	redis     *miniredis.Miniredis
	publisher *recordingPublisher
}

func newTestEnv(t *testing.T, feed FeedFetcher) *testEnv {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testAccessCode), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Facility.Timezone = "America/Winnipeg"
	cfg.Feed.FetchTimeout = 5
	cfg.Trade.MinRestHours = 12
	cfg.Upload.MaxBytes = 1 << 20
	cfg.Database.QueryTimeout = 5
	cfg.Access.CodeHash = string(hash)
	cfg.Access.MaxAttempts = 3
	cfg.Access.Lockout = 900
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Expiration = 3600
	cfg.Redis.OperationExpiration = 5
	cfg.RabbitMQ.PublishTimeout = 5

	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(anyValue{}))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	publisher := &recordingPublisher{}

	h, err := NewHandler(cfg, repository.NewRepository(cfg, db), publisher, rdb, feed)
	require.NoError(t, err)
	h.RegisterRoutes()

	return &testEnv{handler: h, mock: mock, redis: mr, publisher: publisher}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	rec := httptest.NewRecorder()
	e.handler.Mux.ServeHTTP(rec, req)

	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func jsonRequest(t *testing.T, method, target string, v any) *http.Request {
	t.Helper()

	body, err := json.Marshal(v)
	require.NoError(t, err)

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// signIn 用正确的访问码登录，返回会话 cookie
func (e *testEnv) signIn(t *testing.T) *http.Cookie {
	t.Helper()

	rec, body := e.serve(t, jsonRequest(t, http.MethodPost, "/auth/login", map[string]string{"code": testAccessCode}))
	require.True(t, body.Success, body.Message)

	for _, c := range rec.Result().Cookies() {
		if c.Name == tokenCookieName {
			return c
		}
	}
	t.Fatal("登录后没有返回会话 cookie")
	return nil
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, fakeFeed{})

	rec, body := env.serve(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec, _ = env.serve(t, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
