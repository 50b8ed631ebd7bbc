package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finvault/internal/api"
	"finvault/internal/core"
	"finvault/internal/session"
)

// backendStub plays both the auth and the transactions service.
type backendStub struct {
	srv    *httptest.Server
	mu     sync.Mutex
	calls  map[string]int
	routes map[string]http.HandlerFunc
}

func newBackendStub(t *testing.T) *backendStub {
	t.Helper()
	b := &backendStub{
		calls:  make(map[string]int),
		routes: make(map[string]http.HandlerFunc),
	}
	b.handle("GET /api/users/me", jsonHandler(http.StatusOK, `{"id":1,"name":"Asha","email":"asha@example.com"}`))
	b.handle("GET /api/transactions", jsonHandler(http.StatusOK, `[]`))

	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		b.mu.Lock()
		b.calls[key]++
		h, ok := b.routes[key]
		b.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backendStub) handle(key string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[key] = h
}

func (b *backendStub) count(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[key]
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

type testEnv struct {
	server  *Server
	store   *session.MemoryStore
	backend *backendStub
}

func newTestEnv(t *testing.T, b *backendStub, rateLimit int) *testEnv {
	t.Helper()
	store := session.NewMemoryStore()
	client := api.NewClient(api.Options{
		AuthBaseURL:         b.srv.URL,
		TransactionsBaseURL: b.srv.URL,
		QueryParams:         true,
	})
	srv, err := NewServer(Options{
		Backend:            client,
		Sessions:           session.NewManager(store, session.Options{MaxAge: time.Hour}, nil),
		Store:              store,
		RateLimitPerMinute: rateLimit,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{server: srv, store: store, backend: b}
}

func (e *testEnv) serve(r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Handler.ServeHTTP(rec, r)
	return rec
}

// signIn stores a session directly and returns its cookie.
func (e *testEnv) signIn(t *testing.T) *http.Cookie {
	t.Helper()
	require.NoError(t, e.store.Save(context.Background(), session.Session{
		ID: "sess-1", Token: "tok", UserID: "1", CreatedAt: time.Now(),
	}))
	return &http.Cookie{Name: "finvault_session", Value: "sess-1"}
}

func postForm(path string, values url.Values, cookies ...*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func postMultipart(t *testing.T, path string, fields map[string]string, cookies ...*http.Cookie) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, path, &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func get(path string, cookies ...*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestDashboardRequiresSession(t *testing.T) {
	env := newTestEnv(t, newBackendStub(t), 1000)

	for _, path := range []string{homePath, aboutPath, incomePath, expensePath, historyPath} {
		t.Run(path, func(t *testing.T) {
			rec := env.serve(get(path))
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/", rec.Header().Get("Location"))
		})
	}
	assert.Zero(t, env.backend.count("GET /api/transactions"))
}

func TestUnknownPathRedirectsToLogin(t *testing.T) {
	env := newTestEnv(t, newBackendStub(t), 1000)

	for _, path := range []string{"/nope", "/dashboard", "/dashboard/unknown"} {
		rec := env.serve(get(path))
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/", rec.Header().Get("Location"), path)
	}
}

func TestOffRouteRequestsAreCountedByReason(t *testing.T) {
	env := newTestEnv(t, newBackendStub(t), 1000)

	rec := env.serve(get("/api/transactions"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	env.serve(get("/wp-admin"))
	env.serve(get("/dashboard/settings"))
	env.serve(get("/dashboard/home"))

	rec = env.serve(get("/metrics"))
	body := rec.Body.String()
	assert.Contains(t, body, "security_suspicious_requests_total 3\n")
	assert.Contains(t, body, `security_flagged_total{reason="backend_api_path"} 1`+"\n")
	assert.Contains(t, body, `security_flagged_total{reason="unknown_route"} 2`+"\n")
	assert.Contains(t, body, `security_flagged_total{reason="path_traversal"} 0`+"\n")
}

func TestLoginPage(t *testing.T) {
	env := newTestEnv(t, newBackendStub(t), 1000)

	rec := env.serve(get("/"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/"`)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = env.serve(get("/", env.signIn(t)))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, homePath, rec.Header().Get("Location"))
}

func TestLoginEstablishesSession(t *testing.T) {
	b := newBackendStub(t)
	var got map[string]string
	b.handle("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		jsonHandler(http.StatusOK, `{"token":"abc","user":{"id":1}}`)(w, r)
	})
	env := newTestEnv(t, b, 1000)

	rec := env.serve(postForm("/", url.Values{"email": {"asha@example.com"}, "password": {"secret"}}))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, homePath, rec.Header().Get("Location"))
	assert.Equal(t, map[string]string{"email": "asha@example.com", "password": "secret"}, got)

	c := findCookie(rec, "finvault_session")
	require.NotNil(t, c)
	assert.True(t, c.HttpOnly)

	sess, err := env.store.Load(context.Background(), c.Value)
	require.NoError(t, err)
	assert.Equal(t, "abc", sess.Token)
	assert.Equal(t, "1", sess.UserID)
}

func TestLoginValidationSkipsBackend(t *testing.T) {
	env := newTestEnv(t, newBackendStub(t), 1000)

	tests := []struct {
		name   string
		values url.Values
		want   string
	}{
		{"missing email", url.Values{"password": {"secret"}}, "Email is required."},
		{"bad email", url.Values{"email": {"asha"}, "password": {"secret"}}, "Invalid email format."},
		{"leading space", url.Values{"email": {" asha@example.com"}, "password": {"secret"}}, "Invalid email format."},
		{"trailing space", url.Values{"email": {"asha@example.com "}, "password": {"secret"}}, "Invalid email format."},
		{"missing password", url.Values{"email": {"asha@example.com"}}, "Password is required."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.serve(postForm("/", tt.values))
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
	assert.Zero(t, env.backend.count("POST /api/auth/login"))
}

func TestLoginShowsBackendMessage(t *testing.T) {
	b := newBackendStub(t)
	b.handle("POST /api/auth/login", jsonHandler(http.StatusUnauthorized, `{"message":"Invalid credentials"}`))
	env := newTestEnv(t, b, 1000)

	rec := env.serve(postForm("/", url.Values{"email": {"asha@example.com"}, "password": {"wrong"}}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
	assert.Contains(t, rec.Body.String(), `value="asha@example.com"`)
	assert.Nil(t, findCookie(rec, "finvault_session"))
}

func TestLoginFallbackMessage(t *testing.T) {
	b := newBackendStub(t)
	b.handle("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html><body>oops</body></html>"))
	})
	env := newTestEnv(t, b, 1000)

	rec := env.serve(postForm("/", url.Values{"email": {"asha@example.com"}, "password": {"secret"}}))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Login failed")
}

func TestRegisterSignsInAndRedirects(t *testing.T) {
	b := newBackendStub(t)
	b.handle("POST /api/auth/register", jsonHandler(http.StatusCreated, `{"message":"User registered successfully"}`))
	b.handle("POST /api/auth/login", jsonHandler(http.StatusOK, `{"token":"abc","user":{"id":"u-9"}}`))
	env := newTestEnv(t, b, 1000)

	rec := env.serve(postForm("/register", url.Values{
		"name": {"Asha"}, "email": {"asha@example.com"}, "password": {"longenough"},
	}))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, homePath, rec.Header().Get("Location"))
	assert.Equal(t, 1, b.count("POST /api/auth/register"))
	assert.Equal(t, 1, b.count("POST /api/auth/login"))

	sid := findCookie(rec, "finvault_session")
	require.NotNil(t, sid)
	sess, err := env.store.Load(context.Background(), sid.Value)
	require.NoError(t, err)
	assert.Equal(t, "abc", sess.Token)
	assert.Equal(t, "u-9", sess.UserID)

	flash := findCookie(rec, flashCookie)
	require.NotNil(t, flash)

	home := env.serve(get(homePath, sid, flash))
	assert.Equal(t, http.StatusOK, home.Code)
	assert.Contains(t, home.Body.String(), "User registered successfully")
}

func TestRegisterValidationAndBackendError(t *testing.T) {
	b := newBackendStub(t)
	b.handle("POST /api/auth/register", jsonHandler(http.StatusConflict, `{"error":"Email already in use"}`))
	env := newTestEnv(t, b, 1000)

	rec := env.serve(postForm("/register", url.Values{
		"name": {"Asha"}, "email": {"asha@example.com"}, "password": {"short"},
	}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Password must be at least 8 characters.")
	assert.Zero(t, b.count("POST /api/auth/register"))

	rec = env.serve(postForm("/register", url.Values{
		"name": {"Asha"}, "email": {" asha@example.com"}, "password": {"longenough"},
	}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email format.")
	assert.Zero(t, b.count("POST /api/auth/register"))

	rec = env.serve(postForm("/register", url.Values{
		"name": {"Asha"}, "email": {"asha@example.com"}, "password": {"longenough"},
	}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email already in use")
	assert.Zero(t, b.count("POST /api/auth/login"))
}

func TestLogoutClearsSession(t *testing.T) {
	env := newTestEnv(t, newBackendStub(t), 1000)
	cookie := env.signIn(t)

	rec := env.serve(postForm("/logout", nil, cookie))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	c := findCookie(rec, "finvault_session")
	require.NotNil(t, c)
	assert.Less(t, c.MaxAge, 0)

	n, err := env.store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	rec = env.serve(get(homePath, cookie))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	// Logging out twice is harmless.
	rec = env.serve(get("/logout"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestHomeShowsSummaryAndRecent(t *testing.T) {
	b := newBackendStub(t)
	b.handle("GET /api/transactions", jsonHandler(http.StatusOK, `[
		{"id":1,"type":"INCOME","amount":100,"category":"Salary","date":"2025-01-01"},
		{"id":2,"type":"EXPENSE","amount":"40.5","category":"Food","date":"2025-01-02"}
	]`))
	env := newTestEnv(t, b, 1000)

	rec := env.serve(get(homePath, env.signIn(t)))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Welcome back, Asha")
	assert.Contains(t, body, "₹100.00")
	assert.Contains(t, body, "₹40.50")
	assert.Contains(t, body, "₹59.50")
	assert.Less(t, strings.Index(body, `data-id="2"`), strings.Index(body, `data-id="1"`))
	assert.Contains(t, body, `aria-current="page"`)
}

func TestHomeProfileFailureIsNotFatal(t *testing.T) {
	b := newBackendStub(t)
	b.handle("GET /api/users/me", jsonHandler(http.StatusInternalServerError, `{"message":"boom"}`))
	env := newTestEnv(t, b, 1000)

	rec := env.serve(get(homePath, env.signIn(t)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h2>Welcome</h2>")
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestHomeTransactionsFailure(t *testing.T) {
	b := newBackendStub(t)
	b.handle("GET /api/transactions", jsonHandler(http.StatusInternalServerError, `{"message":"db down"}`))
	env := newTestEnv(t, b, 1000)

	rec := env.serve(get(homePath, env.signIn(t)))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to fetch transactions.")
}

func TestHomeTransactionsFailureKeepsProfileName(t *testing.T) {
	b := newBackendStub(t)
	listed := make(chan struct{})
	var once sync.Once
	b.handle("GET /api/transactions", func(w http.ResponseWriter, r *http.Request) {
		jsonHandler(http.StatusInternalServerError, `{"message":"db down"}`)(w, r)
		once.Do(func() { close(listed) })
	})
	b.handle("GET /api/users/me", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-listed:
		case <-time.After(2 * time.Second):
		}
		time.Sleep(50 * time.Millisecond)
		jsonHandler(http.StatusOK, `{"id":1,"name":"Asha","email":"asha@example.com"}`)(w, r)
	})
	env := newTestEnv(t, b, 1000)

	rec := env.serve(get(homePath, env.signIn(t)))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to fetch transactions.")
	assert.Contains(t, rec.Body.String(), "Welcome back, Asha")
}

func TestAddIncome(t *testing.T) {
	b := newBackendStub(t)
	var (
		mu     sync.Mutex
		query  url.Values
		fields url.Values
		auth   string
	)
	b.handle("POST /api/transactions", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		mu.Lock()
		query = r.URL.Query()
		fields = url.Values(r.MultipartForm.Value)
		auth = r.Header.Get("Authorization")
		mu.Unlock()
		jsonHandler(http.StatusCreated, `{"id":7,"type":"INCOME","amount":100,"category":"Salary","date":"2025-01-01"}`)(w, r)
	})
	env := newTestEnv(t, b, 1000)

	rec := env.serve(postMultipart(t, incomePath, map[string]string{
		"amount": "100", "category": "Salary", "note": "", "date": "2025-01-01",
	}, env.signIn(t)))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Income added successfully!")
	assert.Contains(t, body, `inputmode="decimal" value=""`)
	assert.Contains(t, body, `name="category" value=""`)
	assert.Contains(t, body, `name="note" value=""`)
	assert.Contains(t, body, `name="date" value="`+core.Today()+`"`, "date resets to today")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, "INCOME", query.Get("type"))
	assert.Equal(t, "Salary", query.Get("category"))
	assert.Equal(t, "2025-01-01", query.Get("date"))
	assert.True(t, decimal.RequireFromString(query.Get("amount")).Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "Salary", fields.Get("category"))
	assert.True(t, decimal.RequireFromString(fields.Get("amount")).Equal(decimal.NewFromInt(100)))
}

func TestAddExpenseValidationSkipsBackend(t *testing.T) {
	env := newTestEnv(t, newBackendStub(t), 1000)

	rec := env.serve(postMultipart(t, expensePath, map[string]string{
		"amount": "abc", "category": "Food", "date": "2025-01-01",
	}, env.signIn(t)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter a valid expense amount.")
	assert.Contains(t, rec.Body.String(), `name="category" value="Food"`)
	assert.Zero(t, env.backend.count("POST /api/transactions"))
}

func TestAddExpenseBackendError(t *testing.T) {
	b := newBackendStub(t)
	b.handle("POST /api/transactions", jsonHandler(http.StatusBadRequest, `{"message":"Amount exceeds limit"}`))
	env := newTestEnv(t, b, 1000)

	rec := env.serve(postMultipart(t, expensePath, map[string]string{
		"amount": "99999", "category": "Rent", "date": "2025-01-01",
	}, env.signIn(t)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Amount exceeds limit")
	assert.Contains(t, rec.Body.String(), `name="category" value="Rent"`)
}

func TestAddTransactionRejectsConcurrentSubmission(t *testing.T) {
	env := newTestEnv(t, newBackendStub(t), 1000)
	cookie := env.signIn(t)

	release, ok := env.server.inflight.begin("sess-1:income")
	require.True(t, ok)
	defer release()

	rec := env.serve(postMultipart(t, incomePath, map[string]string{
		"amount": "10", "category": "Gift", "date": "2025-01-01",
	}, cookie))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "A submission is already in progress.")
	assert.Zero(t, env.backend.count("POST /api/transactions"))
}

func TestHistorySortsNewestFirst(t *testing.T) {
	b := newBackendStub(t)
	b.handle("GET /api/transactions", jsonHandler(http.StatusOK, `[
		{"id":1,"type":"INCOME","amount":10,"category":"Salary","date":"2025-01-01"},
		{"id":3,"type":"EXPENSE","amount":5,"category":"Food","date":"2025-01-03"},
		{"id":2,"type":"EXPENSE","amount":7,"category":"Rent","date":"2025-01-02"}
	]`))
	env := newTestEnv(t, b, 1000)

	rec := env.serve(get(historyPath, env.signIn(t)))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	i3 := strings.Index(body, `data-id="3"`)
	i2 := strings.Index(body, `data-id="2"`)
	i1 := strings.Index(body, `data-id="1"`)
	require.NotEqual(t, -1, i1)
	assert.Less(t, i3, i2)
	assert.Less(t, i2, i1)
}

func TestHistoryCardsAvatarAndImage(t *testing.T) {
	b := newBackendStub(t)
	b.handle("GET /api/transactions", jsonHandler(http.StatusOK, `[
		{"id":1,"type":"INCOME","amount":10,"category":"Salary","date":"2025-01-01"},
		{"id":2,"type":"EXPENSE","amount":5,"category":"Food","date":"2025-01-02","imageUrl":"/uploads/r.png"}
	]`))
	env := newTestEnv(t, b, 1000)

	rec := env.serve(get(historyPath, env.signIn(t)))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<div class="txn-avatar" aria-hidden="true">I</div>`)
	assert.NotContains(t, body, `aria-hidden="true">E</div>`)
	assert.Contains(t, body, `src="`+b.srv.URL+`/uploads/r.png"`)
	assert.Contains(t, body, `<p class="txn-note">-</p>`)
}

func TestHistoryFailure(t *testing.T) {
	b := newBackendStub(t)
	b.handle("GET /api/transactions", jsonHandler(http.StatusInternalServerError, `{"message":"db down"}`))
	env := newTestEnv(t, b, 1000)

	rec := env.serve(get(historyPath, env.signIn(t)))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to fetch transactions.")
	assert.NotContains(t, rec.Body.String(), "No transactions yet.")
}

func TestNavToggle(t *testing.T) {
	env := newTestEnv(t, newBackendStub(t), 1000)
	cookie := env.signIn(t)

	rec := env.serve(postForm("/dashboard/nav", url.Values{"return": {aboutPath}}, cookie))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, aboutPath, rec.Header().Get("Location"))
	nav := findCookie(rec, navCookie)
	require.NotNil(t, nav)
	assert.Equal(t, "collapsed", nav.Value)

	page := env.serve(get(aboutPath, cookie, nav))
	assert.Contains(t, page.Body.String(), "shell-collapsed")

	rec = env.serve(postForm("/dashboard/nav", url.Values{"return": {"//evil.example"}}, cookie, nav))
	assert.Equal(t, homePath, rec.Header().Get("Location"))
	assert.Equal(t, "expanded", findCookie(rec, navCookie).Value)
}

func TestPostsAreRateLimited(t *testing.T) {
	env := newTestEnv(t, newBackendStub(t), 1)

	first := env.serve(postForm("/", url.Values{"email": {"bad"}}))
	assert.Equal(t, http.StatusUnprocessableEntity, first.Code)

	second := env.serve(postForm("/", url.Values{"email": {"bad"}}))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	// Page views are not limited.
	assert.Equal(t, http.StatusOK, env.serve(get("/")).Code)
}

func TestHealthReadyAndMetrics(t *testing.T) {
	env := newTestEnv(t, newBackendStub(t), 1000)
	env.signIn(t)

	rec := env.serve(get("/healthz"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = env.serve(get("/readyz"))
	assert.Equal(t, http.StatusOK, rec.Code)
	var ready map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	assert.Equal(t, "ready", ready["status"])

	rec = env.serve(get("/metrics"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sessions_active 1\n")
	assert.Contains(t, rec.Body.String(), "http_requests_total 2\n")
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t, newBackendStub(t), 1000)

	rec := env.serve(get("/static/app.css"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
}

func TestProfileFetchedOncePerSession(t *testing.T) {
	b := newBackendStub(t)
	env := newTestEnv(t, b, 1000)
	cookie := env.signIn(t)

	for _, path := range []string{homePath, aboutPath, historyPath} {
		rec := env.serve(get(path, cookie))
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), `class="profile-name">Asha<`, path)
	}
	assert.Equal(t, 1, b.count("GET /api/users/me"))

	env.serve(postForm("/logout", nil, cookie))
	assert.Zero(t, env.server.profiles.Size())
}
