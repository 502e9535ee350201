package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/authgate/authgate"
	"github.com/authgate/authgate/rules"
	"github.com/authgate/authgate/token"
	"github.com/authgate/authgate/userstore"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestEngine(t *testing.T, ruleset []rules.Rule) *authgate.Engine {
	t.Helper()

	cfg := authgate.Config{}
	cfg = withDefaults(cfg)
	cfg.Token.Secret = testSecret
	cfg.Security.EnableLoginThrottle = false

	engine, err := authgate.New().
		WithConfig(cfg).
		WithRules(ruleset).
		WithUserStore(userstore.NewMemoryStore()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

// withDefaults fills the fields Validate requires without dragging a full
// production configuration into every test.
func withDefaults(cfg authgate.Config) authgate.Config {
	cfg.Token.TTL = time.Hour
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.SaltLength = 16
	cfg.Password.KeyLength = 32
	cfg.Security.UserStoreTimeout = time.Second
	return cfg
}

func bookRules() []rules.Rule {
	return []rules.Rule{
		{Method: "GET", Pattern: "/v1/books"},
		{Method: "POST", Pattern: "/v1/books", Roles: []string{"USER", "ADMIN"}},
		{Method: "DELETE", Pattern: "/v1/books/**", Roles: []string{"ADMIN"}},
	}
}

func protectedHandler(t *testing.T, engine *authgate.Engine) http.Handler {
	t.Helper()

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := CurrentIdentity(r.Context()); ok {
			w.Header().Set("X-Subject", id.Subject)
		}
		w.WriteHeader(http.StatusOK)
	})
	return Chain(inner, Resolve(engine), Protect(engine))
}

func doRequest(handler http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeRejection(t *testing.T, rec *httptest.ResponseRecorder) rejection {
	t.Helper()

	var body rejection
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("rejection body is not JSON: %v", err)
	}
	return body
}

func TestPublicRouteAllowsAnonymous(t *testing.T) {
	engine := newTestEngine(t, bookRules())
	handler := protectedHandler(t, engine)

	rec := doRequest(handler, "GET", "/v1/books", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestPublicRouteIgnoresBadToken(t *testing.T) {
	engine := newTestEngine(t, bookRules())
	handler := protectedHandler(t, engine)

	tok, err := engine.IssueToken("u-1", []string{"USER"})
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	i := len(tok) - 5
	c := byte('A')
	if tok[i] == 'A' {
		c = 'B'
	}
	tampered := tok[:i] + string(c) + tok[i+1:]

	// A bad credential on a public route degrades to anonymous; it never
	// turns an otherwise allowed request into an error.
	for name, bad := range map[string]string{
		"malformed": "not-a-token",
		"tampered":  tampered,
	} {
		t.Run(name, func(t *testing.T) {
			rec := doRequest(handler, "GET", "/v1/books", bad)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if got := rec.Header().Get("X-Subject"); got != "" {
				t.Fatalf("handler saw subject %q for an invalid token", got)
			}
		})
	}
}

func TestProtectedRouteWithoutToken(t *testing.T) {
	engine := newTestEngine(t, bookRules())
	handler := protectedHandler(t, engine)

	rec := doRequest(handler, "POST", "/v1/books", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Fatal("missing WWW-Authenticate header")
	}

	body := decodeRejection(t, rec)
	if body.Status != 401 || body.Error != "unauthenticated" {
		t.Fatalf("body = %+v", body)
	}
	if body.Path != "/v1/books" || body.Timestamp == "" {
		t.Fatalf("body = %+v", body)
	}
}

func TestProtectedRouteWithSufficientRole(t *testing.T) {
	engine := newTestEngine(t, bookRules())
	handler := protectedHandler(t, engine)

	tok, err := engine.IssueToken("u-1", []string{"USER"})
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	rec := doRequest(handler, "POST", "/v1/books", tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Subject"); got != "u-1" {
		t.Fatalf("handler saw subject %q, want u-1", got)
	}
}

func TestProtectedRouteWithInsufficientRole(t *testing.T) {
	engine := newTestEngine(t, bookRules())
	handler := protectedHandler(t, engine)

	tok, err := engine.IssueToken("u-1", []string{"USER"})
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	rec := doRequest(handler, "DELETE", "/v1/books/42", tok)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	body := decodeRejection(t, rec)
	if body.Error != "forbidden" {
		t.Fatalf("body = %+v", body)
	}
}

func TestExpiredTokenIsUnauthenticated(t *testing.T) {
	engine := newTestEngine(t, bookRules())
	handler := protectedHandler(t, engine)

	// Mint an already-expired token under the same secret.
	past := time.Now().Add(-2 * time.Hour)
	mgr, err := token.NewManager(token.Config{
		TTL:    time.Hour,
		Secret: testSecret,
		Clock:  func() time.Time { return past },
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	expired, err := mgr.Issue("u-1", []string{"ADMIN"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	rec := doRequest(handler, "POST", "/v1/books", expired)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestTamperedTokenIsUnauthenticated(t *testing.T) {
	engine := newTestEngine(t, bookRules())
	handler := protectedHandler(t, engine)

	tok, err := engine.IssueToken("u-1", []string{"ADMIN"})
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	// Rewrite one character in the middle of the signature segment.
	i := len(tok) - 5
	c := byte('A')
	if tok[i] == 'A' {
		c = 'B'
	}
	tampered := tok[:i] + string(c) + tok[i+1:]

	rec := doRequest(handler, "POST", "/v1/books", tampered)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMalformedAuthorizationHeader(t *testing.T) {
	engine := newTestEngine(t, bookRules())
	handler := protectedHandler(t, engine)

	req := httptest.NewRequest("POST", "/v1/books", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestUnmatchedRouteDefaultDeny(t *testing.T) {
	engine := newTestEngine(t, bookRules())
	handler := protectedHandler(t, engine)

	rec := doRequest(handler, "GET", "/v1/unmapped", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous unmatched status = %d, want 401", rec.Code)
	}

	tok, err := engine.IssueToken("u-1", []string{"USER"})
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	rec = doRequest(handler, "GET", "/v1/unmapped", tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("authenticated unmatched status = %d, want 200", rec.Code)
	}
}

func TestUnmatchedRoutePublicPolicy(t *testing.T) {
	cfg := withDefaults(authgate.Config{})
	cfg.Token.Secret = testSecret
	cfg.Security.EnableLoginThrottle = false
	cfg.Authorization.DefaultPolicy = authgate.PolicyPublic

	engine, err := authgate.New().
		WithConfig(cfg).
		WithRules(bookRules()).
		WithUserStore(userstore.NewMemoryStore()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	handler := protectedHandler(t, engine)
	rec := doRequest(handler, "GET", "/v1/unmapped", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	// Declared protection still applies under the public default.
	rec = doRequest(handler, "POST", "/v1/books", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCurrentIdentityWithoutResolve(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if _, ok := CurrentIdentity(req.Context()); ok {
		t.Fatal("identity reported for a request that never passed Resolve")
	}
}

func TestClientIPExtraction(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.1.2.3:55555"
	if got := clientIP(req); got != "10.1.2.3" {
		t.Fatalf("clientIP = %q, want 10.1.2.3", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("clientIP = %q, want first forwarded hop", got)
	}
}

func TestProtectWithoutResolveTreatsRequestAnonymous(t *testing.T) {
	engine := newTestEngine(t, bookRules())

	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := Protect(engine)(inner)

	tok, err := engine.IssueToken("u-1", []string{"USER"})
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	// Even with a valid token, Protect alone never resolves it.
	rec := doRequest(handler, "POST", "/v1/books", tok)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unauthenticated") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
