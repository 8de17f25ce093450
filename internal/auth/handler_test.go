package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/keystone-id/keystone/internal/identity"
	"github.com/keystone-id/keystone/internal/shared"
	"github.com/keystone-id/keystone/internal/token"
	"github.com/keystone-id/keystone/internal/users"
)

type fakeUserStore struct {
	accounts  map[string]users.User
	passwords map[string]string
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{accounts: map[string]users.User{}, passwords: map[string]string{}}
}

func (f *fakeUserStore) add(username, password string, active bool) users.User {
	user := users.User{
		ID:       uuid.New(),
		Username: username,
		Email:    username + "@example.com",
		IsActive: active,
	}
	f.accounts[username] = user
	f.passwords[username] = password
	return user
}

func (f *fakeUserStore) Authenticate(_ context.Context, username, password string) (users.User, error) {
	user, ok := f.accounts[username]
	if !ok || f.passwords[username] != password {
		return users.User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}

func (f *fakeUserStore) Create(_ context.Context, input users.CreateInput) (users.User, error) {
	if _, ok := f.accounts[input.Username]; ok {
		return users.User{}, shared.ErrDuplicate
	}
	user := users.User{
		ID:       uuid.New(),
		Username: input.Username,
		Email:    input.Email,
		IsActive: input.IsActive,
	}
	f.accounts[input.Username] = user
	f.passwords[input.Username] = input.Password
	return user, nil
}

type fakeDirectory struct {
	store *fakeUserStore
}

func (d fakeDirectory) Lookup(_ context.Context, userID uuid.UUID) (identity.Subject, error) {
	for _, user := range d.store.accounts {
		if user.ID == userID {
			return identity.Subject{
				ID:       user.ID,
				Username: user.Username,
				Active:   user.IsActive,
			}, nil
		}
	}
	return identity.Subject{}, shared.ErrNotFound
}

func newTestRouter(t *testing.T) (http.Handler, *fakeUserStore, *token.Codec) {
	t.Helper()

	codec, err := token.NewCodec([]byte("handler-test-secret"), "HS256")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	issuer := token.NewIssuer(codec, 30*time.Minute, 168*time.Hour)

	store := newFakeUserStore()
	resolver := identity.NewResolver(codec, fakeDirectory{store: store})
	service := NewService(store, issuer, resolver, nil)
	handler := NewHandler(slog.Default(), service)

	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return r, store, codec
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeTokens(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestLoginWithForm(t *testing.T) {
	router, store, codec := newTestRouter(t)
	account := store.add("alice", "hunter22", true)

	form := url.Values{"username": {"alice"}, "password": {"hunter22"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}

	body := decodeTokens(t, rec)
	if body["token_type"] != "bearer" {
		t.Errorf("token_type = %q", body["token_type"])
	}

	claims, err := codec.Decode(body["access_token"])
	if err != nil {
		t.Fatalf("decode access token: %v", err)
	}
	if claims.Type != token.TypeAccess {
		t.Errorf("access claims type = %q", claims.Type)
	}
	if claims.Subject != account.ID.String() {
		t.Errorf("subject = %q, want %q", claims.Subject, account.ID)
	}
	remaining := time.Until(claims.ExpiresAt)
	if remaining < 29*time.Minute || remaining > 31*time.Minute {
		t.Errorf("access expiry %v from now", remaining)
	}

	refresh, err := codec.Decode(body["refresh_token"])
	if err != nil {
		t.Fatalf("decode refresh token: %v", err)
	}
	if refresh.Type != token.TypeRefresh {
		t.Errorf("refresh claims type = %q", refresh.Type)
	}
}

func TestLoginWithJSON(t *testing.T) {
	router, store, _ := newTestRouter(t)
	store.add("alice", "hunter22", true)

	rec := postJSON(t, router, "/auth/login", map[string]string{"username": "alice", "password": "hunter22"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestLoginBadCredentials(t *testing.T) {
	router, store, _ := newTestRouter(t)
	store.add("alice", "hunter22", true)

	rec := postJSON(t, router, "/auth/login", map[string]string{"username": "alice", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Errorf("WWW-Authenticate = %q", got)
	}

	rec = postJSON(t, router, "/auth/login", map[string]string{"username": "nobody", "password": "hunter22"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user status = %d", rec.Code)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	router, store, _ := newTestRouter(t)
	store.add("alice", "hunter22", false)

	rec := postJSON(t, router, "/auth/login", map[string]string{"username": "alice", "password": "hunter22"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestLoginMissingFields(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := postJSON(t, router, "/auth/login", map[string]string{"username": "alice"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRefresh(t *testing.T) {
	router, store, codec := newTestRouter(t)
	account := store.add("alice", "hunter22", true)

	login := postJSON(t, router, "/auth/login", map[string]string{"username": "alice", "password": "hunter22"})
	tokens := decodeTokens(t, login)

	rec := postJSON(t, router, "/auth/refresh", map[string]string{"refresh_token": tokens["refresh_token"]})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	fresh := decodeTokens(t, rec)
	claims, err := codec.Decode(fresh["access_token"])
	if err != nil {
		t.Fatalf("decode refreshed access token: %v", err)
	}
	if claims.Subject != account.ID.String() {
		t.Errorf("subject = %q", claims.Subject)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	router, store, _ := newTestRouter(t)
	store.add("alice", "hunter22", true)

	login := postJSON(t, router, "/auth/login", map[string]string{"username": "alice", "password": "hunter22"})
	tokens := decodeTokens(t, login)

	rec := postJSON(t, router, "/auth/refresh", map[string]string{"refresh_token": tokens["access_token"]})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if got := rec.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Errorf("WWW-Authenticate = %q", got)
	}
}

func TestRefreshGarbageToken(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := postJSON(t, router, "/auth/refresh", map[string]string{"refresh_token": "garbage"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRegister(t *testing.T) {
	router, store, _ := newTestRouter(t)

	rec := postJSON(t, router, "/auth/register", map[string]string{
		"username":         "newbie",
		"email":            "newbie@example.com",
		"password":         "longenough",
		"password_confirm": "longenough",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if _, ok := store.accounts["newbie"]; !ok {
		t.Fatal("account not created")
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("response leaks password fields")
	}
}

func TestRegisterConfirmMismatch(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := postJSON(t, router, "/auth/register", map[string]string{
		"username":         "newbie",
		"email":            "newbie@example.com",
		"password":         "longenough",
		"password_confirm": "different1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	router, store, _ := newTestRouter(t)
	store.add("taken", "whatever1", true)

	rec := postJSON(t, router, "/auth/register", map[string]string{
		"username":         "taken",
		"email":            "taken@example.com",
		"password":         "longenough",
		"password_confirm": "longenough",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
