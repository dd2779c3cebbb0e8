package handler_test

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pizzeria/api/internal/auth"
	"github.com/pizzeria/api/internal/database"
	"github.com/pizzeria/api/internal/handler"
)

// --- Mock store ---

type mockProfileStore struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]database.Profile
	byEmail map[string]uuid.UUID
	clock   time.Time
}

func newMockProfileStore() *mockProfileStore {
	return &mockProfileStore{
		byID:    make(map[uuid.UUID]database.Profile),
		byEmail: make(map[string]uuid.UUID),
		clock:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *mockProfileStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *mockProfileStore) add(p database.Profile) database.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := m.tick()
	p.CreatedAt, p.UpdatedAt = now, now
	m.byID[p.ID] = p
	m.byEmail[strings.ToLower(p.Email)] = p.ID
	return p
}

func (m *mockProfileStore) CreateProfile(_ context.Context, arg database.CreateProfileParams) (database.Profile, error) {
	m.mu.Lock()
	_, taken := m.byEmail[strings.ToLower(arg.Email)]
	m.mu.Unlock()
	if taken {
		return database.Profile{}, &pgconn.PgError{Code: "23505"}
	}
	return m.add(database.Profile{
		Name: arg.Name, Email: strings.ToLower(arg.Email),
		HashedPassword: arg.HashedPassword, IsAdmin: arg.IsAdmin,
	}), nil
}

func (m *mockProfileStore) GetProfileByEmail(_ context.Context, email string) (database.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return database.Profile{}, pgx.ErrNoRows
	}
	return m.byID[id], nil
}

func (m *mockProfileStore) GetProfileByID(_ context.Context, id uuid.UUID) (database.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return database.Profile{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockProfileStore) UpdateProfilePassword(_ context.Context, arg database.UpdateProfilePasswordParams) (database.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[arg.ID]
	if !ok || !p.UpdatedAt.Equal(arg.UpdatedAt) {
		return database.Profile{}, pgx.ErrNoRows
	}
	p.HashedPassword = arg.HashedPassword
	p.UpdatedAt = m.tick()
	m.byID[p.ID] = p
	return p, nil
}

func (m *mockProfileStore) SetProfileAdmin(_ context.Context, arg database.SetProfileAdminParams) (database.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[arg.ID]
	if !ok {
		return database.Profile{}, pgx.ErrNoRows
	}
	p.IsAdmin = arg.IsAdmin
	m.byID[p.ID] = p
	return p, nil
}

// mockMailer records reset tokens by email.
type mockMailer struct {
	sent map[string]string
}

func (m *mockMailer) SendPasswordReset(_ context.Context, email, token string) error {
	m.sent[email] = token
	return nil
}

// --- Helpers ---

var testTokens = handler.TokenConfig{
	Secret:     testJWTSecret,
	AccessTTL:  15 * time.Minute,
	RefreshTTL: time.Hour,
	ResetTTL:   30 * time.Minute,
}

func setupAuthRouter(store *mockProfileStore) (*chi.Mux, *mockMailer) {
	m := &mockMailer{sent: map[string]string{}}
	h := handler.NewAuthHandler(store, testTokens, m)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, m
}

func addCustomer(t *testing.T, store *mockProfileStore, email, password string) database.Profile {
	t.Helper()
	hashed, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return store.add(database.Profile{Name: "Test Customer", Email: email, HashedPassword: hashed})
}

// --- Sign up ---

func TestSignUp_Valid(t *testing.T) {
	store := newMockProfileStore()
	r, _ := setupAuthRouter(store)

	rr := doRequest(t, r, "POST", "/auth/sign-up", map[string]string{
		"name":             "Ana",
		"email":            "  Ana@Example.com ",
		"password":         "secret1",
		"confirm_password": "secret1",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["access_token"] == nil || resp["access_token"] == "" {
		t.Error("expected non-empty access_token")
	}
	user := resp["user"].(map[string]interface{})
	if user["email"] != "ana@example.com" {
		t.Errorf("email: got %v, want lower-cased", user["email"])
	}
	if user["is_admin"] != false {
		t.Error("new profiles must not be admins")
	}
	if _, ok := user["hashed_password"]; ok {
		t.Error("response must not include hashed_password")
	}

	claims, err := auth.ValidateToken(testJWTSecret, resp["access_token"].(string))
	if err != nil {
		t.Fatalf("access token invalid: %v", err)
	}
	if claims.IsAdmin {
		t.Error("token must not carry admin flag")
	}
}

var (
	longPassword = strings.Repeat("a", 73)
	// 40 runes, 80 bytes
	widePassword = strings.Repeat("é", 40)
)

func TestSignUp_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    map[string]string
		wantMsg string
	}{
		{"missing name", map[string]string{"email": "a@b.co", "password": "secret1", "confirm_password": "secret1"}, "name is required"},
		{"invalid email", map[string]string{"name": "A", "email": "nope", "password": "secret1", "confirm_password": "secret1"}, "invalid email address"},
		{"short password", map[string]string{"name": "A", "email": "a@b.co", "password": "123", "confirm_password": "123"}, "password must be at least 6 characters"},
		{"mismatch", map[string]string{"name": "A", "email": "a@b.co", "password": "secret1", "confirm_password": "secret2"}, "passwords do not match"},
		{"long password", map[string]string{"name": "A", "email": "a@b.co", "password": longPassword, "confirm_password": longPassword}, "password must be at most 72 characters"},
		{"password over 72 bytes", map[string]string{"name": "A", "email": "a@b.co", "password": widePassword, "confirm_password": widePassword}, "password must be at most 72 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := setupAuthRouter(newMockProfileStore())
			rr := doRequest(t, r, "POST", "/auth/sign-up", tt.body)
			expectError(t, rr, http.StatusBadRequest, tt.wantMsg)
		})
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	store := newMockProfileStore()
	addCustomer(t, store, "ana@example.com", "secret1")
	r, _ := setupAuthRouter(store)

	rr := doRequest(t, r, "POST", "/auth/sign-up", map[string]string{
		"name": "Ana", "email": "ANA@example.com", "password": "secret1", "confirm_password": "secret1",
	})
	expectError(t, rr, http.StatusConflict, "email already registered")
}

func TestSignUp_InvalidBody(t *testing.T) {
	r, _ := setupAuthRouter(newMockProfileStore())
	rr := doRequest(t, r, "POST", "/auth/sign-up", "not an object")
	expectError(t, rr, http.StatusBadRequest, "invalid request body")
}

// --- Sign in ---

func TestSignIn_ValidCredentials(t *testing.T) {
	store := newMockProfileStore()
	p := addCustomer(t, store, "ana@example.com", "secret1")
	r, _ := setupAuthRouter(store)

	rr := doRequest(t, r, "POST", "/auth/sign-in", map[string]string{
		"email": "Ana@Example.com", "password": "secret1",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["refresh_token"] == nil || resp["refresh_token"] == "" {
		t.Error("expected non-empty refresh_token")
	}
	if resp["user"].(map[string]interface{})["id"] != p.ID.String() {
		t.Error("wrong user in response")
	}
}

func TestSignIn_Rejected(t *testing.T) {
	store := newMockProfileStore()
	addCustomer(t, store, "ana@example.com", "secret1")
	r, _ := setupAuthRouter(store)

	for _, body := range []map[string]string{
		{"email": "ana@example.com", "password": "wrong-password"},
		{"email": "nobody@example.com", "password": "secret1"},
	} {
		rr := doRequest(t, r, "POST", "/auth/sign-in", body)
		expectError(t, rr, http.StatusUnauthorized, "invalid credentials")
	}
}

// --- Refresh ---

func TestRefresh(t *testing.T) {
	store := newMockProfileStore()
	p := addCustomer(t, store, "ana@example.com", "secret1")
	r, _ := setupAuthRouter(store)

	refresh, err := auth.GenerateRefreshToken(testJWTSecret, p.ID, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	rr := doRequest(t, r, "POST", "/auth/refresh", map[string]string{"refresh_token": refresh})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}

	access, _ := auth.GenerateToken(testJWTSecret, p.ID, false, time.Hour)
	rr = doRequest(t, r, "POST", "/auth/refresh", map[string]string{"refresh_token": access})
	expectError(t, rr, http.StatusUnauthorized, "invalid refresh token")

	unknown, _ := auth.GenerateRefreshToken(testJWTSecret, uuid.New(), time.Hour)
	rr = doRequest(t, r, "POST", "/auth/refresh", map[string]string{"refresh_token": unknown})
	expectError(t, rr, http.StatusUnauthorized, "user not found")
}

// --- Password reset ---

func TestForgotPassword_UnknownEmail(t *testing.T) {
	r, m := setupAuthRouter(newMockProfileStore())

	rr := doRequest(t, r, "POST", "/auth/forgot-password", map[string]string{"email": "nobody@example.com"})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, want 202", rr.Code)
	}
	if len(m.sent) != 0 {
		t.Error("no mail should be sent for unknown accounts")
	}
}

func TestPasswordReset_FullFlow(t *testing.T) {
	store := newMockProfileStore()
	addCustomer(t, store, "ana@example.com", "secret1")
	r, m := setupAuthRouter(store)

	rr := doRequest(t, r, "POST", "/auth/forgot-password", map[string]string{"email": "ANA@example.com"})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("forgot: got %d", rr.Code)
	}
	token := m.sent["ana@example.com"]
	if token == "" {
		t.Fatal("expected reset token to be mailed")
	}

	reset := map[string]string{"token": token, "password": "newsecret", "confirm_password": "newsecret"}
	rr = doRequest(t, r, "POST", "/auth/reset-password", reset)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("reset: got %d; body: %s", rr.Code, rr.Body.String())
	}

	// Tokens work once
	rr = doRequest(t, r, "POST", "/auth/reset-password", reset)
	expectError(t, rr, http.StatusUnauthorized, "invalid or expired reset token")

	rr = doRequest(t, r, "POST", "/auth/sign-in", map[string]string{"email": "ana@example.com", "password": "newsecret"})
	if rr.Code != http.StatusOK {
		t.Errorf("sign-in with new password: got %d", rr.Code)
	}
}

func TestResetPassword_Rejected(t *testing.T) {
	store := newMockProfileStore()
	p := addCustomer(t, store, "ana@example.com", "secret1")
	r, _ := setupAuthRouter(store)

	access, _ := auth.GenerateToken(testJWTSecret, p.ID, false, time.Hour)
	rr := doRequest(t, r, "POST", "/auth/reset-password", map[string]string{
		"token": access, "password": "newsecret", "confirm_password": "newsecret",
	})
	expectError(t, rr, http.StatusUnauthorized, "invalid or expired reset token")

	stale, _ := auth.GenerateResetToken(testJWTSecret, p.ID, p.UpdatedAt.Add(-time.Hour).UnixMicro(), time.Hour)
	rr = doRequest(t, r, "POST", "/auth/reset-password", map[string]string{
		"token": stale, "password": "newsecret", "confirm_password": "newsecret",
	})
	expectError(t, rr, http.StatusUnauthorized, "invalid or expired reset token")

	rr = doRequest(t, r, "POST", "/auth/reset-password", map[string]string{
		"token": "x", "password": "newsecret", "confirm_password": "other",
	})
	expectError(t, rr, http.StatusBadRequest, "passwords do not match")

	rr = doRequest(t, r, "POST", "/auth/reset-password", map[string]string{
		"token": "x", "password": longPassword, "confirm_password": longPassword,
	})
	expectError(t, rr, http.StatusBadRequest, "password must be at most 72 characters")

	valid, _ := auth.GenerateResetToken(testJWTSecret, p.ID, p.UpdatedAt.UnixMicro(), time.Hour)
	rr = doRequest(t, r, "POST", "/auth/reset-password", map[string]string{
		"token": valid, "password": widePassword, "confirm_password": widePassword,
	})
	expectError(t, rr, http.StatusBadRequest, "password must be at most 72 bytes")
	if !auth.CheckPassword(store.byID[p.ID].HashedPassword, "secret1") {
		t.Error("password should be unchanged")
	}
}
