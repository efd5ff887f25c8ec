package auth_test

import (
	"context"
	"encoding/json"
	"testing"

	auth "github.com/goliatone/go-portal-auth"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSigningKey = "unit-test-signing-key-0123456789abcdef"

// fastHasher keeps bcrypt work out of the way in flow tests
var fastHasher = auth.NewCredentialVerifier(bcrypt.MinCost)

func newTestTokens(t *testing.T, opts ...auth.TokenOption) *auth.TokenServiceImpl {
	t.Helper()
	opts = append([]auth.TokenOption{auth.WithTokenLogger(auth.NopLogger())}, opts...)
	ts, err := auth.NewTokenService([]byte(testSigningKey), opts...)
	require.NoError(t, err)
	return ts
}

func mustHash(t *testing.T, secret string) string {
	t.Helper()
	h, err := fastHasher.Hash(secret)
	require.NoError(t, err)
	return h
}

// MockUserStore implements auth.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByIdentifier(ctx context.Context, identifier string) (*auth.User, error) {
	args := m.Called(ctx, identifier)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUserStore) GetByID(ctx context.Context, id string) (*auth.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUserStore) Create(ctx context.Context, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, user)
	created, _ := args.Get(0).(*auth.User)
	return created, args.Error(1)
}

func (m *MockUserStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

// MockAuthenticator implements auth.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, identifier, password string) (string, error) {
	args := m.Called(ctx, identifier, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthenticator) Register(ctx context.Context, req auth.RegisterRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockAuthenticator) ChangePassword(ctx context.Context, userID, current, next string) (string, error) {
	args := m.Called(ctx, userID, current, next)
	return args.String(0), args.Error(1)
}

func (m *MockAuthenticator) TokenService() auth.TokenService {
	args := m.Called()
	ts, _ := args.Get(0).(auth.TokenService)
	return ts
}

// routerContext lets fakeContext embed router.Context and still
// define its own Context method.
type routerContext = router.Context

// fakeContext implements the router.Context methods exercised by the
// package. Anything else panics through the nil embedded interface.
type fakeContext struct {
	routerContext

	ctx         context.Context
	path        string
	originalURL string
	body        []byte
	cookies     map[string]string
	locals      map[any]any

	setCookies []*router.Cookie
	status     int
	jsonBody   any
}

func newFakeContext(path string) *fakeContext {
	return &fakeContext{
		ctx:         context.Background(),
		path:        path,
		originalURL: path,
		cookies:     map[string]string{},
		locals:      map[any]any{},
	}
}

func (f *fakeContext) withJSON(t *testing.T, v any) *fakeContext {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	f.body = b
	return f
}

func (f *fakeContext) Context() context.Context       { return f.ctx }
func (f *fakeContext) SetContext(ctx context.Context) { f.ctx = ctx }
func (f *fakeContext) Path() string                   { return f.path }
func (f *fakeContext) OriginalURL() string            { return f.originalURL }
func (f *fakeContext) Bind(v any) error               { return json.Unmarshal(f.body, v) }
func (f *fakeContext) Cookie(cookie *router.Cookie)   { f.setCookies = append(f.setCookies, cookie) }

func (f *fakeContext) Cookies(key string, defaultValue ...string) string {
	if v, ok := f.cookies[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (f *fakeContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		f.locals[key] = value[0]
		return value[0]
	}
	return f.locals[key]
}

func (f *fakeContext) JSON(code int, val any) error {
	f.status = code
	f.jsonBody = val
	return nil
}

func (f *fakeContext) NoContent(code int) error {
	f.status = code
	return nil
}

func (f *fakeContext) cookie(name string) *router.Cookie {
	for i := len(f.setCookies) - 1; i >= 0; i-- {
		if f.setCookies[i].Name == name {
			return f.setCookies[i]
		}
	}
	return nil
}
