package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openpass/event-checkin/internal/model"
	"github.com/openpass/event-checkin/internal/repository"
)

type mockAdminStore struct{ mock.Mock }

func (m *mockAdminStore) CanManage(ctx context.Context, eventID, userID uint64) (bool, error) {
	args := m.Called(ctx, eventID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockAdminStore) Add(ctx context.Context, eventID, userID uint64, role string) error {
	return m.Called(ctx, eventID, userID, role).Error(0)
}

func (m *mockAdminStore) ListByEvent(ctx context.Context, eventID uint64) ([]repository.AdminBinding, error) {
	args := m.Called(ctx, eventID)
	if bs, ok := args.Get(0).([]repository.AdminBinding); ok {
		return bs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAdminStore) Remove(ctx context.Context, eventID, userID uint64) error {
	return m.Called(ctx, eventID, userID).Error(0)
}

type mockUserLookup struct{ mock.Mock }

func (m *mockUserLookup) GetByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	if u, ok := args.Get(0).(model.User); ok {
		return u, args.Error(1)
	}
	return model.User{}, args.Error(1)
}

func adminCtx(t *testing.T, method, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("5")
	c.Set("user_id", uint64(9))
	return c, rec
}

func allowManage(events *mockEventStore, admins *mockAdminStore) {
	events.On("GetByID", mock.Anything, uint64(5)).Return(testEvent(), nil)
	admins.On("CanManage", mock.Anything, uint64(5), uint64(9)).Return(true, nil)
}

func TestAddAdminDefaultsToScannerOnly(t *testing.T) {
	events := new(mockEventStore)
	admins := new(mockAdminStore)
	users := new(mockUserLookup)
	h := NewAdminHandler(events, admins, users)

	allowManage(events, admins)
	users.On("GetByEmail", mock.Anything, "scanner@example.com").
		Return(model.User{ID: 12, Email: "scanner@example.com", Name: "Scanner"}, nil)
	admins.On("Add", mock.Anything, uint64(5), uint64(12), model.RoleScannerOnly).Return(nil)

	c, rec := adminCtx(t, http.MethodPost, `{"user_email":"scanner@example.com"}`)
	require.NoError(t, h.Add(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	admins.AssertExpectations(t)
}

func TestAddAdminRejectsUnknownRole(t *testing.T) {
	events := new(mockEventStore)
	admins := new(mockAdminStore)
	h := NewAdminHandler(events, admins, new(mockUserLookup))

	allowManage(events, admins)

	c, rec := adminCtx(t, http.MethodPost, `{"user_email":"x@example.com","role":"GODMODE"}`)
	require.NoError(t, h.Add(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	admins.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddAdminUnknownUser(t *testing.T) {
	events := new(mockEventStore)
	admins := new(mockAdminStore)
	users := new(mockUserLookup)
	h := NewAdminHandler(events, admins, users)

	allowManage(events, admins)
	users.On("GetByEmail", mock.Anything, "ghost@example.com").
		Return(model.User{}, repository.ErrUserNotFound)

	c, rec := adminCtx(t, http.MethodPost, `{"user_email":"ghost@example.com"}`)
	require.NoError(t, h.Add(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddAdminDuplicateBinding(t *testing.T) {
	events := new(mockEventStore)
	admins := new(mockAdminStore)
	users := new(mockUserLookup)
	h := NewAdminHandler(events, admins, users)

	allowManage(events, admins)
	users.On("GetByEmail", mock.Anything, "dup@example.com").
		Return(model.User{ID: 12, Email: "dup@example.com", Name: "Dup"}, nil)
	admins.On("Add", mock.Anything, uint64(5), uint64(12), model.RoleOwner).
		Return(repository.ErrConflict)

	c, rec := adminCtx(t, http.MethodPost, `{"user_email":"dup@example.com","role":"OWNER"}`)
	require.NoError(t, h.Add(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminRoutesForbiddenWithoutOwnership(t *testing.T) {
	events := new(mockEventStore)
	admins := new(mockAdminStore)
	h := NewAdminHandler(events, admins, new(mockUserLookup))

	events.On("GetByID", mock.Anything, uint64(5)).Return(testEvent(), nil)
	admins.On("CanManage", mock.Anything, uint64(5), uint64(9)).Return(false, nil)

	c, rec := adminCtx(t, http.MethodGet, "")
	require.NoError(t, h.List(c))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
