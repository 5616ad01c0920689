package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openpass/event-checkin/internal/model"
	"github.com/openpass/event-checkin/internal/queue"
	"github.com/openpass/event-checkin/internal/repository"
)

type mockEventStore struct{ mock.Mock }

func (m *mockEventStore) Create(ctx context.Context, e *model.Event, creatorID uint64) error {
	return m.Called(ctx, e, creatorID).Error(0)
}

func (m *mockEventStore) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	args := m.Called(ctx, id)
	if e, ok := args.Get(0).(*model.Event); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockEventStore) List(ctx context.Context) ([]*model.Event, error) {
	args := m.Called(ctx)
	if es, ok := args.Get(0).([]*model.Event); ok {
		return es, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockEventStore) DeleteByID(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}

type mockTicketLedger struct{ mock.Mock }

func (m *mockTicketLedger) Issue(ctx context.Context, eventID uint64, att repository.Attendee) (*model.Ticket, error) {
	args := m.Called(ctx, eventID, att)
	if t, ok := args.Get(0).(*model.Ticket); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTicketLedger) IssueBulk(ctx context.Context, eventID uint64, attendees []repository.Attendee) ([]model.Ticket, error) {
	args := m.Called(ctx, eventID, attendees)
	if ts, ok := args.Get(0).([]model.Ticket); ok {
		return ts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTicketLedger) ListByEvent(ctx context.Context, eventID uint64) ([]model.Ticket, error) {
	args := m.Called(ctx, eventID)
	if ts, ok := args.Get(0).([]model.Ticket); ok {
		return ts, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAuthorizer struct{ mock.Mock }

func (m *mockAuthorizer) CanManage(ctx context.Context, eventID, userID uint64) (bool, error) {
	args := m.Called(ctx, eventID, userID)
	return args.Bool(0), args.Error(1)
}

func testEvent() *model.Event {
	return &model.Event{
		ID:       5,
		Name:     "GopherCon",
		Date:     time.Date(2026, 9, 12, 18, 0, 0, 0, time.UTC),
		Location: "Berlin",
	}
}

// ticketCtx builds an authenticated request context with the :id path
// parameter set.
func ticketCtx(t *testing.T, method, body string) (echo.Context, *httptest.ResponseRecorder) {
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

func TestIssueOneCreatesTicket(t *testing.T) {
	events := new(mockEventStore)
	tickets := new(mockTicketLedger)
	admins := new(mockAuthorizer)
	h := NewTicketHandler(events, tickets, admins)

	events.On("GetByID", mock.Anything, uint64(5)).Return(testEvent(), nil)
	admins.On("CanManage", mock.Anything, uint64(5), uint64(9)).Return(true, nil)
	tickets.On("Issue", mock.Anything, uint64(5),
		repository.Attendee{UserEmail: "ada@example.com", UserName: "Ada"}).
		Return(&model.Ticket{
			ID: 1, EventID: 5,
			UserEmail: "ada@example.com", UserName: "Ada",
			Token: "tok-1", Status: model.StatusUnused,
		}, nil)

	c, rec := ticketCtx(t, http.MethodPost, `{"user_email":"Ada@Example.com","user_name":" Ada "}`)
	require.NoError(t, h.IssueOne(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var got ticketResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "tok-1", got.Token)
	assert.Equal(t, model.StatusUnused, got.Status)
	tickets.AssertExpectations(t)
}

func TestIssueOneUnknownEvent(t *testing.T) {
	events := new(mockEventStore)
	h := NewTicketHandler(events, new(mockTicketLedger), new(mockAuthorizer))

	events.On("GetByID", mock.Anything, uint64(5)).Return(nil, repository.ErrEventNotFound)

	c, rec := ticketCtx(t, http.MethodPost, `{"user_email":"ada@example.com","user_name":"Ada"}`)
	require.NoError(t, h.IssueOne(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIssueOneForbidden(t *testing.T) {
	events := new(mockEventStore)
	admins := new(mockAuthorizer)
	h := NewTicketHandler(events, new(mockTicketLedger), admins)

	events.On("GetByID", mock.Anything, uint64(5)).Return(testEvent(), nil)
	admins.On("CanManage", mock.Anything, uint64(5), uint64(9)).Return(false, nil)

	c, rec := ticketCtx(t, http.MethodPost, `{"user_email":"ada@example.com","user_name":"Ada"}`)
	require.NoError(t, h.IssueOne(c))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestIssueBulkRejectsPartialInput(t *testing.T) {
	events := new(mockEventStore)
	tickets := new(mockTicketLedger)
	admins := new(mockAuthorizer)
	h := NewTicketHandler(events, tickets, admins)

	events.On("GetByID", mock.Anything, uint64(5)).Return(testEvent(), nil)
	admins.On("CanManage", mock.Anything, uint64(5), uint64(9)).Return(true, nil)

	// One attendee lacks a name: the whole batch is rejected before
	// the ledger is touched.
	body := `{"attendees":[{"user_email":"a@example.com","user_name":"A"},{"user_email":"b@example.com"}]}`
	c, rec := ticketCtx(t, http.MethodPost, body)
	require.NoError(t, h.IssueBulk(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	tickets.AssertNotCalled(t, "IssueBulk", mock.Anything, mock.Anything, mock.Anything)
}

func TestIssueBulkPublishesPerTicket(t *testing.T) {
	events := new(mockEventStore)
	tickets := new(mockTicketLedger)
	admins := new(mockAuthorizer)
	h := NewTicketHandler(events, tickets, admins)

	issued := []model.Ticket{
		{ID: 1, EventID: 5, UserEmail: "a@example.com", UserName: "A", Token: "tok-1", Status: model.StatusUnused},
		{ID: 2, EventID: 5, UserEmail: "b@example.com", UserName: "B", Token: "tok-2", Status: model.StatusUnused},
	}
	events.On("GetByID", mock.Anything, uint64(5)).Return(testEvent(), nil)
	admins.On("CanManage", mock.Anything, uint64(5), uint64(9)).Return(true, nil)
	tickets.On("IssueBulk", mock.Anything, uint64(5), mock.Anything).Return(issued, nil)

	var (
		mu        sync.Mutex
		published []queue.TicketIssuedEvent
		done      = make(chan struct{})
	)
	h.Publish = func(_ context.Context, ev queue.TicketIssuedEvent) error {
		mu.Lock()
		published = append(published, ev)
		n := len(published)
		mu.Unlock()
		if n == len(issued) {
			close(done)
		}
		return nil
	}

	body := `{"attendees":[{"user_email":"a@example.com","user_name":"A"},{"user_email":"b@example.com","user_name":"B"}]}`
	c, rec := ticketCtx(t, http.MethodPost, body)
	require.NoError(t, h.IssueBulk(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var got []ticketResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish not called for every ticket")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "tok-1", published[0].Token)
	assert.Equal(t, "GopherCon", published[0].EventName)
	assert.Equal(t, "tok-2", published[1].Token)
}

func TestListTicketsEmptyEvent(t *testing.T) {
	events := new(mockEventStore)
	tickets := new(mockTicketLedger)
	admins := new(mockAuthorizer)
	h := NewTicketHandler(events, tickets, admins)

	events.On("GetByID", mock.Anything, uint64(5)).Return(testEvent(), nil)
	admins.On("CanManage", mock.Anything, uint64(5), uint64(9)).Return(true, nil)
	tickets.On("ListByEvent", mock.Anything, uint64(5)).Return([]model.Ticket{}, nil)

	c, rec := ticketCtx(t, http.MethodGet, "")
	require.NoError(t, h.List(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}
