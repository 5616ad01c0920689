package scan

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openpass/event-checkin/internal/model"
	"github.com/openpass/event-checkin/internal/repository"
)

// memLedger is an in-memory Ledger whose MarkScannedByToken performs
// the check and the write under one lock, mirroring the atomicity of
// the real conditional UPDATE.
type memLedger struct {
	mu      sync.Mutex
	tickets map[string]*model.Ticket
}

func newMemLedger(tickets ...*model.Ticket) *memLedger {
	m := &memLedger{tickets: make(map[string]*model.Ticket)}
	for _, t := range tickets {
		m.tickets[t.Token] = t
	}
	return m
}

func (m *memLedger) FindByToken(_ context.Context, token string) (*model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[token]
	if !ok {
		return nil, repository.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memLedger) MarkScannedByToken(_ context.Context, token string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[token]
	if !ok || t.Status != model.StatusUnused {
		return false, nil
	}
	t.Status = model.StatusScanned
	ts := now
	t.ScannedAt = &ts
	return true, nil
}

func unusedTicket(token string) *model.Ticket {
	return &model.Ticket{
		ID:        1,
		EventID:   42,
		UserEmail: "ada@example.com",
		UserName:  "Ada Lovelace",
		Token:     token,
		Status:    model.StatusUnused,
	}
}

func TestScanAdmitsUnusedTicket(t *testing.T) {
	ledger := newMemLedger(unusedTicket("tok-1"))
	svc := NewService(ledger)

	v, err := svc.Scan(context.Background(), "tok-1")
	require.NoError(t, err)

	assert.True(t, v.Valid)
	assert.Nil(t, v.Reason)
	require.NotNil(t, v.UserEmail)
	assert.Equal(t, "ada@example.com", *v.UserEmail)
	require.NotNil(t, v.UserName)
	assert.Equal(t, "Ada Lovelace", *v.UserName)
	require.NotNil(t, v.EventID)
	assert.Equal(t, uint64(42), *v.EventID)
	require.NotNil(t, v.Status)
	assert.Equal(t, model.StatusScanned, *v.Status)

	stored := ledger.tickets["tok-1"]
	assert.Equal(t, model.StatusScanned, stored.Status)
	assert.NotNil(t, stored.ScannedAt)
}

func TestScanUnknownToken(t *testing.T) {
	svc := NewService(newMemLedger())

	v, err := svc.Scan(context.Background(), "no-such-token")
	require.NoError(t, err)

	assert.False(t, v.Valid)
	require.NotNil(t, v.Reason)
	assert.Equal(t, ReasonTicketNotFound, *v.Reason)
	assert.Nil(t, v.UserEmail)
	assert.Nil(t, v.UserName)
	assert.Nil(t, v.EventID)
	assert.Nil(t, v.Status)
}

func TestScanAfterEventDeletionRemovedTicket(t *testing.T) {
	ledger := newMemLedger(unusedTicket("tok-1"))
	svc := NewService(ledger)

	// The ticket disappears underneath the gateway, as when its event
	// is deleted and the cascade removes its tickets.
	ledger.mu.Lock()
	delete(ledger.tickets, "tok-1")
	ledger.mu.Unlock()

	v, err := svc.Scan(context.Background(), "tok-1")
	require.NoError(t, err)

	assert.False(t, v.Valid)
	require.NotNil(t, v.Reason)
	assert.Equal(t, ReasonTicketNotFound, *v.Reason)
	assert.Nil(t, v.UserEmail)
	assert.Nil(t, v.UserName)
	assert.Nil(t, v.EventID)
	assert.Nil(t, v.Status)
}

func TestScanTwiceIsIdempotent(t *testing.T) {
	ledger := newMemLedger(unusedTicket("tok-1"))
	svc := NewService(ledger)
	ctx := context.Background()

	first, err := svc.Scan(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, first.Valid)
	firstScannedAt := *ledger.tickets["tok-1"].ScannedAt

	second, err := svc.Scan(ctx, "tok-1")
	require.NoError(t, err)

	assert.False(t, second.Valid)
	require.NotNil(t, second.Reason)
	assert.Equal(t, ReasonAlreadyScanned, *second.Reason)
	require.NotNil(t, second.UserEmail)
	assert.Equal(t, "ada@example.com", *second.UserEmail)
	require.NotNil(t, second.Status)
	assert.Equal(t, model.StatusScanned, *second.Status)

	// The original admission time survives repeat scans.
	assert.Equal(t, firstScannedAt, *ledger.tickets["tok-1"].ScannedAt)
}

func TestScanCanceledTicket(t *testing.T) {
	ticket := unusedTicket("tok-1")
	ticket.Status = model.StatusCanceled
	ledger := newMemLedger(ticket)
	svc := NewService(ledger)

	v, err := svc.Scan(context.Background(), "tok-1")
	require.NoError(t, err)

	assert.False(t, v.Valid)
	require.NotNil(t, v.Reason)
	assert.Equal(t, ReasonInvalidStatus, *v.Reason)
	require.NotNil(t, v.Status)
	assert.Equal(t, model.StatusCanceled, *v.Status)
	assert.Nil(t, ledger.tickets["tok-1"].ScannedAt)
}

func TestConcurrentScansAdmitExactlyOnce(t *testing.T) {
	const workers = 64

	ledger := newMemLedger(unusedTicket("tok-1"))
	svc := NewService(ledger)

	var (
		wg       sync.WaitGroup
		verdicts = make([]Verdict, workers)
		errs     = make([]error, workers)
		start    = make(chan struct{})
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			verdicts[i], errs[i] = svc.Scan(context.Background(), "tok-1")
		}(i)
	}
	close(start)
	wg.Wait()

	admitted := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		if verdicts[i].Valid {
			admitted++
			continue
		}
		require.NotNil(t, verdicts[i].Reason)
		assert.Equal(t, ReasonAlreadyScanned, *verdicts[i].Reason)
	}
	assert.Equal(t, 1, admitted, "exactly one concurrent scan must admit")
}
