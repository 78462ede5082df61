package gratitude

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helpwall/backend/internal/models"
	"github.com/helpwall/backend/internal/notify"
)

// --- noopTx satisfies pgx.Tx for test use; only Commit/Rollback are called. ---

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

type mockPool struct{}

func (mockPool) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

// --- stores ---

type mockTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*models.Task
}

func (m *mockTaskStore) GetByID(_ context.Context, id uuid.UUID) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

// memCardStore enforces the one-card-per-task primary key under its own lock,
// matching the Postgres unique-violation behavior.
type memCardStore struct {
	mu    sync.Mutex
	cards map[uuid.UUID]*models.GratitudeCard
}

func newMemCardStore() *memCardStore {
	return &memCardStore{cards: make(map[uuid.UUID]*models.GratitudeCard)}
}

func (m *memCardStore) CreateTx(_ context.Context, _ pgx.Tx, c *models.GratitudeCard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cards[c.TaskID]; ok {
		return &pgconn.PgError{Code: "23505"}
	}
	cp := *c
	m.cards[c.TaskID] = &cp
	return nil
}

func (m *memCardStore) GetByTaskID(_ context.Context, taskID uuid.UUID) (*models.GratitudeCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[taskID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (m *memCardStore) MarkRead(_ context.Context, taskID, receiverID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[taskID]
	if !ok || c.ReceiverID != receiverID {
		return 0, nil
	}
	c.IsRead = true
	return 1, nil
}

func (m *memCardStore) MarkAllRead(_ context.Context, receiverID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, c := range m.cards {
		if c.ReceiverID == receiverID && !c.IsRead {
			c.IsRead = true
			n++
		}
	}
	return n, nil
}

func (m *memCardStore) ListByReceiver(_ context.Context, receiverID uuid.UUID) ([]*models.GratitudeCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.GratitudeCard
	for _, c := range m.cards {
		if c.ReceiverID == receiverID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memCardStore) ListUnreadByReceiver(_ context.Context, receiverID uuid.UUID) ([]*models.GratitudeCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.GratitudeCard
	for _, c := range m.cards {
		if c.ReceiverID == receiverID && !c.IsRead {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- fixture ---

type fixture struct {
	svc      *Service
	cards    *memCardStore
	enqueued []notify.ThanksNotificationArgs
	mu       sync.Mutex
	owner    uuid.UUID
	helper   uuid.UUID
	taskID   uuid.UUID
}

func newFixture(status string) *fixture {
	f := &fixture{owner: uuid.New(), helper: uuid.New(), taskID: uuid.New()}
	helper := f.helper
	task := &models.Task{
		ID:          f.taskID,
		OwnerID:     f.owner,
		HelperID:    &helper,
		CreditValue: 3,
		Status:      status,
	}
	if status == models.TaskStatusOpen {
		task.HelperID = nil
	}
	tasks := &mockTaskStore{tasks: map[uuid.UUID]*models.Task{f.taskID: task}}
	f.cards = newMemCardStore()
	enqueue := func(_ context.Context, _ pgx.Tx, args notify.ThanksNotificationArgs) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.enqueued = append(f.enqueued, args)
		return nil
	}
	f.svc = NewService(mockPool{}, tasks, f.cards, enqueue, nil)
	return f
}

// --- tests ---

func TestSendThanks(t *testing.T) {
	f := newFixture(models.TaskStatusCompleted)
	ctx := context.Background()

	card, err := f.svc.SendThanks(ctx, f.taskID, f.owner, "thank you so much!")
	if err != nil {
		t.Fatalf("SendThanks: %v", err)
	}
	if card.SenderID != f.owner || card.ReceiverID != f.helper {
		t.Error("card should go from owner to helper")
	}
	if card.IsRead {
		t.Error("new card should be unread")
	}

	if len(f.enqueued) != 1 {
		t.Fatalf("enqueued jobs: got %d, want 1", len(f.enqueued))
	}
	job := f.enqueued[0]
	if job.TaskID != f.taskID || job.ReceiverID != f.helper || job.Message != "thank you so much!" {
		t.Errorf("job args: %+v", job)
	}
}

func TestSendThanks_OncePerTask(t *testing.T) {
	f := newFixture(models.TaskStatusCompleted)
	ctx := context.Background()

	if _, err := f.svc.SendThanks(ctx, f.taskID, f.owner, "first"); err != nil {
		t.Fatalf("first SendThanks: %v", err)
	}
	if _, err := f.svc.SendThanks(ctx, f.taskID, f.owner, "second"); !errors.Is(err, ErrGratitudeAlreadySent) {
		t.Errorf("second SendThanks: got %v, want ErrGratitudeAlreadySent", err)
	}

	// The original card is untouched.
	card, _ := f.cards.GetByTaskID(ctx, f.taskID)
	if card.Message != "first" {
		t.Errorf("card message: got %q, want %q", card.Message, "first")
	}
	if len(f.enqueued) != 1 {
		t.Errorf("enqueued jobs: got %d, want 1", len(f.enqueued))
	}
}

// Concurrent double-submit: the store's key decides the winner, exactly one
// card and one notification job exist afterwards.
func TestSendThanks_ConcurrentDoubleSubmit(t *testing.T) {
	f := newFixture(models.TaskStatusCompleted)
	ctx := context.Background()

	const n = 8
	results := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.SendThanks(ctx, f.taskID, f.owner, "thanks")
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range results {
		if err == nil {
			wins++
		} else if !errors.Is(err, ErrGratitudeAlreadySent) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("winners: got %d, want 1", wins)
	}
	if len(f.enqueued) != 1 {
		t.Errorf("enqueued jobs: got %d, want 1", len(f.enqueued))
	}
}

func TestSendThanks_Rejections(t *testing.T) {
	ctx := context.Background()

	f := newFixture(models.TaskStatusCompleted)
	if _, err := f.svc.SendThanks(ctx, f.taskID, f.owner, ""); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("empty message: got %v, want ErrEmptyMessage", err)
	}
	if _, err := f.svc.SendThanks(ctx, f.taskID, f.helper, "hi"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("helper sending: got %v, want ErrNotOwner", err)
	}
	if _, err := f.svc.SendThanks(ctx, uuid.New(), f.owner, "hi"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("missing task: got %v, want ErrTaskNotFound", err)
	}

	inProgress := newFixture(models.TaskStatusInProgress)
	if _, err := inProgress.svc.SendThanks(ctx, inProgress.taskID, inProgress.owner, "hi"); !errors.Is(err, ErrTaskNotCompleted) {
		t.Errorf("in-progress task: got %v, want ErrTaskNotCompleted", err)
	}
}

func TestMarkRead(t *testing.T) {
	f := newFixture(models.TaskStatusCompleted)
	ctx := context.Background()
	if _, err := f.svc.SendThanks(ctx, f.taskID, f.owner, "thanks"); err != nil {
		t.Fatalf("SendThanks: %v", err)
	}

	if err := f.svc.MarkRead(ctx, f.taskID, f.helper); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	card, _ := f.cards.GetByTaskID(ctx, f.taskID)
	if !card.IsRead {
		t.Error("card should be read")
	}

	// Idempotent for the receiver, forbidden for anyone else.
	if err := f.svc.MarkRead(ctx, f.taskID, f.helper); err != nil {
		t.Errorf("repeat MarkRead: %v", err)
	}
	if err := f.svc.MarkRead(ctx, f.taskID, f.owner); !errors.Is(err, ErrNotReceiver) {
		t.Errorf("sender MarkRead: got %v, want ErrNotReceiver", err)
	}
	if err := f.svc.MarkRead(ctx, uuid.New(), f.helper); !errors.Is(err, ErrCardNotFound) {
		t.Errorf("missing card: got %v, want ErrCardNotFound", err)
	}
}

func TestMarkAllRead(t *testing.T) {
	f := newFixture(models.TaskStatusCompleted)
	ctx := context.Background()
	if _, err := f.svc.SendThanks(ctx, f.taskID, f.owner, "thanks"); err != nil {
		t.Fatalf("SendThanks: %v", err)
	}

	n, err := f.svc.MarkAllRead(ctx, f.helper)
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if n != 1 {
		t.Errorf("marked: got %d, want 1", n)
	}
	unread, _ := f.svc.ListUnread(ctx, f.helper)
	if len(unread) != 0 {
		t.Errorf("unread after MarkAllRead: got %d, want 0", len(unread))
	}

	// Second call is a no-op.
	n, _ = f.svc.MarkAllRead(ctx, f.helper)
	if n != 0 {
		t.Errorf("second MarkAllRead marked %d, want 0", n)
	}
}
