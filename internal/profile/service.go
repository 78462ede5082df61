package profile

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helpwall/backend/internal/models"
)

var ErrMemberNotFound = errors.New("member not found")

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
	SetNotifyEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
}

type TaskCounter interface {
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
	CountCompletedByHelper(ctx context.Context, helperID uuid.UUID) (int, error)
}

type GratitudeCounter interface {
	CountByReceiver(ctx context.Context, receiverID uuid.UUID) (int, error)
}

type LedgerReader interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.LedgerEntry, error)
	SumByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// Stats are the profile counters shown on a member's page.
type Stats struct {
	TasksPosted    int `json:"tasks_posted"`
	TasksHelped    int `json:"tasks_helped"`
	ThanksReceived int `json:"thanks_received"`
}

// LedgerView is the member's credit history plus their current balance. The
// balance comes from the cached counter; BalanceVerified reports whether it
// matches the ledger sum, the actual source of truth.
type LedgerView struct {
	Balance         int                   `json:"balance"`
	BalanceVerified bool                  `json:"balance_verified"`
	Entries         []*models.LedgerEntry `json:"entries"`
}

type Service struct {
	users  UserStore
	tasks  TaskCounter
	cards  GratitudeCounter
	ledger LedgerReader
}

func NewService(users UserStore, tasks TaskCounter, cards GratitudeCounter, ledger LedgerReader) *Service {
	return &Service{users: users, tasks: tasks, cards: cards, ledger: ledger}
}

func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	posted, err := s.tasks.CountByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	helped, err := s.tasks.CountCompletedByHelper(ctx, userID)
	if err != nil {
		return nil, err
	}
	thanks, err := s.cards.CountByReceiver(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Stats{TasksPosted: posted, TasksHelped: helped, ThanksReceived: thanks}, nil
}

func (s *Service) Ledger(ctx context.Context, userID uuid.UUID) (*LedgerView, error) {
	member, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	entries, err := s.ledger.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sum, err := s.ledger.SumByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &LedgerView{
		Balance:         member.CreditBalance,
		BalanceVerified: member.CreditBalance == sum,
		Entries:         entries,
	}, nil
}

func (s *Service) SetNotifyEnabled(ctx context.Context, userID uuid.UUID, enabled bool) error {
	return s.users.SetNotifyEnabled(ctx, userID, enabled)
}

func (s *Service) Member(ctx context.Context, userID uuid.UUID) (*models.Member, error) {
	member, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	return member, err
}
