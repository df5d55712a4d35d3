package services

import (
	"context"
	"time"

	"rifa-web-app/internal/apperrors"
	"rifa-web-app/internal/logger"
	"rifa-web-app/internal/models"
)

// Store is the persistence contract the services depend on. The real
// implementation lives in internal/store; tests use an in-memory fake.
type Store interface {
	// raffles
	ListRaffles(ctx context.Context) ([]models.Raffle, error)
	GetRaffle(ctx context.Context, id string) (*models.Raffle, error)
	CreateRaffle(ctx context.Context, r *models.Raffle) error
	UpdateRaffle(ctx context.Context, r *models.Raffle) error
	SetRaffleStatus(ctx context.Context, id string, status models.RaffleStatus) error

	// purchase requests
	CreatePurchase(ctx context.Context, p *models.PurchaseRequest) error
	GetPurchase(ctx context.Context, id string) (*models.PurchaseRequest, error)
	FindPurchasesByIdentity(ctx context.Context, nationalID, email string) ([]models.PurchaseRequest, error)
	ListPurchases(ctx context.Context, status models.PurchaseStatus) ([]models.PurchaseRequest, error)
	ListProcessedPurchases(ctx context.Context) ([]models.PurchaseRequest, error)
	ListPurchasesSince(ctx context.Context, since time.Time) ([]models.PurchaseRequest, error)
	CountPending(ctx context.Context) (int, error)

	// reconciliation
	ApproveAndAllocate(ctx context.Context, requestID string,
		pick func(totalTickets int, taken []int, qty int) ([]int, error)) (*models.PurchaseRequest, error)
	RejectPurchase(ctx context.Context, requestID string) (*models.PurchaseRequest, error)

	// lookups
	FindTicketHolder(ctx context.Context, raffleID string, number int) (*models.WinnerLookup, error)
	TopBuyers(ctx context.Context, raffleID string, limit int) ([]models.BuyerTotal, error)

	// admin users
	ListAdmins(ctx context.Context) ([]models.AdminUser, error)
	GetAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	CreateAdmin(ctx context.Context, a *models.AdminUser) error
	UpdateAdminRole(ctx context.Context, id string, role models.AdminRole) error
	DeleteAdmin(ctx context.Context, id string) error
}

// Notifier delivers purchase lifecycle notices. Delivery is best-effort:
// the services log failures and never let them affect the state
// transition they accompany.
type Notifier interface {
	PurchaseSubmitted(req *models.PurchaseRequest, raffle *models.Raffle) error
	PurchaseApproved(req *models.PurchaseRequest, raffle *models.Raffle) error
	PurchaseRejected(req *models.PurchaseRequest, raffle *models.Raffle) error
}

type Service struct {
	store    Store
	notifier Notifier
	logger   *logger.Logger

	// statsLoc is the fixed-offset timezone daily statistics are
	// bucketed in.
	statsLoc *time.Location
}

func New(store Store, notifier Notifier, log *logger.Logger, statsUTCOffsetHours int) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{
		store:    store,
		notifier: notifier,
		logger:   log,
		statsLoc: time.FixedZone("stats", statsUTCOffsetHours*3600),
	}
}

// NopNotifier is used when no notification channel is configured.
type NopNotifier struct{}

func (NopNotifier) PurchaseSubmitted(*models.PurchaseRequest, *models.Raffle) error { return nil }
func (NopNotifier) PurchaseApproved(*models.PurchaseRequest, *models.Raffle) error  { return nil }
func (NopNotifier) PurchaseRejected(*models.PurchaseRequest, *models.Raffle) error  { return nil }

func requireStaff(claims models.StaffClaims) error {
	if !claims.IsStaff() {
		return apperrors.ErrNotAuthorized
	}
	return nil
}

func requireSuperadmin(claims models.StaffClaims) error {
	if !claims.IsSuperadmin() {
		return apperrors.ErrNotAuthorized
	}
	return nil
}
