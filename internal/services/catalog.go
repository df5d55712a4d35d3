package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"rifa-web-app/internal/apperrors"
	"rifa-web-app/internal/models"
)

// ListRaffles returns every raffle except soft-deleted ones, newest
// first. Served to public browsing and the admin panel alike.
func (s *Service) ListRaffles(ctx context.Context) ([]models.Raffle, error) {
	return s.store.ListRaffles(ctx)
}

func (s *Service) GetRaffle(ctx context.Context, id string) (*models.Raffle, error) {
	return s.store.GetRaffle(ctx, id)
}

// RaffleDraft carries the staff-editable raffle fields.
type RaffleDraft struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	TicketPrice  decimal.Decimal `json:"ticket_price"`
	Currency     string          `json:"currency"`
	TotalTickets int             `json:"total_tickets"`
	MinTickets   int             `json:"min_tickets"`
	CoverURL     string          `json:"cover_url"`
	Prizes       []string        `json:"prizes"`
	DrawDate     *time.Time      `json:"draw_date,omitempty"`
}

func (s *Service) CreateRaffle(ctx context.Context, claims models.StaffClaims, draft RaffleDraft) (*models.Raffle, error) {
	if err := requireSuperadmin(claims); err != nil {
		return nil, err
	}
	if err := validateDraft(&draft); err != nil {
		return nil, err
	}

	raffle := &models.Raffle{
		ID:           uuid.NewString(),
		Title:        draft.Title,
		Description:  draft.Description,
		TicketPrice:  draft.TicketPrice,
		Currency:     draft.Currency,
		TotalTickets: draft.TotalTickets,
		SoldTickets:  0,
		MinTickets:   draft.MinTickets,
		Status:       models.RaffleActive,
		CoverURL:     draft.CoverURL,
		Prizes:       draft.Prizes,
		DrawDate:     draft.DrawDate,
		CreatedAt:    time.Now().UTC(),
	}
	if raffle.Currency == "" {
		raffle.Currency = "Bs"
	}

	if err := s.store.CreateRaffle(ctx, raffle); err != nil {
		return nil, err
	}
	s.logger.Infof("Raffle %s (%q) created by %s", raffle.ID, raffle.Title, claims.Email)
	return raffle, nil
}

// UpdateRaffle applies staff edits. sold_tickets is never written here;
// shrinking total_tickets below the current sold count is rejected.
func (s *Service) UpdateRaffle(ctx context.Context, claims models.StaffClaims, id string, draft RaffleDraft, status models.RaffleStatus) (*models.Raffle, error) {
	if err := requireSuperadmin(claims); err != nil {
		return nil, err
	}
	if err := validateDraft(&draft); err != nil {
		return nil, err
	}

	current, err := s.store.GetRaffle(ctx, id)
	if err != nil {
		return nil, err
	}
	if draft.TotalTickets < current.SoldTickets {
		return nil, &apperrors.StockViolation{
			Requested: draft.TotalTickets,
			Remaining: current.SoldTickets,
			Reason:    "total_tickets below sold_tickets",
		}
	}

	updated := *current
	updated.Title = draft.Title
	updated.Description = draft.Description
	updated.TicketPrice = draft.TicketPrice
	updated.Currency = draft.Currency
	updated.TotalTickets = draft.TotalTickets
	updated.MinTickets = draft.MinTickets
	updated.CoverURL = draft.CoverURL
	updated.Prizes = draft.Prizes
	updated.DrawDate = draft.DrawDate
	if status != "" {
		updated.Status = status
	}
	if updated.Currency == "" {
		updated.Currency = current.Currency
	}

	if err := s.store.UpdateRaffle(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteRaffle is a soft delete: a status write, never a row removal.
// Deleting an already-deleted raffle is a no-op success.
func (s *Service) DeleteRaffle(ctx context.Context, claims models.StaffClaims, id string) error {
	if err := requireSuperadmin(claims); err != nil {
		return err
	}
	if err := s.store.SetRaffleStatus(ctx, id, models.RaffleDeleted); err != nil {
		return err
	}
	s.logger.Infof("Raffle %s soft-deleted by %s", id, claims.Email)
	return nil
}

func validateDraft(draft *RaffleDraft) error {
	if draft.Title == "" {
		return apperrors.NewValidation("title", "required")
	}
	if !draft.TicketPrice.IsPositive() {
		return apperrors.NewValidation("ticket_price", "must be positive")
	}
	if draft.TotalTickets <= 0 {
		return apperrors.NewValidation("total_tickets", "must be positive")
	}
	if draft.MinTickets == 0 {
		draft.MinTickets = models.DefaultMinTickets
	}
	if draft.MinTickets < 1 || draft.MinTickets > draft.TotalTickets {
		return apperrors.NewValidation("min_tickets", "must be between 1 and total_tickets")
	}
	return nil
}
