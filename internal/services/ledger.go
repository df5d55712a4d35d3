package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"rifa-web-app/internal/apperrors"
	"rifa-web-app/internal/models"
)

// PurchaseDraft is a buyer's payment report as it arrives from the
// presentation layer.
type PurchaseDraft struct {
	RaffleID       string `json:"raffle_id"`
	FullName       string `json:"full_name"`
	NationalID     string `json:"national_id"`
	Email          string `json:"email"`
	Whatsapp       string `json:"whatsapp"`
	TicketQty      int    `json:"ticket_qty"`
	PaymentMethod  string `json:"payment_method"`
	Reference      string `json:"reference"`
	ReceiptPath    string `json:"receipt_path"`
	TelegramChatID int64  `json:"telegram_chat_id,omitempty"`
}

// SubmitPurchase validates a buyer's payment report against the
// authoritative stock figures and records it as pending. The returned id
// is the buyer's claim check for later lookups.
//
// Stock rules, re-validated server-side (client-computed remaining counts
// are never trusted):
//   - ticket_qty <= remaining
//   - orphan-stock rule: the purchase must not leave a nonzero remainder
//     smaller than min_tickets, which nobody could ever buy. This is also
//     what enforces the minimum once the pool runs low; draining the pool
//     to exactly zero is always allowed.
func (s *Service) SubmitPurchase(ctx context.Context, draft PurchaseDraft) (*models.PurchaseRequest, error) {
	draft.NationalID = models.NormalizeDigits(draft.NationalID)
	draft.Whatsapp = models.NormalizeDigits(draft.Whatsapp)
	draft.Email = models.NormalizeEmail(draft.Email)

	switch {
	case draft.FullName == "":
		return nil, apperrors.NewValidation("full_name", "required")
	case draft.NationalID == "":
		return nil, apperrors.NewValidation("national_id", "required")
	case draft.Email == "":
		return nil, apperrors.NewValidation("email", "required")
	}
	if draft.TicketQty < 1 {
		return nil, apperrors.NewValidation("ticket_qty", "must be positive")
	}
	if draft.ReceiptPath == "" {
		return nil, apperrors.ErrMissingEvidence
	}

	raffle, err := s.store.GetRaffle(ctx, draft.RaffleID)
	if err != nil {
		return nil, err
	}
	if raffle.Status != models.RaffleActive {
		return nil, apperrors.NewValidation("raffle_id", "raffle is not open for purchase")
	}

	remaining := raffle.Remaining()
	if draft.TicketQty > remaining {
		return nil, &apperrors.StockViolation{
			Requested:  draft.TicketQty,
			Remaining:  remaining,
			MinTickets: raffle.MinTickets,
			Reason:     "not enough tickets remaining",
		}
	}
	if left := remaining - draft.TicketQty; left > 0 && left < raffle.MinTickets {
		return nil, &apperrors.StockViolation{
			Requested:  draft.TicketQty,
			Remaining:  remaining,
			MinTickets: raffle.MinTickets,
			Reason:     "purchase would orphan remaining stock",
		}
	}

	req := &models.PurchaseRequest{
		ID:              uuid.NewString(),
		RaffleID:        raffle.ID,
		RaffleTitle:     raffle.Title,
		FullName:        draft.FullName,
		NationalID:      draft.NationalID,
		Email:           draft.Email,
		Whatsapp:        draft.Whatsapp,
		TicketQty:       draft.TicketQty,
		Amount:          raffle.TicketPrice.Mul(decimal.NewFromInt(int64(draft.TicketQty))),
		PaymentMethod:   draft.PaymentMethod,
		Reference:       draft.Reference,
		ReceiptPath:     draft.ReceiptPath,
		Status:          models.PurchasePending,
		AssignedNumbers: []int{},
		TelegramChatID:  draft.TelegramChatID,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.store.CreatePurchase(ctx, req); err != nil {
		return nil, err
	}

	// Heads-up for the staff channel; delivery problems never fail the
	// submission.
	if err := s.notifier.PurchaseSubmitted(req, raffle); err != nil {
		s.logger.Warnf("Submission notice for request %s failed: %v", req.ID, err)
	}

	s.logger.Infof("Purchase request %s recorded: %d tickets of raffle %s", req.ID, req.TicketQty, raffle.ID)
	return req, nil
}

// FindMyPurchases is the buyer self-service lookup. Identity plus email
// is the whole authorization model: it only ever reveals the caller's own
// submissions.
func (s *Service) FindMyPurchases(ctx context.Context, nationalID, email string) ([]models.PurchaseRequest, error) {
	nationalID = models.NormalizeDigits(nationalID)
	email = models.NormalizeEmail(email)
	if nationalID == "" {
		return nil, apperrors.NewValidation("national_id", "required")
	}
	if email == "" {
		return nil, apperrors.NewValidation("email", "required")
	}
	return s.store.FindPurchasesByIdentity(ctx, nationalID, email)
}

// GetPurchase is the staff-facing direct lookup for dispute resolution.
func (s *Service) GetPurchase(ctx context.Context, claims models.StaffClaims, id string) (*models.PurchaseRequest, error) {
	if err := requireStaff(claims); err != nil {
		return nil, err
	}
	return s.store.GetPurchase(ctx, id)
}
