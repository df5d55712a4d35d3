package services

import (
	"context"

	"rifa-web-app/internal/models"
)

// ApprovePurchase runs the approve side of the reconciliation state
// machine: PENDING -> APPROVED, with ticket allocation and the stock
// increment in one transaction. Re-approving an approved request returns
// its existing assignment; approving a rejected one fails with
// ErrAlreadyProcessed; losing the stock race fails with StockViolation
// and leaves the request pending.
func (s *Service) ApprovePurchase(ctx context.Context, claims models.StaffClaims, id string) (*models.PurchaseRequest, error) {
	if err := requireStaff(claims); err != nil {
		return nil, err
	}

	req, err := s.store.ApproveAndAllocate(ctx, id, pickNumbers)
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Request %s approved by %s: numbers %v", req.ID, claims.Email, req.AssignedNumbers)
	s.notifyProcessed(ctx, req)
	return req, nil
}

// RejectPurchase runs PENDING -> REJECTED. Pure status flip, no stock
// effect; non-pending requests fail with ErrAlreadyProcessed.
func (s *Service) RejectPurchase(ctx context.Context, claims models.StaffClaims, id string) (*models.PurchaseRequest, error) {
	if err := requireStaff(claims); err != nil {
		return nil, err
	}

	req, err := s.store.RejectPurchase(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Request %s rejected by %s", req.ID, claims.Email)
	s.notifyProcessed(ctx, req)
	return req, nil
}

// notifyProcessed delivers the outcome to the buyer after the state
// change has committed. This is the one deliberate exception to
// propagate-all-failures: the financial state is the source of truth, so
// a dead notification channel degrades to a warning and never rolls back
// or fails the approval/rejection.
func (s *Service) notifyProcessed(ctx context.Context, req *models.PurchaseRequest) {
	raffle, err := s.store.GetRaffle(ctx, req.RaffleID)
	if err != nil {
		s.logger.Warnf("Outcome notice for request %s skipped, raffle load failed: %v", req.ID, err)
		return
	}

	if req.Status == models.PurchaseApproved {
		err = s.notifier.PurchaseApproved(req, raffle)
	} else {
		err = s.notifier.PurchaseRejected(req, raffle)
	}
	if err != nil {
		s.logger.Warnf("Outcome notice for request %s failed: %v", req.ID, err)
	}
}
