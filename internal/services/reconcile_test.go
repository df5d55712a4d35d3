package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"rifa-web-app/internal/apperrors"
	"rifa-web-app/internal/models"
)

func TestApprovePurchase(t *testing.T) {
	ctx := context.Background()

	t.Run("allocates numbers and increments stock", func(t *testing.T) {
		st := newMemStore()
		seedRaffle(st, "r1", 100, 0, 3)
		seedPending(st, "p1", "r1", 5)
		notifier := &recordingNotifier{}
		svc := newTestService(st, notifier)

		req, err := svc.ApprovePurchase(ctx, pagosStaff, "p1")
		if err != nil {
			t.Fatalf("ApprovePurchase: %v", err)
		}
		if req.Status != models.PurchaseApproved {
			t.Errorf("status = %s, want approved", req.Status)
		}
		if len(req.AssignedNumbers) != 5 {
			t.Errorf("got %d numbers, want 5", len(req.AssignedNumbers))
		}
		if req.ProcessedAt == nil {
			t.Error("processed_at not set")
		}

		raffle, _ := st.GetRaffle(ctx, "r1")
		if raffle.SoldTickets != 5 {
			t.Errorf("sold_tickets = %d, want 5", raffle.SoldTickets)
		}
		if notifier.approved != 1 {
			t.Errorf("approved notices = %d, want 1", notifier.approved)
		}
	})

	t.Run("re-approval returns the same assignment", func(t *testing.T) {
		st := newMemStore()
		seedRaffle(st, "r1", 100, 0, 3)
		seedPending(st, "p1", "r1", 4)
		svc := newTestService(st, nil)

		first, err := svc.ApprovePurchase(ctx, pagosStaff, "p1")
		if err != nil {
			t.Fatalf("first approval: %v", err)
		}
		second, err := svc.ApprovePurchase(ctx, pagosStaff, "p1")
		if err != nil {
			t.Fatalf("second approval: %v", err)
		}

		if len(first.AssignedNumbers) != len(second.AssignedNumbers) {
			t.Fatalf("assignments differ: %v vs %v", first.AssignedNumbers, second.AssignedNumbers)
		}
		for i := range first.AssignedNumbers {
			if first.AssignedNumbers[i] != second.AssignedNumbers[i] {
				t.Fatalf("assignments differ: %v vs %v", first.AssignedNumbers, second.AssignedNumbers)
			}
		}

		raffle, _ := st.GetRaffle(ctx, "r1")
		if raffle.SoldTickets != 4 {
			t.Errorf("sold_tickets = %d after re-approval, want 4", raffle.SoldTickets)
		}
	})

	t.Run("approving a rejected request fails", func(t *testing.T) {
		st := newMemStore()
		seedRaffle(st, "r1", 100, 0, 3)
		seedPending(st, "p1", "r1", 3)
		svc := newTestService(st, nil)

		if _, err := svc.RejectPurchase(ctx, pagosStaff, "p1"); err != nil {
			t.Fatalf("RejectPurchase: %v", err)
		}
		if _, err := svc.ApprovePurchase(ctx, pagosStaff, "p1"); !errors.Is(err, apperrors.ErrAlreadyProcessed) {
			t.Fatalf("got %v, want ErrAlreadyProcessed", err)
		}
	})

	t.Run("insufficient stock leaves the request pending", func(t *testing.T) {
		st := newMemStore()
		seedRaffle(st, "r1", 10, 8, 3)
		seedPending(st, "p1", "r1", 3)
		svc := newTestService(st, nil)

		_, err := svc.ApprovePurchase(ctx, pagosStaff, "p1")
		var sv *apperrors.StockViolation
		if !errors.As(err, &sv) {
			t.Fatalf("got %v, want StockViolation", err)
		}
		if sv.Remaining != 2 {
			t.Errorf("Remaining = %d, want 2", sv.Remaining)
		}

		req, _ := st.GetPurchase(ctx, "p1")
		if req.Status != models.PurchasePending {
			t.Errorf("status = %s after failed approval, want pending", req.Status)
		}
	})

	t.Run("notifier failure does not fail approval", func(t *testing.T) {
		st := newMemStore()
		seedRaffle(st, "r1", 100, 0, 3)
		seedPending(st, "p1", "r1", 3)
		svc := newTestService(st, failingNotifier{})

		req, err := svc.ApprovePurchase(ctx, pagosStaff, "p1")
		if err != nil {
			t.Fatalf("ApprovePurchase: %v", err)
		}
		if req.Status != models.PurchaseApproved {
			t.Errorf("status = %s, want approved", req.Status)
		}
	})

	t.Run("requires staff claims", func(t *testing.T) {
		st := newMemStore()
		seedRaffle(st, "r1", 100, 0, 3)
		seedPending(st, "p1", "r1", 3)
		svc := newTestService(st, nil)

		if _, err := svc.ApprovePurchase(ctx, nobody, "p1"); !errors.Is(err, apperrors.ErrNotAuthorized) {
			t.Fatalf("got %v, want ErrNotAuthorized", err)
		}
		req, _ := st.GetPurchase(ctx, "p1")
		if req.Status != models.PurchasePending {
			t.Errorf("unauthorized call changed status to %s", req.Status)
		}
	})

	t.Run("unknown request", func(t *testing.T) {
		svc := newTestService(newMemStore(), nil)
		if _, err := svc.ApprovePurchase(ctx, pagosStaff, "nope"); !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("sells out the raffle on the last allocation", func(t *testing.T) {
		st := newMemStore()
		seedRaffle(st, "r1", 6, 0, 3)
		seedPending(st, "p1", "r1", 6)
		svc := newTestService(st, nil)

		if _, err := svc.ApprovePurchase(ctx, pagosStaff, "p1"); err != nil {
			t.Fatalf("ApprovePurchase: %v", err)
		}
		raffle, _ := st.GetRaffle(ctx, "r1")
		if raffle.Status != models.RaffleSoldOut {
			t.Errorf("status = %s, want sold_out", raffle.Status)
		}
	})
}

func TestRejectPurchase(t *testing.T) {
	ctx := context.Background()

	t.Run("flips status without touching stock", func(t *testing.T) {
		st := newMemStore()
		seedRaffle(st, "r1", 100, 0, 3)
		seedPending(st, "p1", "r1", 5)
		notifier := &recordingNotifier{}
		svc := newTestService(st, notifier)

		req, err := svc.RejectPurchase(ctx, pagosStaff, "p1")
		if err != nil {
			t.Fatalf("RejectPurchase: %v", err)
		}
		if req.Status != models.PurchaseRejected {
			t.Errorf("status = %s, want rejected", req.Status)
		}
		if len(req.AssignedNumbers) != 0 {
			t.Errorf("rejected request holds numbers: %v", req.AssignedNumbers)
		}

		raffle, _ := st.GetRaffle(ctx, "r1")
		if raffle.SoldTickets != 0 {
			t.Errorf("sold_tickets = %d, want 0", raffle.SoldTickets)
		}
		if notifier.rejected != 1 {
			t.Errorf("rejected notices = %d, want 1", notifier.rejected)
		}
	})

	t.Run("rejecting twice fails", func(t *testing.T) {
		st := newMemStore()
		seedRaffle(st, "r1", 100, 0, 3)
		seedPending(st, "p1", "r1", 3)
		svc := newTestService(st, nil)

		if _, err := svc.RejectPurchase(ctx, pagosStaff, "p1"); err != nil {
			t.Fatalf("RejectPurchase: %v", err)
		}
		if _, err := svc.RejectPurchase(ctx, pagosStaff, "p1"); !errors.Is(err, apperrors.ErrAlreadyProcessed) {
			t.Fatalf("got %v, want ErrAlreadyProcessed", err)
		}
	})

	t.Run("rejecting an approved request fails", func(t *testing.T) {
		st := newMemStore()
		seedRaffle(st, "r1", 100, 0, 3)
		seedPending(st, "p1", "r1", 3)
		svc := newTestService(st, nil)

		if _, err := svc.ApprovePurchase(ctx, pagosStaff, "p1"); err != nil {
			t.Fatalf("ApprovePurchase: %v", err)
		}
		if _, err := svc.RejectPurchase(ctx, pagosStaff, "p1"); !errors.Is(err, apperrors.ErrAlreadyProcessed) {
			t.Fatalf("got %v, want ErrAlreadyProcessed", err)
		}
	})
}

func TestAllocationInvariants(t *testing.T) {
	ctx := context.Background()

	t.Run("sold never exceeds total and matches approvals", func(t *testing.T) {
		st := newMemStore()
		seedRaffle(st, "r1", 20, 0, 3)
		svc := newTestService(st, nil)

		// 3 + 5 + 4 + 8 = 20, then everything else must fail.
		for i, qty := range []int{3, 5, 4, 8, 3, 5} {
			id := string(rune('a' + i))
			seedPending(st, id, "r1", qty)
		}

		approvedQty := 0
		for i, qty := range []int{3, 5, 4, 8, 3, 5} {
			id := string(rune('a' + i))
			_, err := svc.ApprovePurchase(ctx, pagosStaff, id)
			if err == nil {
				approvedQty += qty
			} else {
				var sv *apperrors.StockViolation
				if !errors.As(err, &sv) {
					t.Fatalf("approve %s: %v", id, err)
				}
			}
		}

		raffle, _ := st.GetRaffle(ctx, "r1")
		if raffle.SoldTickets > raffle.TotalTickets {
			t.Fatalf("sold_tickets %d exceeds total %d", raffle.SoldTickets, raffle.TotalTickets)
		}
		if raffle.SoldTickets != approvedQty {
			t.Fatalf("sold_tickets = %d, approvals sum to %d", raffle.SoldTickets, approvedQty)
		}
	})

	t.Run("assignments are disjoint across requests", func(t *testing.T) {
		st := newMemStore()
		seedRaffle(st, "r1", 30, 0, 3)
		svc := newTestService(st, nil)

		seen := map[int]string{}
		for _, id := range []string{"p1", "p2", "p3"} {
			seedPending(st, id, "r1", 10)
			req, err := svc.ApprovePurchase(ctx, pagosStaff, id)
			if err != nil {
				t.Fatalf("approve %s: %v", id, err)
			}
			for _, n := range req.AssignedNumbers {
				if holder, dup := seen[n]; dup {
					t.Fatalf("number %d assigned to both %s and %s", n, holder, id)
				}
				seen[n] = id
			}
		}
		if len(seen) != 30 {
			t.Fatalf("allocated %d distinct numbers, want 30", len(seen))
		}
	})

	t.Run("concurrent approvals cannot oversell", func(t *testing.T) {
		st := newMemStore()
		seedRaffle(st, "r1", 10, 6, 3) // remaining = 4
		seedPending(st, "p1", "r1", 3)
		seedPending(st, "p2", "r1", 3)
		svc := newTestService(st, nil)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i, id := range []string{"p1", "p2"} {
			wg.Add(1)
			go func(i int, id string) {
				defer wg.Done()
				_, errs[i] = svc.ApprovePurchase(ctx, pagosStaff, id)
			}(i, id)
		}
		wg.Wait()

		successes := 0
		for _, err := range errs {
			if err == nil {
				successes++
				continue
			}
			var sv *apperrors.StockViolation
			if !errors.As(err, &sv) {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if successes != 1 {
			t.Fatalf("%d approvals succeeded, want exactly 1", successes)
		}

		raffle, _ := st.GetRaffle(ctx, "r1")
		if raffle.SoldTickets != 9 {
			t.Errorf("sold_tickets = %d, want 9", raffle.SoldTickets)
		}
	})
}
