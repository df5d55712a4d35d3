package services

import (
	"context"
	"sort"
	"time"

	"rifa-web-app/internal/models"
)

// SearchTicketWinner answers "who holds number N in raffle R" with the
// buyer's identity and every number they hold there. Read-only.
func (s *Service) SearchTicketWinner(ctx context.Context, claims models.StaffClaims, raffleID string, number int) (*models.WinnerLookup, error) {
	if err := requireStaff(claims); err != nil {
		return nil, err
	}
	return s.store.FindTicketHolder(ctx, raffleID, number)
}

// PendingRequests lists the reconciliation backlog, newest first.
func (s *Service) PendingRequests(ctx context.Context, claims models.StaffClaims) ([]models.PurchaseRequest, error) {
	if err := requireStaff(claims); err != nil {
		return nil, err
	}
	return s.store.ListPurchases(ctx, models.PurchasePending)
}

// History lists requests by status; an empty status returns everything.
func (s *Service) History(ctx context.Context, claims models.StaffClaims, status models.PurchaseStatus) ([]models.PurchaseRequest, error) {
	if err := requireStaff(claims); err != nil {
		return nil, err
	}
	return s.store.ListPurchases(ctx, status)
}

// DailyAggregate groups processed requests by calendar day in the
// configured stats timezone, newest day first. Recomputed on demand,
// never cached.
func (s *Service) DailyAggregate(ctx context.Context, claims models.StaffClaims) ([]models.DayBucket, error) {
	if err := requireStaff(claims); err != nil {
		return nil, err
	}

	processed, err := s.store.ListProcessedPurchases(ctx)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]*models.DayBucket)
	for i := range processed {
		p := &processed[i]
		day := p.CreatedAt.In(s.statsLoc).Format("2006-01-02")

		b, ok := buckets[day]
		if !ok {
			b = &models.DayBucket{Date: day}
			buckets[day] = b
		}
		if p.Status == models.PurchaseApproved {
			b.Approved++
			b.ApprovedTotal = b.ApprovedTotal.Add(p.Amount)
		} else {
			b.Rejected++
		}
	}

	days := make([]models.DayBucket, 0, len(buckets))
	for _, b := range buckets {
		days = append(days, *b)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date > days[j].Date })
	return days, nil
}

// TodayStats is the dashboard headline: the global pending backlog plus
// today's approvals, rejections and approved amount, with "today"
// starting at local midnight in the stats timezone.
func (s *Service) TodayStats(ctx context.Context, claims models.StaffClaims) (*models.TodayStats, error) {
	if err := requireStaff(claims); err != nil {
		return nil, err
	}

	pending, err := s.store.CountPending(ctx)
	if err != nil {
		return nil, err
	}

	today, err := s.store.ListPurchasesSince(ctx, localMidnight(time.Now(), s.statsLoc))
	if err != nil {
		return nil, err
	}

	stats := &models.TodayStats{Pending: pending}
	for i := range today {
		switch today[i].Status {
		case models.PurchaseApproved:
			stats.ApprovedToday++
			stats.AmountToday = stats.AmountToday.Add(today[i].Amount)
		case models.PurchaseRejected:
			stats.RejectedToday++
		}
	}
	return stats, nil
}

// TopBuyers ranks a raffle's approved buyers by ticket count.
func (s *Service) TopBuyers(ctx context.Context, claims models.StaffClaims, raffleID string) ([]models.BuyerTotal, error) {
	if err := requireStaff(claims); err != nil {
		return nil, err
	}
	return s.store.TopBuyers(ctx, raffleID, 10)
}

// localMidnight is the start of t's calendar day in loc, returned in UTC.
func localMidnight(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return midnight.UTC()
}
