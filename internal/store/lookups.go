package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"rifa-web-app/internal/apperrors"
	"rifa-web-app/internal/models"
)

// FindTicketHolder resolves who owns a given number in a raffle, together
// with every number that buyer holds there. Read-only; returns
// ErrNotFound when the number is unassigned.
func (s *Store) FindTicketHolder(ctx context.Context, raffleID string, number int) (*models.WinnerLookup, error) {
	var w models.WinnerLookup
	err := s.db.QueryRowContext(ctx,
		`SELECT p.id, p.full_name, p.national_id, p.email, p.whatsapp
		 FROM tickets t JOIN purchase_requests p ON p.id = t.request_id
		 WHERE t.raffle_id = ? AND t.number = ?`,
		raffleID, number).Scan(&w.RequestID, &w.FullName, &w.NationalID, &w.Email, &w.Whatsapp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find holder of ticket %d in raffle %s: %w", number, raffleID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT number FROM tickets WHERE raffle_id = ? AND request_id = ? ORDER BY number`,
		raffleID, w.RequestID)
	if err != nil {
		return nil, fmt.Errorf("load numbers for request %s: %w", w.RequestID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan ticket number: %w", err)
		}
		w.Numbers = append(w.Numbers, n)
	}
	return &w, rows.Err()
}

// TopBuyers ranks approved buyers of a raffle by ticket count. Amounts
// are summed in Go: they are stored as decimal text, which SQL SUM would
// coerce through floats.
func (s *Store) TopBuyers(ctx context.Context, raffleID string, limit int) ([]models.BuyerTotal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT full_name, national_id, ticket_qty, amount
		 FROM purchase_requests
		 WHERE raffle_id = ? AND status = ?`,
		raffleID, models.PurchaseApproved)
	if err != nil {
		return nil, fmt.Errorf("top buyers for raffle %s: %w", raffleID, err)
	}
	defer rows.Close()

	totals := make(map[string]*models.BuyerTotal)
	var order []string
	for rows.Next() {
		var name, nationalID, amount string
		var qty int
		if err := rows.Scan(&name, &nationalID, &qty, &amount); err != nil {
			return nil, fmt.Errorf("scan buyer total: %w", err)
		}
		b, ok := totals[nationalID]
		if !ok {
			b = &models.BuyerTotal{FullName: name, NationalID: nationalID}
			totals[nationalID] = b
			order = append(order, nationalID)
		}
		b.TicketTotal += qty
		b.AmountTotal = b.AmountTotal.Add(parseDecimal(amount))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	buyers := make([]models.BuyerTotal, 0, len(totals))
	for _, id := range order {
		buyers = append(buyers, *totals[id])
	}
	sort.Slice(buyers, func(i, j int) bool {
		return buyers[i].TicketTotal > buyers[j].TicketTotal
	})
	if limit > 0 && len(buyers) > limit {
		buyers = buyers[:limit]
	}
	return buyers, nil
}
