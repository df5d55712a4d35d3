package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rifa-web-app/internal/apperrors"
	"rifa-web-app/internal/models"
)

// ApproveAndAllocate is the single atomic unit of work that turns a
// pending request into an approved one: it increments the raffle's
// sold_tickets with a compare-and-swap, binds the picked numbers, and
// flips the request status, all in one transaction, so a buyer never
// observes an approved request without its numbers.
//
// Concurrency: the CAS UPDATE serializes competing approvals on the same
// raffle (libsql runs one writer at a time), and the (raffle_id, number)
// primary key makes any double assignment fail loudly instead of
// silently corrupting the pool.
//
// Idempotence: re-approving an already-approved request returns its
// existing assignment without touching stock. Approving a rejected
// request fails with ErrAlreadyProcessed.
//
// pick chooses qty distinct numbers from [1, totalTickets] excluding
// taken; the selection policy lives in the services package.
func (s *Store) ApproveAndAllocate(ctx context.Context, requestID string,
	pick func(totalTickets int, taken []int, qty int) ([]int, error)) (*models.PurchaseRequest, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin allocation tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+purchaseColumns+purchaseFrom+`WHERE p.id = ?`, requestID)
	req, err := scanPurchase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load purchase request %s: %w", requestID, err)
	}

	switch req.Status {
	case models.PurchaseApproved:
		return req, nil
	case models.PurchaseRejected:
		return nil, apperrors.ErrAlreadyProcessed
	}

	var total, sold int
	err = tx.QueryRowContext(ctx,
		`SELECT total_tickets, sold_tickets FROM raffles WHERE id = ?`,
		req.RaffleID).Scan(&total, &sold)
	if err != nil {
		return nil, fmt.Errorf("load raffle %s stock: %w", req.RaffleID, err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE raffles SET sold_tickets = sold_tickets + ?
		 WHERE id = ? AND sold_tickets + ? <= total_tickets`,
		req.TicketQty, req.RaffleID, req.TicketQty)
	if err != nil {
		return nil, fmt.Errorf("reserve stock for raffle %s: %w", req.RaffleID, err)
	}
	if rowsAffected(res) == 0 {
		// Stock was exhausted by other approvals since submission. The
		// request stays pending; approval is all-or-nothing.
		return nil, &apperrors.StockViolation{
			Requested: req.TicketQty,
			Remaining: total - sold,
			Reason:    "insufficient stock",
		}
	}

	if sold+req.TicketQty == total {
		_, err = tx.ExecContext(ctx,
			`UPDATE raffles SET status = ? WHERE id = ? AND status = ?`,
			models.RaffleSoldOut, req.RaffleID, models.RaffleActive)
		if err != nil {
			return nil, fmt.Errorf("mark raffle %s sold out: %w", req.RaffleID, err)
		}
	}

	taken, err := s.takenNumbers(ctx, tx, req.RaffleID)
	if err != nil {
		return nil, err
	}

	numbers, err := pick(total, taken, req.TicketQty)
	if err != nil {
		return nil, err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tickets (raffle_id, number, request_id) VALUES (?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare ticket insert: %w", err)
	}
	for _, n := range numbers {
		if _, err := stmt.Exec(req.RaffleID, n, req.ID); err != nil {
			stmt.Close()
			return nil, fmt.Errorf("bind ticket %d of raffle %s: %w", n, req.RaffleID, err)
		}
	}
	stmt.Close()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`UPDATE purchase_requests SET status = ?, assigned_numbers = ?, processed_at = ?
		 WHERE id = ?`,
		models.PurchaseApproved, marshalInts(numbers), fmtTime(now), req.ID)
	if err != nil {
		return nil, fmt.Errorf("approve purchase request %s: %w", req.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit allocation tx: %w", err)
	}

	req.Status = models.PurchaseApproved
	req.AssignedNumbers = numbers
	req.ProcessedAt = &now
	return req, nil
}

func (s *Store) takenNumbers(ctx context.Context, tx *sql.Tx, raffleID string) ([]int, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT number FROM tickets WHERE raffle_id = ?`, raffleID)
	if err != nil {
		return nil, fmt.Errorf("load taken numbers for raffle %s: %w", raffleID, err)
	}
	defer rows.Close()

	var taken []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan ticket number: %w", err)
		}
		taken = append(taken, n)
	}
	return taken, rows.Err()
}
