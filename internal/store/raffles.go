package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rifa-web-app/internal/apperrors"
	"rifa-web-app/internal/models"
)

const raffleColumns = `id, title, description, ticket_price, currency, total_tickets,
	sold_tickets, min_tickets, status, cover_url, prizes, draw_date, created_at`

func scanRaffle(row interface{ Scan(...any) error }) (*models.Raffle, error) {
	var r models.Raffle
	var price, prizes, createdAt string
	var drawDate sql.NullString

	err := row.Scan(&r.ID, &r.Title, &r.Description, &price, &r.Currency,
		&r.TotalTickets, &r.SoldTickets, &r.MinTickets, &r.Status,
		&r.CoverURL, &prizes, &drawDate, &createdAt)
	if err != nil {
		return nil, err
	}

	r.TicketPrice = parseDecimal(price)
	r.Prizes = unmarshalStrings(prizes)
	r.DrawDate = parseTimePtr(drawDate)
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

// ListRaffles returns every raffle except soft-deleted ones, newest first.
// Both the public storefront and the admin panel read this list.
func (s *Store) ListRaffles(ctx context.Context) ([]models.Raffle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+raffleColumns+` FROM raffles WHERE status != ? ORDER BY created_at DESC`,
		models.RaffleDeleted)
	if err != nil {
		return nil, fmt.Errorf("list raffles: %w", err)
	}
	defer rows.Close()

	var raffles []models.Raffle
	for rows.Next() {
		r, err := scanRaffle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan raffle: %w", err)
		}
		raffles = append(raffles, *r)
	}
	return raffles, rows.Err()
}

func (s *Store) GetRaffle(ctx context.Context, id string) (*models.Raffle, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+raffleColumns+` FROM raffles WHERE id = ?`, id)

	r, err := scanRaffle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get raffle %s: %w", id, err)
	}
	return r, nil
}

func (s *Store) CreateRaffle(ctx context.Context, r *models.Raffle) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO raffles (`+raffleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Title, r.Description, r.TicketPrice.String(), r.Currency,
		r.TotalTickets, r.SoldTickets, r.MinTickets, r.Status,
		r.CoverURL, marshalStrings(r.Prizes), fmtTimePtr(r.DrawDate), fmtTime(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("create raffle: %w", err)
	}
	return nil
}

// UpdateRaffle writes every staff-editable field. sold_tickets is owned by
// the allocation transaction and is deliberately absent from the SET list;
// the sold_tickets <= total_tickets guard keeps a shrinking pool from
// dropping below what is already sold.
func (s *Store) UpdateRaffle(ctx context.Context, r *models.Raffle) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE raffles SET title = ?, description = ?, ticket_price = ?, currency = ?,
			total_tickets = ?, min_tickets = ?, status = ?, cover_url = ?, prizes = ?, draw_date = ?
		 WHERE id = ? AND sold_tickets <= ?`,
		r.Title, r.Description, r.TicketPrice.String(), r.Currency,
		r.TotalTickets, r.MinTickets, r.Status, r.CoverURL,
		marshalStrings(r.Prizes), fmtTimePtr(r.DrawDate),
		r.ID, r.TotalTickets)
	if err != nil {
		return fmt.Errorf("update raffle %s: %w", r.ID, err)
	}
	if rowsAffected(res) == 0 {
		current, err := s.GetRaffle(ctx, r.ID)
		if err != nil {
			return err
		}
		return &apperrors.StockViolation{
			Requested: r.TotalTickets,
			Remaining: current.SoldTickets,
			Reason:    "total_tickets below sold_tickets",
		}
	}
	return nil
}

func (s *Store) SetRaffleStatus(ctx context.Context, id string, status models.RaffleStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE raffles SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("set raffle %s status: %w", id, err)
	}
	if rowsAffected(res) == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
