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

const purchaseColumns = `p.id, p.raffle_id, r.title, p.full_name, p.national_id, p.email,
	p.whatsapp, p.ticket_qty, p.amount, p.payment_method, p.reference, p.receipt_path,
	p.status, p.assigned_numbers, p.telegram_chat_id, p.created_at, p.processed_at`

const purchaseFrom = ` FROM purchase_requests p JOIN raffles r ON r.id = p.raffle_id `

func scanPurchase(row interface{ Scan(...any) error }) (*models.PurchaseRequest, error) {
	var p models.PurchaseRequest
	var amount, numbers, createdAt string
	var processedAt sql.NullString

	err := row.Scan(&p.ID, &p.RaffleID, &p.RaffleTitle, &p.FullName, &p.NationalID,
		&p.Email, &p.Whatsapp, &p.TicketQty, &amount, &p.PaymentMethod,
		&p.Reference, &p.ReceiptPath, &p.Status, &numbers, &p.TelegramChatID,
		&createdAt, &processedAt)
	if err != nil {
		return nil, err
	}

	p.Amount = parseDecimal(amount)
	p.AssignedNumbers = unmarshalInts(numbers)
	p.CreatedAt = parseTime(createdAt)
	p.ProcessedAt = parseTimePtr(processedAt)
	return &p, nil
}

func (s *Store) CreatePurchase(ctx context.Context, p *models.PurchaseRequest) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO purchase_requests (id, raffle_id, full_name, national_id, email, whatsapp,
			ticket_qty, amount, payment_method, reference, receipt_path, status,
			assigned_numbers, telegram_chat_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.RaffleID, p.FullName, p.NationalID, p.Email, p.Whatsapp,
		p.TicketQty, p.Amount.String(), p.PaymentMethod, p.Reference, p.ReceiptPath,
		p.Status, marshalInts(p.AssignedNumbers), p.TelegramChatID, fmtTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("create purchase request: %w", err)
	}
	return nil
}

func (s *Store) GetPurchase(ctx context.Context, id string) (*models.PurchaseRequest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+purchaseColumns+purchaseFrom+`WHERE p.id = ?`, id)

	p, err := scanPurchase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get purchase request %s: %w", id, err)
	}
	return p, nil
}

// FindPurchasesByIdentity is the buyer self-service lookup: national id
// plus email is the whole authorization model for this read. Callers must
// pass already-normalized values.
func (s *Store) FindPurchasesByIdentity(ctx context.Context, nationalID, email string) ([]models.PurchaseRequest, error) {
	return s.queryPurchases(ctx,
		`SELECT `+purchaseColumns+purchaseFrom+
			`WHERE p.national_id = ? AND p.email = ? ORDER BY p.created_at DESC`,
		nationalID, email)
}

// ListPurchases returns requests filtered by status; an empty status
// returns everything.
func (s *Store) ListPurchases(ctx context.Context, status models.PurchaseStatus) ([]models.PurchaseRequest, error) {
	if status == "" {
		return s.queryPurchases(ctx,
			`SELECT `+purchaseColumns+purchaseFrom+`ORDER BY p.created_at DESC`)
	}
	return s.queryPurchases(ctx,
		`SELECT `+purchaseColumns+purchaseFrom+`WHERE p.status = ? ORDER BY p.created_at DESC`,
		status)
}

// ListProcessedPurchases feeds the daily history: every approved or
// rejected request, newest first.
func (s *Store) ListProcessedPurchases(ctx context.Context) ([]models.PurchaseRequest, error) {
	return s.queryPurchases(ctx,
		`SELECT `+purchaseColumns+purchaseFrom+
			`WHERE p.status IN (?, ?) ORDER BY p.created_at DESC`,
		models.PurchaseApproved, models.PurchaseRejected)
}

func (s *Store) ListPurchasesSince(ctx context.Context, since time.Time) ([]models.PurchaseRequest, error) {
	return s.queryPurchases(ctx,
		`SELECT `+purchaseColumns+purchaseFrom+
			`WHERE p.created_at >= ? ORDER BY p.created_at DESC`,
		fmtTime(since))
}

func (s *Store) CountPending(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM purchase_requests WHERE status = ?`,
		models.PurchasePending).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending requests: %w", err)
	}
	return n, nil
}

// RejectPurchase flips a pending request to rejected. The conditional
// UPDATE is the guard: zero rows means the request was missing or already
// processed.
func (s *Store) RejectPurchase(ctx context.Context, id string) (*models.PurchaseRequest, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE purchase_requests SET status = ?, processed_at = ? WHERE id = ? AND status = ?`,
		models.PurchaseRejected, fmtTime(time.Now()), id, models.PurchasePending)
	if err != nil {
		return nil, fmt.Errorf("reject purchase request %s: %w", id, err)
	}
	if rowsAffected(res) == 0 {
		if _, err := s.GetPurchase(ctx, id); err != nil {
			return nil, err
		}
		return nil, apperrors.ErrAlreadyProcessed
	}
	return s.GetPurchase(ctx, id)
}

func (s *Store) queryPurchases(ctx context.Context, query string, args ...any) ([]models.PurchaseRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query purchase requests: %w", err)
	}
	defer rows.Close()

	var purchases []models.PurchaseRequest
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase request: %w", err)
		}
		purchases = append(purchases, *p)
	}
	return purchases, rows.Err()
}
