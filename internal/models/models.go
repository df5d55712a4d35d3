package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RaffleStatus is the lifecycle state of a raffle. Deletion is a status,
// never a row removal: history stays queryable for audits and statistics.
type RaffleStatus string

const (
	RaffleActive  RaffleStatus = "active"
	RafflePaused  RaffleStatus = "paused"
	RaffleClosed  RaffleStatus = "closed"
	RaffleDrawn   RaffleStatus = "drawn"
	RaffleSoldOut RaffleStatus = "sold_out"
	RaffleHidden  RaffleStatus = "hidden"
	RaffleDeleted RaffleStatus = "deleted"
)

type PurchaseStatus string

const (
	PurchasePending  PurchaseStatus = "pending"
	PurchaseApproved PurchaseStatus = "approved"
	PurchaseRejected PurchaseStatus = "rejected"
)

type AdminRole string

const (
	RoleSuperadmin AdminRole = "superadmin"
	RolePagos      AdminRole = "pagos"
)

// DefaultMinTickets is the purchase floor applied to raffles created
// without an explicit one.
const DefaultMinTickets = 3

// Raffle is a single sweepstake campaign with a fixed ticket pool.
// Ticket numbers are 1-based: buyers hold numbers in [1, TotalTickets].
type Raffle struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	TicketPrice  decimal.Decimal `json:"ticket_price"`
	Currency     string          `json:"currency"`
	TotalTickets int             `json:"total_tickets"`
	SoldTickets  int             `json:"sold_tickets"`
	MinTickets   int             `json:"min_tickets"`
	Status       RaffleStatus    `json:"status"`
	CoverURL     string          `json:"cover_url"`
	Prizes       []string        `json:"prizes"`
	DrawDate     *time.Time      `json:"draw_date,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Remaining is the count of tickets still available for sale.
func (r *Raffle) Remaining() int {
	left := r.TotalTickets - r.SoldTickets
	if left < 0 {
		return 0
	}
	return left
}

// PurchaseRequest is a buyer's self-reported payment claim. TicketQty and
// Amount are frozen at submission time and never recomputed from the
// raffle's current price.
type PurchaseRequest struct {
	ID              string          `json:"id"`
	RaffleID        string          `json:"raffle_id"`
	RaffleTitle     string          `json:"raffle_title,omitempty"`
	FullName        string          `json:"full_name"`
	NationalID      string          `json:"national_id"`
	Email           string          `json:"email"`
	Whatsapp        string          `json:"whatsapp"`
	TicketQty       int             `json:"ticket_qty"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   string          `json:"payment_method"`
	Reference       string          `json:"reference"`
	ReceiptPath     string          `json:"receipt_path"`
	Status          PurchaseStatus  `json:"status"`
	AssignedNumbers []int           `json:"assigned_numbers"`
	TelegramChatID  int64           `json:"telegram_chat_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
}

// NumbersReady tells a polling buyer whether their assignment is final.
func (p *PurchaseRequest) NumbersReady() bool {
	return p.Status == PurchaseApproved && len(p.AssignedNumbers) > 0
}

// AdminUser is a staff account. Authentication lives in the external
// identity provider; this row only carries the role.
type AdminUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      AdminRole `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// StaffClaims is the resolved identity of the staff member performing an
// operation. It is passed explicitly into every staff-facing call; there
// is no ambient "current admin" state.
type StaffClaims struct {
	AdminID string
	Email   string
	Role    AdminRole
}

// IsStaff reports whether the caller may reconcile payments and run lookups.
func (c StaffClaims) IsStaff() bool {
	return c.Role == RoleSuperadmin || c.Role == RolePagos
}

// IsSuperadmin reports whether the caller may manage raffles and users.
func (c StaffClaims) IsSuperadmin() bool {
	return c.Role == RoleSuperadmin
}

// WinnerLookup is the answer to "who holds ticket N in raffle R".
type WinnerLookup struct {
	RequestID  string `json:"request_id"`
	FullName   string `json:"full_name"`
	NationalID string `json:"national_id"`
	Email      string `json:"email"`
	Whatsapp   string `json:"whatsapp"`
	Numbers    []int  `json:"numbers"`
}

// BuyerTotal is one row of a raffle's top-buyers ranking.
type BuyerTotal struct {
	FullName    string          `json:"full_name"`
	NationalID  string          `json:"national_id"`
	TicketTotal int             `json:"ticket_total"`
	AmountTotal decimal.Decimal `json:"amount_total"`
}

// DayBucket aggregates processed requests for one calendar day in the
// configured stats timezone.
type DayBucket struct {
	Date          string          `json:"date"`
	Approved      int             `json:"approved"`
	Rejected      int             `json:"rejected"`
	ApprovedTotal decimal.Decimal `json:"approved_total"`
}

// TodayStats is the admin dashboard headline: global pending backlog plus
// today's reconciliation activity.
type TodayStats struct {
	Pending       int             `json:"pending"`
	ApprovedToday int             `json:"approved_today"`
	RejectedToday int             `json:"rejected_today"`
	AmountToday   decimal.Decimal `json:"amount_today"`
}

// NormalizeDigits strips everything but digits. Used for national ids and
// phone numbers so lookups match regardless of formatting.
func NormalizeDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
