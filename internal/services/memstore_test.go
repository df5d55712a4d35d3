package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"rifa-web-app/internal/apperrors"
	"rifa-web-app/internal/logger"
	"rifa-web-app/internal/models"
)

// memStore is an in-memory Store with the same contract as the SQL one:
// a single lock stands in for the database's serialized writes, and
// ApproveAndAllocate keeps the compare-and-swap stock check.
type memStore struct {
	mu        sync.Mutex
	raffles   map[string]*models.Raffle
	purchases map[string]*models.PurchaseRequest
	tickets   map[string]map[int]string // raffle id -> number -> request id
	admins    map[string]*models.AdminUser
}

func newMemStore() *memStore {
	return &memStore{
		raffles:   map[string]*models.Raffle{},
		purchases: map[string]*models.PurchaseRequest{},
		tickets:   map[string]map[int]string{},
		admins:    map[string]*models.AdminUser{},
	}
}

func (m *memStore) ListRaffles(ctx context.Context) ([]models.Raffle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Raffle{}
	for _, r := range m.raffles {
		if r.Status != models.RaffleDeleted {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) GetRaffle(ctx context.Context, id string) (*models.Raffle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.raffles[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) CreateRaffle(ctx context.Context, r *models.Raffle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.raffles[r.ID] = &cp
	return nil
}

func (m *memStore) UpdateRaffle(ctx context.Context, r *models.Raffle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.raffles[r.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if r.TotalTickets < cur.SoldTickets {
		return &apperrors.StockViolation{
			Requested: r.TotalTickets,
			Remaining: cur.SoldTickets,
			Reason:    "total_tickets below sold_tickets",
		}
	}
	cp := *r
	cp.SoldTickets = cur.SoldTickets
	m.raffles[r.ID] = &cp
	return nil
}

func (m *memStore) SetRaffleStatus(ctx context.Context, id string, status models.RaffleStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.raffles[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	r.Status = status
	return nil
}

func (m *memStore) CreatePurchase(ctx context.Context, p *models.PurchaseRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.purchases[p.ID] = &cp
	return nil
}

func (m *memStore) GetPurchase(ctx context.Context, id string) (*models.PurchaseRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.purchases[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) FindPurchasesByIdentity(ctx context.Context, nationalID, email string) ([]models.PurchaseRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.PurchaseRequest{}
	for _, p := range m.purchases {
		if p.NationalID == nationalID && p.Email == email {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) ListPurchases(ctx context.Context, status models.PurchaseStatus) ([]models.PurchaseRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.PurchaseRequest{}
	for _, p := range m.purchases {
		if status == "" || p.Status == status {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) ListProcessedPurchases(ctx context.Context) ([]models.PurchaseRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.PurchaseRequest{}
	for _, p := range m.purchases {
		if p.Status == models.PurchaseApproved || p.Status == models.PurchaseRejected {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) ListPurchasesSince(ctx context.Context, since time.Time) ([]models.PurchaseRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.PurchaseRequest{}
	for _, p := range m.purchases {
		if !p.CreatedAt.Before(since) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) CountPending(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.purchases {
		if p.Status == models.PurchasePending {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ApproveAndAllocate(ctx context.Context, requestID string,
	pick func(totalTickets int, taken []int, qty int) ([]int, error)) (*models.PurchaseRequest, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.purchases[requestID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	switch req.Status {
	case models.PurchaseApproved:
		cp := *req
		return &cp, nil
	case models.PurchaseRejected:
		return nil, apperrors.ErrAlreadyProcessed
	}

	raffle, ok := m.raffles[req.RaffleID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if raffle.SoldTickets+req.TicketQty > raffle.TotalTickets {
		return nil, &apperrors.StockViolation{
			Requested: req.TicketQty,
			Remaining: raffle.TotalTickets - raffle.SoldTickets,
			Reason:    "insufficient stock",
		}
	}

	allocated := m.tickets[raffle.ID]
	if allocated == nil {
		allocated = map[int]string{}
		m.tickets[raffle.ID] = allocated
	}
	taken := make([]int, 0, len(allocated))
	for n := range allocated {
		taken = append(taken, n)
	}

	numbers, err := pick(raffle.TotalTickets, taken, req.TicketQty)
	if err != nil {
		return nil, err
	}
	for _, n := range numbers {
		if _, dup := allocated[n]; dup {
			panic("duplicate ticket number allocated")
		}
		allocated[n] = req.ID
	}

	raffle.SoldTickets += req.TicketQty
	if raffle.SoldTickets == raffle.TotalTickets && raffle.Status == models.RaffleActive {
		raffle.Status = models.RaffleSoldOut
	}

	now := time.Now().UTC()
	req.Status = models.PurchaseApproved
	req.AssignedNumbers = numbers
	req.ProcessedAt = &now

	cp := *req
	return &cp, nil
}

func (m *memStore) RejectPurchase(ctx context.Context, requestID string) (*models.PurchaseRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.purchases[requestID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if req.Status != models.PurchasePending {
		return nil, apperrors.ErrAlreadyProcessed
	}

	now := time.Now().UTC()
	req.Status = models.PurchaseRejected
	req.ProcessedAt = &now

	cp := *req
	return &cp, nil
}

func (m *memStore) FindTicketHolder(ctx context.Context, raffleID string, number int) (*models.WinnerLookup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	requestID, ok := m.tickets[raffleID][number]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	req := m.purchases[requestID]

	numbers := []int{}
	for n, id := range m.tickets[raffleID] {
		if id == requestID {
			numbers = append(numbers, n)
		}
	}
	sort.Ints(numbers)

	return &models.WinnerLookup{
		RequestID:  req.ID,
		FullName:   req.FullName,
		NationalID: req.NationalID,
		Email:      req.Email,
		Whatsapp:   req.Whatsapp,
		Numbers:    numbers,
	}, nil
}

func (m *memStore) TopBuyers(ctx context.Context, raffleID string, limit int) ([]models.BuyerTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byID := map[string]*models.BuyerTotal{}
	for _, p := range m.purchases {
		if p.RaffleID != raffleID || p.Status != models.PurchaseApproved {
			continue
		}
		b, ok := byID[p.NationalID]
		if !ok {
			b = &models.BuyerTotal{FullName: p.FullName, NationalID: p.NationalID}
			byID[p.NationalID] = b
		}
		b.TicketTotal += p.TicketQty
		b.AmountTotal = b.AmountTotal.Add(p.Amount)
	}

	out := make([]models.BuyerTotal, 0, len(byID))
	for _, b := range byID {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TicketTotal > out[j].TicketTotal })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListAdmins(ctx context.Context) ([]models.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.AdminUser{}
	for _, a := range m.admins {
		out = append(out, *a)
	}
	return out, nil
}

func (m *memStore) GetAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.admins {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *memStore) CreateAdmin(ctx context.Context, a *models.AdminUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.admins[a.ID] = &cp
	return nil
}

func (m *memStore) UpdateAdminRole(ctx context.Context, id string, role models.AdminRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	a.Role = role
	return nil
}

func (m *memStore) DeleteAdmin(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.admins, id)
	return nil
}

// --- test fixtures ---

type recordingNotifier struct {
	mu        sync.Mutex
	submitted int
	approved  int
	rejected  int
}

func (n *recordingNotifier) PurchaseSubmitted(*models.PurchaseRequest, *models.Raffle) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitted++
	return nil
}

func (n *recordingNotifier) PurchaseApproved(*models.PurchaseRequest, *models.Raffle) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.approved++
	return nil
}

func (n *recordingNotifier) PurchaseRejected(*models.PurchaseRequest, *models.Raffle) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rejected++
	return nil
}

type failingNotifier struct{}

func (failingNotifier) PurchaseSubmitted(*models.PurchaseRequest, *models.Raffle) error {
	return &apperrors.UpstreamFailure{Service: "telegram", Err: context.DeadlineExceeded}
}

func (failingNotifier) PurchaseApproved(*models.PurchaseRequest, *models.Raffle) error {
	return &apperrors.UpstreamFailure{Service: "telegram", Err: context.DeadlineExceeded}
}

func (failingNotifier) PurchaseRejected(*models.PurchaseRequest, *models.Raffle) error {
	return &apperrors.UpstreamFailure{Service: "telegram", Err: context.DeadlineExceeded}
}

func newTestService(st Store, n Notifier) *Service {
	return New(st, n, logger.New("error"), -4)
}

var (
	superadmin = models.StaffClaims{AdminID: "sa", Email: "sa@example.com", Role: models.RoleSuperadmin}
	pagosStaff = models.StaffClaims{AdminID: "pg", Email: "pagos@example.com", Role: models.RolePagos}
	nobody     = models.StaffClaims{}
)

func seedRaffle(m *memStore, id string, total, sold, minTickets int) *models.Raffle {
	r := &models.Raffle{
		ID:           id,
		Title:        "Rifa " + id,
		TicketPrice:  decimal.NewFromInt(10),
		Currency:     "Bs",
		TotalTickets: total,
		SoldTickets:  sold,
		MinTickets:   minTickets,
		Status:       models.RaffleActive,
		Prizes:       []string{"Moto"},
		CreatedAt:    time.Now().UTC(),
	}
	m.raffles[id] = r
	return r
}

func seedPending(m *memStore, id, raffleID string, qty int) *models.PurchaseRequest {
	p := &models.PurchaseRequest{
		ID:              id,
		RaffleID:        raffleID,
		FullName:        "Maria Perez",
		NationalID:      "12345678",
		Email:           "maria@example.com",
		Whatsapp:        "04141234567",
		TicketQty:       qty,
		Amount:          decimal.NewFromInt(int64(qty * 10)),
		PaymentMethod:   "pago_movil",
		Reference:       "00123",
		ReceiptPath:     raffleID + "/00123-abc.jpg",
		Status:          models.PurchasePending,
		AssignedNumbers: []int{},
		CreatedAt:       time.Now().UTC(),
	}
	m.purchases[id] = p
	return p
}
