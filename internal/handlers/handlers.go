package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"rifa-web-app/internal/apperrors"
	"rifa-web-app/internal/logger"
	"rifa-web-app/internal/models"
	"rifa-web-app/internal/services"
	"rifa-web-app/internal/storage"
)

type Handler struct {
	svc   *services.Service
	files *storage.Client
	log   *logger.Logger
}

func New(svc *services.Service, files *storage.Client, log *logger.Logger) *Handler {
	return &Handler{svc: svc, files: files, log: log}
}

// raffleResponse adds the derived remaining count the storefront renders.
type raffleResponse struct {
	models.Raffle
	Remaining int `json:"remaining"`
}

// purchaseResponse adds the resolved evidence URL and the polling signal
// that tells a buyer whether their numbers are final.
type purchaseResponse struct {
	*models.PurchaseRequest
	EvidenceURL  string `json:"evidence_url,omitempty"`
	NumbersReady bool   `json:"numbers_ready"`
}

func (h *Handler) purchaseView(p *models.PurchaseRequest) purchaseResponse {
	return purchaseResponse{
		PurchaseRequest: p,
		EvidenceURL:     h.files.PublicURL(p.ReceiptPath),
		NumbersReady:    p.NumbersReady(),
	}
}

func (h *Handler) purchaseViews(ps []models.PurchaseRequest) []purchaseResponse {
	out := make([]purchaseResponse, len(ps))
	for i := range ps {
		out[i] = h.purchaseView(&ps[i])
	}
	return out
}

// ListRaffles serves the public storefront catalog.
func (h *Handler) ListRaffles(w http.ResponseWriter, r *http.Request) {
	raffles, err := h.svc.ListRaffles(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]raffleResponse, len(raffles))
	for i, raf := range raffles {
		out[i] = raffleResponse{Raffle: raf, Remaining: raf.Remaining()}
	}
	h.writeJSON(w, http.StatusOK, out)
}

// SubmitPurchase records a buyer's payment report. Accepts JSON with an
// already-uploaded receipt_path, or multipart/form-data with the receipt
// image in the "receipt" field, which is pushed to the object store
// before the ledger sees the draft.
func (h *Handler) SubmitPurchase(w http.ResponseWriter, r *http.Request) {
	var draft services.PurchaseDraft

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		parsed, err := h.parseMultipartDraft(r)
		if err != nil {
			h.writeError(w, err)
			return
		}
		draft = *parsed
	} else {
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			h.writeError(w, apperrors.NewValidation("body", "malformed JSON"))
			return
		}
	}

	req, err := h.svc.SubmitPurchase(r.Context(), draft)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"request_id": req.ID})
}

func (h *Handler) parseMultipartDraft(r *http.Request) (*services.PurchaseDraft, error) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		return nil, apperrors.NewValidation("body", "malformed multipart form")
	}

	qty, _ := strconv.Atoi(r.FormValue("ticket_qty"))
	chatID, _ := strconv.ParseInt(r.FormValue("telegram_chat_id"), 10, 64)
	draft := &services.PurchaseDraft{
		RaffleID:       r.FormValue("raffle_id"),
		FullName:       r.FormValue("full_name"),
		NationalID:     r.FormValue("national_id"),
		Email:          r.FormValue("email"),
		Whatsapp:       r.FormValue("whatsapp"),
		TicketQty:      qty,
		PaymentMethod:  r.FormValue("payment_method"),
		Reference:      r.FormValue("reference"),
		TelegramChatID: chatID,
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		return nil, apperrors.ErrMissingEvidence
	}
	defer file.Close()

	path := storage.EvidencePath(draft.RaffleID, draft.Reference, header.Filename)
	pointer, err := h.files.Upload(r.Context(), path, header.Header.Get("Content-Type"), file)
	if err != nil {
		return nil, err
	}
	draft.ReceiptPath = pointer
	return draft, nil
}

// FindMyPurchases is the buyer self-service lookup, polled while an
// approval is in flight.
func (h *Handler) FindMyPurchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := h.svc.FindMyPurchases(r.Context(),
		r.URL.Query().Get("national_id"), r.URL.Query().Get("email"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.purchaseViews(purchases))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("Failed to encode response: %v", err)
	}
}

// writeError maps the error taxonomy onto HTTP statuses. StockViolation
// responses carry the authoritative remaining count so the caller can
// retry with a valid quantity.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var ve *apperrors.ValidationError
	var sv *apperrors.StockViolation
	var uf *apperrors.UpstreamFailure

	switch {
	case errors.As(err, &ve):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": ve.Error(), "field": ve.Field,
		})
	case errors.Is(err, apperrors.ErrMissingEvidence):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.As(err, &sv):
		h.writeJSON(w, http.StatusConflict, map[string]any{
			"error":       sv.Error(),
			"remaining":   sv.Remaining,
			"min_tickets": sv.MinTickets,
		})
	case errors.Is(err, apperrors.ErrAlreadyProcessed):
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotAuthorized):
		h.writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &uf):
		h.log.Errorf("Upstream failure: %v", err)
		h.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream service unavailable"})
	default:
		h.log.Errorf("Internal error: %v", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
