package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"rifa-web-app/internal/apperrors"
	"rifa-web-app/internal/middleware"
	"rifa-web-app/internal/models"
	"rifa-web-app/internal/services"
)

func claims(r *http.Request) models.StaffClaims {
	c, _ := middleware.ClaimsFrom(r)
	return c
}

// --- reconciliation ---

func (h *Handler) AdminListRequests(w http.ResponseWriter, r *http.Request) {
	status := models.PurchaseStatus(r.URL.Query().Get("status"))
	purchases, err := h.svc.History(r.Context(), claims(r), status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.purchaseViews(purchases))
}

func (h *Handler) AdminPendingRequests(w http.ResponseWriter, r *http.Request) {
	purchases, err := h.svc.PendingRequests(r.Context(), claims(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.purchaseViews(purchases))
}

func (h *Handler) AdminGetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.GetPurchase(r.Context(), claims(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.purchaseView(req))
}

func (h *Handler) AdminApproveRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.ApprovePurchase(r.Context(), claims(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.purchaseView(req))
}

func (h *Handler) AdminRejectRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.RejectPurchase(r.Context(), claims(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.purchaseView(req))
}

// --- statistics ---

func (h *Handler) AdminTodayStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.TodayStats(r.Context(), claims(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) AdminDailyHistory(w http.ResponseWriter, r *http.Request) {
	days, err := h.svc.DailyAggregate(r.Context(), claims(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, days)
}

func (h *Handler) AdminSearchWinner(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(r.URL.Query().Get("number"))
	if err != nil {
		h.writeError(w, apperrors.NewValidation("number", "must be an integer"))
		return
	}

	winner, err := h.svc.SearchTicketWinner(r.Context(), claims(r), chi.URLParam(r, "id"), number)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, winner)
}

func (h *Handler) AdminTopBuyers(w http.ResponseWriter, r *http.Request) {
	buyers, err := h.svc.TopBuyers(r.Context(), claims(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, buyers)
}

// --- raffle management ---

func (h *Handler) AdminCreateRaffle(w http.ResponseWriter, r *http.Request) {
	var draft services.RaffleDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		h.writeError(w, apperrors.NewValidation("body", "malformed JSON"))
		return
	}

	raffle, err := h.svc.CreateRaffle(r.Context(), claims(r), draft)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, raffleResponse{Raffle: *raffle, Remaining: raffle.Remaining()})
}

func (h *Handler) AdminUpdateRaffle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		services.RaffleDraft
		Status models.RaffleStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, apperrors.NewValidation("body", "malformed JSON"))
		return
	}

	raffle, err := h.svc.UpdateRaffle(r.Context(), claims(r), chi.URLParam(r, "id"), body.RaffleDraft, body.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, raffleResponse{Raffle: *raffle, Remaining: raffle.Remaining()})
}

func (h *Handler) AdminDeleteRaffle(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteRaffle(r.Context(), claims(r), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- admin user management ---

func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	admins, err := h.svc.ListAdminUsers(r.Context(), claims(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, admins)
}

func (h *Handler) AdminCreateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string           `json:"email"`
		Role  models.AdminRole `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, apperrors.NewValidation("body", "malformed JSON"))
		return
	}

	admin, err := h.svc.CreateAdminUser(r.Context(), claims(r), body.Email, body.Role)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, admin)
}

func (h *Handler) AdminUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Role models.AdminRole `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, apperrors.NewValidation("body", "malformed JSON"))
		return
	}

	if err := h.svc.UpdateAdminRole(r.Context(), claims(r), chi.URLParam(r, "id"), body.Role); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAdminUser(r.Context(), claims(r), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
