package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-membership/internal/logger"
	"ms-membership/internal/membership"
	"ms-membership/internal/models"
	"ms-membership/internal/pledge"
)

type Handler struct {
	PledgeService     *pledge.Service
	MembershipService *membership.Service
	Logger            *logger.Logger
}

func NewHandler(pledgeService *pledge.Service, membershipService *membership.Service, log *logger.Logger) *Handler {
	return &Handler{
		PledgeService:     pledgeService,
		MembershipService: membershipService,
		Logger:            log,
	}
}

// SubmitPledge runs the pledge workflow. The response body is always a
// PledgeResult; a declined payment answers 402, not 500.
func (h *Handler) SubmitPledge(w http.ResponseWriter, r *http.Request) {
	var req models.PledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("API", fmt.Sprintf("SubmitPledge: failed to decode request body: %v", err))
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	result := h.PledgeService.Submit(r.Context(), req)

	status := http.StatusOK
	if !result.OK {
		status = http.StatusPaymentRequired
	}
	writeJSON(w, status, result)
}

// ReissueMemberships replays membership issuance for a paid order, the
// operational recovery path for a post-payment persistence failure. The
// pledged terms come from the stored order, so the request carries no body.
func (h *Handler) ReissueMemberships(w http.ResponseWriter, r *http.Request) {
	orderRef := chi.URLParam(r, "orderRef")

	result, err := h.PledgeService.ReissueMemberships(r.Context(), orderRef)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ReissueMemberships: %v", err))
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) GetOrderMemberships(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	memberships, err := h.MembershipService.GetMembershipsByOrder(r.Context(), orderID)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetOrderMemberships: %v", err))
		http.Error(w, "Memberships not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, memberships)
}

func (h *Handler) GetMembership(w http.ResponseWriter, r *http.Request) {
	memberNo := chi.URLParam(r, "memberNo")

	m, err := h.MembershipService.GetMembership(r.Context(), memberNo)
	if err != nil {
		http.Error(w, "Membership not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) CancelMembership(w http.ResponseWriter, r *http.Request) {
	memberNo := chi.URLParam(r, "memberNo")

	if err := h.MembershipService.CancelMembership(r.Context(), memberNo); err != nil {
		h.Logger.Error("API", fmt.Sprintf("CancelMembership: %v", err))
		http.Error(w, "Could not cancel membership: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
