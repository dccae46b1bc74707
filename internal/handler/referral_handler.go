package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"nurseconnect-registration/internal/models"
	"nurseconnect-registration/internal/msisdn"
	"nurseconnect-registration/internal/util"
)

// ReferralLinks is satisfied by *referral.Service.
type ReferralLinks interface {
	CreateOrGet(ctx context.Context, msisdn string) (*models.ReferralLink, error)
	BuildLink(baseURL string, link *models.ReferralLink) (string, error)
}

type ReferralHandler struct {
	links   ReferralLinks
	baseURL string
}

// NewReferralHandler builds the API handler. An empty baseURL builds links
// from the request host.
func NewReferralHandler(links ReferralLinks, baseURL string) *ReferralHandler {
	return &ReferralHandler{links: links, baseURL: baseURL}
}

type referralLinkRequest struct {
	Contact *struct {
		URN string `json:"urn"`
	} `json:"contact"`
}

type referralLinkResponse struct {
	ReferralLink string `json:"referral_link"`
}

// Create returns the referral link for the contact's URN, creating it if
// needed.
func (h *ReferralHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req referralLinkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"non_field_errors": []string{"Invalid JSON body."},
		})
		return
	}
	if req.Contact == nil || req.Contact.URN == "" {
		writeURNError(w, "This field is required.")
		return
	}

	number, err := msisdn.FromURN(req.Contact.URN)
	if err != nil {
		msg := "Invalid phone number."
		if errors.Is(err, msisdn.ErrInvalidURN) {
			msg = "Invalid URN."
		}
		writeURNError(w, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	link, err := h.links.CreateOrGet(ctx, number)
	if err != nil {
		util.Error("Failed to create referral link", util.MSISDN("msisdn", number), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Internal server error."})
		return
	}
	uri, err := h.links.BuildLink(absoluteBaseURL(h.baseURL, r), link)
	if err != nil {
		util.Error("Failed to build referral link", zap.Int64("id", link.ID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Internal server error."})
		return
	}

	writeJSON(w, http.StatusOK, referralLinkResponse{ReferralLink: uri})
}

func writeURNError(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"contact": map[string][]string{"urn": {msg}},
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		util.Warn("Failed to write response", zap.Error(err))
	}
}
