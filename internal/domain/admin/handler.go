package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/topupgh/topup-api/internal/domain/commission"
	"github.com/topupgh/topup-api/internal/domain/transaction"
	"github.com/topupgh/topup-api/internal/domain/user"
	"github.com/topupgh/topup-api/internal/domain/wallet"
	"github.com/topupgh/topup-api/internal/middleware"
	"github.com/topupgh/topup-api/internal/pkg/response"
	"github.com/topupgh/topup-api/internal/pkg/validator"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type setCommissionRequest struct {
	Rate  decimal.Decimal `json:"rate" validate:"required"`
	Model string          `json:"model" validate:"required,commission_model"`
}

type fundVendorRequest struct {
	VendorID string          `json:"vendor_id" validate:"required,uuid"`
	Amount   decimal.Decimal `json:"amount" validate:"required"`
}

func (h *Handler) SetCommission(w http.ResponseWriter, r *http.Request) {
	vendorID, err := uuid.Parse(chi.URLParam(r, "vendorID"))
	if err != nil {
		response.BadRequest(w, "invalid vendor id")
		return
	}

	var req setCommissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	setting, err := h.svc.SetCommission(r.Context(), vendorID, req.Rate, commission.Model(req.Model))
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, setting)
}

func (h *Handler) GetCommission(w http.ResponseWriter, r *http.Request) {
	vendorID, err := uuid.Parse(chi.URLParam(r, "vendorID"))
	if err != nil {
		response.BadRequest(w, "invalid vendor id")
		return
	}

	setting, err := h.svc.GetCommission(r.Context(), vendorID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, setting)
}

func (h *Handler) FundVendor(w http.ResponseWriter, r *http.Request) {
	adminID := middleware.GetUserID(r.Context())
	if adminID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req fundVendorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}
	vendorID, err := uuid.Parse(req.VendorID)
	if err != nil {
		response.BadRequest(w, "invalid vendor id")
		return
	}

	trx, err := h.svc.FundVendor(r.Context(), adminID, vendorID, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, trx)
}

func (h *Handler) ListVendors(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	search := r.URL.Query().Get("search")

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	vendors, total, err := h.svc.ListVendors(r.Context(), search, page, limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list vendors")
		response.InternalError(w)
		return
	}

	response.WithMeta(w, vendors, response.Meta{Total: total, Page: page, Limit: limit})
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filters := transaction.Filters{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	if raw := q.Get("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(w, "invalid user_id")
			return
		}
		filters.UserID = &id
	}
	if raw := q.Get("status"); raw != "" {
		status := transaction.Status(raw)
		switch status {
		case transaction.StatusPending, transaction.StatusSuccess, transaction.StatusFailed:
			filters.Status = &status
		default:
			response.BadRequest(w, "invalid status")
			return
		}
	}
	if raw := q.Get("date_from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(w, "invalid date_from")
			return
		}
		filters.DateFrom = &t
	}
	if raw := q.Get("date_to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(w, "invalid date_to")
			return
		}
		filters.DateTo = &t
	}

	trxs, total, err := h.svc.ListTransactions(r.Context(), filters)
	if err != nil {
		log.Error().Err(err).Msg("failed to list transactions")
		response.InternalError(w)
		return
	}

	response.WithMeta(w, trxs, response.Meta{Total: total, Page: page, Limit: limit})
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	partyID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		response.BadRequest(w, "invalid user id")
		return
	}

	wal, err := h.svc.WalletOf(r.Context(), partyID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, wal)
}

func (h *Handler) ProviderBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.svc.ProviderBalance(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch provider balance")
		response.Error(w, http.StatusBadGateway, "PROVIDER_UNAVAILABLE", "provider balance unavailable")
		return
	}

	response.OK(w, map[string]decimal.Decimal{"balance": balance})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrNotFound):
		response.NotFound(w, "user not found")
	case errors.Is(err, user.ErrNotVendor):
		response.BadRequest(w, "target user is not a vendor")
	case errors.Is(err, wallet.ErrInvalidAmount):
		response.BadRequest(w, "amount must be positive")
	case errors.Is(err, wallet.ErrInsufficientFunds):
		response.Conflict(w, "insufficient funds")
	case errors.Is(err, commission.ErrInvalidRate):
		response.BadRequest(w, "invalid commission rate")
	case errors.Is(err, commission.ErrUnknownModel):
		response.BadRequest(w, "unknown commission model")
	default:
		log.Error().Err(err).Msg("admin operation failed")
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(authMiddleware)
	r.Use(middleware.RequireAdmin())

	r.Get("/vendors", h.ListVendors)
	r.Post("/vendors/{vendorID}/commission", h.SetCommission)
	r.Get("/vendors/{vendorID}/commission", h.GetCommission)
	r.Post("/fund", h.FundVendor)
	r.Get("/transactions", h.ListTransactions)
	r.Get("/wallets/{userID}", h.GetWallet)
	r.Get("/provider/balance", h.ProviderBalance)

	return r
}
