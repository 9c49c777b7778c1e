package purchase

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/topupgh/topup-api/internal/domain/transaction"
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

type airtimeRequest struct {
	NetworkID   string          `json:"network_id" validate:"required"`
	PhoneNumber string          `json:"phone_number" validate:"required,msisdn"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
}

type bundleRequest struct {
	NetworkID   string          `json:"network_id" validate:"required"`
	PhoneNumber string          `json:"phone_number" validate:"required,msisdn"`
	PlanID      string          `json:"plan_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"required"`
}

func (h *Handler) BuyAirtime(w http.ResponseWriter, r *http.Request) {
	vendorID := middleware.GetUserID(r.Context())
	if vendorID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req airtimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	result, err := h.svc.BuyAirtime(r.Context(), vendorID, AirtimeRequest{
		NetworkID:   req.NetworkID,
		PhoneNumber: req.PhoneNumber,
		Amount:      req.Amount,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, result)
}

func (h *Handler) BuyDataBundle(w http.ResponseWriter, r *http.Request) {
	vendorID := middleware.GetUserID(r.Context())
	if vendorID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req bundleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if details := validator.Validate(req); details != nil {
		response.ValidationError(w, details)
		return
	}

	result, err := h.svc.BuyDataBundle(r.Context(), vendorID, BundleRequest{
		NetworkID:   req.NetworkID,
		PhoneNumber: req.PhoneNumber,
		PlanID:      req.PlanID,
		Amount:      req.Amount,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, result)
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	vendorID := middleware.GetUserID(r.Context())
	if vendorID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	balance, err := h.svc.Balance(r.Context(), vendorID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"balance": balance})
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	vendorID := middleware.GetUserID(r.Context())
	if vendorID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	trxs, err := h.svc.Transactions(r.Context(), vendorID, limit)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{"transactions": trxs})
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	vendorID := middleware.GetUserID(r.Context())
	if vendorID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	reference := chi.URLParam(r, "reference")

	trx, err := h.svc.TransactionByReference(r.Context(), vendorID, reference)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, trx)
}

func (h *Handler) BundlePlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.svc.BundlePlans(r.Context(), r.URL.Query().Get("network"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(plans)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.BadRequest(w, err.Error())
	case errors.Is(err, wallet.ErrInsufficientFunds):
		response.Conflict(w, "insufficient wallet balance")
	case errors.Is(err, wallet.ErrInvalidAmount):
		response.BadRequest(w, "amount must be greater than zero")
	case errors.Is(err, transaction.ErrNotFound):
		response.NotFound(w, "transaction not found")
	default:
		response.InternalError(w)
	}
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(middleware.RequireVendor())
	r.Post("/airtime", h.BuyAirtime)
	r.Post("/databundle", h.BuyDataBundle)
	r.Get("/databundle/plans", h.BundlePlans)
	r.Get("/balance", h.Balance)
	r.Get("/transactions", h.ListTransactions)
	r.Get("/transactions/{reference}", h.GetTransaction)
	return r
}
