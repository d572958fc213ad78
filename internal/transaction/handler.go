package transaction

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Handler exposes money-movement endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a transaction handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type depositRequest struct {
	AccountID   string          `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type withdrawRequest struct {
	AccountID   string          `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type transferRequest struct {
	SourceAccountID      string          `json:"source_account_id"`
	DestinationAccountID string          `json:"destination_account_id"`
	Amount               decimal.Decimal `json:"amount"`
	Description          string          `json:"description"`
}

type recordResponse struct {
	ID                   string     `json:"id"`
	SourceAccountID      string     `json:"source_account_id,omitempty"`
	DestinationAccountID string     `json:"destination_account_id,omitempty"`
	Amount               string     `json:"amount"`
	Kind                 Kind       `json:"kind"`
	Status               Status     `json:"status"`
	Description          string     `json:"description,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
}

func toResponse(record Record) recordResponse {
	return recordResponse{
		ID:                   record.ID,
		SourceAccountID:      record.SourceAccountID,
		DestinationAccountID: record.DestinationAccountID,
		Amount:               record.Amount.StringFixed(2),
		Kind:                 record.Kind,
		Status:               record.Status,
		Description:          record.Description,
		CreatedAt:            record.CreatedAt,
		CompletedAt:          record.CompletedAt,
	}
}

func toResponses(records []Record) []recordResponse {
	out := make([]recordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toResponse(record))
	}
	return out
}

// Deposit handles POST /cash/deposit.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	record, err := h.service.Deposit(c.UserContext(), DepositInput{
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(record))
}

// Withdraw handles POST /cash/withdraw.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	record, err := h.service.Withdraw(c.UserContext(), WithdrawInput{
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(record))
}

// Transfer handles POST /transfers.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	record, err := h.service.Transfer(c.UserContext(), TransferInput{
		SourceAccountID:      req.SourceAccountID,
		DestinationAccountID: req.DestinationAccountID,
		Amount:               req.Amount,
		Description:          req.Description,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(record))
}

// Cancel handles POST /transfers/:id/cancel.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	record, err := h.service.Cancel(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(toResponse(record))
}

// Retry handles POST /transfers/:id/retry.
func (h *Handler) Retry(c *fiber.Ctx) error {
	record, err := h.service.Retry(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(toResponse(record))
}

// Get handles GET /transfers/:id.
func (h *Handler) Get(c *fiber.Ctx) error {
	record, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(toResponse(record))
}

// List handles GET /transactions?account=&status=.
func (h *Handler) List(c *fiber.Ctx) error {
	account := c.Query("account")
	status := Status(c.Query("status"))

	var (
		records []Record
		err     error
	)
	switch {
	case account != "" && status != "":
		records, err = h.service.ListByAccountAndStatus(c.UserContext(), account, status)
	case account != "":
		records, err = h.service.ListByAccount(c.UserContext(), account)
	case status != "":
		records, err = h.service.ListByStatus(c.UserContext(), status)
	default:
		return fiber.NewError(http.StatusBadRequest, "account or status query parameter is required")
	}
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"transactions": toResponses(records)})
}

// Totals handles GET /accounts/:id/totals with transfer sums and counts.
func (h *Handler) Totals(c *fiber.Ctx) error {
	accountID := c.Params("id")
	ctx := c.UserContext()

	sent, err := h.service.TotalSent(ctx, accountID)
	if err != nil {
		return mapError(err)
	}
	received, err := h.service.TotalReceived(ctx, accountID)
	if err != nil {
		return mapError(err)
	}
	completed, err := h.service.CountByAccountAndStatus(ctx, accountID, StatusCompleted)
	if err != nil {
		return mapError(err)
	}
	failed, err := h.service.CountByAccountAndStatus(ctx, accountID, StatusFailed)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(fiber.Map{
		"account_id":      accountID,
		"total_sent":      sent.StringFixed(2),
		"total_received":  received.StringFixed(2),
		"completed_count": completed,
		"failed_count":    failed,
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrAccountNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrIllegalTransition):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrDependencyUnavailable):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
