package handler

import (
	"io"
	"net/http"

	"github.com/Ahmad-Hisham007/tutorate-server/internal/modules/payment/dto"
	payment "github.com/Ahmad-Hisham007/tutorate-server/internal/modules/payment/service"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	"github.com/Ahmad-Hisham007/tutorate-server/pkg/response"
	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 64 << 10

type PaymentHandler struct {
	service payment.PaymentService
}

func NewPaymentHandler(service payment.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	p, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.CreateIntentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	intent, err := h.service.CreateIntent(c.Request.Context(), p, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Created(c, intent)
}

func (h *PaymentHandler) PaymentSuccess(c *gin.Context) {
	p, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.PaymentSuccessInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	assignment, err := h.service.ConfirmSuccess(c.Request.Context(), p, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if assignment.Duplicate {
		response.Success(c, assignment)
		return
	}
	response.Created(c, assignment)
}

func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		response.ResponseError(c, apperror.Invalid("unreadable webhook body"))
		return
	}

	result, err := h.service.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, result)
}

func (h *PaymentHandler) GetMyPayments(c *gin.Context) {
	p, err := response.GetPrincipal(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var query dto.PaymentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err)
		return
	}

	payments, err := h.service.ListMine(c.Request.Context(), p, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, payments)
}

func (h *PaymentHandler) GetAllPayments(c *gin.Context) {
	var query dto.PaymentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ValidationError(c, err)
		return
	}

	payments, err := h.service.ListAll(c.Request.Context(), query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Success(c, payments)
}
