package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cojovi/material-pricing-api/internal/dto"
	"github.com/cojovi/material-pricing-api/internal/service"
	appErrors "github.com/cojovi/material-pricing-api/pkg/errors"
	"github.com/cojovi/material-pricing-api/pkg/response"
)

// PriceRequestHandler wires HTTP endpoints to the price-change workflow.
type PriceRequestHandler struct {
	service *service.PriceRequestService
}

// NewPriceRequestHandler creates a new handler.
func NewPriceRequestHandler(svc *service.PriceRequestService) *PriceRequestHandler {
	return &PriceRequestHandler{service: svc}
}

// Submit godoc
// @Summary Submit price change request
// @Description Propose a new price for a material; admins review it later
// @Tags Price Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreatePriceChangeRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /price-change-requests [post]
func (h *PriceRequestHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreatePriceChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload"))
		return
	}

	request, err := h.service.Submit(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List price change requests
// @Description List requests, optionally filtered by status
// @Tags Price Requests
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved or rejected"
// @Success 200 {object} response.Envelope
// @Router /price-change-requests [get]
func (h *PriceRequestHandler) List(c *gin.Context) {
	requests, err := h.service.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Get price change request
// @Tags Price Requests
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /price-change-requests/{id} [get]
func (h *PriceRequestHandler) Get(c *gin.Context) {
	request, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Approve godoc
// @Summary Approve price change request
// @Description Approve a pending request and apply the price (admin only)
// @Tags Price Requests
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /price-change-requests/{id}/approve [post]
func (h *PriceRequestHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	request, err := h.service.Approve(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Reject godoc
// @Summary Reject price change request
// @Description Reject a pending request with optional notes (admin only)
// @Tags Price Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Param payload body dto.RejectPriceChangeRequest false "Rejection notes"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /price-change-requests/{id}/reject [post]
func (h *PriceRequestHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.RejectPriceChangeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rejection payload"))
			return
		}
	}

	request, err := h.service.Reject(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
