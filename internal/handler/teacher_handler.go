package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/muse-ops-api/internal/dto"
	"github.com/noah-isme/muse-ops-api/internal/models"
	"github.com/noah-isme/muse-ops-api/internal/service"
	appErrors "github.com/noah-isme/muse-ops-api/pkg/errors"
	"github.com/noah-isme/muse-ops-api/pkg/response"
)

// TeacherHandler wires teacher, reconciliation and payout services to HTTP routes.
type TeacherHandler struct {
	teachers   *service.TeacherService
	reconciler *service.ReconcilerService
	payouts    *service.PayoutService
}

// NewTeacherHandler constructs a new TeacherHandler.
func NewTeacherHandler(teachers *service.TeacherService, reconciler *service.ReconcilerService, payouts *service.PayoutService) *TeacherHandler {
	return &TeacherHandler{
		teachers:   teachers,
		reconciler: reconciler,
		payouts:    payouts,
	}
}

// List godoc
// @Summary List teachers
// @Tags Teachers
// @Produce json
// @Param search query string false "Search by name"
// @Param active query bool false "Filter by active state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /teachers [get]
func (h *TeacherHandler) List(c *gin.Context) {
	var filter models.TeacherFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Active = parseBoolQuery(c, "active")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	teachers, pagination, err := h.teachers.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, pagination)
}

// Get godoc
// @Summary Get teacher
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id} [get]
func (h *TeacherHandler) Get(c *gin.Context) {
	teacher, err := h.teachers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// Create godoc
// @Summary Create teacher
// @Tags Teachers
// @Accept json
// @Produce json
// @Param payload body dto.CreateTeacherRequest true "Teacher payload"
// @Success 201 {object} response.Envelope
// @Router /teachers [post]
func (h *TeacherHandler) Create(c *gin.Context) {
	var req dto.CreateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rate, err := decimal.NewFromString(req.PayoutRate)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "payoutRate must be a decimal number"))
		return
	}
	teacher := &models.Teacher{
		FullName:   strings.TrimSpace(req.FullName),
		Email:      req.Email,
		Phone:      req.Phone,
		PayoutType: req.PayoutType,
		PayoutRate: rate,
	}
	if err := h.teachers.Create(c.Request.Context(), teacher); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, teacher)
}

// Update godoc
// @Summary Update teacher
// @Tags Teachers
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body dto.UpdateTeacherRequest true "Teacher payload"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id} [put]
func (h *TeacherHandler) Update(c *gin.Context) {
	var req dto.UpdateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rate, err := decimal.NewFromString(req.PayoutRate)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "payoutRate must be a decimal number"))
		return
	}
	teacher := &models.Teacher{
		ID:         c.Param("id"),
		FullName:   strings.TrimSpace(req.FullName),
		Email:      req.Email,
		Phone:      req.Phone,
		PayoutType: req.PayoutType,
		PayoutRate: rate,
		Active:     true,
	}
	if req.Active != nil {
		teacher.Active = *req.Active
	}
	if err := h.teachers.Update(c.Request.Context(), teacher); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// Reconciliation godoc
// @Summary Scheduled vs conducted sessions per month
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Param from query string true "Start month YYYY-MM"
// @Param to query string true "End month YYYY-MM"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/reconciliation [get]
func (h *TeacherHandler) Reconciliation(c *gin.Context) {
	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from and to months are required"))
		return
	}
	result, err := h.reconciler.Reconciliation(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// MarkSession godoc
// @Summary Record a conducted or missed session
// @Tags Teachers
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body dto.TeacherMarkRequest true "Session mark payload"
// @Success 201 {object} response.Envelope
// @Router /teachers/{id}/sessions [post]
func (h *TeacherHandler) MarkSession(c *gin.Context) {
	var req dto.TeacherMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.TeacherID = c.Param("id")
	mark, err := h.reconciler.RecordMark(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mark)
}

// Payout godoc
// @Summary Projected payout with monthly history
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Param from query string true "Start month YYYY-MM"
// @Param to query string true "End month YYYY-MM"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/payout [get]
func (h *TeacherHandler) Payout(c *gin.Context) {
	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from and to months are required"))
		return
	}
	payout, err := h.payouts.TeacherPayout(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payout, nil)
}
