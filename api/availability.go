package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/service/calendar"
	"github.com/Domenick1991/tourbooking/internal/service/vehicles"
)

type AvailabilityHandler struct {
	vehicles vehicles.AvailabilityUseCase
	calendar calendar.CalendarUseCase
}

type checkQuery struct {
	Date          string  `form:"date" binding:"required"`
	StartTime     string  `form:"start_time" binding:"required"`
	DurationHours float64 `form:"duration_hours" binding:"required"`
	PartySize     int     `form:"party_size" binding:"required"`
	ScopeID       string  `form:"scope_id"`
}

type slotsQuery struct {
	Date          string  `form:"date" binding:"required"`
	DurationHours float64 `form:"duration_hours" binding:"required"`
	PartySize     int     `form:"party_size" binding:"required"`
	ScopeID       string  `form:"scope_id"`
}

type datesQuery struct {
	Year      int    `form:"year" binding:"required"`
	Month     int    `form:"month" binding:"required"`
	PartySize int    `form:"party_size" binding:"required"`
	ScopeID   string `form:"scope_id"`
}

func NewAvailabilityHandler(vehicles vehicles.AvailabilityUseCase, calendar calendar.CalendarUseCase) *AvailabilityHandler {
	return &AvailabilityHandler{vehicles: vehicles, calendar: calendar}
}

func (h *AvailabilityHandler) Register(router *gin.RouterGroup) {
	router.GET("/check", h.check)
	router.GET("/slots", h.slots)
	router.GET("/dates", h.dates)
}

func (h *AvailabilityHandler) check(c *gin.Context) {
	var q checkQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	date, err := domain.ParseDate(q.Date)
	if err != nil {
		badRequest(c, "date", "expected YYYY-MM-DD")
		return
	}
	start, err := domain.ParseClockTime(q.StartTime)
	if err != nil {
		badRequest(c, "start_time", "expected HH:MM")
		return
	}
	scopeID, ok := parseOptionalID(q.ScopeID)
	if !ok {
		badRequest(c, "scope_id", "must be a positive integer")
		return
	}

	result, err := h.vehicles.CheckAvailability(c.Request.Context(), vehicles.CheckInput{
		Date:          date,
		StartTime:     start,
		DurationHours: q.DurationHours,
		PartySize:     q.PartySize,
		ScopeID:       scopeID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAvailabilityResponse(result))
}

func (h *AvailabilityHandler) slots(c *gin.Context) {
	var q slotsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	date, err := domain.ParseDate(q.Date)
	if err != nil {
		badRequest(c, "date", "expected YYYY-MM-DD")
		return
	}
	scopeID, ok := parseOptionalID(q.ScopeID)
	if !ok {
		badRequest(c, "scope_id", "must be a positive integer")
		return
	}

	slots, err := h.calendar.GetAvailableTimeSlots(c.Request.Context(), date, q.DurationHours, q.PartySize, scopeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": q.Date, "slots": toSlotResponses(slots)})
}

func (h *AvailabilityHandler) dates(c *gin.Context) {
	var q datesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	scopeID, ok := parseOptionalID(q.ScopeID)
	if !ok {
		badRequest(c, "scope_id", "must be a positive integer")
		return
	}

	days, err := h.calendar.GetAvailableDates(c.Request.Context(), q.Year, time.Month(q.Month), q.PartySize, scopeID)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]dateResponse, 0, len(days))
	for _, d := range days {
		out = append(out, dateResponse{Date: d.Date.Format(domain.DateLayout), AvailableSlots: d.AvailableSlots})
	}
	c.JSON(http.StatusOK, gin.H{"dates": out})
}
