package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/service/booking"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	Customer struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Phone string `json:"phone"`
	} `json:"customer"`
	TourDate      string  `json:"tour_date"`
	StartTime     string  `json:"start_time"`
	DurationHours float64 `json:"duration_hours"`
	PartySize     int     `json:"party_size"`
	ScopeID       *int64  `json:"scope_id"`
	VehicleID     *int64  `json:"vehicle_id"`
	Notes         string  `json:"notes"`
	Mode          string  `json:"mode"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("/:id", h.get)
	router.POST("/:id/cancel", h.cancel)
	router.PATCH("/:id/status", h.updateStatus)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	input, ok := req.toInput(c)
	if !ok {
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (r createBookingRequest) toInput(c *gin.Context) (booking.CreateBookingInput, bool) {
	date, err := domain.ParseDate(r.TourDate)
	if err != nil {
		badRequest(c, "tour_date", "expected YYYY-MM-DD")
		return booking.CreateBookingInput{}, false
	}
	start, err := domain.ParseClockTime(r.StartTime)
	if err != nil {
		badRequest(c, "start_time", "expected HH:MM")
		return booking.CreateBookingInput{}, false
	}
	return booking.CreateBookingInput{
		Customer: booking.CustomerInput{
			Email: r.Customer.Email,
			Name:  r.Customer.Name,
			Phone: r.Customer.Phone,
		},
		Tour: booking.TourDetails{
			Date:          date,
			StartTime:     start,
			DurationHours: r.DurationHours,
			PartySize:     r.PartySize,
			ScopeID:       r.ScopeID,
			VehicleID:     r.VehicleID,
			Notes:         r.Notes,
		},
		Mode: domain.BookingMode(r.Mode),
	}, true
}

func (h *BookingHandler) get(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	found, err := h.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(found))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req cancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}

	cancelled, err := h.service.CancelBooking(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(cancelled))
}

func (h *BookingHandler) updateStatus(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	updated, err := h.service.UpdateStatus(c.Request.Context(), id, domain.BookingStatus(req.Status), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(updated))
}

func bookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "id", "invalid booking id")
		return 0, false
	}
	return id, true
}
