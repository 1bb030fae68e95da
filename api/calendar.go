package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/service/vehicles"
)

// CalendarHandler serves the operator view of vehicle blocks.
type CalendarHandler struct {
	vehicles vehicles.AvailabilityUseCase
}

type blocksQuery struct {
	StartDate string `form:"start_date" binding:"required"`
	EndDate   string `form:"end_date" binding:"required"`
	VehicleID string `form:"vehicle_id"`
}

type createBlockRequest struct {
	VehicleID int64  `json:"vehicle_id" binding:"required"`
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
	BlockType string `json:"block_type" binding:"required"`
	Notes     string `json:"notes"`
}

func NewCalendarHandler(vehicles vehicles.AvailabilityUseCase) *CalendarHandler {
	return &CalendarHandler{vehicles: vehicles}
}

func (h *CalendarHandler) Register(router *gin.RouterGroup) {
	router.GET("/blocks", h.blocks)
	router.POST("/blocks", h.createBlock)
}

func (h *CalendarHandler) blocks(c *gin.Context) {
	var q blocksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	from, err := domain.ParseDate(q.StartDate)
	if err != nil {
		badRequest(c, "start_date", "expected YYYY-MM-DD")
		return
	}
	to, err := domain.ParseDate(q.EndDate)
	if err != nil {
		badRequest(c, "end_date", "expected YYYY-MM-DD")
		return
	}
	vehicleID, ok := parseOptionalID(q.VehicleID)
	if !ok {
		badRequest(c, "vehicle_id", "must be a positive integer")
		return
	}

	blocks, err := h.vehicles.GetBlocksInRange(c.Request.Context(), from, to, vehicleID)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]blockResponse, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, toBlockResponse(b))
	}
	c.JSON(http.StatusOK, gin.H{"blocks": out})
}

func (h *CalendarHandler) createBlock(c *gin.Context) {
	var req createBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		badRequest(c, "date", "expected YYYY-MM-DD")
		return
	}
	start, err := domain.ParseClockTime(req.StartTime)
	if err != nil {
		badRequest(c, "start_time", "expected HH:MM")
		return
	}
	end, err := domain.ParseClockTime(req.EndTime)
	if err != nil {
		badRequest(c, "end_time", "expected HH:MM")
		return
	}

	block, err := h.vehicles.CreateOperatorBlock(c.Request.Context(), domain.HoldRequest{
		VehicleID: req.VehicleID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Notes:     req.Notes,
	}, domain.BlockType(req.BlockType))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBlockResponse(*block))
}
