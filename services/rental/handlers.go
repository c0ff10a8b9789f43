package main

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pavitra93/go-coliving-admin/shared/ledger"
	"github.com/pavitra93/go-coliving-admin/shared/middleware"
	"github.com/pavitra93/go-coliving-admin/shared/models"
	"github.com/pavitra93/go-coliving-admin/shared/utils"
)

// UpdatePaymentRequest marks one member's month as paid or unpaid
type UpdatePaymentRequest struct {
	MemberID string `json:"member_id" binding:"required"`
	Year     int    `json:"year" binding:"required"`
	Month    int    `json:"month" binding:"required"`
	IsPaid   *bool  `json:"is_paid" binding:"required"`
}

// ReminderRequest records a rent reminder
type ReminderRequest struct {
	MemberID string `json:"member_id" binding:"required"`
	Year     int    `json:"year" binding:"required"`
	Month    int    `json:"month" binding:"required"`
}

// queryMonth reads year and month query parameters, defaulting to the
// current month
func queryMonth(c *gin.Context) (models.MonthKey, bool) {
	now := models.MonthKeyOf(time.Now())
	year, month := now.Year, int(now.Month)

	var err error
	if raw := c.Query("year"); raw != "" {
		if year, err = strconv.Atoi(raw); err != nil {
			utils.BadRequestResponse(c, "year must be a number")
			return models.MonthKey{}, false
		}
	}
	if raw := c.Query("month"); raw != "" {
		if month, err = strconv.Atoi(raw); err != nil {
			utils.BadRequestResponse(c, "month must be a number")
			return models.MonthKey{}, false
		}
	}

	key, err := models.NewMonthKey(year, month)
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return models.MonthKey{}, false
	}
	return key, true
}

func parseID(c *gin.Context, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid member ID")
		return uuid.Nil, false
	}
	return id, true
}

// handleRentalData lists active members with their record for the month
func handleRentalData(service *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := queryMonth(c)
		if !ok {
			return
		}

		report, err := service.MonthlyReport(c.Request.Context(), key)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Rental data retrieved successfully", report)
	}
}

func handleStatistics(service *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := queryMonth(c)
		if !ok {
			return
		}

		report, err := service.MonthlyReport(c.Request.Context(), key)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Statistics retrieved successfully", report.Statistics)
	}
}

func handlePaymentStatus(service *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, c.Query("member_id"))
		if !ok {
			return
		}
		key, ok := queryMonth(c)
		if !ok {
			return
		}

		record, err := service.GetRecord(c.Request.Context(), id, key)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Payment status retrieved successfully", gin.H{
			"member_id": id,
			"month":     key.String(),
			"record":    record,
		})
	}
}

func handleUpdatePayment(service *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdatePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "member_id, year, month and is_paid are required")
			return
		}
		id, ok := parseID(c, req.MemberID)
		if !ok {
			return
		}
		key, err := models.NewMonthKey(req.Year, req.Month)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		result, err := service.SetPaid(c.Request.Context(), id, key, *req.IsPaid, middleware.Actor(c))
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		message := "Payment status updated successfully"
		if result.Outcome == ledger.OutcomeNoop {
			message = "Payment status already up to date"
		}
		utils.OKResponse(c, message, result)
	}
}

func handleSendReminder(service *ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReminderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "member_id, year and month are required")
			return
		}
		id, ok := parseID(c, req.MemberID)
		if !ok {
			return
		}
		key, err := models.NewMonthKey(req.Year, req.Month)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		record, err := service.RecordReminder(c.Request.Context(), id, key)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Payment reminder sent successfully", gin.H{
			"member_id": id,
			"month":     key.String(),
			"record":    record,
		})
	}
}
