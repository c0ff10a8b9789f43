package main

import (
	"github.com/gin-gonic/gin"

	"github.com/pavitra93/go-coliving-admin/shared/notify"
	"github.com/pavitra93/go-coliving-admin/shared/utils"
)

// handleGetStatus reports gateway health and consumer counters
func handleGetStatus(client *notify.WhatsAppClient, consumer *Consumer) gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.OKResponse(c, "Notifier status retrieved successfully", gin.H{
			"gateway":  client.Status(),
			"consumer": consumer.Stats(),
		})
	}
}

func handleResetCircuit(client *notify.WhatsAppClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		client.ResetCircuit()
		utils.OKResponse(c, "Circuit breaker reset", client.Status())
	}
}
