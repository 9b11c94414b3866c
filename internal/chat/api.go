// Copyright 2025 Artisan Chat Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chat

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// friendlyErrorMessage is always included on the 500 path so the caller's UI
// need not special-case failures.
const friendlyErrorMessage = "Sorry, I encountered an error. Please try again!"

// APIHandler handles HTTP requests for the chat pipeline.
type APIHandler struct {
	service *Service
	logger  *zap.Logger
}

// NewAPIHandler creates a new chat API handler.
func NewAPIHandler(service *Service, logger *zap.Logger) *APIHandler {
	return &APIHandler{service: service, logger: logger}
}

// RegisterRoutes registers chat API routes with the Gin router.
func (h *APIHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/chat", h.handleChat)
		api.GET("/chat/history/:sessionId", h.handleHistory)
	}
}

// handleChat handles POST /api/v1/chat
func (h *APIHandler) handleChat(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
		return
	}

	resp, err := h.service.Chat(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrEmptyQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"error": ErrEmptyQuery.Error()})
			return
		}

		h.logger.Error("Chat turn failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   err.Error(),
			"message": friendlyErrorMessage,
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// handleHistory handles GET /api/v1/chat/history/:sessionId
func (h *APIHandler) handleHistory(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session id is required"})
		return
	}

	turns, err := h.service.History(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error("Failed to load session history",
			zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   err.Error(),
			"message": friendlyErrorMessage,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"turns":      turns,
		"count":      len(turns),
	})
}

// CORSMiddleware allows the marketplace frontend to call the chat API from
// the browser.
func (h *APIHandler) CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
