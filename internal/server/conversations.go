package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/desertthunder/beatbuddy/internal/models"
	"github.com/desertthunder/beatbuddy/internal/shared"
	"github.com/gin-gonic/gin"
)

type conversationRequest struct {
	Title string `json:"title"`
}

type messageRequest struct {
	Content string `json:"content"`
}

type messageGPTRequest struct {
	UserInput      string `json:"userInput"`
	ConversationID int64  `json:"conversationId"`
}

// conversationID parses :id and checks that the session user owns the conversation.
func (s *Server) conversationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		s.fail(c, fmt.Errorf("%w: conversation id", shared.ErrInvalidInput))
		return 0, false
	}
	if _, err := s.deps.Store.Conversations.GetOwned(c.Request.Context(), id, userID(c)); err != nil {
		s.fail(c, err)
		return 0, false
	}
	return id, true
}

func (s *Server) createConversation(c *gin.Context) {
	var req conversationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.fail(c, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
			return
		}
	}

	conv := &models.Conversation{UserID: userID(c), Title: strings.TrimSpace(req.Title)}
	if err := s.deps.Store.Conversations.Create(c.Request.Context(), conv); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

func (s *Server) listConversations(c *gin.Context) {
	convs, err := s.deps.Store.Conversations.ListByUser(c.Request.Context(), userID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, convs)
}

func (s *Server) deleteAllConversations(c *gin.Context) {
	n, err := s.deps.Store.Conversations.DeleteAllByUser(c.Request.Context(), userID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": n})
}

func (s *Server) deleteConversation(c *gin.Context) {
	id, ok := s.conversationID(c)
	if !ok {
		return
	}
	if err := s.deps.Store.Conversations.Delete(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) renameConversation(c *gin.Context) {
	id, ok := s.conversationID(c)
	if !ok {
		return
	}
	var req conversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		s.fail(c, fmt.Errorf("%w: title", shared.ErrInvalidInput))
		return
	}

	ctx := c.Request.Context()
	if err := s.deps.Store.Conversations.Rename(ctx, id, title); err != nil {
		s.fail(c, err)
		return
	}
	conv, err := s.deps.Store.Conversations.Get(ctx, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (s *Server) listMessages(c *gin.Context) {
	id, ok := s.conversationID(c)
	if !ok {
		return
	}
	messages, err := s.deps.Store.Messages.List(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// postMessage is the legacy turn endpoint: the reply is returned as "output".
func (s *Server) postMessage(c *gin.Context) {
	id, ok := s.conversationID(c)
	if !ok {
		return
	}

	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message content is required"})
		return
	}

	reply, err := s.deps.Chat.HandleUserMessage(c.Request.Context(), id, userID(c), req.Content)
	if err != nil {
		s.logger.Error("chat turn failed", "conversation", id, "error", err)
		status, _ := statusFor(err)
		if status >= 500 {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate response."})
			return
		}
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"output": reply})
}

// messageGPT is the primary chat turn endpoint.
func (s *Server) messageGPT(c *gin.Context) {
	var req messageGPTRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body."})
		return
	}
	if req.ConversationID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing conversationId."})
		return
	}
	if strings.TrimSpace(req.UserInput) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing userInput."})
		return
	}

	reply, err := s.deps.Chat.HandleUserMessage(c.Request.Context(), req.ConversationID, userID(c), req.UserInput)
	if err != nil {
		status, msg := statusFor(err)
		if status >= 500 {
			s.logger.Error("chat turn failed", "conversation", req.ConversationID, "error", err)
			msg = "Failed to generate response."
		}
		c.JSON(status, gin.H{"success": false, "error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "response": reply})
}
