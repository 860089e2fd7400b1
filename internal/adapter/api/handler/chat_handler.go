package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"wayfarer/internal/usecase"
	"wayfarer/pkg/response"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type createChatRequest struct {
	ParticipantID string `json:"participant_id" validate:"required"`
}

type sendMessageRequest struct {
	Content string `json:"content" validate:"required"`
	Type    string `json:"type" validate:"omitempty,oneof=text image file question"`
}

type editMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

type answerQuestionRequest struct {
	MessageID string `json:"message_id" validate:"required"`
	Answer    string `json:"answer" validate:"required"`
}

// CreateChat creates or returns the direct chat with another user.
func (h *ChatHandler) CreateChat(c echo.Context) error {
	var req createChatRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	chat, err := h.chatUseCase.CreateDirectChat(c.Request().Context(), userID, req.ParticipantID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, chat)
}

// GetUserChats lists the authenticated user's chats.
func (h *ChatHandler) GetUserChats(c echo.Context) error {
	userID := c.Get("uid").(string)
	limit, offset := paginationParams(c, 20)

	chats, total, err := h.chatUseCase.ListChats(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, chats, total, offset/limit+1, limit)
}

func (h *ChatHandler) GetChatByID(c echo.Context) error {
	chatID := c.Param("id")
	userID := c.Get("uid").(string)

	chat, err := h.chatUseCase.GetChat(c.Request().Context(), userID, chatID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chat)
}

// SendMessage posts a message into a chat over HTTP. Connected participants
// get the same newMessage event the socket path produces.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	chatID := c.Param("id")
	userID := c.Get("uid").(string)

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.chatUseCase.SendMessage(c.Request().Context(), userID, usecase.SendMessageInput{
		ChatID:  chatID,
		Content: req.Content,
		Type:    req.Type,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

func (h *ChatHandler) GetChatMessages(c echo.Context) error {
	chatID := c.Param("id")
	userID := c.Get("uid").(string)
	limit, offset := paginationParams(c, 50)

	messages, total, err := h.chatUseCase.ListMessages(c.Request().Context(), userID, chatID, limit, offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, messages, total, offset/limit+1, limit)
}

func (h *ChatHandler) MarkChatAsRead(c echo.Context) error {
	chatID := c.Param("id")
	userID := c.Get("uid").(string)

	if err := h.chatUseCase.MarkAsRead(c.Request().Context(), userID, chatID); err != nil {
		return response.Error(c, err)
	}

	return c.NoContent(http.StatusOK)
}

func (h *ChatHandler) EditMessage(c echo.Context) error {
	chatID := c.Param("id")
	messageID := c.Param("messageId")
	userID := c.Get("uid").(string)

	var req editMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.chatUseCase.EditMessage(c.Request().Context(), userID, chatID, messageID, req.Content)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, message)
}

func (h *ChatHandler) DeleteMessage(c echo.Context) error {
	chatID := c.Param("id")
	messageID := c.Param("messageId")
	userID := c.Get("uid").(string)

	if err := h.chatUseCase.DeleteMessage(c.Request().Context(), userID, chatID, messageID); err != nil {
		return response.Error(c, err)
	}

	return c.NoContent(http.StatusOK)
}

// GetQuestions lists question messages in a chat, optionally filtered by
// answered state (?answered=true|false).
func (h *ChatHandler) GetQuestions(c echo.Context) error {
	chatID := c.Param("id")
	userID := c.Get("uid").(string)
	limit, offset := paginationParams(c, 20)

	var answered *bool
	if answeredStr := c.QueryParam("answered"); answeredStr != "" {
		if parsed, err := strconv.ParseBool(answeredStr); err == nil {
			answered = &parsed
		}
	}

	questions, total, err := h.chatUseCase.ListQuestions(c.Request().Context(), userID, chatID, answered, limit, offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, questions, total, offset/limit+1, limit)
}

func (h *ChatHandler) AnswerQuestion(c echo.Context) error {
	chatID := c.Param("id")
	userID := c.Get("uid").(string)

	var req answerQuestionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	answer, err := h.chatUseCase.AnswerQuestion(c.Request().Context(), userID, chatID, req.MessageID, req.Answer)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, answer)
}

func paginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit := defaultLimit
	offset := 0

	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	if offsetStr := c.QueryParam("offset"); offsetStr != "" {
		if parsedOffset, err := strconv.Atoi(offsetStr); err == nil && parsedOffset >= 0 {
			offset = parsedOffset
		}
	}

	return limit, offset
}
