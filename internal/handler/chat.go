package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pomelo/internal/model"
	"pomelo/internal/service"
)

// ChatHandler 会话处理器
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler 创建会话处理器
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// Send 发送消息
// @Summary      发送消息
// @Description  chat_id 为空时创建新会话，否则在已有会话中续聊
// @Tags         会话
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      model.SendChatEnvelope  true  "发送消息请求"
// @Success      200      {object}  map[string]interface{}
// @Failure      400      {object}  model.ErrorResponse
// @Failure      403      {object}  model.ErrorResponse
// @Failure      502      {object}  model.ErrorResponse
// @Router       /api/v1/chat [post]
func (h *ChatHandler) Send(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var envelope model.SendChatEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	result, err := h.chatService.Send(c.Request.Context(), userID, &envelope.Data)
	if err != nil {
		renderError(c, err)
		return
	}
	renderResult(c, result)
}

// EditPrompt 编辑最近一轮提问
// @Summary      编辑提问
// @Description  重新提交最新一轮的提问，生成新的一轮并回指被编辑的一轮
// @Tags         会话
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      model.EditPromptEnvelope  true  "编辑提问请求"
// @Success      200      {object}  map[string]interface{}
// @Failure      400      {object}  model.ErrorResponse
// @Failure      403      {object}  model.ErrorResponse
// @Failure      502      {object}  model.ErrorResponse
// @Router       /api/v1/chat/editPrompt [post]
func (h *ChatHandler) EditPrompt(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var envelope model.EditPromptEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	result, err := h.chatService.EditPrompt(c.Request.Context(), userID, &envelope.Data)
	if err != nil {
		renderError(c, err)
		return
	}
	renderResult(c, result)
}

// Regenerate 重新生成最近一轮回答
// @Summary      重新生成回答
// @Description  复用最新一轮的提问重新生成回答（覆盖式），每轮只允许一次
// @Tags         会话
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      model.RegenerateEnvelope  true  "重新生成请求"
// @Success      200      {object}  map[string]interface{}
// @Failure      400      {object}  model.ErrorResponse
// @Failure      403      {object}  model.ErrorResponse
// @Failure      502      {object}  model.ErrorResponse
// @Router       /api/v1/chat/regenerate [post]
func (h *ChatHandler) Regenerate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var envelope model.RegenerateEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	result, err := h.chatService.Regenerate(c.Request.Context(), userID, &envelope.Data)
	if err != nil {
		renderError(c, err)
		return
	}
	renderResult(c, result)
}

// EditTitle 修改会话标题
// @Summary      修改会话标题
// @Tags         会话
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      model.EditTitleEnvelope  true  "修改标题请求"
// @Success      200      {object}  map[string]interface{}
// @Failure      400      {object}  model.ErrorResponse
// @Router       /api/v1/chat/edit [post]
func (h *ChatHandler) EditTitle(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var envelope model.EditTitleEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	result, err := h.chatService.EditTitle(c.Request.Context(), userID, &envelope.Data)
	if err != nil {
		renderError(c, err)
		return
	}
	renderResult(c, result)
}

// Delete 删除会话（软删除）
// @Summary      删除会话
// @Tags         会话
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      model.DeleteChatEnvelope  true  "删除会话请求"
// @Success      200      {object}  map[string]interface{}
// @Failure      400      {object}  model.ErrorResponse
// @Router       /api/v1/chat/delete [post]
func (h *ChatHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var envelope model.DeleteChatEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	result, err := h.chatService.Delete(c.Request.Context(), userID, &envelope.Data)
	if err != nil {
		renderError(c, err)
		return
	}
	renderResult(c, result)
}

// GetChat 会话分页
// @Summary      会话记录分页
// @Description  按轮分页取会话记录，timestamp 为上一页返回的游标
// @Tags         会话
// @Produce      json
// @Security     BearerAuth
// @Param        chat_id    query     string  true   "会话ID"
// @Param        timestamp  query     string  false  "分页游标（RFC3339）"
// @Success      200        {object}  map[string]interface{}
// @Failure      400        {object}  model.ErrorResponse
// @Router       /api/v1/chat [get]
func (h *ChatHandler) GetChat(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	chatID := c.Query("chat_id")

	var before *time.Time
	if ts := c.Query("timestamp"); ts != "" {
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{
				Code:    40001,
				Message: "Invalid timestamp",
				Detail:  err.Error(),
			})
			return
		}
		before = &parsed
	}

	result, err := h.chatService.GetChat(c.Request.Context(), userID, chatID, before)
	if err != nil {
		renderError(c, err)
		return
	}
	renderResult(c, result)
}

// Overview 概览
// @Summary      概览
// @Description  积分余额、提供商目录和按日期分桶的会话列表
// @Tags         会话
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  model.ErrorResponse
// @Router       /api/v1/chat/overview [get]
func (h *ChatHandler) Overview(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := h.chatService.Overview(c.Request.Context(), userID)
	if err != nil {
		renderError(c, err)
		return
	}
	renderResult(c, result)
}
