package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/imposterai/imposter/internal/chat"
	"github.com/imposterai/imposter/internal/common"
)

// manager builds the per-request chat manager for the authenticated user.
// No cross-request cache: storage is the only rehydration source.
func (h *Handler) manager(c *gin.Context, userID uint64) (*chat.Manager, error) {
	provider, err := h.provider(c.Request.Context())
	if err != nil {
		return nil, err
	}
	return chat.NewManager(c.Request.Context(), userID, h.Repo, provider, h.Cfg.ChatHistoryLimit, log.Logger)
}

type sendMessageReq struct {
	PersonalityID uint64 `json:"personality_id" binding:"required"`
	Message       string `json:"message" binding:"required"`
}

func (h *Handler) SendMessage(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	m, err := h.manager(c, uid)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to load conversations")
		return
	}

	reply, err := m.SendMessage(c.Request.Context(), req.PersonalityID, req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40004, "personality not found")
			return
		}
		var persistErr *chat.ReplyNotPersistedError
		if errors.As(err, &persistErr) {
			// Reply succeeded but persistence did not; answer the user anyway.
			log.Error().Err(err).Uint64("user_id", uid).Msg("failed to persist conversation")
			common.OK(c, reply)
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to send message")
		return
	}

	common.OK(c, reply)
}

func (h *Handler) ListChats(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	entries, err := h.Repo.ListChats(c.Request.Context(), uid)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to list chats")
		return
	}

	common.OK(c, gin.H{"chats": entries})
}

func personalityIDParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("personality_id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid personality id")
		return 0, false
	}
	return id, true
}

// GetChatHistory returns the exported message sequence for one conversation,
// including the synthesized system message and, for fresh conversations, the
// intro message seed.
func (h *Handler) GetChatHistory(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	pid, ok := personalityIDParam(c)
	if !ok {
		return
	}

	m, err := h.manager(c, uid)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to load conversations")
		return
	}

	conv, err := m.RetrieveConversation(c.Request.Context(), pid)
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40004, "personality not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to load conversation")
		return
	}

	common.OK(c, gin.H{
		"id":       conv.ID,
		"name":     conv.Name,
		"image":    conv.Image,
		"messages": conv.ExportSavedMessages(),
	})
}

type updatePromptReq struct {
	Prompt  string `json:"prompt" binding:"required"`
	Message string `json:"message"`
}

// UpdateSystemPrompt appends a session-local prompt fragment. The append is
// never persisted; with a message in the request it shapes that turn, without
// one the response just echoes the resulting prompt list.
func (h *Handler) UpdateSystemPrompt(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	pid, ok := personalityIDParam(c)
	if !ok {
		return
	}

	var req updatePromptReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	m, err := h.manager(c, uid)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to load conversations")
		return
	}

	if _, exists := m.Conversation(pid); !exists {
		if _, err := m.RetrieveConversation(c.Request.Context(), pid); err != nil {
			if errors.Is(err, chat.ErrNotFound) {
				common.Fail(c, http.StatusNotFound, 40004, "personality not found")
				return
			}
			common.Fail(c, http.StatusInternalServerError, 50004, "failed to load conversation")
			return
		}
	}

	m.UpdateSystemPrompt(pid, req.Prompt)

	if req.Message != "" {
		reply, err := m.SendMessage(c.Request.Context(), pid, req.Message)
		if err != nil {
			var persistErr *chat.ReplyNotPersistedError
			if !errors.As(err, &persistErr) {
				common.Fail(c, http.StatusInternalServerError, 50002, "failed to send message")
				return
			}
			log.Error().Err(err).Uint64("user_id", uid).Msg("failed to persist conversation")
		}
		common.OK(c, reply)
		return
	}

	conv, _ := m.Conversation(pid)
	common.OK(c, gin.H{"id": pid, "system_prompt": conv.SystemPrompts()})
}
