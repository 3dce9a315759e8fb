package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imposterai/imposter/internal/common"
)

// ListPersonalities returns the selectable catalog. System prompts are not
// exposed to clients.
func (h *Handler) ListPersonalities(c *gin.Context) {
	records, err := h.Repo.ListPersonalities(c.Request.Context())
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50005, "failed to list personalities")
		return
	}

	out := make([]gin.H, 0, len(records))
	for _, r := range records {
		out = append(out, gin.H{
			"id":            r.ID,
			"name":          r.Name,
			"intro_message": r.IntroMessage,
			"image_path":    r.ImagePath,
		})
	}

	common.OK(c, gin.H{"personalities": out})
}
