package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/barangay/internal/services"
	"github.com/charlesng35/barangay/pkg/response"
)

type ActivityHandler struct {
	activity *services.ActivityService
}

func NewActivityHandler(activity *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// GET /api/activity-logs
func (h *ActivityHandler) List(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	filters := services.ActivityFilters{
		ListOptions: listOptions(c),
		ActorID:     strings.TrimSpace(c.Query("actorId")),
		Action:      strings.TrimSpace(c.Query("action")),
		Resource:    strings.TrimSpace(c.Query("resource")),
		Since:       parseTimeQuery(c, "since"),
		Until:       parseTimeQuery(c, "until"),
	}
	entries, total, err := h.activity.List(requestContext(c), identity, filters)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, entries, total)
}
