package handlers

import (
	"net/http"
	"sort"
	"strings"

	"tourbook/pkg/apierror"
	"tourbook/pkg/fuzzy"
	"tourbook/pkg/models"

	"github.com/gin-gonic/gin"
)

const searchLimit = 100

// SearchGuides handles GET /api/guides/search. Guides are loaded first and
// every filter runs in memory, so each one can only narrow the result.
func (h *Handler) SearchGuides(c *gin.Context) {
	name := strings.ToLower(strings.TrimSpace(c.Query("name")))
	language := strings.TrimSpace(c.Query("language"))
	location := strings.TrimSpace(c.Query("location"))
	dateParam := strings.TrimSpace(c.Query("date"))

	ctx := c.Request.Context()
	guides := []models.Guide{}
	err := h.db.WithContext(ctx).
		Where("status = ? AND is_deactivated = ?", models.GuideStatusApproved, false).
		Order("created_at DESC").
		Limit(searchLimit).
		Find(&guides).Error
	if err != nil {
		apierror.Internal(c, h.logger, "failed to search guides", err)
		return
	}

	if name != "" {
		guides = filterGuides(guides, func(g models.Guide) bool {
			return strings.Contains(strings.ToLower(g.Name), name)
		})
	}
	if location != "" {
		guides = filterGuides(guides, func(g models.Guide) bool {
			return fuzzy.MatchLocation(location, g.Location)
		})
	}
	if language != "" {
		guides = filterGuides(guides, func(g models.Guide) bool {
			for _, l := range g.Languages {
				if strings.EqualFold(strings.TrimSpace(l), language) {
					return true
				}
			}
			return false
		})
	}
	if dateParam != "" {
		day, err := parseDate(dateParam)
		if err != nil {
			apierror.Respond(c, apierror.InvalidInput, "date must be formatted as YYYY-MM-DD")
			return
		}
		var windows []models.GuideAvailability
		if err := h.db.WithContext(ctx).Where("is_available = ?", true).Find(&windows).Error; err != nil {
			apierror.Internal(c, h.logger, "failed to load availability", err)
			return
		}
		available := make(map[string]bool)
		for i := range windows {
			if windows[i].Covers(day) {
				available[windows[i].GuideID] = true
			}
		}
		guides = filterGuides(guides, func(g models.Guide) bool {
			return available[g.ID]
		})
	}

	c.JSON(http.StatusOK, gin.H{"guides": guides, "count": len(guides)})
}

func filterGuides(guides []models.Guide, keep func(models.Guide) bool) []models.Guide {
	out := guides[:0]
	for _, g := range guides {
		if keep(g) {
			out = append(out, g)
		}
	}
	return out
}

// GetLanguages handles GET /api/languages.
func (h *Handler) GetLanguages(c *gin.Context) {
	var guides []models.Guide
	err := h.db.WithContext(c.Request.Context()).
		Select("languages").
		Where("status = ? AND is_deactivated = ?", models.GuideStatusApproved, false).
		Order("created_at ASC").
		Find(&guides).Error
	if err != nil {
		apierror.Internal(c, h.logger, "failed to load languages", err)
		return
	}

	seen := make(map[string]bool)
	languages := []string{}
	for _, g := range guides {
		for _, l := range g.Languages {
			l = strings.TrimSpace(l)
			key := strings.ToLower(l)
			if l == "" || seen[key] {
				continue
			}
			seen[key] = true
			languages = append(languages, l)
		}
	}
	sort.Slice(languages, func(i, j int) bool {
		return strings.ToLower(languages[i]) < strings.ToLower(languages[j])
	})
	c.JSON(http.StatusOK, gin.H{"languages": languages})
}
