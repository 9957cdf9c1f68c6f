package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// patternView is the API shape of a pattern, with the derived severity
// included so clients don't reimplement the loss thresholds.
type patternView struct {
	AttackPattern
	Severity Severity `json:"severity"`
}

// Handler serves the attack pattern catalog read-only.
type Handler struct {
	catalog *Catalog
}

// NewHandler creates a catalog handler.
func NewHandler(catalog *Catalog) *Handler {
	return &Handler{catalog: catalog}
}

// RegisterRoutes sets up catalog routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/patterns", h.ListPatterns)
	r.GET("/patterns/:name", h.GetPattern)
}

// ListPatterns handles GET /patterns.
func (h *Handler) ListPatterns(c *gin.Context) {
	patterns := h.catalog.Patterns()
	views := make([]patternView, len(patterns))
	for i, p := range patterns {
		views[i] = patternView{AttackPattern: p, Severity: p.Severity()}
	}
	c.JSON(http.StatusOK, gin.H{"patterns": views, "count": len(views)})
}

// GetPattern handles GET /patterns/:name.
func (h *Handler) GetPattern(c *gin.Context) {
	p := h.catalog.Get(c.Param("name"))
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "no catalogued pattern with that name",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pattern": patternView{AttackPattern: *p, Severity: p.Severity()}})
}
