package studio

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alanyang/prompt-workshop/internal/domain/card"
	studiosvc "github.com/alanyang/prompt-workshop/internal/service/studio"
)

// Register mounts the studio (generation working set) endpoints.
// [SRP] HTTP handler only; calls studioSvc for all business logic.
func Register(rg *gin.RouterGroup, svc *studiosvc.Service) {
	rg.POST("/generate", generate(svc))
	rg.GET("/cards", listCards(svc))
	rg.PUT("/cards/:id", updateCard(svc))
	rg.POST("/cards/:id/optimize", optimizeCard(svc))
	rg.POST("/cards/:id/refine", refineCard(svc))
}

type generateReq struct {
	Idea  string `json:"idea" binding:"required"`
	Topic string `json:"topic"`
}

func generate(svc *studiosvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req generateReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if svc.IsGenerating() {
			c.JSON(http.StatusConflict, gin.H{"error": studiosvc.ErrBusy.Error()})
			return
		}

		cards, err := svc.Generate(c.Request.Context(), req.Idea, req.Topic)
		if err != nil {
			if errors.Is(err, studiosvc.ErrEmptyIdea) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cards": cards})
	}
}

func listCards(svc *studiosvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"cards":  svc.Cards(),
			"status": svc.Status(),
		})
	}
}

func updateCard(svc *studiosvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		existing, ok := svc.Card(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": studiosvc.ErrNotFound.Error()})
			return
		}

		var patch card.Patch
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		updated := existing.Apply(patch)
		if err := svc.Update(c.Request.Context(), updated); err != nil {
			// the card vanished because a new generation replaced the working set
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

func optimizeCard(svc *studiosvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		existing, ok := svc.Card(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": studiosvc.ErrNotFound.Error()})
			return
		}
		Optimize(c, svc, existing)
	}
}

func refineCard(svc *studiosvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		existing, ok := svc.Card(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": studiosvc.ErrNotFound.Error()})
			return
		}
		Refine(c, svc, existing)
	}
}

// Optimize runs an optimize call for target and writes the response. It is
// shared with the library routes, which resolve target from saved cards.
func Optimize(c *gin.Context, svc *studiosvc.Service, target card.Card) {
	if svc.IsOptimizing(target.ID) {
		c.JSON(http.StatusConflict, gin.H{"error": studiosvc.ErrBusy.Error()})
		return
	}

	out, changed, err := svc.Optimize(c.Request.Context(), target)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"card": out, "changed": changed})
}

// RefineReq carries the instruction plus optional unsaved edits to refine
// on top of the stored card.
type RefineReq struct {
	Instruction string  `json:"instruction" binding:"required"`
	Title       *string `json:"title"`
	Type        *string `json:"type"`
	Content     *string `json:"content"`
}

// Refine runs a refine call for target and writes the response.
func Refine(c *gin.Context, svc *studiosvc.Service, target card.Card) {
	var req RefineReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if svc.IsOptimizing(target.ID) {
		c.JSON(http.StatusConflict, gin.H{"error": studiosvc.ErrBusy.Error()})
		return
	}

	draft := target.Apply(card.Patch{Title: req.Title, Type: req.Type, Content: req.Content})
	out, err := svc.Refine(c.Request.Context(), draft, req.Instruction)
	if err != nil {
		if errors.Is(err, studiosvc.ErrEmptyInstruction) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"card": out})
}
