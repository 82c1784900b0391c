package library

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alanyang/prompt-workshop/internal/domain/card"
	librarysvc "github.com/alanyang/prompt-workshop/internal/service/library"
	studiosvc "github.com/alanyang/prompt-workshop/internal/service/studio"
	studiohandler "github.com/alanyang/prompt-workshop/internal/transport/studio"
)

var errCardNotFound = errors.New("card not found in library")

// Register mounts the saved-library endpoints.
// [SRP] HTTP handler only; calls librarySvc for collection state and
// studioSvc for AI edits of saved cards.
func Register(rg *gin.RouterGroup, lib *librarysvc.Service, studio *studiosvc.Service) {
	rg.GET("", listLibrary(lib))
	rg.DELETE("", clearLibrary(lib))
	rg.GET("/types", listTypes(lib))
	rg.POST("/toggle", toggleCard(lib))
	rg.POST("/cards", saveCard(lib))
	rg.GET("/cards/:id", getCard(lib))
	rg.PUT("/cards/:id", replaceCard(lib))
	rg.DELETE("/cards/:id", removeCard(lib))
	rg.POST("/cards/:id/optimize", optimizeCard(lib, studio))
	rg.POST("/cards/:id/refine", refineCard(lib, studio))
}

func listLibrary(lib *librarysvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q card.Query
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"cards": lib.View(q),
			"types": lib.Facets(),
			"total": lib.Len(),
			"order": card.ParseOrder(string(q.Order)),
		})
	}
}

func listTypes(lib *librarysvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := gin.H{"types": lib.Facets()}
		if typed, ok := c.GetQuery("prefix"); ok {
			resp["suggestions"] = lib.Suggest(typed)
		}
		c.JSON(http.StatusOK, resp)
	}
}

func bindCard(c *gin.Context) (card.Card, bool) {
	var in card.Card
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return card.Card{}, false
	}
	if err := in.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return card.Card{}, false
	}
	return in, true
}

func saveCard(lib *librarysvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, ok := bindCard(c)
		if !ok {
			return
		}
		changed, err := lib.Save(c.Request.Context(), in)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		status := http.StatusOK
		if changed {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"saved": true, "card": in})
	}
}

func toggleCard(lib *librarysvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, ok := bindCard(c)
		if !ok {
			return
		}
		saved, err := lib.Toggle(c.Request.Context(), in)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"saved": saved, "id": in.ID})
	}
}

func getCard(lib *librarysvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		found, ok := lib.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": errCardNotFound.Error()})
			return
		}
		c.JSON(http.StatusOK, found)
	}
}

func replaceCard(lib *librarysvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		existing, ok := lib.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": errCardNotFound.Error()})
			return
		}

		var patch card.Patch
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		updated := existing.Apply(patch)
		changed, err := lib.Replace(c.Request.Context(), updated)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if !changed {
			c.JSON(http.StatusNotFound, gin.H{"error": errCardNotFound.Error()})
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

func removeCard(lib *librarysvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		removed, err := lib.Remove(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"removed": removed})
	}
}

func clearLibrary(lib *librarysvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		confirmed := c.Query("confirm") == "true"
		if err := lib.Clear(c.Request.Context(), confirmed); err != nil {
			if errors.Is(err, librarysvc.ErrNotConfirmed) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "pass confirm=true to clear the library; this cannot be undone"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func optimizeCard(lib *librarysvc.Service, studio *studiosvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		existing, ok := lib.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": errCardNotFound.Error()})
			return
		}
		studiohandler.Optimize(c, studio, existing)
	}
}

func refineCard(lib *librarysvc.Service, studio *studiosvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		existing, ok := lib.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": errCardNotFound.Error()})
			return
		}
		studiohandler.Refine(c, studio, existing)
	}
}
