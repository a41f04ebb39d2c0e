package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type manufacturerPayload struct {
	Name     string   `json:"name"`
	Aliases  []string `json:"aliases"`
	Verified bool     `json:"verified"`
}

func (h *httpHandler) handleManufacturerList(c *gin.Context) {
	records, err := h.deps.Manufacturers.List(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	payload := make([]gin.H, 0, len(records))
	for _, record := range records {
		aliases := record.Aliases()
		if aliases == nil {
			aliases = []string{}
		}
		payload = append(payload, gin.H{
			"id":       record.ID,
			"name":     record.Name,
			"aliases":  aliases,
			"verified": record.Verified,
		})
	}
	c.JSON(http.StatusOK, gin.H{"manufacturers": payload})
}

func (h *httpHandler) handleManufacturerCreate(c *gin.Context) {
	var request manufacturerPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, err := h.deps.Manufacturers.Create(c.Request.Context(), request.Name, request.Aliases, request.Verified)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *httpHandler) handleManufacturerUpdate(c *gin.Context) {
	var request manufacturerPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, err := h.deps.Manufacturers.Update(c.Request.Context(), c.Param("id"), request.Name, request.Aliases, request.Verified)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *httpHandler) handleManufacturerDelete(c *gin.Context) {
	if err := h.deps.Manufacturers.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type namePayload struct {
	Name string `json:"name"`
}

func (h *httpHandler) handleMaterialList(c *gin.Context) {
	records, err := h.deps.CatalogService.ListMaterials(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"materials": records})
}

func (h *httpHandler) handleMaterialCreate(c *gin.Context) {
	var request namePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, err := h.deps.CatalogService.CreateMaterial(c.Request.Context(), request.Name)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *httpHandler) handleMaterialRename(c *gin.Context) {
	var request namePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, err := h.deps.CatalogService.RenameMaterial(c.Request.Context(), c.Param("id"), request.Name)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *httpHandler) handleMaterialDelete(c *gin.Context) {
	if err := h.deps.CatalogService.DeleteMaterial(c.Request.Context(), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleStemShapeList(c *gin.Context) {
	records, err := h.deps.CatalogService.ListStemShapes(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stemShapes": records})
}

func (h *httpHandler) handleStemShapeCreate(c *gin.Context) {
	var request namePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, err := h.deps.CatalogService.CreateStemShape(c.Request.Context(), request.Name)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *httpHandler) handleStemShapeRename(c *gin.Context) {
	var request namePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, err := h.deps.CatalogService.RenameStemShape(c.Request.Context(), c.Param("id"), request.Name)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *httpHandler) handleStemShapeDelete(c *gin.Context) {
	if err := h.deps.CatalogService.DeleteStemShape(c.Request.Context(), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
