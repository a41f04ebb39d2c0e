package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/keebstack/switchbook/internal/switches"
	"github.com/keebstack/switchbook/internal/switchspec"
)

// switchPayload is a Switch plus its decoded divergence list.
type switchPayload struct {
	switches.Switch
	ModifiedFields []string `json:"modifiedFields"`
}

func toSwitchPayload(record switches.Switch) switchPayload {
	fields := record.ModifiedFields()
	if fields == nil {
		fields = []string{}
	}
	return switchPayload{Switch: record, ModifiedFields: fields}
}

type switchWritePayload struct {
	switchspec.Fields
	PersonalNotes string `json:"personalNotes"`
	Quantity      int    `json:"quantity"`
}

func (p switchWritePayload) toRequest() switches.CreateRequest {
	return switches.CreateRequest{
		Fields:        p.Fields,
		PersonalNotes: p.PersonalNotes,
		Quantity:      p.Quantity,
	}
}

func (h *httpHandler) handleSwitchList(c *gin.Context) {
	records, err := h.deps.SwitchesService.List(c.Request.Context(), h.currentUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	payload := make([]switchPayload, 0, len(records))
	for _, record := range records {
		payload = append(payload, toSwitchPayload(record))
	}
	c.JSON(http.StatusOK, gin.H{"switches": payload})
}

func (h *httpHandler) handleSwitchGet(c *gin.Context) {
	record, err := h.deps.SwitchesService.Get(c.Request.Context(), h.currentUserID(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSwitchPayload(record))
}

func (h *httpHandler) handleSwitchCreate(c *gin.Context) {
	var request switchWritePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, err := h.deps.SwitchesService.Create(c.Request.Context(), h.currentUserID(c), request.toRequest())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSwitchPayload(record))
}

func (h *httpHandler) handleSwitchUpdate(c *gin.Context) {
	var request switchWritePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, err := h.deps.SwitchesService.Update(c.Request.Context(), h.currentUserID(c), c.Param("id"), request.toRequest())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSwitchPayload(record))
}

func (h *httpHandler) handleSwitchDelete(c *gin.Context) {
	if err := h.deps.SwitchesService.Delete(c.Request.Context(), h.currentUserID(c), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type linkPayload struct {
	MasterSwitchID string `json:"masterSwitchId"`
}

func (h *httpHandler) handleSwitchLink(c *gin.Context) {
	var request linkPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.MasterSwitchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, err := h.deps.SwitchesService.LinkToMaster(c.Request.Context(), h.currentUserID(c), c.Param("id"), request.MasterSwitchID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSwitchPayload(record))
}

func (h *httpHandler) handleSyncOne(c *gin.Context) {
	outcome, err := h.deps.SwitchesService.SyncFromMaster(c.Request.Context(), h.currentUserID(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"updated":       outcome.Updated,
		"masterVersion": outcome.MasterVersion,
		"switch":        toSwitchPayload(outcome.Switch),
	})
}

func (h *httpHandler) handleSyncAll(c *gin.Context) {
	result, err := h.deps.SwitchesService.SyncAll(c.Request.Context(), h.currentUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type bulkImportPayload struct {
	Items []switchWritePayload `json:"items"`
}

func (h *httpHandler) handleSwitchBulkImport(c *gin.Context) {
	var request bulkImportPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	items := make([]switches.BulkItem, 0, len(request.Items))
	for _, item := range request.Items {
		items = append(items, switches.BulkItem{
			Fields:        item.Fields,
			PersonalNotes: item.PersonalNotes,
			Quantity:      item.Quantity,
		})
	}
	result, err := h.deps.SwitchesService.BulkImport(c.Request.Context(), h.currentUserID(c), items)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) handleSwitchImages(c *gin.Context) {
	userID := h.currentUserID(c)
	if _, err := h.deps.SwitchesService.Get(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	rows, err := h.deps.ImagesService.ListForSwitch(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": rows})
}
