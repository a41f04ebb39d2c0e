package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/keebstack/switchbook/internal/master"
	"github.com/keebstack/switchbook/internal/switchspec"
)

type masterSubmitPayload struct {
	switchspec.Fields
	Reason                string `json:"reason"`
	ConfirmedNotDuplicate bool   `json:"confirmedNotDuplicate"`
}

func (h *httpHandler) handleMasterSubmit(c *gin.Context) {
	var request masterSubmitPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, err := h.deps.MasterService.Submit(c.Request.Context(), master.SubmitRequest{
		SubmitterID:           h.currentUserID(c),
		Fields:                request.Fields,
		Reason:                request.Reason,
		ConfirmedNotDuplicate: request.ConfirmedNotDuplicate,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *httpHandler) handleMasterList(c *gin.Context) {
	records, err := h.deps.MasterService.ListApproved(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"masterSwitches": records})
}

func (h *httpHandler) handleMasterGet(c *gin.Context) {
	record, err := h.deps.MasterService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	// Unreviewed records stay private to moderators.
	if record.Status != master.StatusApproved && !h.isAdmin(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "master.get.not_found"})
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *httpHandler) handleMasterImages(c *gin.Context) {
	record, err := h.deps.MasterService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	// Unreviewed records stay private to moderators.
	if record.Status != master.StatusApproved && !h.isAdmin(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "master.images.not_found"})
		return
	}
	rows, err := h.deps.ImagesService.ListForMasterSwitch(c.Request.Context(), record.ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": rows})
}

func (h *httpHandler) handleMasterPending(c *gin.Context) {
	records, err := h.deps.MasterService.ListPending(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"masterSwitches": records})
}

func (h *httpHandler) handleMasterApprove(c *gin.Context) {
	record, err := h.deps.MasterService.Approve(c.Request.Context(), c.Param("id"), h.currentUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

type rejectPayload struct {
	Reason string `json:"reason"`
}

func (h *httpHandler) handleMasterReject(c *gin.Context) {
	var request rejectPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, err := h.deps.MasterService.Reject(c.Request.Context(), c.Param("id"), h.currentUserID(c), request.Reason)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// editPayload augments an Edit with its decoded snapshots.
type editPayload struct {
	master.Edit
	ChangedFields  []string           `json:"changedFields"`
	PreviousFields *switchspec.Fields `json:"previousFields,omitempty"`
	NewFields      *switchspec.Fields `json:"newFields,omitempty"`
}

func toEditPayload(edit master.Edit) editPayload {
	payload := editPayload{Edit: edit, ChangedFields: edit.ChangedFields()}
	if payload.ChangedFields == nil {
		payload.ChangedFields = []string{}
	}
	if previous, err := edit.PreviousFields(); err == nil {
		payload.PreviousFields = &previous
	}
	if proposed, err := edit.NewFields(); err == nil {
		payload.NewFields = &proposed
	}
	return payload
}

type editProposePayload struct {
	switchspec.Fields
	Reason        string   `json:"reason"`
	ChangedFields []string `json:"changedFields"`
}

func (h *httpHandler) handleEditPropose(c *gin.Context) {
	var request editProposePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	edit, err := h.deps.MasterService.ProposeEdit(c.Request.Context(), master.EditRequest{
		MasterSwitchID: c.Param("id"),
		EditorID:       h.currentUserID(c),
		Reason:         request.Reason,
		NewFields:      request.Fields,
		ChangedFields:  request.ChangedFields,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toEditPayload(edit))
}

func (h *httpHandler) handleEditListFor(c *gin.Context) {
	edits, err := h.deps.MasterService.ListEditsFor(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"edits": toEditPayloads(edits)})
}

func (h *httpHandler) handleEditPending(c *gin.Context) {
	edits, err := h.deps.MasterService.ListPendingEdits(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"edits": toEditPayloads(edits)})
}

func toEditPayloads(edits []master.Edit) []editPayload {
	payload := make([]editPayload, 0, len(edits))
	for _, edit := range edits {
		payload = append(payload, toEditPayload(edit))
	}
	return payload
}

func (h *httpHandler) handleEditApprove(c *gin.Context) {
	record, err := h.deps.MasterService.ApproveEdit(c.Request.Context(), c.Param("id"), h.currentUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *httpHandler) handleEditReject(c *gin.Context) {
	var request rejectPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	edit, err := h.deps.MasterService.RejectEdit(c.Request.Context(), c.Param("id"), h.currentUserID(c), request.Reason)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEditPayload(edit))
}
