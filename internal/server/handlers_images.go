package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/keebstack/switchbook/internal/images"
)

// maxUploadBody caps the multipart body read; the image service applies the
// exact per-file limit afterwards.
const maxUploadBody = 8 << 20

// handleImageUpload accepts a multipart form with a "file" part and either a
// switchId or masterSwitchId field. Uploads to a switch require ownership;
// uploads to a master switch are open to any authenticated user.
func (h *httpHandler) handleImageUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_file"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable_file"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable_file"})
		return
	}

	userID := h.currentUserID(c)
	request := images.UploadRequest{
		OwnerUserID:  userID,
		DeclaredMIME: strings.TrimSpace(fileHeader.Header.Get("Content-Type")),
		Data:         data,
		Caption:      c.PostForm("caption"),
	}
	switch {
	case c.PostForm("switchId") != "":
		switchID := c.PostForm("switchId")
		if _, err := h.deps.SwitchesService.Get(c.Request.Context(), userID, switchID); err != nil {
			writeServiceError(c, err)
			return
		}
		request.SwitchID = &switchID
	case c.PostForm("masterSwitchId") != "":
		masterSwitchID := c.PostForm("masterSwitchId")
		if _, err := h.deps.MasterService.Get(c.Request.Context(), masterSwitchID); err != nil {
			writeServiceError(c, err)
			return
		}
		request.MasterSwitchID = &masterSwitchID
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_target"})
		return
	}

	record, err := h.deps.ImagesService.Upload(c.Request.Context(), request)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *httpHandler) handleImageDelete(c *gin.Context) {
	err := h.deps.ImagesService.Delete(c.Request.Context(), h.currentUserID(c), h.isAdmin(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleImageSetPrimary(c *gin.Context) {
	record, err := h.deps.ImagesService.SetPrimary(c.Request.Context(), h.currentUserID(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}
