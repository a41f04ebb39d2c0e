package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/keebstack/switchbook/internal/users"
	"github.com/keebstack/switchbook/internal/wishlist"
	"go.uber.org/zap"
)

func (h *httpHandler) handleWishlistList(c *gin.Context) {
	rows, err := h.deps.WishlistService.List(c.Request.Context(), h.currentUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

func (h *httpHandler) handleWishlistCreate(c *gin.Context) {
	var request wishlist.CreateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, err := h.deps.WishlistService.Create(c.Request.Context(), h.currentUserID(c), request)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *httpHandler) handleWishlistUpdate(c *gin.Context) {
	var request wishlist.CreateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, err := h.deps.WishlistService.Update(c.Request.Context(), h.currentUserID(c), c.Param("id"), request)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *httpHandler) handleWishlistDelete(c *gin.Context) {
	if err := h.deps.WishlistService.Delete(c.Request.Context(), h.currentUserID(c), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleNotificationList(c *gin.Context) {
	includeDismissed := c.Query("includeDismissed") == "true"
	rows, err := h.deps.NotifyService.List(c.Request.Context(), h.currentUserID(c), includeDismissed)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	unread, err := h.deps.NotifyService.UnreadCount(c.Request.Context(), h.currentUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": rows, "unread": unread})
}

func (h *httpHandler) handleNotificationRead(c *gin.Context) {
	if err := h.deps.NotifyService.MarkRead(c.Request.Context(), h.currentUserID(c), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleNotificationDismiss(c *gin.Context) {
	if err := h.deps.NotifyService.Dismiss(c.Request.Context(), h.currentUserID(c), c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

const streamHeartbeatInterval = 25 * time.Second

// handleNotificationStream pushes notification events over server-sent events
// with periodic heartbeats so proxies keep the connection open.
func (h *httpHandler) handleNotificationStream(c *gin.Context) {
	if h.deps.Dispatcher == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "stream_unavailable"})
		return
	}
	stream, cleanup := h.deps.Dispatcher.Subscribe(c.Request.Context(), h.currentUserID(c))
	defer cleanup()

	heartbeat := time.NewTicker(streamHeartbeatInterval)
	defer heartbeat.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent("notification", gin.H{
				"id":    event.NotificationID,
				"kind":  event.Kind,
				"title": event.Title,
			})
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", gin.H{"at": time.Now().UTC().Unix()})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

type sharingPayload struct {
	Enabled bool `json:"enabled"`
}

func (h *httpHandler) handleSharingToggle(c *gin.Context) {
	var request sharingPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	identity, err := h.deps.UsersService.SetSharing(c.Request.Context(), h.currentUserID(c), request.Enabled)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user_not_found"})
			return
		}
		h.logger.Error("sharing toggle failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sharing_update_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"enabled":   identity.ShareEnabled,
		"shareSlug": identity.ShareSlug,
	})
}

// handleSharePage returns a user's collection by public slug, read-only, with
// personal notes stripped.
func (h *httpHandler) handleSharePage(c *gin.Context) {
	identity, err := h.deps.UsersService.BySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "share_not_found"})
		return
	}
	records, err := h.deps.SwitchesService.List(c.Request.Context(), identity.UserID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	payload := make([]switchPayload, 0, len(records))
	for _, record := range records {
		record.PersonalNotes = ""
		payload = append(payload, toSwitchPayload(record))
	}
	c.JSON(http.StatusOK, gin.H{
		"displayName": identity.DisplayName,
		"switches":    payload,
	})
}

func (h *httpHandler) handleForceCurveLookup(c *gin.Context) {
	if h.deps.ForceCurves == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "lookup_unavailable"})
		return
	}
	result, err := h.deps.ForceCurves.Lookup(c.Request.Context(), c.Query("name"), c.Query("manufacturer"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
