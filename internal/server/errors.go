package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/keebstack/switchbook/internal/apperr"
	"github.com/keebstack/switchbook/internal/master"
)

// writeServiceError maps a classified service error to its HTTP response.
// Duplicate-detection failures carry their candidate payload through.
func writeServiceError(c *gin.Context, err error) {
	var dup *master.ErrDuplicate
	if errors.As(err, &dup) {
		if dup.Exact {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":            apperr.CodeOf(err),
				"duplicateType":    "exact",
				"existingSwitchId": dup.ExistingID,
			})
			return
		}
		c.JSON(http.StatusConflict, gin.H{
			"error":         apperr.CodeOf(err),
			"duplicateType": "similar",
			"candidates":    dup.Candidates,
		})
		return
	}

	status := statusForKind(apperr.KindOf(err))
	code := apperr.CodeOf(err)
	if code == "" {
		code = "internal_error"
	}
	c.JSON(status, gin.H{"error": code})
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict, apperr.KindCapacity:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
