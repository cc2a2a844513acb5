// Package handlers translates HTTP requests into service calls.
package handlers

import (
	"net/http"

	"home-services-api/apperrors"
	"home-services-api/middleware"
	"home-services-api/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

type Handler struct {
	svc *services.Services
	// exposeOTP returns reset codes in API responses; development only
	exposeOTP bool
}

func New(svc *services.Services, exposeOTP bool) *Handler {
	return &Handler{svc: svc, exposeOTP: exposeOTP}
}

// bindJSON decodes the body into req and renders validation errors itself.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		apperrors.Respond(c, apperrors.FromBinding(err))
		return false
	}
	return true
}

// paramID parses a positive numeric path parameter.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := cast.ToUintE(c.Param(name))
	if err != nil || id == 0 {
		apperrors.Respond(c, apperrors.Validation("Invalid "+name+": must be a positive integer"))
		return 0, false
	}
	return id, true
}

// queryID parses an optional numeric query parameter; ok is false after an error response.
func queryID(c *gin.Context, name string) (*uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := cast.ToUintE(raw)
	if err != nil || id == 0 {
		apperrors.Respond(c, apperrors.Validation("Invalid "+name+": must be a positive integer"))
		return nil, false
	}
	return &id, true
}

// boolQuery reads an optional boolean flag such as ?unread=true
func boolQuery(c *gin.Context, name string) bool {
	return cast.ToBool(c.Query(name))
}

func pageFrom(c *gin.Context) services.Page {
	return services.Page{
		Number: cast.ToInt(c.DefaultQuery("page", "1")),
		Size:   cast.ToInt(c.DefaultQuery("page_size", "20")),
	}
}

func viewer(c *gin.Context) services.Viewer {
	return services.Viewer{ID: middleware.GetUserID(c), Role: middleware.GetRole(c)}
}

func paged(c *gin.Context, key string, items any, total int64, page services.Page) {
	page = page.Normalize()
	c.JSON(http.StatusOK, gin.H{
		"count":     total,
		"page":      page.Number,
		"page_size": page.Size,
		key:         items,
	})
}
