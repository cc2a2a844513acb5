package handlers

import (
	"net/http"

	"home-services-api/apperrors"
	"home-services-api/services"
	"home-services-api/statemachine"

	"github.com/gin-gonic/gin"
)

// ListCategories returns active categories (public)
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.svc.Catalog.ListCategories(c.Request.Context(), false)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(categories), "categories": categories})
}

// CatalogTree returns the full active hierarchy in one response.
func (h *Handler) CatalogTree(c *gin.Context) {
	tree, err := h.svc.Catalog.Tree(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(tree), "categories": tree})
}

func (h *Handler) GetCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	category, err := h.svc.Catalog.GetCategory(c.Request.Context(), id, false)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

// ListSubCategories optionally filters by ?category_id=
func (h *Handler) ListSubCategories(c *gin.Context) {
	categoryID, ok := queryID(c, "category_id")
	if !ok {
		return
	}
	subs, err := h.svc.Catalog.ListSubCategories(c.Request.Context(), categoryID, false)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(subs), "subcategories": subs})
}

func (h *Handler) GetSubCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	sub, err := h.svc.Catalog.GetSubCategory(c.Request.Context(), id, false)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subcategory": sub})
}

// ListServices filters by ?subcategory_id=, ?category_id= or a ?search= term
func (h *Handler) ListServices(c *gin.Context) {
	h.listServices(c, false)
}

func (h *Handler) listServices(c *gin.Context, includeInactive bool) {
	subID, ok := queryID(c, "subcategory_id")
	if !ok {
		return
	}
	catID, ok := queryID(c, "category_id")
	if !ok {
		return
	}
	items, err := h.svc.Catalog.ListServices(c.Request.Context(), services.ServiceFilter{
		SubCategoryID:   subID,
		CategoryID:      catID,
		Query:           c.Query("search"),
		IncludeInactive: includeInactive,
	})
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items), "services": items})
}

func (h *Handler) GetService(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	item, err := h.svc.Catalog.GetService(c.Request.Context(), id, false)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"service": item})
}

// ListVendors returns approved vendors, optionally by ?category=
func (h *Handler) ListVendors(c *gin.Context) {
	vendors, err := h.svc.Vendors.ListApproved(c.Request.Context(), c.Query("category"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(vendors), "vendors": vendors})
}

// GetStateMachineInfo returns every workflow's transitions for informational purposes
func GetStateMachineInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"booking": gin.H{
			"transitions": statemachine.Booking.Transitions(),
			"terminal":    []string{"COMPLETED", "CANCELLED"},
		},
		"vendor_approval": gin.H{
			"transitions": statemachine.Approval.Transitions(),
			"terminal":    []string{"APPROVED", "REJECTED"},
		},
		"others_request": gin.H{
			"transitions": statemachine.OthersRequest.Transitions(),
			"terminal":    []string{"COMPLETED", "CANCELLED"},
		},
		"tracking": gin.H{
			"poll_interval_seconds": services.PollIntervalSeconds,
			"estimated_time":        "minutes until the slot starts, 0 once due, null when finished",
		},
	})
}
