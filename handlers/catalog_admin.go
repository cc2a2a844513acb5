package handlers

import (
	"net/http"

	"home-services-api/apperrors"
	"home-services-api/services"

	"github.com/gin-gonic/gin"
)

// CatalogRequest is shared by the three catalog levels. Omitted fields are
// left unchanged on update.
type CatalogRequest struct {
	Name            *string  `json:"name"`
	Slug            *string  `json:"slug"`
	Description     *string  `json:"description"`
	ImageURL        *string  `json:"image_url" binding:"omitempty,url"`
	IsActive        *bool    `json:"is_active"`
	SortOrder       *int     `json:"sort_order"`
	Price           *float64 `json:"price" binding:"omitempty,gt=0"`
	DurationMinutes *int     `json:"duration_minutes" binding:"omitempty,gte=0"`
}

type CreateSubCategoryRequest struct {
	CategoryID uint `json:"category_id" binding:"required"`
	CatalogRequest
}

type CreateServiceRequest struct {
	SubCategoryID uint `json:"subcategory_id" binding:"required"`
	CatalogRequest
}

func (r CatalogRequest) input() services.CatalogInput {
	return services.CatalogInput{
		Name:            r.Name,
		Slug:            r.Slug,
		Description:     r.Description,
		ImageURL:        r.ImageURL,
		IsActive:        r.IsActive,
		SortOrder:       r.SortOrder,
		Price:           r.Price,
		DurationMinutes: r.DurationMinutes,
	}
}

// ---- categories ----

func (h *Handler) AdminListCategories(c *gin.Context) {
	categories, err := h.svc.Catalog.ListCategories(c.Request.Context(), true)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(categories), "categories": categories})
}

func (h *Handler) AdminCreateCategory(c *gin.Context) {
	var req CatalogRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.svc.Catalog.CreateCategory(c.Request.Context(), req.input())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Category created", "category": category})
}

func (h *Handler) AdminUpdateCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req CatalogRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.svc.Catalog.UpdateCategory(c.Request.Context(), id, req.input())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category updated", "category": category})
}

// AdminDeleteCategory removes the category with its subcategories and services
func (h *Handler) AdminDeleteCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Catalog.DeleteCategory(c.Request.Context(), id); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}

// ---- subcategories ----

func (h *Handler) AdminListSubCategories(c *gin.Context) {
	categoryID, ok := queryID(c, "category_id")
	if !ok {
		return
	}
	subs, err := h.svc.Catalog.ListSubCategories(c.Request.Context(), categoryID, true)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(subs), "subcategories": subs})
}

func (h *Handler) AdminCreateSubCategory(c *gin.Context) {
	var req CreateSubCategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	sub, err := h.svc.Catalog.CreateSubCategory(c.Request.Context(), req.CategoryID, req.input())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Subcategory created", "subcategory": sub})
}

func (h *Handler) AdminUpdateSubCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req CatalogRequest
	if !bindJSON(c, &req) {
		return
	}
	sub, err := h.svc.Catalog.UpdateSubCategory(c.Request.Context(), id, req.input())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Subcategory updated", "subcategory": sub})
}

func (h *Handler) AdminDeleteSubCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Catalog.DeleteSubCategory(c.Request.Context(), id); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Subcategory deleted"})
}

// ---- service items ----

func (h *Handler) AdminListServices(c *gin.Context) {
	h.listServices(c, true)
}

func (h *Handler) AdminCreateService(c *gin.Context) {
	var req CreateServiceRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.svc.Catalog.CreateService(c.Request.Context(), req.SubCategoryID, req.input())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Service created", "service": item})
}

func (h *Handler) AdminUpdateService(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req CatalogRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.svc.Catalog.UpdateService(c.Request.Context(), id, req.input())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Service updated", "service": item})
}

func (h *Handler) AdminDeleteService(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Catalog.DeleteService(c.Request.Context(), id); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Service deleted"})
}
