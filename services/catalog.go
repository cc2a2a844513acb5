package services

import (
	"context"
	"encoding/json"
	"strings"
	"unicode"

	"home-services-api/apperrors"
	"home-services-api/cache"
	"home-services-api/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	cacheKeyCategories = "categories"
	cacheKeyTree       = "tree"
	catalogOrder       = "sort_order asc, name asc"
)

type CatalogService struct {
	db    *gorm.DB
	cache cache.CatalogCache
}

// CatalogInput carries the fields shared by all three catalog levels.
// Nil pointers leave a field unchanged on update.
type CatalogInput struct {
	Name            *string
	Slug            *string
	Description     *string
	ImageURL        *string
	IsActive        *bool
	SortOrder       *int
	Price           *float64
	DurationMinutes *int
}

// ---- categories ----

// ListCategories returns categories ordered for display. Public callers get active rows only.
func (s *CatalogService) ListCategories(ctx context.Context, includeInactive bool) ([]models.Category, error) {
	if !includeInactive {
		if raw, ok := s.cache.Get(ctx, cacheKeyCategories); ok {
			var cached []models.Category
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	q := s.db.WithContext(ctx).Order(catalogOrder)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	categories := []models.Category{}
	if err := q.Find(&categories).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	if !includeInactive {
		s.store(ctx, cacheKeyCategories, categories)
	}
	return categories, nil
}

// Tree returns active categories with their active subcategories and services.
func (s *CatalogService) Tree(ctx context.Context) ([]models.Category, error) {
	if raw, ok := s.cache.Get(ctx, cacheKeyTree); ok {
		var cached []models.Category
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	}
	categories := []models.Category{}
	err := s.db.WithContext(ctx).
		Preload("SubCategories", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order(catalogOrder)
		}).
		Preload("SubCategories.Services", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order(catalogOrder)
		}).
		Where("is_active = ?", true).
		Order(catalogOrder).
		Find(&categories).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	s.store(ctx, cacheKeyTree, categories)
	return categories, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id uint, includeInactive bool) (*models.Category, error) {
	var category models.Category
	q := s.db.WithContext(ctx).Preload("SubCategories", func(db *gorm.DB) *gorm.DB {
		if !includeInactive {
			db = db.Where("is_active = ?", true)
		}
		return db.Order(catalogOrder)
	})
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	if err := q.First(&category, id).Error; err != nil {
		return nil, findOr404(err, "Category")
	}
	return &category, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CatalogInput) (*models.Category, error) {
	name, slug, err := nameAndSlug(in)
	if err != nil {
		return nil, err
	}
	category := models.Category{Name: name, Slug: slug, IsActive: true}
	applyCommon(&category.Description, &category.ImageURL, &category.IsActive, &category.SortOrder, in)

	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, slugConflict(err, "category")
	}
	s.invalidate(ctx)
	return &category, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uint, in CatalogInput) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, findOr404(err, "Category")
	}
	updates, err := commonUpdates(in)
	if err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&category).Updates(updates).Error; err != nil {
			return nil, slugConflict(err, "category")
		}
		s.invalidate(ctx)
	}
	return s.GetCategory(ctx, id, true)
}

// DeleteCategory removes a category together with its subcategories and their services.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subIDs := tx.Model(&models.SubCategory{}).Select("id").Where("category_id = ?", id)
		if err := tx.Where("sub_category_id IN (?)", subIDs).Delete(&models.ServiceItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("category_id = ?", id).Delete(&models.SubCategory{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Category{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("Category")
		}
		return nil
	})
	if err != nil {
		return asAppError(err)
	}
	s.invalidate(ctx)
	zap.S().Infow("category deleted", "category_id", id)
	return nil
}

// ---- subcategories ----

func (s *CatalogService) ListSubCategories(ctx context.Context, categoryID *uint, includeInactive bool) ([]models.SubCategory, error) {
	q := s.db.WithContext(ctx).Order(catalogOrder)
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	subs := []models.SubCategory{}
	if err := q.Find(&subs).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	return subs, nil
}

func (s *CatalogService) GetSubCategory(ctx context.Context, id uint, includeInactive bool) (*models.SubCategory, error) {
	var sub models.SubCategory
	q := s.db.WithContext(ctx).Preload("Services", func(db *gorm.DB) *gorm.DB {
		if !includeInactive {
			db = db.Where("is_active = ?", true)
		}
		return db.Order(catalogOrder)
	})
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	if err := q.First(&sub, id).Error; err != nil {
		return nil, findOr404(err, "Subcategory")
	}
	return &sub, nil
}

func (s *CatalogService) CreateSubCategory(ctx context.Context, categoryID uint, in CatalogInput) (*models.SubCategory, error) {
	if err := s.exists(ctx, &models.Category{}, categoryID, "Category"); err != nil {
		return nil, err
	}
	name, slug, err := nameAndSlug(in)
	if err != nil {
		return nil, err
	}
	sub := models.SubCategory{CategoryID: categoryID, Name: name, Slug: slug, IsActive: true}
	applyCommon(&sub.Description, &sub.ImageURL, &sub.IsActive, &sub.SortOrder, in)

	if err := s.db.WithContext(ctx).Create(&sub).Error; err != nil {
		return nil, slugConflict(err, "subcategory")
	}
	s.invalidate(ctx)
	return &sub, nil
}

func (s *CatalogService) UpdateSubCategory(ctx context.Context, id uint, in CatalogInput) (*models.SubCategory, error) {
	var sub models.SubCategory
	if err := s.db.WithContext(ctx).First(&sub, id).Error; err != nil {
		return nil, findOr404(err, "Subcategory")
	}
	updates, err := commonUpdates(in)
	if err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&sub).Updates(updates).Error; err != nil {
			return nil, slugConflict(err, "subcategory")
		}
		s.invalidate(ctx)
	}
	return s.GetSubCategory(ctx, id, true)
}

// DeleteSubCategory removes a subcategory and its services.
func (s *CatalogService) DeleteSubCategory(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sub_category_id = ?", id).Delete(&models.ServiceItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.SubCategory{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("Subcategory")
		}
		return nil
	})
	if err != nil {
		return asAppError(err)
	}
	s.invalidate(ctx)
	return nil
}

// ---- service items ----

type ServiceFilter struct {
	SubCategoryID   *uint
	CategoryID      *uint
	Query           string
	IncludeInactive bool
}

func (s *CatalogService) ListServices(ctx context.Context, f ServiceFilter) ([]models.ServiceItem, error) {
	q := s.db.WithContext(ctx).Model(&models.ServiceItem{}).Order(catalogOrder)
	if f.SubCategoryID != nil {
		q = q.Where("sub_category_id = ?", *f.SubCategoryID)
	}
	if f.CategoryID != nil {
		q = q.Where("sub_category_id IN (?)",
			s.db.Model(&models.SubCategory{}).Select("id").Where("category_id = ?", *f.CategoryID))
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	if !f.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	items := []models.ServiceItem{}
	if err := q.Find(&items).Error; err != nil {
		return nil, apperrors.Internal(err)
	}
	return items, nil
}

func (s *CatalogService) GetService(ctx context.Context, id uint, includeInactive bool) (*models.ServiceItem, error) {
	var item models.ServiceItem
	q := s.db.WithContext(ctx)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	if err := q.First(&item, id).Error; err != nil {
		return nil, findOr404(err, "Service")
	}
	return &item, nil
}

func (s *CatalogService) CreateService(ctx context.Context, subCategoryID uint, in CatalogInput) (*models.ServiceItem, error) {
	if err := s.exists(ctx, &models.SubCategory{}, subCategoryID, "Subcategory"); err != nil {
		return nil, err
	}
	name, slug, err := nameAndSlug(in)
	if err != nil {
		return nil, err
	}
	if in.Price == nil || *in.Price <= 0 {
		return nil, apperrors.Validation("price must be greater than 0")
	}
	item := models.ServiceItem{SubCategoryID: subCategoryID, Name: name, Slug: slug, Price: *in.Price, IsActive: true}
	if in.DurationMinutes != nil {
		item.DurationMinutes = *in.DurationMinutes
	}
	applyCommon(&item.Description, &item.ImageURL, &item.IsActive, &item.SortOrder, in)

	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, slugConflict(err, "service")
	}
	s.invalidate(ctx)
	return &item, nil
}

func (s *CatalogService) UpdateService(ctx context.Context, id uint, in CatalogInput) (*models.ServiceItem, error) {
	var item models.ServiceItem
	if err := s.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, findOr404(err, "Service")
	}
	updates, err := commonUpdates(in)
	if err != nil {
		return nil, err
	}
	if in.Price != nil {
		if *in.Price <= 0 {
			return nil, apperrors.Validation("price must be greater than 0")
		}
		updates["price"] = *in.Price
	}
	if in.DurationMinutes != nil {
		updates["duration_minutes"] = *in.DurationMinutes
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&item).Updates(updates).Error; err != nil {
			return nil, slugConflict(err, "service")
		}
		s.invalidate(ctx)
	}
	return s.GetService(ctx, id, true)
}

func (s *CatalogService) DeleteService(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.ServiceItem{}, id)
	if res.Error != nil {
		return apperrors.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("Service")
	}
	s.invalidate(ctx)
	return nil
}

// ---- helpers ----

func (s *CatalogService) exists(ctx context.Context, model any, id uint, what string) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return apperrors.Internal(err)
	}
	if n == 0 {
		return apperrors.NotFound(what)
	}
	return nil
}

func (s *CatalogService) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.cache.Set(ctx, key, raw)
}

func (s *CatalogService) invalidate(ctx context.Context) {
	s.cache.InvalidateCatalog(ctx)
}

func nameAndSlug(in CatalogInput) (string, string, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return "", "", apperrors.Validation("name is required").
			WithDetails(map[string]any{"fields": map[string]string{"name": "is required"}})
	}
	name := strings.TrimSpace(*in.Name)
	slug := Slugify(name)
	if in.Slug != nil && strings.TrimSpace(*in.Slug) != "" {
		slug = Slugify(*in.Slug)
	}
	if slug == "" {
		return "", "", apperrors.Validation("name must contain letters or digits")
	}
	return name, slug, nil
}

func applyCommon(description, imageURL *string, isActive *bool, sortOrder *int, in CatalogInput) {
	if in.Description != nil {
		*description = strings.TrimSpace(*in.Description)
	}
	if in.ImageURL != nil {
		*imageURL = strings.TrimSpace(*in.ImageURL)
	}
	if in.IsActive != nil {
		*isActive = *in.IsActive
	}
	if in.SortOrder != nil {
		*sortOrder = *in.SortOrder
	}
}

func commonUpdates(in CatalogInput) (map[string]any, error) {
	updates := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperrors.Validation("name cannot be empty")
		}
		updates["name"] = name
	}
	if in.Slug != nil {
		slug := Slugify(*in.Slug)
		if slug == "" {
			return nil, apperrors.Validation("slug must contain letters or digits")
		}
		updates["slug"] = slug
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.ImageURL != nil {
		updates["image_url"] = strings.TrimSpace(*in.ImageURL)
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if in.SortOrder != nil {
		updates["sort_order"] = *in.SortOrder
	}
	return updates, nil
}

func slugConflict(err error, what string) error {
	if isUniqueViolation(err) {
		return apperrors.Conflict(apperrors.CodeAlreadyExists, "A "+what+" with this slug already exists")
	}
	return apperrors.Internal(err)
}

// asAppError passes AppErrors through and wraps anything else as internal.
func asAppError(err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.Internal(err)
}

// Slugify lowercases s and joins its letter/digit runs with single dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
		default:
			dash = true
		}
	}
	return b.String()
}
