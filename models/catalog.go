package models

import "time"

type Category struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	Name          string        `json:"name" gorm:"not null"`
	Slug          string        `json:"slug" gorm:"uniqueIndex;not null"`
	Description   string        `json:"description"`
	ImageURL      string        `json:"image_url"`
	IsActive      bool          `json:"is_active" gorm:"not null"`
	SortOrder     int           `json:"sort_order"`
	SubCategories []SubCategory `json:"subcategories,omitempty" gorm:"foreignKey:CategoryID"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type SubCategory struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	CategoryID  uint          `json:"category_id" gorm:"not null;uniqueIndex:idx_subcategory_slug"`
	Name        string        `json:"name" gorm:"not null"`
	Slug        string        `json:"slug" gorm:"not null;uniqueIndex:idx_subcategory_slug"`
	Description string        `json:"description"`
	ImageURL    string        `json:"image_url"`
	IsActive    bool          `json:"is_active" gorm:"not null"`
	SortOrder   int           `json:"sort_order"`
	Services    []ServiceItem `json:"services,omitempty" gorm:"foreignKey:SubCategoryID"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type ServiceItem struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	SubCategoryID   uint      `json:"subcategory_id" gorm:"column:sub_category_id;not null;uniqueIndex:idx_service_item_slug"`
	Name            string    `json:"name" gorm:"not null"`
	Slug            string    `json:"slug" gorm:"not null;uniqueIndex:idx_service_item_slug"`
	Description     string    `json:"description"`
	Price           float64   `json:"price" gorm:"not null"`
	DurationMinutes int       `json:"duration_minutes"`
	ImageURL        string    `json:"image_url"`
	IsActive        bool      `json:"is_active" gorm:"not null"`
	SortOrder       int       `json:"sort_order"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
