package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/taskprod/backend/internal/domain/catalog"
)

// CategoryModel is the persistence model for the Category domain entity.
// Removing a parent row removes its subtree.
type CategoryModel struct {
	AuditedAggregateModel
	Name        string         `gorm:"type:varchar(255);not null"`
	Description string         `gorm:"type:text;not null"`
	ParentID    *uuid.UUID     `gorm:"type:uuid;index"`
	Parent      *CategoryModel `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE"`
	IsActive    bool           `gorm:"not null"`
	IsDeleted   bool           `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "categories"
}

// ToDomain converts the persistence model to a domain Category entity.
func (m *CategoryModel) ToDomain() *catalog.Category {
	return &catalog.Category{
		AuditedAggregateRoot: m.ToAuditedAggregateRoot(),
		Name:                 m.Name,
		Description:          m.Description,
		ParentID:             m.ParentID,
		IsActive:             m.IsActive,
		IsDeleted:            m.IsDeleted,
	}
}

// FromDomain populates the persistence model from a domain Category entity.
func (m *CategoryModel) FromDomain(c *catalog.Category) {
	m.FromDomainAuditedAggregateRoot(c.AuditedAggregateRoot)
	m.Name = c.Name
	m.Description = c.Description
	m.ParentID = c.ParentID
	m.IsActive = c.IsActive
	m.IsDeleted = c.IsDeleted
}

// CategoryModelFromDomain creates a new persistence model from a domain Category entity.
func CategoryModelFromDomain(c *catalog.Category) *CategoryModel {
	m := &CategoryModel{}
	m.FromDomain(c)
	return m
}

// ProductModel is the persistence model for the Product domain entity.
// Products go with their category.
type ProductModel struct {
	AuditedAggregateModel
	CategoryID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Category    *CategoryModel  `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
	Name        string          `gorm:"type:varchar(255);not null"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Stock       int             `gorm:"not null;check:chk_products_stock,stock >= 0"`
	Description string          `gorm:"type:text;not null"`
	IsActive    bool            `gorm:"not null"`
	IsDeleted   bool            `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		AuditedAggregateRoot: m.ToAuditedAggregateRoot(),
		CategoryID:           m.CategoryID,
		Name:                 m.Name,
		Price:                m.Price,
		Stock:                m.Stock,
		Description:          m.Description,
		IsActive:             m.IsActive,
		IsDeleted:            m.IsDeleted,
	}
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainAuditedAggregateRoot(p.AuditedAggregateRoot)
	m.CategoryID = p.CategoryID
	m.Name = p.Name
	m.Price = p.Price
	m.Stock = p.Stock
	m.Description = p.Description
	m.IsActive = p.IsActive
	m.IsDeleted = p.IsDeleted
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
