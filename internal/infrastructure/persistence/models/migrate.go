package models

import "gorm.io/gorm"

// All returns every persistence model in dependency order
func All() []any {
	return []any{
		&UserModel{},
		&CategoryModel{},
		&ProductModel{},
		&TaskModel{},
	}
}

// AutoMigrate creates or updates the tables for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
