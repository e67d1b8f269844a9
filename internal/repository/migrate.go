package repository

import "gorm.io/gorm"

// AutoMigrate creates or updates the schema for every persistence model.
// Development and test convenience; deployments apply the SQL migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&AccountModel{},
		&CartItemModel{},
		&BookingModel{},
		&DiscountCodeModel{},
		&DiscountUsageModel{},
		&ReferralRewardModel{},
	)
}
