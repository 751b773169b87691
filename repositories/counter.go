package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// incrementCounter adds one to column of the row with id inside a
// transaction and reads the value back. The update is a single
// "column = column + 1" statement, so concurrent calls never lose counts.
func incrementCounter(ctx context.Context, db *gorm.DB, model any, id uint, column string) (int64, error) {
	var value int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(model).
			Where("id = ?", id).
			UpdateColumn(column, gorm.Expr(fmt.Sprintf("%s + ?", column), 1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(model).Where("id = ?", id).Select(column).Scan(&value).Error
	})
	return value, err
}
