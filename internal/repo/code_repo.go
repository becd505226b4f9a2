// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Code model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business rules, only persistence and query composition.
//
// Error semantics:
//   - Missing codes yield gorm.ErrRecordNotFound (exported as ErrNotFound).
//   - A conditional claim on a code at its ceiling yields ErrConditionFailed.
//   - Other DB errors are propagated unchanged.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-codeshare-backend/internal/domain"
)

// CreateCode inserts c as given. Callers assign ID and PublishedAt.
func CreateCode(ctx context.Context, db *gorm.DB, c *domain.Code) error {
	return db.WithContext(ctx).Create(c).Error
}

// ListActiveCodes returns codes whose expiry day is on or after today,
// newest first.
func ListActiveCodes(ctx context.Context, db *gorm.DB, today string) ([]domain.Code, error) {
	var out []domain.Code
	err := db.WithContext(ctx).
		Where("expiry_date >= ?", today).
		Order("published_at desc").Order("id").
		Find(&out).Error
	return out, err
}

// ListCodes returns every code regardless of expiry, newest first.
func ListCodes(ctx context.Context, db *gorm.DB) ([]domain.Code, error) {
	var out []domain.Code
	err := db.WithContext(ctx).
		Order("published_at desc").Order("id").
		Find(&out).Error
	return out, err
}

// GetCode fetches a code by id or returns ErrNotFound.
func GetCode(ctx context.Context, db *gorm.DB, id string) (*domain.Code, error) {
	var c domain.Code
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// IncrementClaims atomically adds one to claimed_count. With ceiling set the
// update only applies while claimed_count < max_claims, and a code at its
// ceiling yields ErrConditionFailed. The updated row is returned.
func IncrementClaims(ctx context.Context, db *gorm.DB, id string, ceiling bool) (*domain.Code, error) {
	q := db.WithContext(ctx).Model(&domain.Code{}).Where("id = ?", id)
	if ceiling {
		q = q.Where("claimed_count < max_claims")
	}
	res := q.UpdateColumn("claimed_count", gorm.Expr("claimed_count + ?", 1))
	if res.Error != nil {
		return nil, res.Error
	}
	c, err := GetCode(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return c, ErrConditionFailed
	}
	return c, nil
}

// DeleteCode removes a code. ErrNotFound if nothing was deleted.
func DeleteCode(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Code{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteExpiredCodes collects every code whose expiry day is before today
// and deletes them as one batch inside a transaction. It returns the number
// of rows removed; zero matches is a no-op.
func DeleteExpiredCodes(ctx context.Context, db *gorm.DB, today string) (int64, error) {
	var deleted int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&domain.Code{}).
			Clauses(lockingClause(tx)...).
			Where("expiry_date < ?", today).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		res := tx.Where("id IN ?", ids).Delete(&domain.Code{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}

// lockingClause returns FOR UPDATE on drivers that support row locks.
// SQLite serializes writers already and rejects the clause.
func lockingClause(tx *gorm.DB) []clause.Expression {
	if tx.Dialector.Name() == "postgres" {
		return []clause.Expression{clause.Locking{Strength: "UPDATE"}}
	}
	return nil
}
