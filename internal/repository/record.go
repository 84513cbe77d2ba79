package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"ebaystore/parser/internal/domain"
)

// RecordRepository persists extracted records for downstream consumers.
type RecordRepository interface {
	SaveRecord(ctx context.Context, store string, record *domain.DetailRecord) error
}

type recordRepository struct {
	db *pgxpool.Pool
}

func NewRecordRepository(db *pgxpool.Pool) RecordRepository {
	return &recordRepository{
		db: db,
	}
}

func (r *recordRepository) SaveRecord(ctx context.Context, store string, record *domain.DetailRecord) error {
	query := `
	INSERT INTO product_records (id, store, data)
	VALUES ($1, $2, $3)
	ON CONFLICT (id)
	DO UPDATE SET store = $2, data = $3`
	_, err := r.db.Exec(ctx, query, string(record.ItemID), store, record)
	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", record.ItemID, err)
	}

	return nil
}
