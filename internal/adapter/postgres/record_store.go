package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"healthtrack/internal/domain"
)

const recordColumns = "id, user_id, date, weight, sleep, sport, water, energy, mood, stress, food_type, created_at"

// LoadAll returns the scope's records ordered by date, then creation time.
func (d *DB) LoadAll(ctx context.Context, scope domain.Scope) ([]domain.HealthRecord, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM health_records WHERE user_id IS NOT DISTINCT FROM NULLIF($1, 0) ORDER BY date ASC, created_at ASC;",
		scope.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close() //nolint:errcheck

	out := []domain.HealthRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return out, nil
}

// Insert stores rec under scope. The database assigns id and created_at.
func (d *DB) Insert(ctx context.Context, rec domain.HealthRecord, scope domain.Scope) (domain.HealthRecord, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	row := d.sql.QueryRowContext(ctx,
		"INSERT INTO health_records(user_id, date, weight, sleep, sport, water, energy, mood, stress, food_type) "+
			"VALUES(NULLIF($1, 0), $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING "+recordColumns+";",
		scope.UserID, rec.Date, rec.Weight, rec.Sleep, rec.Sport, rec.Water, rec.Energy, rec.Mood, rec.Stress, string(rec.FoodType),
	)
	saved, err := scanRecord(row)
	if err != nil {
		return domain.HealthRecord{}, fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	return saved, nil
}

// Update replaces every field of record id, keeping its id and created_at.
func (d *DB) Update(ctx context.Context, id string, rec domain.HealthRecord, scope domain.Scope) (domain.HealthRecord, error) {
	if uuid.Validate(id) != nil {
		return domain.HealthRecord{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	row := d.sql.QueryRowContext(ctx,
		"UPDATE health_records SET date=$3, weight=$4, sleep=$5, sport=$6, water=$7, energy=$8, mood=$9, stress=$10, food_type=$11 "+
			"WHERE id=$1 AND user_id IS NOT DISTINCT FROM NULLIF($2, 0) RETURNING "+recordColumns+";",
		id, scope.UserID, rec.Date, rec.Weight, rec.Sleep, rec.Sport, rec.Water, rec.Energy, rec.Mood, rec.Stress, string(rec.FoodType),
	)
	saved, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.HealthRecord{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.HealthRecord{}, fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	return saved, nil
}

// DeleteByID removes record id from scope. Deleting an absent id succeeds.
func (d *DB) DeleteByID(ctx context.Context, id string, scope domain.Scope) error {
	if uuid.Validate(id) != nil {
		return nil
	}
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	_, err := d.sql.ExecContext(ctx,
		"DELETE FROM health_records WHERE id=$1 AND user_id IS NOT DISTINCT FROM NULLIF($2, 0);",
		id, scope.UserID)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (domain.HealthRecord, error) {
	var (
		rec    domain.HealthRecord
		userID sql.NullInt64
		food   string
	)
	err := s.Scan(&rec.ID, &userID, &rec.Date, &rec.Weight, &rec.Sleep, &rec.Sport, &rec.Water,
		&rec.Energy, &rec.Mood, &rec.Stress, &food, &rec.CreatedAt)
	if err != nil {
		return domain.HealthRecord{}, err
	}
	rec.UserID = userID.Int64
	rec.FoodType = domain.FoodType(food)
	return rec, nil
}
