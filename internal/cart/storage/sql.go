package storage

import (
	"context"
	"fmt"

	"github.com/phenomboxing/storefront/internal/cart"
	"github.com/phenomboxing/storefront/pkg/db"
	"github.com/phenomboxing/storefront/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLStore keeps snapshots in the cart_snapshots table, one row per session.
type SQLStore struct {
	db        *gorm.DB
	sessionID string
}

// SQLFactory returns a factory backed by conn.
func SQLFactory(conn *gorm.DB) cart.PersisterFactory {
	return func(sessionID string) cart.Persister {
		return &SQLStore{db: conn, sessionID: sessionID}
	}
}

func (s *SQLStore) Load(ctx context.Context) (*cart.Snapshot, error) {
	var row models.CartSnapshot
	err := s.db.WithContext(ctx).
		Where("session_id = ?", s.sessionID).
		First(&row).Error
	if db.IsNotFound(err) {
		return nil, cart.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select cart snapshot: %w", err)
	}
	return cart.DecodeSnapshot([]byte(row.Payload))
}

// Save upserts the row. Concurrent writers for one session are not merged;
// the last statement wins.
func (s *SQLStore) Save(ctx context.Context, snap cart.Snapshot) error {
	data, err := cart.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	row := models.CartSnapshot{
		SessionID: s.sessionID,
		Version:   snap.Version,
		Payload:   string(data),
		UpdatedAt: snap.UpdatedAt,
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"version", "payload", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert cart snapshot: %w", err)
	}
	return nil
}

func (s *SQLStore) Backend() string {
	return BackendSQL
}
