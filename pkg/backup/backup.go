package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"MediRoute/pkg/logger"
	stores "MediRoute/pkg/storage"
	"MediRoute/pkg/util"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Backup snapshots a sqlite store and hands the file to a Store.
// Server databases (mysql, pg) are expected to be backed up by their own
// tooling and are skipped.
type Backup struct {
	db     *gorm.DB
	driver string
	store  stores.Store
	now    func() time.Time
}

func New(db *gorm.DB, driver string, store stores.Store) *Backup {
	return &Backup{db: db, driver: driver, store: store, now: time.Now}
}

// Execute writes one snapshot and returns its key.
func (b *Backup) Execute(ctx context.Context) (string, error) {
	if b.driver != util.DriverSQLite {
		return "", fmt.Errorf("backup not supported for DB_DRIVER %q", b.driver)
	}

	key := fmt.Sprintf("mediroute_backup_%s.db", b.now().UTC().Format("20060102_150405"))
	tmpDir, err := os.MkdirTemp("", "mediroute-backup-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)
	tmp := filepath.Join(tmpDir, key)

	// VACUUM INTO yields a consistent copy while the database is in use
	if err := b.db.WithContext(ctx).Exec("VACUUM INTO ?", tmp).Error; err != nil {
		return "", fmt.Errorf("snapshot database: %w", err)
	}
	f, err := os.Open(tmp)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := b.store.Write(ctx, key, f); err != nil {
		return "", fmt.Errorf("store snapshot: %w", err)
	}
	return key, nil
}

// Run makes Backup usable as a scheduled job.
func (b *Backup) Run(ctx context.Context) {
	key, err := b.Execute(ctx)
	if err != nil {
		logger.Warn("backup failed", zap.Error(err))
		return
	}
	logger.Info("backup completed", zap.String("key", key))
}
