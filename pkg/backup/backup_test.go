package backup

import (
	"context"
	"testing"
	"time"

	stores "MediRoute/pkg/storage"
	"MediRoute/pkg/util"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type note struct {
	ID   uint
	Body string
}

func TestExecuteSnapshotsSQLite(t *testing.T) {
	db, err := util.InitDatabase(util.DriverSQLite, "", gormlogger.Silent)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&note{}))
	require.NoError(t, db.Create(&note{Body: "kept"}).Error)

	dir := t.TempDir()
	store := stores.NewLocalStore(dir)
	b := New(db, util.DriverSQLite, store)
	b.now = func() time.Time { return time.Date(2024, 3, 1, 2, 3, 4, 0, time.UTC) }

	key, err := b.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "mediroute_backup_20240301_020304.db", key)

	ok, err := store.Exists(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok)

	restored, err := gorm.Open(sqlite.Open(store.Root+"/"+key), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	var got note
	require.NoError(t, restored.First(&got).Error)
	assert.Equal(t, "kept", got.Body)
	sqlDB, err := restored.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

func TestExecuteRejectsServerDrivers(t *testing.T) {
	b := New(nil, util.DriverPostgres, stores.NewLocalStore(t.TempDir()))
	_, err := b.Execute(context.Background())
	assert.Error(t, err)
}

func TestLocalStoreDeleteMissing(t *testing.T) {
	store := stores.NewLocalStore(t.TempDir())
	assert.NoError(t, store.Delete(context.Background(), "absent"))
	ok, err := store.Exists(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}
