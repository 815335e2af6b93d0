package database

import (
	"errors"
	"testing"

	"brigade/internal/config"
	"brigade/internal/models"

	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitDB(config.DatabaseConfig{Dialect: config.DialectSQLite, Path: ":memory:"}, false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(db))
	return db
}

func TestMigrateCreatesKitchenTables(t *testing.T) {
	db := openMemory(t)

	assert.True(t, db.HasTable("kitchen_orders"))
	assert.True(t, db.HasTable("kitchen_order_items"))
	assert.Same(t, db, DB)
	assert.Equal(t, ":memory:", ActiveDSN())
}

func TestWithTxCommits(t *testing.T) {
	db := openMemory(t)

	err := WithTx(db, func(tx *gorm.DB) error {
		return tx.Create(&models.KitchenOrder{PosOrderID: "p1", OrderNumber: "1", Status: models.StatusPending}).Error
	})
	require.NoError(t, err)

	var count int
	db.Model(&models.KitchenOrder{}).Count(&count)
	assert.Equal(t, 1, count)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := openMemory(t)
	boom := errors.New("boom")

	err := WithTx(db, func(tx *gorm.DB) error {
		if err := tx.Create(&models.KitchenOrder{PosOrderID: "p1", OrderNumber: "1", Status: models.StatusPending}).Error; err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	db.Model(&models.KitchenOrder{}).Count(&count)
	assert.Equal(t, 0, count)
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	db := openMemory(t)

	assert.Panics(t, func() {
		_ = WithTx(db, func(tx *gorm.DB) error {
			tx.Create(&models.KitchenOrder{PosOrderID: "p1", OrderNumber: "1", Status: models.StatusPending})
			panic("kaboom")
		})
	})

	var count int
	db.Model(&models.KitchenOrder{}).Count(&count)
	assert.Equal(t, 0, count)
}

func TestDSN(t *testing.T) {
	cfg := config.DatabaseConfig{Name: "kds", SSLMode: "disable", User: "chef", Password: "pw"}
	assert.Equal(t, "host=db1 port=5432 dbname=kds sslmode=disable user=chef password=pw", DSN(cfg, "db1", 5432))

	cfg.User, cfg.Password = "", ""
	assert.Equal(t, "host=db2 port=6432 dbname=kds sslmode=disable", DSN(cfg, "db2", 6432))
}
