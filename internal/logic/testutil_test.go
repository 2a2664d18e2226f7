package logic

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/blues/sps/internal/database"
	"github.com/blues/sps/internal/model"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB 基于文件sqlite的测试数据库，busy_timeout让并发写排队而不是直接失败
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") +
		"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, database.Migrate(db))
	return db
}

func seedCampaign(t *testing.T, db *gorm.DB, title string, status model.CampaignStatus) *model.CampaignModel {
	t.Helper()

	campaign := &model.CampaignModel{
		Title:        title,
		SponsorId:    1,
		BudgetAmount: 1000000,
		Status:       string(status),
	}
	require.NoError(t, db.Create(campaign).Error)
	return campaign
}

func seedParticipation(t *testing.T, db *gorm.DB, campaignId, creatorId, amount int64) *model.ParticipationRecordModel {
	t.Helper()

	now := time.Now()
	record := &model.ParticipationRecordModel{
		CampaignId:    campaignId,
		CreatorId:     creatorId,
		PayableAmount: amount,
		CompletedAt:   &now,
	}
	require.NoError(t, db.Create(record).Error)
	return record
}
