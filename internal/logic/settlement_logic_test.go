package logic

import (
	"sync"
	"testing"

	"github.com/blues/sps/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSettlement(t *testing.T) {
	db := newTestDB(t)
	campaign := seedCampaign(t, db, "冬季企划", model.CampaignStatusActive)
	settlementLogic := NewSettlementLogic(db)

	const creatorId = int64(42)
	amounts := []int64{1000, 2000, 1500}
	for _, amount := range amounts {
		seedParticipation(t, db, campaign.Id, creatorId, amount)
	}

	settlement, err := settlementLogic.BuildSettlement(creatorId)
	require.NoError(t, err)
	assert.Equal(t, string(model.SettlementStatusPending), settlement.Status)
	assert.Equal(t, int64(4500), settlement.TotalAmount)

	var items []model.SettlementItemModel
	require.NoError(t, db.Where("settlement_id = ?", settlement.Id).Find(&items).Error)
	require.Len(t, items, 3)

	var itemTotal int64
	for _, item := range items {
		itemTotal += item.Amount
		assert.Equal(t, "冬季企划", item.CampaignTitle)
	}
	assert.Equal(t, settlement.TotalAmount, itemTotal)

	// 全部工作记录都已认领
	var unclaimed int64
	require.NoError(t, db.Model(&model.ParticipationRecordModel{}).
		Where("creator_id = ? AND settlement_item_id IS NULL", creatorId).
		Count(&unclaimed).Error)
	assert.Equal(t, int64(0), unclaimed)

	t.Run("second build finds nothing", func(t *testing.T) {
		_, err := settlementLogic.BuildSettlement(creatorId)
		assert.ErrorIs(t, err, ErrNoEligibleWork)
	})
}

func TestBuildSettlementNoEligibleWork(t *testing.T) {
	db := newTestDB(t)
	settlementLogic := NewSettlementLogic(db)

	_, err := settlementLogic.BuildSettlement(7)
	assert.ErrorIs(t, err, ErrNoEligibleWork)
}

func TestBuildSettlementSkipsIncompleteWork(t *testing.T) {
	db := newTestDB(t)
	campaign := seedCampaign(t, db, "冬季企划", model.CampaignStatusActive)
	settlementLogic := NewSettlementLogic(db)

	seedParticipation(t, db, campaign.Id, 5, 1000)
	// 未完成的工作不可结算
	require.NoError(t, db.Create(&model.ParticipationRecordModel{
		CampaignId: campaign.Id, CreatorId: 5, PayableAmount: 9000,
	}).Error)

	settlement, err := settlementLogic.BuildSettlement(5)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), settlement.TotalAmount)
}

// 并发构建下每条工作记录的认领槽位只会被写入一次，
// 所有批次认领的记录并集等于原可结算集合且互不重叠。
func TestBuildSettlementExactlyOnceClaim(t *testing.T) {
	db := newTestDB(t)
	campaign := seedCampaign(t, db, "冬季企划", model.CampaignStatusActive)
	settlementLogic := NewSettlementLogic(db)

	const creatorId = int64(42)
	recordIds := make(map[int64]bool)
	for i := 0; i < 20; i++ {
		record := seedParticipation(t, db, campaign.Id, creatorId, 100)
		recordIds[record.Id] = true
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// 没抢到工作或与其他构建冲突都可接受，留给收尾构建
			settlementLogic.BuildSettlement(creatorId) //nolint:errcheck
		}()
	}
	wg.Wait()

	// 收尾构建扫掉并发阶段遗留的未认领记录
	if _, err := settlementLogic.BuildSettlement(creatorId); err != nil {
		require.ErrorIs(t, err, ErrNoEligibleWork)
	}

	// 不存在未认领记录
	var unclaimed int64
	require.NoError(t, db.Model(&model.ParticipationRecordModel{}).
		Where("settlement_item_id IS NULL").Count(&unclaimed).Error)
	assert.Equal(t, int64(0), unclaimed)

	// 明细与记录一一对应：并集恰好是原集合，且没有记录被重复认领
	var items []model.SettlementItemModel
	require.NoError(t, db.Find(&items).Error)
	claimed := make(map[int64]int)
	for _, item := range items {
		claimed[item.ParticipationRecordId]++
	}
	assert.Len(t, claimed, len(recordIds))
	for recordId, count := range claimed {
		assert.True(t, recordIds[recordId], "unexpected record %d", recordId)
		assert.Equal(t, 1, count, "record %d claimed %d times", recordId, count)
	}

	// 各批次总额恒等于其明细之和
	var settlements []model.SettlementModel
	require.NoError(t, db.Find(&settlements).Error)
	for _, settlement := range settlements {
		var sum int64
		require.NoError(t, db.Model(&model.SettlementItemModel{}).
			Where("settlement_id = ?", settlement.Id).
			Select("COALESCE(SUM(amount), 0)").Scan(&sum).Error)
		assert.Equal(t, settlement.TotalAmount, sum)
	}
}

func TestAdvanceSettlementLifecycle(t *testing.T) {
	db := newTestDB(t)
	campaign := seedCampaign(t, db, "冬季企划", model.CampaignStatusActive)
	settlementLogic := NewSettlementLogic(db)

	const creatorId = int64(42)
	for _, amount := range []int64{1000, 2000, 1500} {
		seedParticipation(t, db, campaign.Id, creatorId, amount)
	}

	settlement, err := settlementLogic.BuildSettlement(creatorId)
	require.NoError(t, err)

	_, err = settlementLogic.Advance(settlement.Id, AdvanceInput{Target: model.SettlementStatusProcessing})
	require.NoError(t, err)

	t.Run("completed requires transfer confirmation", func(t *testing.T) {
		_, err := settlementLogic.Advance(settlement.Id, AdvanceInput{Target: model.SettlementStatusCompleted})
		assert.ErrorIs(t, err, ErrValidation)
	})

	completed, err := settlementLogic.Advance(settlement.Id, AdvanceInput{
		Target:            model.SettlementStatusCompleted,
		TransferConfirmed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, string(model.SettlementStatusCompleted), completed.Status)
	assert.NotNil(t, completed.CompletedAt)

	// 工作记录保持已认领
	var unclaimed int64
	require.NoError(t, db.Model(&model.ParticipationRecordModel{}).
		Where("creator_id = ? AND settlement_item_id IS NULL", creatorId).
		Count(&unclaimed).Error)
	assert.Equal(t, int64(0), unclaimed)

	// 结算完成是付出而不是平台收入，不产生任何收入流水
	var entries int64
	require.NoError(t, db.Model(&model.RevenueEntryModel{}).Count(&entries).Error)
	assert.Equal(t, int64(0), entries)

	t.Run("terminal state rejects further transitions", func(t *testing.T) {
		_, err := settlementLogic.Advance(settlement.Id, AdvanceInput{
			Target: model.SettlementStatusFailed, AdminNote: "x",
		})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestAdvanceSettlementFailureReleasesClaims(t *testing.T) {
	db := newTestDB(t)
	campaign := seedCampaign(t, db, "冬季企划", model.CampaignStatusActive)
	settlementLogic := NewSettlementLogic(db)

	const creatorId = int64(42)
	for _, amount := range []int64{1000, 2000} {
		seedParticipation(t, db, campaign.Id, creatorId, amount)
	}

	settlement, err := settlementLogic.BuildSettlement(creatorId)
	require.NoError(t, err)
	_, err = settlementLogic.Advance(settlement.Id, AdvanceInput{Target: model.SettlementStatusProcessing})
	require.NoError(t, err)

	t.Run("failed requires a reason", func(t *testing.T) {
		_, err := settlementLogic.Advance(settlement.Id, AdvanceInput{Target: model.SettlementStatusFailed})
		assert.ErrorIs(t, err, ErrValidation)
	})

	failed, err := settlementLogic.Advance(settlement.Id, AdvanceInput{
		Target:    model.SettlementStatusFailed,
		AdminNote: "打款渠道维护",
	})
	require.NoError(t, err)
	assert.Equal(t, string(model.SettlementStatusFailed), failed.Status)

	// 补偿路径：全部工作记录回到可结算池
	var records []model.ParticipationRecordModel
	require.NoError(t, db.Where("creator_id = ?", creatorId).Find(&records).Error)
	require.Len(t, records, 2)
	for _, record := range records {
		assert.Nil(t, record.SettlementItemId)
	}

	// 失败批次的明细已清除，唯一索引不再挡住后续认领；
	// 批次本身保留总额和失败原因作审计
	var staleItems int64
	require.NoError(t, db.Model(&model.SettlementItemModel{}).
		Where("settlement_id = ?", settlement.Id).Count(&staleItems).Error)
	assert.Equal(t, int64(0), staleItems)
	assert.Equal(t, int64(3000), failed.TotalAmount)
	assert.Equal(t, "打款渠道维护", failed.AdminNotes)

	// 释放后的工作可以被重新结算，落进一个全新批次
	rebuilt, err := settlementLogic.BuildSettlement(creatorId)
	require.NoError(t, err)
	assert.NotEqual(t, settlement.Id, rebuilt.Id)
	assert.Equal(t, int64(3000), rebuilt.TotalAmount)

	var rebuiltItems int64
	require.NoError(t, db.Model(&model.SettlementItemModel{}).
		Where("settlement_id = ?", rebuilt.Id).Count(&rebuiltItems).Error)
	assert.Equal(t, int64(2), rebuiltItems)
}

func TestAdvanceInvalidTransitions(t *testing.T) {
	db := newTestDB(t)
	campaign := seedCampaign(t, db, "冬季企划", model.CampaignStatusActive)
	settlementLogic := NewSettlementLogic(db)

	seedParticipation(t, db, campaign.Id, 42, 1000)
	settlement, err := settlementLogic.BuildSettlement(42)
	require.NoError(t, err)

	cases := []struct {
		name   string
		target model.SettlementStatus
	}{
		{"pending to completed", model.SettlementStatusCompleted},
		{"pending to failed", model.SettlementStatusFailed},
		{"pending to pending", model.SettlementStatusPending},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := settlementLogic.Advance(settlement.Id, AdvanceInput{
				Target: tc.target, AdminNote: "x", TransferConfirmed: true,
			})
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}

	t.Run("unknown target status", func(t *testing.T) {
		_, err := settlementLogic.Advance(settlement.Id, AdvanceInput{Target: "refunded"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown settlement", func(t *testing.T) {
		_, err := settlementLogic.Advance(99999, AdvanceInput{Target: model.SettlementStatusProcessing})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListSettlements(t *testing.T) {
	db := newTestDB(t)
	campaign := seedCampaign(t, db, "冬季企划", model.CampaignStatusActive)
	settlementLogic := NewSettlementLogic(db)

	for _, creatorId := range []int64{1, 2, 3} {
		seedParticipation(t, db, campaign.Id, creatorId, 1000)
		_, err := settlementLogic.BuildSettlement(creatorId)
		require.NoError(t, err)
	}

	settlements, total, err := settlementLogic.ListSettlements(nil, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, settlements, 3)

	creatorId := int64(2)
	settlements, total, err = settlementLogic.ListSettlements(&creatorId, string(model.SettlementStatusPending), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, settlements, 1)
	assert.Equal(t, creatorId, settlements[0].CreatorId)

	_, _, err = settlementLogic.ListSettlements(nil, "bogus", 1, 10)
	assert.ErrorIs(t, err, ErrValidation)
}
