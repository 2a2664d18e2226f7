package logic

import (
	"errors"
	"fmt"
	"sync"

	"github.com/blues/sps/internal/logger"
	"github.com/blues/sps/internal/model"
	"github.com/panjf2000/ants/v2"
)

// BatchFailure 批量结算中单个创作者的失败信息
type BatchFailure struct {
	CreatorId int64  `json:"creator_id"`
	Error     string `json:"error"`
}

// BatchReport 批量结算执行报告
type BatchReport struct {
	Attempted int            `json:"attempted"`
	Succeeded int            `json:"succeeded"`
	Failed    []BatchFailure `json:"failed"`
}

// BatchLogic 自动结算批量驱动。对每个有可结算工作的创作者依次
// 构建批次并推进到打款中，单个创作者失败不影响其余创作者。
type BatchLogic struct {
	participationLogic *ParticipationLogic
	settlementLogic    *SettlementLogic
	poolSize           int
}

// NewBatchLogic 创建批量结算逻辑
func NewBatchLogic(participationLogic *ParticipationLogic, settlementLogic *SettlementLogic, poolSize int) *BatchLogic {
	if poolSize <= 0 {
		poolSize = 4
	}
	return &BatchLogic{
		participationLogic: participationLogic,
		settlementLogic:    settlementLogic,
		poolSize:           poolSize,
	}
}

// RunBatch 对全部有可结算工作的创作者执行一轮结算。
// 重复执行是安全的：没有可结算工作的创作者会被直接跳过。
func (b *BatchLogic) RunBatch() (*BatchReport, error) {
	creatorIds, err := b.participationLogic.CreatorsWithEligibleWork()
	if err != nil {
		return nil, err
	}

	report := &BatchReport{
		Attempted: len(creatorIds),
		Failed:    []BatchFailure{},
	}
	if len(creatorIds) == 0 {
		return report, nil
	}

	// 协程池并发处理各创作者，互不干扰
	pool, err := ants.NewPool(b.poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create settlement pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, creatorId := range creatorIds {
		creatorId := creatorId
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			failure := b.settleCreator(creatorId)
			mu.Lock()
			if failure != nil {
				report.Failed = append(report.Failed, *failure)
			} else {
				report.Succeeded++
			}
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			logger.Error("Failed to submit settlement task for creator %d: %v", creatorId, submitErr)
			mu.Lock()
			report.Failed = append(report.Failed, BatchFailure{CreatorId: creatorId, Error: submitErr.Error()})
			mu.Unlock()
		}
	}

	wg.Wait()

	logger.Info("Settlement batch finished: attempted=%d succeeded=%d failed=%d",
		report.Attempted, report.Succeeded, len(report.Failed))

	return report, nil
}

// settleCreator 单个创作者的批次构建与推进，返回nil表示成功
func (b *BatchLogic) settleCreator(creatorId int64) *BatchFailure {
	settlement, err := b.settlementLogic.BuildSettlement(creatorId)
	if err != nil {
		if errors.Is(err, ErrNoEligibleWork) {
			// 被并发批次抢先结算，按跳过处理
			return nil
		}
		logger.Error("Failed to build settlement for creator %d: %v", creatorId, err)
		return &BatchFailure{CreatorId: creatorId, Error: err.Error()}
	}

	if _, err := b.settlementLogic.Advance(settlement.Id, AdvanceInput{
		Target: model.SettlementStatusProcessing,
	}); err != nil {
		logger.Error("Failed to advance settlement %d for creator %d: %v", settlement.Id, creatorId, err)
		return &BatchFailure{CreatorId: creatorId, Error: err.Error()}
	}

	logger.Info("Settlement %d created for creator %d, total %d",
		settlement.Id, creatorId, settlement.TotalAmount)
	return nil
}
