package task

import (
	"time"

	"github.com/blues/sps/internal/config"
	"github.com/blues/sps/internal/logger"
	"github.com/blues/sps/internal/logic"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// SettlementBatchJob 自动结算任务
type SettlementBatchJob struct {
	batchLogic *logic.BatchLogic
	config     *config.Config
}

// NewSettlementBatchJob 创建自动结算任务
func NewSettlementBatchJob(db *gorm.DB, cfg *config.Config) *SettlementBatchJob {
	participationLogic := logic.NewParticipationLogic(db)
	settlementLogic := logic.NewSettlementLogic(db)

	return &SettlementBatchJob{
		batchLogic: logic.NewBatchLogic(participationLogic, settlementLogic, cfg.Task.WorkerPoolSize),
		config:     cfg,
	}
}

// GetName 获取任务名称
func (j *SettlementBatchJob) GetName() string {
	return "settlement_batch_runner"
}

// GetSchedule 获取调度配置
func (j *SettlementBatchJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *SettlementBatchJob) Execute() {
	logger.Info("Starting settlement batch task")

	report, err := j.batchLogic.RunBatch()
	if err != nil {
		logger.Error("Settlement batch task failed: %v", err)
		return
	}

	for _, failure := range report.Failed {
		logger.Warn("Settlement failed for creator %d: %s", failure.CreatorId, failure.Error)
	}

	logger.Info("Settlement batch task completed. Attempted %d creators, %d succeeded, %d failed",
		report.Attempted, report.Succeeded, len(report.Failed))
}
