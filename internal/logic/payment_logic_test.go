package logic

import (
	"context"
	"testing"
	"time"

	"github.com/blues/sps/internal/gateway"
	"github.com/blues/sps/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway 可编排结果的网关替身
type fakeGateway struct {
	confirmResult *gateway.ConfirmResult
	confirmErr    error
	queryResult   *gateway.QueryResult
	queryErr      error
	confirmCalls  int
}

func (f *fakeGateway) Confirm(ctx context.Context, orderRef string, amount int64) (*gateway.ConfirmResult, error) {
	f.confirmCalls++
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	return f.confirmResult, nil
}

func (f *fakeGateway) Query(ctx context.Context, orderRef string) (*gateway.QueryResult, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryResult, nil
}

func approvingGateway(reference string) *fakeGateway {
	return &fakeGateway{
		confirmResult: &gateway.ConfirmResult{Approved: true, Reference: reference},
	}
}

func TestPreparePayment(t *testing.T) {
	db := newTestDB(t)
	campaign := seedCampaign(t, db, "新品推广", model.CampaignStatusDraft)
	paymentLogic := NewPaymentLogic(db, approvingGateway("gw-1"), 500)

	input := PrepareInput{
		OrderRef:   "order-001",
		CampaignId: campaign.Id,
		PayerId:    7,
		Amount:     50000,
		Method:     "card",
	}

	payment, err := paymentLogic.Prepare(input)
	require.NoError(t, err)
	assert.Equal(t, string(model.PaymentStatusPending), payment.Status)
	assert.Equal(t, int64(50000), payment.Amount)

	t.Run("same order ref returns existing payment", func(t *testing.T) {
		again, err := paymentLogic.Prepare(input)
		require.NoError(t, err)
		assert.Equal(t, payment.Id, again.Id)

		var count int64
		require.NoError(t, db.Model(&model.PaymentModel{}).Where("order_ref = ?", "order-001").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("unknown campaign rejected", func(t *testing.T) {
		bad := input
		bad.OrderRef = "order-002"
		bad.CampaignId = 9999
		_, err := paymentLogic.Prepare(bad)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		bad := input
		bad.OrderRef = "order-003"
		bad.Amount = 0
		_, err := paymentLogic.Prepare(bad)
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestConfirmPaymentSuccess(t *testing.T) {
	db := newTestDB(t)
	campaign := seedCampaign(t, db, "新品推广", model.CampaignStatusDraft)
	gw := approvingGateway("gw-ref-9")
	paymentLogic := NewPaymentLogic(db, gw, 500)

	payment, err := paymentLogic.Prepare(PrepareInput{
		OrderRef: "order-ok", CampaignId: campaign.Id, PayerId: 7, Amount: 10000, Method: "card",
	})
	require.NoError(t, err)

	confirmed, err := paymentLogic.Confirm(context.Background(), "order-ok", 10000, "")
	require.NoError(t, err)
	assert.Equal(t, string(model.PaymentStatusCompleted), confirmed.Status)
	assert.Equal(t, "gw-ref-9", confirmed.GatewayReference)
	assert.NotNil(t, confirmed.ApprovedAt)

	// 活动标记为已到账
	var reloaded model.CampaignModel
	require.NoError(t, db.First(&reloaded, campaign.Id).Error)
	assert.Equal(t, string(model.CampaignStatusFunded), reloaded.Status)

	// 恰好一条手续费流水，floor(10000 * 5%) = 500
	var entries []model.RevenueEntryModel
	require.NoError(t, db.Where("reference_type = ? AND reference_id = ?", "payment", payment.Id).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(500), entries[0].Amount)
	assert.Equal(t, string(model.RevenueTypePlatformFee), entries[0].EntryType)

	t.Run("duplicate confirmation rejected", func(t *testing.T) {
		_, err := paymentLogic.Confirm(context.Background(), "order-ok", 10000, "")
		assert.ErrorIs(t, err, ErrConflict)

		var count int64
		require.NoError(t, db.Model(&model.RevenueEntryModel{}).Where("reference_id = ?", payment.Id).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestConfirmPaymentFeeFloor(t *testing.T) {
	db := newTestDB(t)
	campaign := seedCampaign(t, db, "新品推广", model.CampaignStatusDraft)
	paymentLogic := NewPaymentLogic(db, approvingGateway("gw-1"), 333)

	payment, err := paymentLogic.Prepare(PrepareInput{
		OrderRef: "order-fee", CampaignId: campaign.Id, PayerId: 7, Amount: 9999, Method: "card",
	})
	require.NoError(t, err)

	_, err = paymentLogic.Confirm(context.Background(), "order-fee", 9999, "")
	require.NoError(t, err)

	// floor(9999 * 333 / 10000) = 332
	var entry model.RevenueEntryModel
	require.NoError(t, db.Where("reference_id = ?", payment.Id).First(&entry).Error)
	assert.Equal(t, int64(332), entry.Amount)
}

func TestConfirmPaymentAmountMismatch(t *testing.T) {
	db := newTestDB(t)
	campaign := seedCampaign(t, db, "新品推广", model.CampaignStatusDraft)
	gw := approvingGateway("gw-1")
	paymentLogic := NewPaymentLogic(db, gw, 500)

	payment, err := paymentLogic.Prepare(PrepareInput{
		OrderRef: "order-bad", CampaignId: campaign.Id, PayerId: 7, Amount: 10000, Method: "card",
	})
	require.NoError(t, err)

	_, err = paymentLogic.Confirm(context.Background(), "order-bad", 9999, "")
	assert.ErrorIs(t, err, ErrAmountMismatch)

	// 金额不一致直接判定失败，不触达网关
	assert.Equal(t, 0, gw.confirmCalls)

	var reloaded model.PaymentModel
	require.NoError(t, db.First(&reloaded, payment.Id).Error)
	assert.Equal(t, string(model.PaymentStatusFailed), reloaded.Status)
	assert.NotEmpty(t, reloaded.FailReason)

	// 失败的支付不产生任何收入流水
	var count int64
	require.NoError(t, db.Model(&model.RevenueEntryModel{}).Where("reference_id = ?", payment.Id).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestConfirmPaymentGatewayDeclined(t *testing.T) {
	db := newTestDB(t)
	campaign := seedCampaign(t, db, "新品推广", model.CampaignStatusDraft)
	gw := &fakeGateway{
		confirmResult: &gateway.ConfirmResult{Approved: false, Reason: "余额不足"},
	}
	paymentLogic := NewPaymentLogic(db, gw, 500)

	payment, err := paymentLogic.Prepare(PrepareInput{
		OrderRef: "order-declined", CampaignId: campaign.Id, PayerId: 7, Amount: 10000, Method: "card",
	})
	require.NoError(t, err)

	_, err = paymentLogic.Confirm(context.Background(), "order-declined", 10000, "")
	assert.ErrorIs(t, err, ErrGatewayDeclined)

	var reloaded model.PaymentModel
	require.NoError(t, db.First(&reloaded, payment.Id).Error)
	assert.Equal(t, string(model.PaymentStatusFailed), reloaded.Status)
	assert.Equal(t, "余额不足", reloaded.FailReason)

	var count int64
	require.NoError(t, db.Model(&model.RevenueEntryModel{}).Where("reference_id = ?", payment.Id).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestConfirmPaymentGatewayUnavailable(t *testing.T) {
	db := newTestDB(t)
	campaign := seedCampaign(t, db, "新品推广", model.CampaignStatusDraft)
	gw := &fakeGateway{confirmErr: gateway.ErrUnavailable}
	paymentLogic := NewPaymentLogic(db, gw, 500)

	payment, err := paymentLogic.Prepare(PrepareInput{
		OrderRef: "order-timeout", CampaignId: campaign.Id, PayerId: 7, Amount: 10000, Method: "card",
	})
	require.NoError(t, err)

	_, err = paymentLogic.Confirm(context.Background(), "order-timeout", 10000, "")
	require.Error(t, err)

	// 网关不可达时支付保持pending，留给对账任务
	var reloaded model.PaymentModel
	require.NoError(t, db.First(&reloaded, payment.Id).Error)
	assert.Equal(t, string(model.PaymentStatusPending), reloaded.Status)
	assert.Equal(t, 1, reloaded.AttemptCount)
}

func TestConfirmPaymentNotFound(t *testing.T) {
	db := newTestDB(t)
	paymentLogic := NewPaymentLogic(db, approvingGateway("gw-1"), 500)

	_, err := paymentLogic.Confirm(context.Background(), "no-such-order", 10000, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReconciliation(t *testing.T) {
	db := newTestDB(t)
	campaign := seedCampaign(t, db, "新品推广", model.CampaignStatusDraft)

	newStalePayment := func(t *testing.T, gw *fakeGateway, orderRef string) (*PaymentLogic, *model.PaymentModel) {
		paymentLogic := NewPaymentLogic(db, gw, 500)
		payment, err := paymentLogic.Prepare(PrepareInput{
			OrderRef: orderRef, CampaignId: campaign.Id, PayerId: 7, Amount: 10000, Method: "card",
		})
		require.NoError(t, err)
		// 回拨创建时间让支付进入滞留窗口
		require.NoError(t, db.Model(payment).Update("created_at", time.Now().Add(-time.Hour)).Error)
		return paymentLogic, payment
	}

	t.Run("approved at gateway gets completed", func(t *testing.T) {
		gw := &fakeGateway{queryResult: &gateway.QueryResult{
			Status: gateway.QueryStatusApproved, Reference: "gw-recon", Amount: 10000,
		}}
		paymentLogic, payment := newStalePayment(t, gw, "recon-ok")

		stale, err := paymentLogic.FindStalePending(30 * time.Minute)
		require.NoError(t, err)
		require.NotEmpty(t, stale)

		require.NoError(t, paymentLogic.ResolveStale(context.Background(), payment))

		var reloaded model.PaymentModel
		require.NoError(t, db.First(&reloaded, payment.Id).Error)
		assert.Equal(t, string(model.PaymentStatusCompleted), reloaded.Status)
		assert.Equal(t, "gw-recon", reloaded.GatewayReference)

		var count int64
		require.NoError(t, db.Model(&model.RevenueEntryModel{}).Where("reference_id = ?", payment.Id).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("declined at gateway gets failed", func(t *testing.T) {
		gw := &fakeGateway{queryResult: &gateway.QueryResult{Status: gateway.QueryStatusDeclined}}
		paymentLogic, payment := newStalePayment(t, gw, "recon-declined")

		require.NoError(t, paymentLogic.ResolveStale(context.Background(), payment))

		var reloaded model.PaymentModel
		require.NoError(t, db.First(&reloaded, payment.Id).Error)
		assert.Equal(t, string(model.PaymentStatusFailed), reloaded.Status)
	})

	t.Run("amount mismatch at gateway gets failed", func(t *testing.T) {
		gw := &fakeGateway{queryResult: &gateway.QueryResult{
			Status: gateway.QueryStatusApproved, Reference: "gw-x", Amount: 12345,
		}}
		paymentLogic, payment := newStalePayment(t, gw, "recon-mismatch")

		require.NoError(t, paymentLogic.ResolveStale(context.Background(), payment))

		var reloaded model.PaymentModel
		require.NoError(t, db.First(&reloaded, payment.Id).Error)
		assert.Equal(t, string(model.PaymentStatusFailed), reloaded.Status)

		var count int64
		require.NoError(t, db.Model(&model.RevenueEntryModel{}).Where("reference_id = ?", payment.Id).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})

	t.Run("unknown result gives up after max attempts", func(t *testing.T) {
		gw := &fakeGateway{queryResult: &gateway.QueryResult{Status: gateway.QueryStatusUnknown}}
		paymentLogic, payment := newStalePayment(t, gw, "recon-unknown")

		for i := 0; i < maxReconAttempts; i++ {
			require.NoError(t, db.First(payment, payment.Id).Error)
			require.NoError(t, paymentLogic.ResolveStale(context.Background(), payment))
		}

		var reloaded model.PaymentModel
		require.NoError(t, db.First(&reloaded, payment.Id).Error)
		assert.Equal(t, string(model.PaymentStatusFailed), reloaded.Status)
	})
}
