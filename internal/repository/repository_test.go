package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrcode-platform/internal/model"
	"qrcode-platform/internal/testutil"
)

func TestQRCodeRepository_SoftDeleteHidesCode(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := NewQRCodeRepository(db)

	user := testutil.CreateUser(t, db, "alice", model.PlanPro)
	qr := testutil.CreateQRCode(t, db, user.ID, "menu", "http://localhost:8080/r/abc1234")

	found, err := repo.FindByShortURL(ctx, "http://localhost:8080/r/abc1234")
	require.NoError(t, err)
	assert.Equal(t, qr.ID, found.ID)

	require.NoError(t, repo.SoftDelete(ctx, qr.ID, user.ID))

	_, err = repo.FindByShortURL(ctx, "http://localhost:8080/r/abc1234")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.FindForUser(ctx, qr.ID, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	codes, err := repo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, codes)

	// 导出仍可读取已删除的二维码
	all, err := repo.ListAllForExport(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsDeleted)
	assert.NotNil(t, all[0].DeletedAt)

	// 已删除二维码的短码仍然视为已占用
	taken, err := repo.ShortCodeTaken(ctx, "abc1234")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestQRCodeRepository_OwnershipEnforced(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := NewQRCodeRepository(db)

	alice := testutil.CreateUser(t, db, "alice", model.PlanPro)
	bob := testutil.CreateUser(t, db, "bob", model.PlanPro)
	qr := testutil.CreateQRCode(t, db, alice.ID, "flyer", "")

	_, err := repo.FindForUser(ctx, qr.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.SoftDelete(ctx, qr.ID, bob.ID), ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, qr.ID, bob.ID, map[string]any{"name": "x"}), ErrNotFound)
}

func TestQRCodeRepository_SuffixLookup(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := NewQRCodeRepository(db)

	user := testutil.CreateUser(t, db, "alice", model.PlanPro)
	qr := testutil.CreateQRCode(t, db, user.ID, "poster", "https://staging.example.com/r/Zx9Yw8V")

	found, err := repo.FindByShortCodeSuffix(ctx, "Zx9Yw8V")
	require.NoError(t, err)
	assert.Equal(t, qr.ID, found.ID)

	_, err = repo.FindByShortCodeSuffix(ctx, "x9Yw8V")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScanRepository_ExcludesDeletedCodes(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	codes := NewQRCodeRepository(db)
	scans := NewScanRepository(db)

	user := testutil.CreateUser(t, db, "alice", model.PlanPro)
	kept := testutil.CreateQRCode(t, db, user.ID, "kept", "http://localhost/r/aaaaaaa")
	gone := testutil.CreateQRCode(t, db, user.ID, "gone", "http://localhost/r/bbbbbbb")

	now := time.Now().UTC()
	testutil.CreateScan(t, db, kept.ID, now.Add(-time.Hour), "iPhone", "US", "Safari")
	testutil.CreateScan(t, db, gone.ID, now.Add(-time.Hour), "Android", "DE", "Chrome")
	testutil.CreateScan(t, db, kept.ID, now.AddDate(0, 0, -40), "Desktop", "FR", "Firefox")

	require.NoError(t, codes.SoftDelete(ctx, gone.ID, user.ID))

	got, err := scans.InRange(ctx, ScanFilter{UserID: user.ID, Since: now.AddDate(0, 0, -30)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, kept.ID, got[0].QRCodeID)

	page, total, err := scans.Page(ctx, ScanFilter{UserID: user.ID}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, page, 2)
	assert.True(t, !page[0].ScannedAt.Before(page[1].ScannedAt), "分页结果应按时间倒序")

	exported, err := scans.ForExport(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, exported, 3)
}

func TestSubscriptionRepository_DefaultsToFree(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := NewSubscriptionRepository(db)

	sub, err := repo.ForUser(ctx, 999)
	require.NoError(t, err)
	assert.Equal(t, model.PlanFree, sub.Plan)

	require.NoError(t, repo.Upsert(ctx, &model.Subscription{UserID: 999, Plan: model.PlanPro, Status: model.StatusActive}))
	require.NoError(t, repo.Upsert(ctx, &model.Subscription{UserID: 999, Plan: model.PlanBusiness, Status: model.StatusActive}))

	sub, err = repo.ForUser(ctx, 999)
	require.NoError(t, err)
	assert.Equal(t, model.PlanBusiness, sub.Plan)
}
