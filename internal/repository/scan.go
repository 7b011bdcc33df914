package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"qrcode-platform/internal/model"
)

// ScanFilter 扫码记录查询条件
type ScanFilter struct {
	UserID   uint
	QRCodeID *uint
	Since    time.Time
}

// ScanRepository 扫码记录数据访问
type ScanRepository struct {
	db *gorm.DB
}

func NewScanRepository(db *gorm.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

func (r *ScanRepository) WithTx(tx *gorm.DB) *ScanRepository {
	return &ScanRepository{db: tx}
}

func (r *ScanRepository) Create(ctx context.Context, scan *model.Scan) error {
	return r.db.WithContext(ctx).Create(scan).Error
}

// scoped 只包含用户未删除二维码的扫码记录
func (r *ScanRepository) scoped(ctx context.Context, f ScanFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Scan{}).
		Joins("JOIN qr_codes ON qr_codes.id = scans.qr_code_id").
		Where("qr_codes.user_id = ? AND qr_codes.is_deleted = ?", f.UserID, false)
	if f.QRCodeID != nil {
		q = q.Where("scans.qr_code_id = ?", *f.QRCodeID)
	}
	if !f.Since.IsZero() {
		q = q.Where("scans.scanned_at >= ?", f.Since.UTC())
	}
	return q
}

// InRange 按时间升序返回时间窗口内的全部扫码记录
func (r *ScanRepository) InRange(ctx context.Context, f ScanFilter) ([]model.Scan, error) {
	var scans []model.Scan
	err := r.scoped(ctx, f).Select("scans.*").Order("scans.scanned_at ASC, scans.id ASC").Find(&scans).Error
	return scans, err
}

// Page 按时间倒序分页, page 从 1 开始
func (r *ScanRepository) Page(ctx context.Context, f ScanFilter, page, limit int) ([]model.Scan, int64, error) {
	var total int64
	if err := r.scoped(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var scans []model.Scan
	err := r.scoped(ctx, f).
		Select("scans.*").
		Order("scans.scanned_at DESC, scans.id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&scans).Error
	return scans, total, err
}

// CountForQRCode 统计单个二维码的扫码次数
func (r *ScanRepository) CountForQRCode(ctx context.Context, qrCodeID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Scan{}).Where("qr_code_id = ?", qrCodeID).Count(&count).Error
	return count, err
}

// ForExport 返回用户全部扫码记录, 包括已删除二维码的历史数据
func (r *ScanRepository) ForExport(ctx context.Context, userID uint) ([]model.Scan, error) {
	var scans []model.Scan
	err := r.db.WithContext(ctx).Model(&model.Scan{}).
		Select("scans.*").
		Joins("JOIN qr_codes ON qr_codes.id = scans.qr_code_id").
		Where("qr_codes.user_id = ?", userID).
		Order("scans.scanned_at ASC, scans.id ASC").
		Find(&scans).Error
	return scans, err
}

// DeleteAllForUser 删除用户全部扫码记录, 仅用于注销账号
func (r *ScanRepository) DeleteAllForUser(ctx context.Context, userID uint) error {
	sub := r.db.Model(&model.QRCode{}).Select("id").Where("user_id = ?", userID)
	return r.db.WithContext(ctx).Where("qr_code_id IN (?)", sub).Delete(&model.Scan{}).Error
}
