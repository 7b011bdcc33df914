package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"qrcode-platform/internal/model"
)

// QRCodeRepository 二维码数据访问
type QRCodeRepository struct {
	db *gorm.DB
}

func NewQRCodeRepository(db *gorm.DB) *QRCodeRepository {
	return &QRCodeRepository{db: db}
}

// WithTx 返回绑定到事务的副本
func (r *QRCodeRepository) WithTx(tx *gorm.DB) *QRCodeRepository {
	return &QRCodeRepository{db: tx}
}

// active 只包含未删除的二维码
func (r *QRCodeRepository) active(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.QRCode{}).Where("qr_codes.is_deleted = ?", false)
}

func (r *QRCodeRepository) Create(ctx context.Context, qr *model.QRCode) error {
	return r.db.WithContext(ctx).Create(qr).Error
}

// FindForUser 查询属于指定用户的二维码
func (r *QRCodeRepository) FindForUser(ctx context.Context, id, userID uint) (*model.QRCode, error) {
	var qr model.QRCode
	err := r.active(ctx).Where("id = ? AND user_id = ?", id, userID).First(&qr).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &qr, nil
}

// ListByUser 按创建时间倒序列出用户的二维码
func (r *QRCodeRepository) ListByUser(ctx context.Context, userID uint) ([]model.QRCode, error) {
	var codes []model.QRCode
	err := r.active(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&codes).Error
	return codes, err
}

// NamesByIDs 返回 id 到名称的映射
func (r *QRCodeRepository) NamesByIDs(ctx context.Context, ids []uint) (map[uint]string, error) {
	names := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	var rows []struct {
		ID   uint
		Name string
	}
	if err := r.active(ctx).Select("id, name").Where("id IN ?", ids).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		names[row.ID] = row.Name
	}
	return names, nil
}

// Update 更新用户自己的二维码
func (r *QRCodeRepository) Update(ctx context.Context, id, userID uint, fields map[string]any) error {
	res := r.active(ctx).Where("id = ? AND user_id = ?", id, userID).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete 标记删除, 扫码记录保留
func (r *QRCodeRepository) SoftDelete(ctx context.Context, id, userID uint) error {
	now := time.Now().UTC()
	res := r.active(ctx).Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"is_deleted": true, "deleted_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByShortURL 按完整短链接精确查询
func (r *QRCodeRepository) FindByShortURL(ctx context.Context, shortURL string) (*model.QRCode, error) {
	var qr model.QRCode
	if err := r.active(ctx).Where("short_url = ?", shortURL).First(&qr).Error; err != nil {
		return nil, notFound(err)
	}
	return &qr, nil
}

// FindByShortCodeSuffix 按短码后缀查询, 兼容其他环境域名生成的短链接
func (r *QRCodeRepository) FindByShortCodeSuffix(ctx context.Context, code string) (*model.QRCode, error) {
	var qr model.QRCode
	err := r.active(ctx).
		Where("is_dynamic = ? AND short_url LIKE ?", true, "%/"+code).
		Order("id ASC").
		First(&qr).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &qr, nil
}

// ShortCodeTaken 检查短码是否已被使用, 包括已删除的二维码
func (r *QRCodeRepository) ShortCodeTaken(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.QRCode{}).Where("short_url LIKE ?", "%/"+code).Count(&count).Error
	return count > 0, err
}

// ListAllForExport 列出用户全部二维码, 包括已删除的, 仅供数据导出使用
func (r *QRCodeRepository) ListAllForExport(ctx context.Context, userID uint) ([]model.QRCode, error) {
	var codes []model.QRCode
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&codes).Error
	return codes, err
}

// DeleteAllForUser 物理删除用户全部二维码, 仅用于注销账号
func (r *QRCodeRepository) DeleteAllForUser(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.QRCode{}).Error
}
