// Package account 处理账号注销和个人数据导出.
package account

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"qrcode-platform/internal/model"
	"qrcode-platform/internal/repository"
)

// Service 账号服务
type Service struct {
	db       *gorm.DB
	users    *repository.UserRepository
	subs     *repository.SubscriptionRepository
	codes    *repository.QRCodeRepository
	scans    *repository.ScanRepository
	sessions *repository.SessionRepository
	keys     *repository.APIKeyRepository
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewService(db *gorm.DB, logger *zap.SugaredLogger) *Service {
	return &Service{
		db:       db,
		users:    repository.NewUserRepository(db),
		subs:     repository.NewSubscriptionRepository(db),
		codes:    repository.NewQRCodeRepository(db),
		scans:    repository.NewScanRepository(db),
		sessions: repository.NewSessionRepository(db),
		keys:     repository.NewAPIKeyRepository(db),
		logger:   logger.Named("account"),
		now:      time.Now,
	}
}

// ExportedQRCode 二维码及其全部扫码记录
type ExportedQRCode struct {
	model.QRCode
	Scans []model.Scan `json:"scans"`
}

// Archive 导出内容, 包括已删除的二维码
type Archive struct {
	User         *model.User         `json:"user"`
	Subscription *model.Subscription `json:"subscription"`
	QRCodes      []ExportedQRCode    `json:"qrCodes"`
	APIKeys      []model.APIKey      `json:"apiKeys"`
	ExportedAt   time.Time           `json:"exportedAt"`
}

// Delete 在一个事务中删除用户全部数据并匿名化用户记录, 任一步失败全部回滚
func (s *Service) Delete(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 扫码通过子查询定位, 必须先于二维码删除
		if err := s.scans.WithTx(tx).DeleteAllForUser(ctx, userID); err != nil {
			return err
		}
		if err := s.codes.WithTx(tx).DeleteAllForUser(ctx, userID); err != nil {
			return err
		}
		if err := s.sessions.WithTx(tx).DeleteAllForUser(ctx, userID); err != nil {
			return err
		}
		if err := s.keys.WithTx(tx).DeleteAllForUser(ctx, userID); err != nil {
			return err
		}
		if err := s.subs.WithTx(tx).DeleteForUser(ctx, userID); err != nil {
			return err
		}
		return s.users.WithTx(tx).Anonymize(ctx, userID, s.now().UTC())
	})
	if err != nil {
		return err
	}
	s.logger.Infof("用户 %d 已注销", userID)
	return nil
}

// Export 汇总用户的全部数据
func (s *Service) Export(ctx context.Context, userID uint) (*Archive, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	sub, err := s.subs.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	codes, err := s.codes.ListAllForExport(ctx, userID)
	if err != nil {
		return nil, err
	}
	scans, err := s.scans.ForExport(ctx, userID)
	if err != nil {
		return nil, err
	}
	keys, err := s.keys.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	byCode := make(map[uint][]model.Scan, len(codes))
	for _, sc := range scans {
		byCode[sc.QRCodeID] = append(byCode[sc.QRCodeID], sc)
	}
	out := &Archive{
		User:         user,
		Subscription: sub,
		QRCodes:      make([]ExportedQRCode, 0, len(codes)),
		APIKeys:      keys,
		ExportedAt:   s.now().UTC(),
	}
	for _, qr := range codes {
		list := byCode[qr.ID]
		if list == nil {
			list = []model.Scan{}
		}
		out.QRCodes = append(out.QRCodes, ExportedQRCode{QRCode: qr, Scans: list})
	}
	return out, nil
}
