// Package shortlink 负责动态二维码短链接的生成与解析.
package shortlink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"qrcode-platform/internal/model"
	"qrcode-platform/internal/repository"
)

// 写入冲突时的最大重试次数
const maxMintAttempts = 5

// ErrNotFound 短码无法解析
var ErrNotFound = errors.New("短链接不存在")

// CodeSource 提供候选短码
type CodeSource interface {
	Next(ctx context.Context) (string, error)
}

// Resolution 解析结果
type Resolution struct {
	QRCodeID uint
	UserID   uint
	Name     string
	Type     string
	// Content 写入二维码图片的有效内容
	Content string
	// Target 跳转目标 (原始内容)
	Target string
}

// Service 短链接服务
type Service struct {
	codes   *repository.QRCodeRepository
	source  CodeSource
	baseURL string
	logger  *zap.SugaredLogger
}

func NewService(codes *repository.QRCodeRepository, source CodeSource, baseURL string, logger *zap.SugaredLogger) *Service {
	return &Service{
		codes:   codes,
		source:  source,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.Named("shortlink"),
	}
}

// ShortURL 返回短码对应的完整短链接
func (s *Service) ShortURL(code string) string {
	return s.baseURL + "/r/" + code
}

// Resolve 先按当前域名精确匹配, 找不到时按短码后缀匹配其他环境生成的链接
func (s *Service) Resolve(ctx context.Context, code string) (*Resolution, error) {
	if !validToken(code) {
		return nil, ErrNotFound
	}

	qr, err := s.codes.FindByShortURL(ctx, s.ShortURL(code))
	if errors.Is(err, repository.ErrNotFound) {
		qr, err = s.codes.FindByShortCodeSuffix(ctx, code)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &Resolution{
		QRCodeID: qr.ID,
		UserID:   qr.UserID,
		Name:     qr.Name,
		Type:     qr.Type,
		Content:  qr.EffectiveContent(),
		Target:   qr.Content,
	}, nil
}

// Create 保存二维码. 动态码会分配短链接, 唯一索引冲突时换一个短码重试.
func (s *Service) Create(ctx context.Context, qr *model.QRCode) error {
	if !qr.IsDynamic {
		qr.ShortURL = nil
		return s.codes.Create(ctx, qr)
	}

	for attempt := 1; attempt <= maxMintAttempts; attempt++ {
		code, err := s.source.Next(ctx)
		if err != nil {
			return fmt.Errorf("生成短码失败: %w", err)
		}
		shortURL := s.ShortURL(code)
		qr.ShortURL = &shortURL
		qr.ID = 0

		err = s.codes.Create(ctx, qr)
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		s.logger.Warnf("短码 %s 冲突, 第 %d 次重新生成", code, attempt)
	}
	return fmt.Errorf("短码连续冲突 %d 次", maxMintAttempts)
}

// validToken 只允许字母数字和连字符, 避免 LIKE 通配符
func validToken(code string) bool {
	if code == "" || len(code) > 64 {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-') {
			return false
		}
	}
	return true
}
