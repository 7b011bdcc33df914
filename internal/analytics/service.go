package analytics

import (
	"context"
	"time"

	"qrcode-platform/internal/entitlement"
	"qrcode-platform/internal/metrics"
	"qrcode-platform/internal/model"
	"qrcode-platform/internal/repository"
)

// 分页默认值
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// 报表列表默认长度
const (
	DefaultTopN   = 10
	DefaultRecent = 20
)

// Query 统计查询条件
type Query struct {
	UserID   uint
	QRCodeID *uint
	Range    TimeRange
}

// Service 统计服务
type Service struct {
	scans *repository.ScanRepository
	codes *repository.QRCodeRepository
	subs  *repository.SubscriptionRepository
	opts  Options
	now   func() time.Time
}

func NewService(scans *repository.ScanRepository, codes *repository.QRCodeRepository, subs *repository.SubscriptionRepository, opts Options) *Service {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.Recent <= 0 {
		opts.Recent = DefaultRecent
	}
	return &Service{scans: scans, codes: codes, subs: subs, opts: opts, now: time.Now}
}

// Authorize 校验用户套餐是否允许使用统计
func (s *Service) Authorize(ctx context.Context, userID uint) (entitlement.PlanState, error) {
	sub, err := s.subs.ForUser(ctx, userID)
	if err != nil {
		return entitlement.PlanState{}, err
	}
	return entitlement.CheckAnalytics(sub, s.now())
}

// Scans 返回窗口内的扫码记录, 指定的二维码不存在或不属于用户时返回 repository.ErrNotFound
func (s *Service) Scans(ctx context.Context, q Query) ([]model.Scan, time.Time, error) {
	if q.QRCodeID != nil {
		if _, err := s.codes.FindForUser(ctx, *q.QRCodeID, q.UserID); err != nil {
			return nil, time.Time{}, err
		}
	}
	start := q.Range.Start(s.now())
	scans, err := s.scans.InRange(ctx, repository.ScanFilter{UserID: q.UserID, QRCodeID: q.QRCodeID, Since: start})
	return scans, start, err
}

// Report 计算统计报告, 每次都从原始记录重新计算
func (s *Service) Report(ctx context.Context, endpoint string, q Query) (*Report, error) {
	began := time.Now()
	defer func() {
		metrics.AnalyticsDuration.WithLabelValues(endpoint).Observe(time.Since(began).Seconds())
	}()

	scans, start, err := s.Scans(ctx, q)
	if err != nil {
		return nil, err
	}

	names, err := s.codes.NamesByIDs(ctx, distinctCodeIDs(scans))
	if err != nil {
		return nil, err
	}

	report := Aggregate(scans, names, s.opts)
	report.Summary.TimeRange = q.Range
	report.Summary.StartDate = start
	return &report, nil
}

// Names 返回扫码记录涉及的二维码名称
func (s *Service) Names(ctx context.Context, scans []model.Scan) (map[uint]string, error) {
	return s.codes.NamesByIDs(ctx, distinctCodeIDs(scans))
}

// Page 供外部集成轮询的分页查询
func (s *Service) Page(ctx context.Context, userID uint, qrCodeID *uint, since time.Time, page, limit int) ([]model.Scan, int64, error) {
	page, limit = NormalizePage(page, limit)
	return s.scans.Page(ctx, repository.ScanFilter{UserID: userID, QRCodeID: qrCodeID, Since: since}, page, limit)
}

// NormalizePage 非法的分页参数回落到默认值
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func distinctCodeIDs(scans []model.Scan) []uint {
	seen := make(map[uint]struct{})
	ids := make([]uint, 0)
	for i := range scans {
		id := scans[i].QRCodeID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
