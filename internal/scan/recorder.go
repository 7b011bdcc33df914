// Package scan 在短链接解析成功后记录扫码.
package scan

import (
	"context"
	"time"

	"go.uber.org/zap"

	"qrcode-platform/internal/geo"
	"qrcode-platform/internal/metrics"
	"qrcode-platform/internal/model"
	"qrcode-platform/internal/notify"
	"qrcode-platform/internal/repository"
	"qrcode-platform/internal/shortlink"
	"qrcode-platform/internal/uaparse"
)

// geoTimeout 定位查询的硬超时
const geoTimeout = 5 * time.Second

// Notifier 实时推送, notify.Dispatcher 实现了该接口
type Notifier interface {
	Enqueue(ev notify.ScanEvent) bool
}

// Visit 请求中提取的访问信息
type Visit struct {
	IP        string
	UserAgent string
	Referrer  string
}

// Recorder 扫码记录器
type Recorder struct {
	scans    *repository.ScanRepository
	locator  geo.Locator
	notifier Notifier
	logger   *zap.SugaredLogger
	now      func() time.Time
}

// NewRecorder 创建记录器, locator 和 notifier 可以为 nil
func NewRecorder(scans *repository.ScanRepository, locator geo.Locator, notifier Notifier, logger *zap.SugaredLogger) *Recorder {
	return &Recorder{
		scans:    scans,
		locator:  locator,
		notifier: notifier,
		logger:   logger.Named("scan_recorder"),
		now:      time.Now,
	}
}

// Record 写入一条扫码记录. 定位和推送失败只记录日志, 只有数据库错误会返回.
func (r *Recorder) Record(ctx context.Context, res *shortlink.Resolution, v Visit) (*model.Scan, error) {
	client := uaparse.Parse(v.UserAgent)
	loc := r.locate(ctx, v.IP)

	row := &model.Scan{
		QRCodeID:  res.QRCodeID,
		ScannedAt: r.now().UTC(),
		Device:    client.Device,
		OS:        client.OS,
		Browser:   client.Browser,
		Country:   loc.Country,
		City:      loc.City,
		IPAddress: v.IP,
		UserAgent: v.UserAgent,
		Referrer:  v.Referrer,
	}
	if err := r.scans.Create(ctx, row); err != nil {
		return nil, err
	}
	metrics.ScansRecorded.Inc()

	r.publish(res, row)
	return row, nil
}

func (r *Recorder) locate(ctx context.Context, ip string) geo.Location {
	if r.locator == nil || ip == "" {
		return geo.Location{}
	}
	ctx, cancel := context.WithTimeout(ctx, geoTimeout)
	defer cancel()

	loc, err := r.locator.Lookup(ctx, ip)
	if err != nil {
		r.logger.Warnf("IP 定位失败 ip=%s: %v", ip, err)
		return geo.Location{}
	}
	return loc
}

func (r *Recorder) publish(res *shortlink.Resolution, row *model.Scan) {
	if r.notifier == nil {
		return
	}
	r.notifier.Enqueue(notify.ScanEvent{
		UserID: res.UserID,
		Summary: notify.ScanSummary{
			QRCodeID:   res.QRCodeID,
			QRCodeName: res.Name,
			Device:     row.Device,
			Browser:    row.Browser,
			OS:         row.OS,
			Country:    row.Country,
			ScannedAt:  row.ScannedAt,
		},
	})
}
