package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"qrcode-platform/internal/metrics"
)

// ScanSummary 推送给看板的扫码摘要
type ScanSummary struct {
	QRCodeID   uint      `json:"qrCodeId"`
	QRCodeName string    `json:"qrCodeName"`
	Device     *string   `json:"device"`
	Browser    *string   `json:"browser"`
	OS         *string   `json:"os"`
	Country    *string   `json:"country"`
	ScannedAt  time.Time `json:"scannedAt"`
}

// ScanEvent 一次待推送的扫码
type ScanEvent struct {
	UserID  uint
	Summary ScanSummary
}

// Publisher 投递消息, Hub 实现了该接口
type Publisher interface {
	Publish(userID uint, msg Message) (int, error)
}

// Dispatcher 有界任务队列加固定数量的 worker.
// 入队永不阻塞, 队列满时丢弃并记录.
type Dispatcher struct {
	tasks   chan ScanEvent
	pub     Publisher
	workers int
	logger  *zap.SugaredLogger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewDispatcher(pub Publisher, queueSize, workers int, logger *zap.SugaredLogger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		tasks:   make(chan ScanEvent, queueSize),
		pub:     pub,
		workers: workers,
		logger:  logger.Named("notify"),
	}
}

// Start 启动 worker
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run(ctx)
	}
}

// Stop 停止 worker 并等待退出, 队列中剩余的任务会在退出前处理完
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

// Enqueue 提交任务, 队列已满返回 false
func (d *Dispatcher) Enqueue(ev ScanEvent) bool {
	select {
	case d.tasks <- ev:
		metrics.NotifyQueueDepth.Set(float64(len(d.tasks)))
		return true
	default:
		metrics.NotifyTasks.WithLabelValues("dropped").Inc()
		d.logger.Warnf("实时推送队列已满, 丢弃用户 %d 的扫码通知", ev.UserID)
		return false
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case ev := <-d.tasks:
			d.deliver(ev)
		case <-ctx.Done():
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.tasks:
			d.deliver(ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ev ScanEvent) {
	metrics.NotifyQueueDepth.Set(float64(len(d.tasks)))

	_, err := d.pub.Publish(ev.UserID, Message{Type: MessageTypeScan, Data: ev.Summary})
	switch {
	case err == nil:
		metrics.NotifyTasks.WithLabelValues("delivered").Inc()
	case errors.Is(err, ErrNoSubscriber):
		metrics.NotifyTasks.WithLabelValues("no_subscriber").Inc()
	default:
		metrics.NotifyTasks.WithLabelValues("failed").Inc()
		d.logger.Warnf("推送扫码通知失败 user=%d qr=%d: %v", ev.UserID, ev.Summary.QRCodeID, err)
	}
}
