// Package geo 通过外部 IP 定位服务查询访问者的国家和城市.
// 查询是尽力而为的: 私有地址直接跳过, 超时和失败由调用方记录后忽略.
package geo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"qrcode-platform/internal/metrics"
)

// Location 定位结果, 未知字段为 nil
type Location struct {
	Country *string `json:"country,omitempty"`
	City    *string `json:"city,omitempty"`
}

// Locator 由扫码记录器依赖的定位接口
type Locator interface {
	Lookup(ctx context.Context, ip string) (Location, error)
}

// Options 客户端配置
type Options struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Client ipinfo 风格的 JSON 定位接口客户端
type Client struct {
	baseURL  string
	token    string
	timeout  time.Duration
	cacheTTL time.Duration
	http     *http.Client
	cache    *redis.Client
	cb       *gobreaker.CircuitBreaker[Location]
	logger   *zap.SugaredLogger
}

// NewClient 创建定位客户端, cache 为 nil 时不缓存
func NewClient(opts Options, cache *redis.Client, logger *zap.SugaredLogger) *Client {
	if opts.Timeout <= 0 || opts.Timeout > 5*time.Second {
		opts.Timeout = 5 * time.Second
	}
	logger = logger.Named("geo")

	cb := gobreaker.NewCircuitBreaker[Location](gobreaker.Settings{
		Name:        "geo-lookup",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnf("熔断器状态变化 %s: %s -> %s", name, from.String(), to.String())
		},
	})

	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		token:    opts.Token,
		timeout:  opts.Timeout,
		cacheTTL: opts.CacheTTL,
		http:     &http.Client{},
		cache:    cache,
		cb:       cb,
		logger:   logger,
	}
}

// Lookup 查询 IP 的国家和城市
func (c *Client) Lookup(ctx context.Context, ip string) (Location, error) {
	addr, ok := publicAddr(ip)
	if !ok {
		metrics.GeoLookups.WithLabelValues("skipped").Inc()
		return Location{}, nil
	}
	key := "geo:" + addr.String()

	if loc, ok := c.fromCache(ctx, key); ok {
		metrics.GeoLookups.WithLabelValues("cached").Inc()
		return loc, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	loc, err := c.cb.Execute(func() (Location, error) {
		return c.fetch(ctx, addr.String())
	})
	metrics.GeoLookupDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GeoLookups.WithLabelValues("error").Inc()
		return Location{}, err
	}

	if loc.Country == nil && loc.City == nil {
		metrics.GeoLookups.WithLabelValues("miss").Inc()
	} else {
		metrics.GeoLookups.WithLabelValues("hit").Inc()
	}
	c.toCache(ctx, key, loc)
	return loc, nil
}

type ipinfoResponse struct {
	Country string `json:"country"`
	City    string `json:"city"`
	Bogon   bool   `json:"bogon"`
}

func (c *Client) fetch(ctx context.Context, ip string) (Location, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(ip) + "/json"
	if c.token != "" {
		endpoint += "?token=" + url.QueryEscape(c.token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Location{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("定位请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("定位服务返回状态码 %d", resp.StatusCode)
	}

	var body ipinfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, fmt.Errorf("解析定位结果失败: %w", err)
	}
	if body.Bogon {
		return Location{}, nil
	}
	return Location{Country: nonEmpty(body.Country), City: nonEmpty(body.City)}, nil
}

func (c *Client) fromCache(ctx context.Context, key string) (Location, bool) {
	if c.cache == nil {
		return Location{}, false
	}
	val, err := c.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warnf("读取定位缓存失败: %v", err)
		}
		return Location{}, false
	}
	var loc Location
	if err := json.Unmarshal(val, &loc); err != nil {
		return Location{}, false
	}
	return loc, true
}

func (c *Client) toCache(ctx context.Context, key string, loc Location) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(loc)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, c.cacheTTL).Err(); err != nil {
		c.logger.Warnf("写入定位缓存失败: %v", err)
	}
}

// publicAddr 解析 IP, 私有、回环、链路本地等地址视为不可定位
func publicAddr(ip string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return netip.Addr{}, false
	}
	addr = addr.Unmap()
	if addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsMulticast() || addr.IsUnspecified() {
		return netip.Addr{}, false
	}
	return addr, true
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
