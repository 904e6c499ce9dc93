package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// HolidayProvider 提供某年某月的节假日集合，集合元素为 "2006-01-02" 格式的日期
type HolidayProvider interface {
	Holidays(ctx context.Context, year int, month time.Month) (map[string]struct{}, error)
}

// HTTPProvider 通过外部节假日服务获取节假日
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

func NewHTTPProvider(baseURL string, requestTimeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

func (p *HTTPProvider) Holidays(ctx context.Context, year int, month time.Month) (map[string]struct{}, error) {
	url := fmt.Sprintf("%s/api/v1/holidays/%d/%d", p.baseURL, year, int(month))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("节假日服务返回了非预期的状态码 %d", resp.StatusCode)
	}

	var body struct {
		Holidays []string `json:"holidays"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	holidays := make(map[string]struct{}, len(body.Holidays))
	for _, d := range body.Holidays {
		holidays[d] = struct{}{}
	}

	return holidays, nil
}

// RedisCache 在 redis 中缓存每个月的节假日集合，缓存出错时直接穿透到内层 provider
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	next   HolidayProvider
}

func NewRedisCache(client *redis.Client, ttl time.Duration, next HolidayProvider) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		next:   next,
	}
}

func (c *RedisCache) cacheKey(year int, month time.Month) string {
	return fmt.Sprintf("holidays:%04d-%02d", year, int(month))
}

func (c *RedisCache) Holidays(ctx context.Context, year int, month time.Month) (map[string]struct{}, error) {
	key := c.cacheKey(year, month)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var dates []string
		if err := json.Unmarshal([]byte(cached), &dates); err == nil {
			holidays := make(map[string]struct{}, len(dates))
			for _, d := range dates {
				holidays[d] = struct{}{}
			}
			return holidays, nil
		}
		// 缓存内容损坏，当作未命中处理
	} else if err != redis.Nil {
		slog.Warn("读取节假日缓存失败", "key", key, "error", err)
	}

	holidays, err := c.next.Holidays(ctx, year, month)
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(holidays))
	for d := range holidays {
		dates = append(dates, d)
	}
	data, err := json.Marshal(dates)
	if err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.Warn("写入节假日缓存失败", "key", key, "error", err)
		}
	}

	return holidays, nil
}
