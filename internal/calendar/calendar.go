package calendar

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

// ErrNoBusinessDay 表示在步数上限内没有找到工作日
var ErrNoBusinessDay = errors.New("在限定步数内没有找到工作日")

// Calendar 提供排班引擎所需的全部日期运算。
// 每个 (年, 月) 的节假日集合在一次运行内只向 provider 请求一次。
type Calendar struct {
	provider    HolidayProvider
	searchLimit int
	memo        map[string]map[string]struct{}
}

func New(provider HolidayProvider, searchLimit int) *Calendar {
	return &Calendar{
		provider:    provider,
		searchLimit: searchLimit,
		memo:        make(map[string]map[string]struct{}),
	}
}

// DatesInMonth 返回某个月的全部日期，按时间顺序排列
func (c *Calendar) DatesInMonth(year int, month time.Month) []time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)

	var dates []time.Time
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}

	return dates
}

func (c *Calendar) holidays(ctx context.Context, year int, month time.Month) map[string]struct{} {
	key := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
	if cached, exists := c.memo[key]; exists {
		return cached
	}

	holidays, err := c.provider.Holidays(ctx, year, month)
	if err != nil {
		// 节假日服务不可用时按当月无节假日处理，保证排班流程能继续
		slog.Warn("获取节假日失败，按无节假日处理", "year", year, "month", int(month), "error", err)
		holidays = map[string]struct{}{}
	}

	c.memo[key] = holidays
	return holidays
}

// IsNonWorkingDay 判断某天是否为非工作日（周六、周日或节假日）
func (c *Calendar) IsNonWorkingDay(ctx context.Context, date time.Time) bool {
	if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
		return true
	}

	holidays := c.holidays(ctx, date.Year(), date.Month())
	_, exists := holidays[date.Format(domain.DateLayout)]
	return exists
}

// NextBusinessDay 返回 date 之后最近的工作日
func (c *Calendar) NextBusinessDay(ctx context.Context, date time.Time) (time.Time, error) {
	return c.stepBusinessDay(ctx, date, 1)
}

// PreviousBusinessDay 返回 date 之前最近的工作日
func (c *Calendar) PreviousBusinessDay(ctx context.Context, date time.Time) (time.Time, error) {
	return c.stepBusinessDay(ctx, date, -1)
}

func (c *Calendar) stepBusinessDay(ctx context.Context, date time.Time, step int) (time.Time, error) {
	d := date
	for i := 0; i < c.searchLimit; i++ {
		d = d.AddDate(0, 0, step)
		if !c.IsNonWorkingDay(ctx, d) {
			return d, nil
		}
	}

	return time.Time{}, ErrNoBusinessDay
}
