package roster

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

// stickyMap 记录每个 ISO 周（以周一日期为键）中，
// 各个 sameStaffWeekly 岗位在本周第一个工作日选定的员工姓名
type stickyMap map[string]map[int64]string

func (m stickyMap) get(weekKey string, posID int64) (string, bool) {
	name, exists := m[weekKey][posID]
	return name, exists
}

func (m stickyMap) set(weekKey string, posID int64, name string) {
	if _, exists := m[weekKey]; !exists {
		m[weekKey] = make(map[int64]string)
	}
	m[weekKey][posID] = name
}

func (m stickyMap) clone() stickyMap {
	cloned := make(stickyMap, len(m))
	for weekKey, entries := range m {
		cloned[weekKey] = make(map[int64]string, len(entries))
		for posID, name := range entries {
			cloned[weekKey][posID] = name
		}
	}
	return cloned
}

// weekStart 返回 date 所在 ISO 周的周一
func weekStart(date time.Time) time.Time {
	offset := int(date.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7 // 周日属于上一周
	}
	return date.AddDate(0, 0, -offset)
}

// firstBusinessDayOfWeek 返回 date 所在周的第一个工作日。
// 整周都是非工作日时返回 false。
func (e *Engine) firstBusinessDayOfWeek(ctx context.Context, date time.Time) (time.Time, bool) {
	d := weekStart(date)
	for i := 0; i < 7; i++ {
		if !e.cal.IsNonWorkingDay(ctx, d) {
			return d, true
		}
		d = d.AddDate(0, 0, 1)
	}
	return time.Time{}, false
}

// weekKeys 返回 date 所在周和上一周的周固定表键
func weekKeys(date time.Time) (current string, previous string) {
	start := weekStart(date)
	return start.Format(domain.DateLayout), start.AddDate(0, 0, -7).Format(domain.DateLayout)
}
