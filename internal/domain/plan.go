package domain

import "time"

// DayPlan 是某一天的排班结果：岗位 ID 到当天被分配员工姓名列表的映射。
// 只在一次排班调用内存在，最终通过报表适配器输出，不落库。
type DayPlan struct {
	Date        time.Time          `json:"date"`
	Weekday     time.Weekday       `json:"weekday"`
	Holiday     bool               `json:"holiday"`
	Assignments map[int64][]string `json:"assignments"`
}

// DateKey 返回这一天的统一日期字符串
func (p *DayPlan) DateKey() string {
	return p.Date.Format(DateLayout)
}
