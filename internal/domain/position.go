package domain

import "time"

type PositionKind string

const (
	PositionKindNormal   PositionKind = "normal"   // 日常岗位，由日度排班引擎分配
	PositionKindRotation PositionKind = "rotation" // 夜间轮值岗位，由轮值引擎分配
	PositionKindOnCall   PositionKind = "oncall"   // 节假日待命岗位，仅在非工作日追加轮值
)

// Unfilled 表示必填岗位在重试结束后仍然没有候选人
const Unfilled = "UNFILLED"

type Position struct {
	ID              int64        `json:"id"`
	Name            string       `json:"name"`
	Kind            PositionKind `json:"kind"`
	Priority        int32        `json:"priority"` // 数字越小优先级越高
	Required        bool         `json:"required"`
	SameStaffWeekly bool         `json:"sameStaffWeekly"`
	AllowMultiple   bool         `json:"allowMultiple"`
	StaffSeveral    bool         `json:"staffSeveral"`
	Dependence      *int64       `json:"dependence"` // 依赖岗位的 ID，为 nil 表示独立岗位
	HolidayToday    bool         `json:"holidayToday"`
	HolidayTomorrow bool         `json:"holidayTomorrow"`
	Departments     []string     `json:"departments"`
	OutputLocation  string       `json:"outputLocation"` // 报表中的基准单元格坐标，如 "C4"，引擎不解释其含义
	CreatedAt       time.Time    `json:"createdAt"`
	Version         int32        `json:"-"`
}
