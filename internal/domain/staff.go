package domain

import "time"

// DateLayout 是全系统统一的日期格式，休假日期和特殊分配日期都使用这个格式存储
const DateLayout = "2006-01-02"

type LeaveKind string

// 三种带薪休假，互斥于当日的任何值班分配
const (
	LeaveYukyu   LeaveKind = "yukyu"   // 有休
	LeaveFurikyu LeaveKind = "furikyu" // 振休
	LeaveDaikyu  LeaveKind = "daikyu"  // 代休
)

var LeaveKinds = []LeaveKind{LeaveYukyu, LeaveFurikyu, LeaveDaikyu}

type StaffMember struct {
	ID                 int64                 `json:"id"`
	Name               string                `json:"name"`
	Account            string                `json:"account"` // 外部系统中的账号标识
	Experience         int32                 `json:"experience"`
	AvailablePositions []string              `json:"availablePositions"` // 本人可以承担的岗位名称
	Departments        []string              `json:"departments"`
	Leaves             map[LeaveKind][]string `json:"leaves"`
	// SpecialAssignments 按岗位 ID 记录预先指定的值班日期，
	// 轮值引擎的结果也会以追加的方式写入这里
	SpecialAssignments map[int64][]string `json:"specialAssignments"`
	CreatedAt          time.Time          `json:"createdAt"`
	Version            int32              `json:"-"`
}

// CanFill 判断这名员工是否可以承担指定名称的岗位
func (s *StaffMember) CanFill(positionName string) bool {
	for _, name := range s.AvailablePositions {
		if name == positionName {
			return true
		}
	}
	return false
}

// OnLeave 判断这名员工在指定日期是否处于任意一种休假中
func (s *StaffMember) OnLeave(date string) bool {
	for _, kind := range LeaveKinds {
		for _, d := range s.Leaves[kind] {
			if d == date {
				return true
			}
		}
	}
	return false
}

// HasSpecialAssignment 判断这名员工在指定日期是否有指定岗位的特殊分配
func (s *StaffMember) HasSpecialAssignment(positionID int64, date string) bool {
	for _, d := range s.SpecialAssignments[positionID] {
		if d == date {
			return true
		}
	}
	return false
}

// InDepartment 判断这名员工是否属于指定科室
func (s *StaffMember) InDepartment(department string) bool {
	for _, d := range s.Departments {
		if d == department {
			return true
		}
	}
	return false
}

// RotationAssignment 是轮值引擎产生的一条分配记录，
// 需要以追加的方式持久化到员工的特殊分配日期中
type RotationAssignment struct {
	StaffID    int64  `json:"staffID"`
	PositionID int64  `json:"positionID"`
	Date       string `json:"date"`
}
