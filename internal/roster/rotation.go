package roster

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/calendar"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

// 夜间轮值引擎的参数
type RotationParameters struct {
	MinExperience   int32              // 单日所有当选者经验值之和的下限
	MaxRetries      int                // 经验值不达标时单日的最大重试次数
	SpacingDays     int                // 同一员工两次轮值之间的最小自然日间隔
	FragileDept     string             // 节假日前一天不安排轮值的科室
	DutyDepartments []string           // 轮值职务本身的科室标签，不参与科室候选
	DeptWeights     map[string]float64 // 科室计数权重，未配置的科室按 1.0 计
}

func (p *RotationParameters) weight(dept string) float64 {
	if w, exists := p.DeptWeights[dept]; exists {
		return w
	}
	return 1.0
}

// RotationEngine 是夜间/待命轮值引擎。
// 与日度引擎同一套设计但权重规则不同：先按科室公平性选科室，
// 再在科室内选员工。计数器在整个月份区间内持续累积，
// 因此跨月请求必须作为一次顺序遍历处理，不能按月拆分。
type RotationEngine struct {
	params    *RotationParameters
	cal       *calendar.Calendar
	rng       *rand.Rand
	positions []*domain.Position // rotation 和 oncall 岗位，按优先级升序
	staff     []*domain.StaffMember

	deptCnt      map[string]float64 // (岗位名, 次日是否休息, 科室) -> 加权计数
	staffCnt     map[string]int     // (科室, 员工 ID) -> 计数
	lastAssigned map[int64]time.Time
}

// MonthPlans 是轮值结果中单个月份的排班
type MonthPlans struct {
	Year  int
	Month time.Month
	Plans []*domain.DayPlan
}

// RotationResult 除了逐月计划外，还带有需要追加持久化的特殊分配记录
type RotationResult struct {
	Months      []MonthPlans
	Assignments []domain.RotationAssignment
}

func NewRotation(params *RotationParameters, cal *calendar.Calendar, rng *rand.Rand, positions []*domain.Position, staff []*domain.StaffMember) (*RotationEngine, error) {
	e := &RotationEngine{
		params:       params,
		cal:          cal,
		rng:          rng,
		positions:    make([]*domain.Position, 0, len(positions)),
		staff:        staff,
		deptCnt:      make(map[string]float64),
		staffCnt:     make(map[string]int),
		lastAssigned: make(map[int64]time.Time),
	}

	for _, pos := range positions {
		switch pos.Kind {
		case domain.PositionKindRotation, domain.PositionKindOnCall:
			e.positions = append(e.positions, pos)
		default:
			return nil, fmt.Errorf("岗位 %s 不是轮值岗位", pos.Name)
		}
	}
	sort.SliceStable(e.positions, func(i, j int) bool {
		return e.positions[i].Priority < e.positions[j].Priority
	})

	for _, st := range staff {
		if st.SpecialAssignments == nil {
			st.SpecialAssignments = make(map[int64][]string)
		}
	}

	return e, nil
}

// Run 在给定的月份区间（含两端）内逐日生成轮值。
// 每条被接受的分配都会追加进员工的特殊分配日期列表，
// 这样轮值结果会在后续的日度排班中作为特殊分配出现。
func (e *RotationEngine) Run(ctx context.Context, startYear int, startMonth time.Month, endYear int, endMonth time.Month) (*RotationResult, error) {
	start := time.Date(startYear, startMonth, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(endYear, endMonth, 1, 0, 0, 0, 0, time.UTC)
	if end.Before(start) {
		return nil, fmt.Errorf("结束月份 %04d-%02d 不能早于开始月份 %04d-%02d", endYear, int(endMonth), startYear, int(startMonth))
	}

	result := &RotationResult{}
	for cursor := start; !cursor.After(end); cursor = cursor.AddDate(0, 1, 0) {
		monthPlans := MonthPlans{
			Year:  cursor.Year(),
			Month: cursor.Month(),
		}

		for _, date := range e.cal.DatesInMonth(cursor.Year(), cursor.Month()) {
			plan := e.planDate(ctx, date, result)
			monthPlans.Plans = append(monthPlans.Plans, plan)
		}

		result.Months = append(result.Months, monthPlans)
	}

	return result, nil
}

func (e *RotationEngine) planDate(ctx context.Context, date time.Time, result *RotationResult) *domain.DayPlan {
	key := date.Format(domain.DateLayout)
	nonWorking := e.cal.IsNonWorkingDay(ctx, date)
	nextDayOff := e.cal.IsNonWorkingDay(ctx, date.AddDate(0, 0, 1))

	plan := &domain.DayPlan{
		Date:        date,
		Weekday:     date.Weekday(),
		Holiday:     nonWorking,
		Assignments: make(map[int64][]string),
	}

	// 待命轮值只在周末和节假日追加运行
	var todays []*domain.Position
	for _, pos := range e.positions {
		if pos.Kind == domain.PositionKindOnCall && !nonWorking {
			continue
		}
		todays = append(todays, pos)
	}
	if len(todays) == 0 {
		return plan
	}

	// 经验值门槛：当日所有当选者的经验值之和必须达到下限，
	// 否则回滚计数器重试，重试耗尽后接受最后一轮的结果
	var chosen []chosenAssignment
	for attempt := 0; ; attempt++ {
		deptSnapshot := cloneFloatCounters(e.deptCnt)
		staffSnapshot := cloneIntCounters(e.staffCnt)
		lastSnapshot := cloneLastAssigned(e.lastAssigned)

		chosen = chosen[:0]
		var totalExperience int32
		for _, pos := range todays {
			dept, found := e.pickDepartment(pos, nextDayOff)
			if !found {
				continue
			}
			st, found := e.pickStaff(pos, dept, date, chosen)
			if !found {
				continue
			}
			chosen = append(chosen, chosenAssignment{position: pos, staff: st})
			totalExperience += st.Experience
		}

		if totalExperience >= e.params.MinExperience || attempt >= e.params.MaxRetries-1 {
			break
		}

		e.deptCnt = deptSnapshot
		e.staffCnt = staffSnapshot
		e.lastAssigned = lastSnapshot
	}

	for _, ca := range chosen {
		plan.Assignments[ca.position.ID] = []string{ca.staff.Name}
		ca.staff.SpecialAssignments[ca.position.ID] = append(ca.staff.SpecialAssignments[ca.position.ID], key)
		result.Assignments = append(result.Assignments, domain.RotationAssignment{
			StaffID:    ca.staff.ID,
			PositionID: ca.position.ID,
			Date:       key,
		})
	}

	for _, pos := range todays {
		if pos.Required && len(plan.Assignments[pos.ID]) == 0 {
			plan.Assignments[pos.ID] = []string{domain.Unfilled}
		}
	}

	return plan
}

type chosenAssignment struct {
	position *domain.Position
	staff    *domain.StaffMember
}

// pickDepartment 为岗位选出科室：候选科室由能承担该岗位的员工所属科室推导，
// 去掉轮值职务自身的科室标签；次日休息时还要去掉指定的脆弱科室。
// 待命岗位声明了科室列表时按声明收窄。
// 计数器按 (岗位名, 次日是否休息) 分键，避免节前日集中压到同一科室。
func (e *RotationEngine) pickDepartment(pos *domain.Position, nextDayOff bool) (string, bool) {
	excluded := make(map[string]bool, len(e.params.DutyDepartments)+1)
	for _, dept := range e.params.DutyDepartments {
		excluded[dept] = true
	}
	if nextDayOff && e.params.FragileDept != "" {
		excluded[e.params.FragileDept] = true
	}

	narrowed := map[string]bool{}
	if pos.Kind == domain.PositionKindOnCall && len(pos.Departments) > 0 {
		for _, dept := range pos.Departments {
			narrowed[dept] = true
		}
	}

	seen := make(map[string]bool)
	var candidates []string
	for _, st := range e.staff {
		if !st.CanFill(pos.Name) {
			continue
		}
		for _, dept := range st.Departments {
			if seen[dept] || excluded[dept] {
				continue
			}
			if len(narrowed) > 0 && !narrowed[dept] {
				continue
			}
			seen[dept] = true
			candidates = append(candidates, dept)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	counterKey := func(dept string) string {
		return fmt.Sprintf("%s|%t|%s", pos.Name, nextDayOff, dept)
	}

	minCnt := e.deptCnt[counterKey(candidates[0])]
	for _, dept := range candidates[1:] {
		if cnt := e.deptCnt[counterKey(dept)]; cnt < minCnt {
			minCnt = cnt
		}
	}
	var ties []string
	for _, dept := range candidates {
		if e.deptCnt[counterKey(dept)] == minCnt {
			ties = append(ties, dept)
		}
	}

	dept := ties[e.rng.Intn(len(ties))]
	// 科室权重不是一律 +1：部分科室加得轻、部分加得重，
	// 用来控制各科室实际承担轮值的频率
	e.deptCnt[counterKey(dept)] += e.params.weight(dept)
	return dept, true
}

// pickStaff 在选定科室内选出员工：排除休假、当日已当选、
// 以及过去 SpacingDays 个自然日内已有轮值的员工，
// 在剩余候选中按 (科室, 员工) 计数取最小值，随机打破并列。
func (e *RotationEngine) pickStaff(pos *domain.Position, dept string, date time.Time, alreadyChosen []chosenAssignment) (*domain.StaffMember, bool) {
	key := date.Format(domain.DateLayout)

	chosenIDs := make(map[int64]bool, len(alreadyChosen))
	for _, ca := range alreadyChosen {
		chosenIDs[ca.staff.ID] = true
	}

	var candidates []*domain.StaffMember
	for _, st := range e.staff {
		if !st.CanFill(pos.Name) || !st.InDepartment(dept) {
			continue
		}
		if st.OnLeave(key) || chosenIDs[st.ID] {
			continue
		}
		if last, exists := e.lastAssigned[st.ID]; exists {
			if daysBetween(last, date) <= e.params.SpacingDays {
				continue
			}
		}
		candidates = append(candidates, st)
	}
	if len(candidates) == 0 {
		return nil, false
	}

	counterKey := func(st *domain.StaffMember) string {
		return fmt.Sprintf("%s|%d", dept, st.ID)
	}

	minCnt := e.staffCnt[counterKey(candidates[0])]
	for _, st := range candidates[1:] {
		if cnt := e.staffCnt[counterKey(st)]; cnt < minCnt {
			minCnt = cnt
		}
	}
	var ties []*domain.StaffMember
	for _, st := range candidates {
		if e.staffCnt[counterKey(st)] == minCnt {
			ties = append(ties, st)
		}
	}

	st := ties[e.rng.Intn(len(ties))]
	e.staffCnt[counterKey(st)]++
	e.lastAssigned[st.ID] = date
	return st, true
}

func daysBetween(earlier, later time.Time) int {
	return int(later.Sub(earlier).Hours() / 24)
}

func cloneFloatCounters(src map[string]float64) map[string]float64 {
	cloned := make(map[string]float64, len(src))
	for k, v := range src {
		cloned[k] = v
	}
	return cloned
}

func cloneIntCounters(src map[string]int) map[string]int {
	cloned := make(map[string]int, len(src))
	for k, v := range src {
		cloned[k] = v
	}
	return cloned
}

func cloneLastAssigned(src map[int64]time.Time) map[int64]time.Time {
	cloned := make(map[int64]time.Time, len(src))
	for k, v := range src {
		cloned[k] = v
	}
	return cloned
}
