package roster

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/utils"
)

// PlanMonth 生成目标月份每一天的排班计划。
// 日期严格按时间顺序处理：依赖岗位要读取前一个工作日的结果，
// 周固定岗位要读取本周第一个工作日的选择。
func (e *Engine) PlanMonth(ctx context.Context, year int, month time.Month) ([]*domain.DayPlan, error) {
	dates := e.cal.DatesInMonth(year, month)

	plans := make([]*domain.DayPlan, 0, len(dates))
	for _, date := range dates {
		plan := e.planDate(ctx, date)
		e.plans[plan.DateKey()] = plan
		plans = append(plans, plan)
	}

	// 对结果做最终校验：休假冲突和重复分配在任何输入下都不应该出现
	if err := utils.ValidateNoLeaveConflict(plans, e.staff); err != nil {
		return nil, err
	}
	if err := utils.ValidateNoDuplicateAssignment(plans, e.positions); err != nil {
		return nil, err
	}

	return plans, nil
}

// planDate 按固定阶段顺序生成某一天的排班：
// 特殊分配 -> 非工作日短路 -> 有界重试循环（依赖 -> staffSeveral 配额 ->
// 周固定 -> 标准贪心 -> 兜底） -> 未填充标记。
func (e *Engine) planDate(ctx context.Context, date time.Time) *domain.DayPlan {
	key := date.Format(domain.DateLayout)
	plan := &domain.DayPlan{
		Date:        date,
		Weekday:     date.Weekday(),
		Holiday:     e.cal.IsNonWorkingDay(ctx, date),
		Assignments: make(map[int64][]string),
	}

	// 阶段一：特殊分配。
	// 员工在某岗位的特殊分配日期列表中含有今天时，无条件分配，
	// 同一员工一天内只接受一次特殊分配。
	specialToday := make(map[string]bool)
	for _, pos := range e.positions {
		for _, st := range e.staff {
			if !st.HasSpecialAssignment(pos.ID, key) {
				continue
			}
			if specialToday[st.Name] {
				continue
			}

			plan.Assignments[pos.ID] = append(plan.Assignments[pos.ID], st.Name)
			specialToday[st.Name] = true

			// holidayToday / holidayTomorrow 会让这名员工在当天和（或）
			// 次日（自然日，不是工作日）进入额外休假
			if pos.HolidayToday {
				e.addExtraLeave(key, st.Name)
			}
			if pos.HolidayTomorrow {
				e.addExtraLeave(date.AddDate(0, 0, 1).Format(domain.DateLayout), st.Name)
			}
		}
	}

	// 阶段二：非工作日只保留特殊分配的结果，不做未填充标记
	if plan.Holiday {
		return plan
	}

	baseline := cloneAssignments(plan.Assignments)

	// 阶段三：有界重试循环。
	// 每轮从特殊分配的基线重新开始，重新推导当日可用员工池。
	// 一轮结束后还有员工没被分配则回滚计数器并重试，
	// 全部轮次都失败时保留最后一轮的结果。
	for attempt := 0; ; attempt++ {
		stdSnapshot := e.standardCnt.clone()
		severalSnapshot := e.severalCnt.clone()
		stickySnapshot := e.sticky.clone()

		assignments := cloneAssignments(baseline)
		pool := e.buildPool(key, specialToday)

		e.dependencyPhase(ctx, date, specialToday, assignments, &pool)
		e.severalPhase(assignments, &pool)
		e.weeklyPhase(ctx, date, assignments, &pool)
		e.greedyPhase(ctx, date, assignments, &pool)
		leftover := e.fallbackPhase(assignments, pool)

		plan.Assignments = assignments
		if len(leftover) == 0 || attempt >= e.params.MaxDayRetries-1 {
			break
		}

		e.standardCnt = stdSnapshot
		e.severalCnt = severalSnapshot
		e.sticky = stickySnapshot
	}

	// 阶段四：未填充标记
	for _, pos := range e.positions {
		if pos.Required && len(plan.Assignments[pos.ID]) == 0 {
			plan.Assignments[pos.ID] = []string{domain.Unfilled}
		}
	}

	return plan
}

func (e *Engine) addExtraLeave(dateKey string, name string) {
	if _, exists := e.extraLeave[dateKey]; !exists {
		e.extraLeave[dateKey] = make(map[string]bool)
	}
	e.extraLeave[dateKey][name] = true
}

// buildPool 构建当日可用员工池：全员减去休假、已特殊分配和额外休假的员工。
// 池按员工列表顺序排列，保证固定随机种子下结果可复现。
func (e *Engine) buildPool(dateKey string, specialToday map[string]bool) []string {
	pool := make([]string, 0, len(e.staff))
	for _, st := range e.staff {
		if st.OnLeave(dateKey) {
			continue
		}
		if specialToday[st.Name] {
			continue
		}
		if e.extraLeave[dateKey][st.Name] {
			continue
		}
		pool = append(pool, st.Name)
	}
	return pool
}

// dependencyPhase 处理声明了 dependence 的岗位：
// 复制被依赖岗位前一个工作日列表中的最后一名员工，并把该员工从当日池中移除。
// 前一个工作日没有记录，或者那名员工今天休假、额外休假或已被特殊分配时，
// 无论岗位是否必填都标记为 UNFILLED。依赖只解析一跳，不递归。
func (e *Engine) dependencyPhase(ctx context.Context, date time.Time, specialToday map[string]bool, assignments map[int64][]string, pool *[]string) {
	key := date.Format(domain.DateLayout)

	for _, pos := range e.positions {
		if pos.Dependence == nil {
			continue
		}
		if len(assignments[pos.ID]) > 0 && !pos.AllowMultiple {
			continue
		}

		prev, err := e.cal.PreviousBusinessDay(ctx, date)
		if err != nil {
			assignments[pos.ID] = []string{domain.Unfilled}
			continue
		}

		var source []string
		if prevPlan, exists := e.plans[prev.Format(domain.DateLayout)]; exists {
			source = prevPlan.Assignments[*pos.Dependence]
		}
		if len(source) == 0 || source[len(source)-1] == domain.Unfilled {
			assignments[pos.ID] = []string{domain.Unfilled}
			continue
		}

		name := source[len(source)-1]
		if st, exists := e.staffMap[name]; exists {
			if st.OnLeave(key) || e.extraLeave[key][name] || specialToday[name] {
				assignments[pos.ID] = []string{domain.Unfilled}
				continue
			}
		}

		assignments[pos.ID] = append(assignments[pos.ID], name)
		removeFromPool(pool, name)
	}
}

// severalPhase 处理 staffSeveral 岗位：
// 在独立的计数器空间内按配额轮换选出最少被使用的候选人
func (e *Engine) severalPhase(assignments map[int64][]string, pool *[]string) {
	for _, pos := range e.positions {
		if !pos.StaffSeveral || pos.Dependence != nil {
			continue
		}
		if len(assignments[pos.ID]) > 0 && !pos.AllowMultiple {
			continue
		}

		candidates := e.candidatesFor(pos, *pool)
		if len(candidates) == 0 {
			continue
		}

		name := e.leastUsed(candidates, e.severalCnt, pos.ID)
		assignments[pos.ID] = append(assignments[pos.ID], name)
		removeFromPool(pool, name)
	}
}

// weeklyPhase 处理 sameStaffWeekly 岗位。
// 本周第一个工作日：在排除上周人选后用公平性计数器选人并记录；
// 其余工作日：沿用本周记录，但要求此人可用且与上周人选不同，
// 沿用被阻断时留给标准贪心阶段处理。
func (e *Engine) weeklyPhase(ctx context.Context, date time.Time, assignments map[int64][]string, pool *[]string) {
	weekKey, prevWeekKey := weekKeys(date)
	firstBiz, hasFirstBiz := e.firstBusinessDayOfWeek(ctx, date)
	isFirstBizDay := hasFirstBiz && firstBiz.Equal(date)

	for _, pos := range e.positions {
		if !pos.SameStaffWeekly || pos.StaffSeveral || pos.Dependence != nil {
			continue
		}
		if len(assignments[pos.ID]) > 0 && !pos.AllowMultiple {
			continue
		}

		prevName, _ := e.sticky.get(prevWeekKey, pos.ID)

		if name, exists := e.sticky.get(weekKey, pos.ID); exists && !isFirstBizDay {
			// 连续两周同人防护：记录值与上周相同时不沿用
			if name != prevName && inPool(*pool, name) {
				assignments[pos.ID] = append(assignments[pos.ID], name)
				removeFromPool(pool, name)
			}
			// 沿用被阻断时本日当作无周固定处理，交给贪心阶段
			continue
		}

		if !isFirstBizDay {
			continue
		}

		candidates := e.candidatesFor(pos, *pool)
		filtered := make([]string, 0, len(candidates))
		for _, name := range candidates {
			if name != prevName {
				filtered = append(filtered, name)
			}
		}
		if len(filtered) == 0 {
			continue
		}

		name := e.leastUsed(filtered, e.standardCnt, pos.ID)
		assignments[pos.ID] = append(assignments[pos.ID], name)
		removeFromPool(pool, name)
		e.sticky.set(weekKey, pos.ID, name)
	}
}

// greedyPhase 为剩余的独立、非 staffSeveral 岗位做标准贪心分配。
// 周固定岗位落到这里时，如果今天恰好是本周第一个工作日，
// 新选出的人会成为本周余下日子的周固定人选。
func (e *Engine) greedyPhase(ctx context.Context, date time.Time, assignments map[int64][]string, pool *[]string) {
	weekKey, _ := weekKeys(date)
	firstBiz, hasFirstBiz := e.firstBusinessDayOfWeek(ctx, date)
	isFirstBizDay := hasFirstBiz && firstBiz.Equal(date)

	for _, pos := range e.positions {
		if pos.Dependence != nil || pos.StaffSeveral {
			continue
		}
		if len(assignments[pos.ID]) > 0 && !pos.AllowMultiple {
			continue
		}

		candidates := e.candidatesFor(pos, *pool)
		if len(candidates) == 0 {
			continue
		}

		name := e.leastUsed(candidates, e.standardCnt, pos.ID)
		assignments[pos.ID] = append(assignments[pos.ID], name)
		removeFromPool(pool, name)

		if pos.SameStaffWeekly && isFirstBizDay {
			e.sticky.set(weekKey, pos.ID, name)
		}
	}
}

// fallbackPhase 把池中剩下的员工强制塞进按优先级排列的第一个
// 可承担且还有空位的岗位中，返回最终仍然无处安放的员工。
// 依赖岗位和已标记 UNFILLED 的岗位不接受兜底员工。
func (e *Engine) fallbackPhase(assignments map[int64][]string, pool []string) []string {
	var leftover []string
	for _, name := range pool {
		st := e.staffMap[name]
		placed := false

		for _, pos := range e.positions {
			if pos.Dependence != nil {
				continue
			}
			if isUnfilled(assignments[pos.ID]) {
				continue
			}
			if !st.CanFill(pos.Name) {
				continue
			}
			if !pos.AllowMultiple && len(assignments[pos.ID]) > 0 {
				continue
			}

			assignments[pos.ID] = append(assignments[pos.ID], name)
			placed = true
			break
		}

		if !placed {
			leftover = append(leftover, name)
		}
	}
	return leftover
}

// candidatesFor 返回池中可以承担指定岗位的员工，保持池内顺序
func (e *Engine) candidatesFor(pos *domain.Position, pool []string) []string {
	var candidates []string
	for _, name := range pool {
		if e.staffMap[name].CanFill(pos.Name) {
			candidates = append(candidates, name)
		}
	}
	return candidates
}

func cloneAssignments(assignments map[int64][]string) map[int64][]string {
	cloned := make(map[int64][]string, len(assignments))
	for posID, names := range assignments {
		cloned[posID] = append([]string{}, names...)
	}
	return cloned
}

func removeFromPool(pool *[]string, name string) {
	for i, n := range *pool {
		if n == name {
			*pool = append((*pool)[:i], (*pool)[i+1:]...)
			return
		}
	}
}

func inPool(pool []string, name string) bool {
	for _, n := range pool {
		if n == name {
			return true
		}
	}
	return false
}

func isUnfilled(names []string) bool {
	return len(names) == 1 && names[0] == domain.Unfilled
}
