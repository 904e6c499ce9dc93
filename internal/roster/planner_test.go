package roster

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/calendar"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

// noHolidayProvider 让测试里的非工作日只剩下周六和周日
type noHolidayProvider struct{}

func (noHolidayProvider) Holidays(_ context.Context, _ int, _ time.Month) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

func testCalendar() *calendar.Calendar {
	return calendar.New(noHolidayProvider{}, 10)
}

func newTestStaff(id int64, name string, positions ...string) *domain.StaffMember {
	return &domain.StaffMember{
		ID:                 id,
		Name:               name,
		Experience:         10,
		AvailablePositions: positions,
		Departments:        []string{"内科"},
		Leaves:             make(map[domain.LeaveKind][]string),
		SpecialAssignments: make(map[int64][]string),
	}
}

func newTestEngine(t *testing.T, seed int64, positions []*domain.Position, staff []*domain.StaffMember) *Engine {
	t.Helper()
	e, err := New(&Parameters{MaxDayRetries: 10}, testCalendar(), rand.New(rand.NewSource(seed)), positions, staff)
	require.NoError(t, err)
	return e
}

func planFor(t *testing.T, plans []*domain.DayPlan, date string) *domain.DayPlan {
	t.Helper()
	for _, plan := range plans {
		if plan.DateKey() == date {
			return plan
		}
	}
	t.Fatalf("没有找到 %s 的排班计划", date)
	return nil
}

func TestNewRejectsDuplicateStaffNames(t *testing.T) {
	staff := []*domain.StaffMember{
		newTestStaff(1, "佐藤", "日直"),
		newTestStaff(2, "佐藤", "日直"),
	}

	_, err := New(&Parameters{MaxDayRetries: 10}, testCalendar(), rand.New(rand.NewSource(1)), nil, staff)
	require.Error(t, err)
}

func TestNewRejectsInvalidDependence(t *testing.T) {
	dep := func(id int64) *int64 { return &id }

	// 依赖的岗位不存在
	_, err := New(&Parameters{MaxDayRetries: 10}, testCalendar(), rand.New(rand.NewSource(1)), []*domain.Position{
		{ID: 1, Name: "日直明け", Priority: 1, Dependence: dep(99)},
	}, nil)
	require.Error(t, err)

	// 依赖链超过一跳
	_, err = New(&Parameters{MaxDayRetries: 10}, testCalendar(), rand.New(rand.NewSource(1)), []*domain.Position{
		{ID: 1, Name: "日直", Priority: 1},
		{ID: 2, Name: "日直明け", Priority: 2, Dependence: dep(1)},
		{ID: 3, Name: "日直明け明け", Priority: 3, Dependence: dep(2)},
	}, nil)
	require.Error(t, err)
}

func TestPlanMonthExcludesStaffOnLeave(t *testing.T) {
	positions := []*domain.Position{
		{ID: 1, Name: "日直", Priority: 1, Required: true},
	}
	sato := newTestStaff(1, "佐藤", "日直")
	sato.Leaves[domain.LeaveYukyu] = []string{"2026-01-05"}
	suzuki := newTestStaff(2, "鈴木", "日直")

	e := newTestEngine(t, 1, positions, []*domain.StaffMember{sato, suzuki})
	plans, err := e.PlanMonth(context.Background(), 2026, time.January)
	require.NoError(t, err)

	// 休假日当天只剩下另一名员工可选
	jan5 := planFor(t, plans, "2026-01-05")
	require.Equal(t, []string{"鈴木"}, jan5.Assignments[1])
}

func TestRequiredPositionMarkedUnfilled(t *testing.T) {
	positions := []*domain.Position{
		{ID: 1, Name: "日直", Priority: 1, Required: true},
	}
	// 在职员工不能承担这个岗位
	staff := []*domain.StaffMember{newTestStaff(1, "佐藤", "外来")}

	e := newTestEngine(t, 1, positions, staff)
	plans, err := e.PlanMonth(context.Background(), 2026, time.January)
	require.NoError(t, err)

	jan5 := planFor(t, plans, "2026-01-05")
	require.Equal(t, []string{domain.Unfilled}, jan5.Assignments[1])

	// 非工作日不做未填充标记
	jan3 := planFor(t, plans, "2026-01-03")
	require.Empty(t, jan3.Assignments[1])
}

func TestDependencyMirrorsPreviousBusinessDay(t *testing.T) {
	dayDutyID := int64(1)
	positions := []*domain.Position{
		{ID: dayDutyID, Name: "日直", Priority: 1, Required: true},
		{ID: 2, Name: "日直明け", Priority: 2, Dependence: &dayDutyID},
	}
	staff := []*domain.StaffMember{
		newTestStaff(1, "佐藤", "日直"),
		newTestStaff(2, "鈴木", "日直"),
	}

	e := newTestEngine(t, 1, positions, staff)
	plans, err := e.PlanMonth(context.Background(), 2026, time.January)
	require.NoError(t, err)

	// 月初第一个工作日没有前一个工作日的记录
	jan1 := planFor(t, plans, "2026-01-01")
	require.Equal(t, []string{domain.Unfilled}, jan1.Assignments[2])

	// 之后的每个工作日都沿用前一个工作日日直的最后一名员工
	jan2 := planFor(t, plans, "2026-01-02")
	require.Equal(t, jan1.Assignments[1], jan2.Assignments[2])

	// 跨周末：周一的依赖来自上周五
	jan5 := planFor(t, plans, "2026-01-05")
	require.Equal(t, jan2.Assignments[1], jan5.Assignments[2])

	// 被依赖锁定的员工当天不会再出现在日直中
	require.NotEqual(t, jan2.Assignments[2], jan2.Assignments[1])
}

func TestWeeklyStickiness(t *testing.T) {
	positions := []*domain.Position{
		{ID: 1, Name: "日直", Priority: 1, Required: true, SameStaffWeekly: true},
	}
	staff := []*domain.StaffMember{
		newTestStaff(1, "佐藤", "日直"),
		newTestStaff(2, "鈴木", "日直"),
		newTestStaff(3, "高橋", "日直"),
	}

	e := newTestEngine(t, 1, positions, staff)
	plans, err := e.PlanMonth(context.Background(), 2026, time.January)
	require.NoError(t, err)

	// 一周内的每个工作日都是同一名员工
	week1 := planFor(t, plans, "2026-01-05").Assignments[1][0]
	for _, date := range []string{"2026-01-06", "2026-01-07", "2026-01-08", "2026-01-09"} {
		require.Equal(t, []string{week1}, planFor(t, plans, date).Assignments[1], date)
	}

	// 下一周的人选与上一周不同
	week2 := planFor(t, plans, "2026-01-12").Assignments[1][0]
	require.NotEqual(t, week1, week2)
	for _, date := range []string{"2026-01-13", "2026-01-14", "2026-01-15", "2026-01-16"} {
		require.Equal(t, []string{week2}, planFor(t, plans, date).Assignments[1], date)
	}
}

func TestWeeklyStickinessBlockedByLeave(t *testing.T) {
	newPositions := func() []*domain.Position {
		return []*domain.Position{
			{ID: 1, Name: "日直", Priority: 1, Required: true, SameStaffWeekly: true},
		}
	}
	names := []string{"佐藤", "鈴木"}

	// 先跑一遍确定本周的周固定人选
	var firstStaff []*domain.StaffMember
	for i, name := range names {
		firstStaff = append(firstStaff, newTestStaff(int64(i+1), name, "日直"))
	}
	e := newTestEngine(t, 3, newPositions(), firstStaff)
	plans, err := e.PlanMonth(context.Background(), 2026, time.January)
	require.NoError(t, err)
	chosen := planFor(t, plans, "2026-01-05").Assignments[1][0]

	other := names[0]
	if other == chosen {
		other = names[1]
	}

	// 再跑一遍，让周固定人选在周三休假。
	// 休假日之前引擎的决策完全一致，因此周固定人选不变。
	var secondStaff []*domain.StaffMember
	for i, name := range names {
		st := newTestStaff(int64(i+1), name, "日直")
		if name == chosen {
			st.Leaves[domain.LeaveFurikyu] = []string{"2026-01-07"}
		}
		secondStaff = append(secondStaff, st)
	}
	e = newTestEngine(t, 3, newPositions(), secondStaff)
	plans, err = e.PlanMonth(context.Background(), 2026, time.January)
	require.NoError(t, err)

	require.Equal(t, []string{chosen}, planFor(t, plans, "2026-01-05").Assignments[1])
	require.Equal(t, []string{chosen}, planFor(t, plans, "2026-01-06").Assignments[1])
	// 休假当天退回标准贪心，由另一名员工顶上
	require.Equal(t, []string{other}, planFor(t, plans, "2026-01-07").Assignments[1])
	// 休假结束后恢复周固定人选
	require.Equal(t, []string{chosen}, planFor(t, plans, "2026-01-08").Assignments[1])
}

func TestSpecialAssignmentAndExtraLeave(t *testing.T) {
	positions := []*domain.Position{
		// 没有员工把夜勤列为可承担岗位，只能通过特殊分配进入
		{ID: 1, Name: "夜勤", Priority: 1, HolidayToday: true, HolidayTomorrow: true},
		{ID: 2, Name: "日直", Priority: 2, Required: true},
	}
	sato := newTestStaff(1, "佐藤", "日直")
	sato.SpecialAssignments[1] = []string{"2026-01-06"}
	suzuki := newTestStaff(2, "鈴木", "日直")

	e := newTestEngine(t, 1, positions, []*domain.StaffMember{sato, suzuki})
	plans, err := e.PlanMonth(context.Background(), 2026, time.January)
	require.NoError(t, err)

	// 特殊分配无条件生效，当天这名员工不再参与其他岗位
	jan6 := planFor(t, plans, "2026-01-06")
	require.Equal(t, []string{"佐藤"}, jan6.Assignments[1])
	require.Equal(t, []string{"鈴木"}, jan6.Assignments[2])

	// holidayTomorrow 让这名员工次日（自然日）进入额外休假
	jan7 := planFor(t, plans, "2026-01-07")
	require.Equal(t, []string{"鈴木"}, jan7.Assignments[2])
	for posID, names := range jan7.Assignments {
		require.NotContains(t, names, "佐藤", "岗位 %d", posID)
	}

	// 没有特殊分配的日子夜勤保持为空
	require.Empty(t, planFor(t, plans, "2026-01-05").Assignments[1])
}

func TestSeveralQuotaRotation(t *testing.T) {
	positions := []*domain.Position{
		{ID: 1, Name: "検査", Priority: 1, StaffSeveral: true},
		{ID: 2, Name: "外来", Priority: 2, Required: true, AllowMultiple: true},
	}
	staff := []*domain.StaffMember{
		newTestStaff(1, "佐藤", "検査", "外来"),
		newTestStaff(2, "鈴木", "検査", "外来"),
		newTestStaff(3, "高橋", "検査", "外来"),
	}

	e := newTestEngine(t, 1, positions, staff)
	plans, err := e.PlanMonth(context.Background(), 2026, time.January)
	require.NoError(t, err)

	// 配额轮换：整月下来每名员工承担検査的次数差不超过一次
	counts := make(map[string]int)
	workingDays := 0
	for _, plan := range plans {
		if plan.Holiday {
			continue
		}
		workingDays++
		require.Len(t, plan.Assignments[1], 1, plan.DateKey())
		counts[plan.Assignments[1][0]]++
	}
	require.Equal(t, 22, workingDays)

	minCnt, maxCnt := workingDays, 0
	for _, name := range []string{"佐藤", "鈴木", "高橋"} {
		if counts[name] < minCnt {
			minCnt = counts[name]
		}
		if counts[name] > maxCnt {
			maxCnt = counts[name]
		}
	}
	require.LessOrEqual(t, maxCnt-minCnt, 1)
}

func TestFallbackPlacesLeftoverStaff(t *testing.T) {
	positions := []*domain.Position{
		{ID: 1, Name: "日直", Priority: 1, Required: true},
		{ID: 2, Name: "外来", Priority: 2, Required: true, AllowMultiple: true},
	}
	staff := []*domain.StaffMember{
		newTestStaff(1, "佐藤", "日直", "外来"),
		newTestStaff(2, "鈴木", "日直", "外来"),
		newTestStaff(3, "高橋", "日直", "外来"),
	}

	e := newTestEngine(t, 1, positions, staff)
	plans, err := e.PlanMonth(context.Background(), 2026, time.January)
	require.NoError(t, err)

	// 每个工作日三名员工都有去处：一人日直，两人外来
	jan5 := planFor(t, plans, "2026-01-05")
	require.Len(t, jan5.Assignments[1], 1)
	require.Len(t, jan5.Assignments[2], 2)

	var all []string
	all = append(all, jan5.Assignments[1]...)
	all = append(all, jan5.Assignments[2]...)
	require.ElementsMatch(t, []string{"佐藤", "鈴木", "高橋"}, all)
}

func TestPlanMonthDeterministicWithFixedSeed(t *testing.T) {
	dayDutyID := int64(1)
	newPositions := func() []*domain.Position {
		return []*domain.Position{
			{ID: dayDutyID, Name: "日直", Priority: 1, Required: true, SameStaffWeekly: true},
			{ID: 2, Name: "日直明け", Priority: 2, Dependence: &dayDutyID},
			{ID: 3, Name: "検査", Priority: 3, StaffSeveral: true},
			{ID: 4, Name: "外来", Priority: 4, Required: true, AllowMultiple: true},
		}
	}
	newStaff := func() []*domain.StaffMember {
		return []*domain.StaffMember{
			newTestStaff(1, "佐藤", "日直", "検査", "外来"),
			newTestStaff(2, "鈴木", "日直", "検査", "外来"),
			newTestStaff(3, "高橋", "検査", "外来"),
			newTestStaff(4, "田中", "外来"),
		}
	}

	first := newTestEngine(t, 42, newPositions(), newStaff())
	firstPlans, err := first.PlanMonth(context.Background(), 2026, time.January)
	require.NoError(t, err)

	second := newTestEngine(t, 42, newPositions(), newStaff())
	secondPlans, err := second.PlanMonth(context.Background(), 2026, time.January)
	require.NoError(t, err)

	require.Equal(t, len(firstPlans), len(secondPlans))
	for i := range firstPlans {
		require.Equal(t, firstPlans[i].Assignments, secondPlans[i].Assignments, firstPlans[i].DateKey())
	}
}
