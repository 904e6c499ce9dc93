package roster

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

func newRotationStaff(id int64, name string, dept string, experience int32, positions ...string) *domain.StaffMember {
	st := newTestStaff(id, name, positions...)
	st.Departments = []string{dept}
	st.Experience = experience
	return st
}

func newTestRotationEngine(t *testing.T, seed int64, params *RotationParameters, positions []*domain.Position, staff []*domain.StaffMember) *RotationEngine {
	t.Helper()
	e, err := NewRotation(params, testCalendar(), rand.New(rand.NewSource(seed)), positions, staff)
	require.NoError(t, err)
	return e
}

func TestNewRotationRejectsNormalPosition(t *testing.T) {
	_, err := NewRotation(&RotationParameters{}, testCalendar(), rand.New(rand.NewSource(1)), []*domain.Position{
		{ID: 1, Name: "日直", Kind: domain.PositionKindNormal},
	}, nil)
	require.Error(t, err)
}

func TestRunRejectsReversedRange(t *testing.T) {
	e := newTestRotationEngine(t, 1, &RotationParameters{MaxRetries: 3}, nil, nil)

	_, err := e.Run(context.Background(), 2026, time.March, 2026, time.January)
	require.Error(t, err)
}

func TestRotationSpacingBetweenAssignments(t *testing.T) {
	positions := []*domain.Position{
		{ID: 1, Name: "当直", Kind: domain.PositionKindRotation, Priority: 1, Required: true},
	}
	staff := []*domain.StaffMember{
		newRotationStaff(1, "佐藤", "内科", 10, "当直"),
		newRotationStaff(2, "鈴木", "内科", 10, "当直"),
		newRotationStaff(3, "高橋", "内科", 10, "当直"),
		newRotationStaff(4, "田中", "内科", 10, "当直"),
	}
	params := &RotationParameters{MaxRetries: 3, SpacingDays: 2}

	e := newTestRotationEngine(t, 1, params, positions, staff)
	result, err := e.Run(context.Background(), 2026, time.January, 2026, time.January)
	require.NoError(t, err)
	require.Len(t, result.Months, 1)

	// 四名员工、间隔两天的情况下每天都应该有人当直
	for _, plan := range result.Months[0].Plans {
		require.Len(t, plan.Assignments[1], 1, plan.DateKey())
		require.NotEqual(t, domain.Unfilled, plan.Assignments[1][0], plan.DateKey())
	}

	// 同一员工相邻两次当直之间的自然日间隔必须大于 SpacingDays
	lastByStaff := make(map[int64]time.Time)
	for _, ra := range result.Assignments {
		date, err := time.Parse(domain.DateLayout, ra.Date)
		require.NoError(t, err)
		if last, exists := lastByStaff[ra.StaffID]; exists {
			require.Greater(t, daysBetween(last, date), params.SpacingDays,
				"员工 %d 在 %s 的当直与上一次间隔过近", ra.StaffID, ra.Date)
		}
		lastByStaff[ra.StaffID] = date
	}
}

func TestRotationAppendsSpecialAssignments(t *testing.T) {
	positions := []*domain.Position{
		{ID: 1, Name: "当直", Kind: domain.PositionKindRotation, Priority: 1, Required: true},
	}
	staff := []*domain.StaffMember{
		newRotationStaff(1, "佐藤", "内科", 10, "当直"),
		newRotationStaff(2, "鈴木", "内科", 10, "当直"),
	}
	staffByID := map[int64]*domain.StaffMember{1: staff[0], 2: staff[1]}

	e := newTestRotationEngine(t, 1, &RotationParameters{MaxRetries: 3}, positions, staff)
	result, err := e.Run(context.Background(), 2026, time.January, 2026, time.February)
	require.NoError(t, err)
	require.Len(t, result.Months, 2)

	// 每条分配记录都要同步出现在员工的特殊分配日期中，
	// 这样后续的日度排班才能感知轮值结果
	require.NotEmpty(t, result.Assignments)
	for _, ra := range result.Assignments {
		require.Contains(t, staffByID[ra.StaffID].SpecialAssignments[ra.PositionID], ra.Date)
	}
}

func TestOnCallOnlyOnNonWorkingDays(t *testing.T) {
	positions := []*domain.Position{
		{ID: 1, Name: "待機", Kind: domain.PositionKindOnCall, Priority: 1, Required: true},
	}
	staff := []*domain.StaffMember{
		newRotationStaff(1, "佐藤", "内科", 10, "待機"),
		newRotationStaff(2, "鈴木", "内科", 10, "待機"),
	}

	e := newTestRotationEngine(t, 1, &RotationParameters{MaxRetries: 3}, positions, staff)
	result, err := e.Run(context.Background(), 2026, time.January, 2026, time.January)
	require.NoError(t, err)

	for _, plan := range result.Months[0].Plans {
		if plan.Holiday {
			require.Len(t, plan.Assignments[1], 1, plan.DateKey())
		} else {
			require.Empty(t, plan.Assignments[1], plan.DateKey())
		}
	}
}

func TestFragileDeptSkippedBeforeDayOff(t *testing.T) {
	positions := []*domain.Position{
		{ID: 1, Name: "当直", Kind: domain.PositionKindRotation, Priority: 1, Required: true},
	}
	staff := []*domain.StaffMember{
		newRotationStaff(1, "佐藤", "内科", 10, "当直"),
		newRotationStaff(2, "鈴木", "外科", 10, "当直"),
	}
	params := &RotationParameters{MaxRetries: 3, FragileDept: "内科"}

	e := newTestRotationEngine(t, 1, params, positions, staff)
	result, err := e.Run(context.Background(), 2026, time.January, 2026, time.January)
	require.NoError(t, err)

	// 次日是非工作日时不能安排脆弱科室的员工
	ctx := context.Background()
	cal := testCalendar()
	for _, plan := range result.Months[0].Plans {
		if !cal.IsNonWorkingDay(ctx, plan.Date.AddDate(0, 0, 1)) {
			continue
		}
		require.Equal(t, []string{"鈴木"}, plan.Assignments[1], plan.DateKey())
	}
}

func TestDutyDepartmentsExcludedFromCandidates(t *testing.T) {
	positions := []*domain.Position{
		{ID: 1, Name: "当直", Kind: domain.PositionKindRotation, Priority: 1, Required: true},
	}
	// 佐藤只挂在轮值职务自身的科室标签下，不应该被选中
	staff := []*domain.StaffMember{
		newRotationStaff(1, "佐藤", "当直医", 10, "当直"),
		newRotationStaff(2, "鈴木", "外科", 10, "当直"),
	}
	params := &RotationParameters{MaxRetries: 3, DutyDepartments: []string{"当直医"}}

	e := newTestRotationEngine(t, 1, params, positions, staff)
	result, err := e.Run(context.Background(), 2026, time.January, 2026, time.January)
	require.NoError(t, err)

	for _, plan := range result.Months[0].Plans {
		require.Equal(t, []string{"鈴木"}, plan.Assignments[1], plan.DateKey())
	}
}

func TestOnCallDepartmentNarrowing(t *testing.T) {
	positions := []*domain.Position{
		{ID: 1, Name: "待機", Kind: domain.PositionKindOnCall, Priority: 1, Required: true, Departments: []string{"外科"}},
	}
	staff := []*domain.StaffMember{
		newRotationStaff(1, "佐藤", "内科", 10, "待機"),
		newRotationStaff(2, "鈴木", "外科", 10, "待機"),
	}

	e := newTestRotationEngine(t, 1, &RotationParameters{MaxRetries: 3}, positions, staff)
	result, err := e.Run(context.Background(), 2026, time.January, 2026, time.January)
	require.NoError(t, err)

	// 待命岗位声明了科室列表时，只能从这些科室中选人
	for _, plan := range result.Months[0].Plans {
		if !plan.Holiday {
			continue
		}
		require.Equal(t, []string{"鈴木"}, plan.Assignments[1], plan.DateKey())
	}
}

func TestExperienceRetryKeepsLastAttempt(t *testing.T) {
	positions := []*domain.Position{
		{ID: 1, Name: "当直", Kind: domain.PositionKindRotation, Priority: 1, Required: true},
	}
	// 唯一的候选人经验值不达标，重试耗尽后仍然接受最后一轮的结果
	staff := []*domain.StaffMember{
		newRotationStaff(1, "新人", "内科", 1, "当直"),
	}
	params := &RotationParameters{MinExperience: 5, MaxRetries: 3, SpacingDays: 0}

	e := newTestRotationEngine(t, 1, params, positions, staff)
	result, err := e.Run(context.Background(), 2026, time.January, 2026, time.January)
	require.NoError(t, err)

	for _, plan := range result.Months[0].Plans {
		require.Equal(t, []string{"新人"}, plan.Assignments[1], plan.DateKey())
	}
}
