package seed

import (
	"log/slog"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/repository"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/utils"
)

func int64Ptr(v int64) *int64 { return &v }

// Positions 返回演示用的岗位集合。
// 依赖岗位的 dependence 在插入后按名称回填，这里先用占位符。
func demoPositions() []*domain.Position {
	return []*domain.Position{
		{
			Name:            "日直",
			Kind:            domain.PositionKindNormal,
			Priority:        1,
			Required:        true,
			SameStaffWeekly: true,
			OutputLocation:  "B1",
		},
		{
			Name:           "外来",
			Kind:           domain.PositionKindNormal,
			Priority:       2,
			Required:       true,
			AllowMultiple:  true,
			OutputLocation: "C1",
		},
		{
			Name:           "検査",
			Kind:           domain.PositionKindNormal,
			Priority:       3,
			StaffSeveral:   true,
			OutputLocation: "D1",
		},
		{
			// 前日の日直担当が翌営業日に引き継ぐ，由依赖解析器处理
			Name:           "日直明け",
			Kind:           domain.PositionKindNormal,
			Priority:       4,
			OutputLocation: "E1",
		},
		{
			Name:            "当直",
			Kind:            domain.PositionKindRotation,
			Priority:        1,
			Required:        true,
			HolidayToday:    false,
			HolidayTomorrow: true, // 当直明けは翌日休み
			OutputLocation:  "F1",
		},
		{
			Name:           "待機",
			Kind:           domain.PositionKindOnCall,
			Priority:       2,
			Departments:    []string{"内科", "外科"},
			OutputLocation: "G1",
		},
	}
}

// SeedDemoPositions 插入演示岗位，并把「日直明け」设置为依赖「日直」
func SeedDemoPositions(repo *repository.Repository) {
	positions := demoPositions()

	idByName := make(map[string]int64)
	var pending []*domain.Position
	for _, pos := range positions {
		if pos.Name == "日直明け" {
			// 依赖的目标还没有 ID，先暂存
			pending = append(pending, pos)
			continue
		}
		if err := repo.CreatePosition(pos); err != nil {
			slog.Error("无法插入岗位", "name", pos.Name, "error", err)
			continue
		}
		idByName[pos.Name] = pos.ID
	}

	for _, pos := range pending {
		if id, exists := idByName["日直"]; exists {
			pos.Dependence = int64Ptr(id)
		}
		if err := repo.CreatePosition(pos); err != nil {
			slog.Error("无法插入岗位", "name", pos.Name, "error", err)
		}
	}

	slog.Info("插入演示岗位完成", "count", len(positions))
}

// SeedRandomStaff 插入 n 名随机员工
func SeedRandomStaff(repo *repository.Repository, n int, departments []string) {
	positions, err := repo.GetAllPositions()
	if err != nil {
		slog.Error("无法获取岗位", "error", err)
		return
	}
	if len(positions) == 0 {
		slog.Error("岗位为空，请先插入岗位")
		return
	}

	names := make([]string, 0, len(positions))
	for _, pos := range positions {
		names = append(names, pos.Name)
	}

	cnt := 0
	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		st := utils.GenerateRandomStaffMember(names, departments)
		if seen[st.Name] {
			// 引擎要求员工姓名唯一，重名的直接跳过
			continue
		}
		seen[st.Name] = true

		if err := repo.CreateStaffMember(st); err != nil {
			slog.Error("无法插入员工", "name", st.Name, "error", err)
			continue
		}
		cnt++
	}

	slog.Info("插入随机员工完成", "count", cnt)
}
