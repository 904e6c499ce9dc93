package utils

import (
	"fmt"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

// ValidateNoLeaveConflict 检查排班结果中是否有员工在休假日被分配了值班
func ValidateNoLeaveConflict(plans []*domain.DayPlan, staff []*domain.StaffMember) error {
	staffByName := make(map[string]*domain.StaffMember, len(staff))
	for _, st := range staff {
		staffByName[st.Name] = st
	}

	for _, plan := range plans {
		key := plan.DateKey()
		for posID, names := range plan.Assignments {
			for _, name := range names {
				if name == domain.Unfilled || name == "" {
					continue
				}
				st, exists := staffByName[name]
				if !exists {
					continue
				}
				if st.OnLeave(key) {
					return fmt.Errorf("员工 %s 在休假日 %s 被分配到了岗位 %d", name, key, posID)
				}
			}
		}
	}

	return nil
}

// ValidateNoDuplicateAssignment 检查两条约束：
// 不允许多人的岗位一天最多一个人；
// 同一员工一天内不能出现在两个不允许多人的岗位中。
func ValidateNoDuplicateAssignment(plans []*domain.DayPlan, positions []*domain.Position) error {
	positionByID := make(map[int64]*domain.Position, len(positions))
	for _, pos := range positions {
		positionByID[pos.ID] = pos
	}

	for _, plan := range plans {
		seen := make(map[string]bool)

		for posID, names := range plan.Assignments {
			pos, exists := positionByID[posID]
			if !exists {
				continue
			}

			realNames := make([]string, 0, len(names))
			for _, name := range names {
				if name != domain.Unfilled && name != "" {
					realNames = append(realNames, name)
				}
			}

			if !pos.AllowMultiple && len(realNames) > 1 {
				return fmt.Errorf("岗位 %s 在 %s 被分配了 %d 人", pos.Name, plan.DateKey(), len(realNames))
			}

			if pos.AllowMultiple {
				continue
			}
			for _, name := range realNames {
				if seen[name] {
					return fmt.Errorf("员工 %s 在 %s 出现在了两个不允许多人的岗位中", name, plan.DateKey())
				}
				seen[name] = true
			}
		}
	}

	return nil
}
