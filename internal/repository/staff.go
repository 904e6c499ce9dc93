package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

func (r *Repository) CreateStaffMember(st *domain.StaffMember) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO staff_members (name, account, experience, available_positions, departments)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, version
	`

	args := []any{st.Name, st.Account, st.Experience, joinList(st.AvailablePositions), joinList(st.Departments)}
	dst := []any{&st.ID, &st.CreatedAt, &st.Version}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	for kind, dates := range st.Leaves {
		for _, date := range dates {
			query := `
				INSERT INTO staff_leaves (staff_id, kind, leave_date)
				VALUES ($1, $2, $3)
			`
			if _, err := tx.ExecContext(ctx, query, st.ID, kind, date); err != nil {
				return err
			}
		}
	}

	for positionID, dates := range st.SpecialAssignments {
		for _, date := range dates {
			query := `
				INSERT INTO staff_special_assignments (staff_id, position_id, assignment_date)
				VALUES ($1, $2, $3)
			`
			if _, err := tx.ExecContext(ctx, query, st.ID, positionID, date); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// GetAllStaffMembers 读取全部员工，并聚合每人的休假日期和特殊分配日期
func (r *Repository) GetAllStaffMembers() ([]*domain.StaffMember, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT id, name, account, experience, available_positions, departments, created_at, version
		FROM staff_members
		ORDER BY id
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var staff []*domain.StaffMember
	staffByID := make(map[int64]*domain.StaffMember)

	for rows.Next() {
		st := &domain.StaffMember{
			Leaves:             make(map[domain.LeaveKind][]string),
			SpecialAssignments: make(map[int64][]string),
		}
		var availablePositions, departments string

		dst := []any{&st.ID, &st.Name, &st.Account, &st.Experience, &availablePositions, &departments, &st.CreatedAt, &st.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		st.AvailablePositions = splitList(availablePositions)
		st.Departments = splitList(departments)
		staff = append(staff, st)
		staffByID[st.ID] = st
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	// 聚合休假日期
	leaveRows, err := r.dbpool.QueryContext(ctx, `
		SELECT staff_id, kind, to_char(leave_date, 'YYYY-MM-DD')
		FROM staff_leaves
		ORDER BY staff_id, leave_date
	`)
	if err != nil {
		return nil, err
	}
	defer leaveRows.Close()

	for leaveRows.Next() {
		var staffID int64
		var kind domain.LeaveKind
		var date string
		if err := leaveRows.Scan(&staffID, &kind, &date); err != nil {
			return nil, err
		}
		if st, exists := staffByID[staffID]; exists {
			st.Leaves[kind] = append(st.Leaves[kind], date)
		}
	}
	if err := leaveRows.Err(); err != nil {
		return nil, err
	}

	// 聚合特殊分配日期
	specialRows, err := r.dbpool.QueryContext(ctx, `
		SELECT staff_id, position_id, to_char(assignment_date, 'YYYY-MM-DD')
		FROM staff_special_assignments
		ORDER BY staff_id, assignment_date
	`)
	if err != nil {
		return nil, err
	}
	defer specialRows.Close()

	for specialRows.Next() {
		var staffID, positionID int64
		var date string
		if err := specialRows.Scan(&staffID, &positionID, &date); err != nil {
			return nil, err
		}
		if st, exists := staffByID[staffID]; exists {
			st.SpecialAssignments[positionID] = append(st.SpecialAssignments[positionID], date)
		}
	}
	if err := specialRows.Err(); err != nil {
		return nil, err
	}

	return staff, nil
}

// AppendSpecialAssignment 以追加的方式持久化一条轮值引擎产生的特殊分配。
// 重复追加同一条记录是无害的。
func (r *Repository) AppendSpecialAssignment(assignment domain.RotationAssignment) error {
	query := `
		INSERT INTO staff_special_assignments (staff_id, position_id, assignment_date)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, assignment.StaffID, assignment.PositionID, assignment.Date); err != nil {
		return err
	}

	return nil
}
