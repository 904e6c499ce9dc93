package repository

import (
	"context"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

// 列表字段（科室标签、可承担岗位）以逗号分隔的文本存储，
// 读写时用 joinList / splitList 转换

func joinList(items []string) string {
	return strings.Join(items, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func (r *Repository) CreatePosition(pos *domain.Position) error {
	query := `
		INSERT INTO positions (
			name, kind, priority, required, same_staff_weekly, allow_multiple,
			staff_several, dependence, holiday_today, holiday_tomorrow,
			departments, output_location
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{
		pos.Name, pos.Kind, pos.Priority, pos.Required, pos.SameStaffWeekly, pos.AllowMultiple,
		pos.StaffSeveral, pos.Dependence, pos.HolidayToday, pos.HolidayTomorrow,
		joinList(pos.Departments), pos.OutputLocation,
	}
	dst := []any{&pos.ID, &pos.CreatedAt, &pos.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetAllPositions() ([]*domain.Position, error) {
	return r.getPositions(`
		SELECT id, name, kind, priority, required, same_staff_weekly, allow_multiple,
		       staff_several, dependence, holiday_today, holiday_tomorrow,
		       departments, output_location, created_at, version
		FROM positions
		ORDER BY priority, id
	`)
}

func (r *Repository) GetPositionsByKind(kind domain.PositionKind) ([]*domain.Position, error) {
	return r.getPositions(`
		SELECT id, name, kind, priority, required, same_staff_weekly, allow_multiple,
		       staff_several, dependence, holiday_today, holiday_tomorrow,
		       departments, output_location, created_at, version
		FROM positions
		WHERE kind = $1
		ORDER BY priority, id
	`, kind)
}

// GetRotationPositions 返回轮值引擎需要的全部岗位（夜间轮值和节假日待命）
func (r *Repository) GetRotationPositions() ([]*domain.Position, error) {
	return r.getPositions(`
		SELECT id, name, kind, priority, required, same_staff_weekly, allow_multiple,
		       staff_several, dependence, holiday_today, holiday_tomorrow,
		       departments, output_location, created_at, version
		FROM positions
		WHERE kind IN ($1, $2)
		ORDER BY priority, id
	`, domain.PositionKindRotation, domain.PositionKindOnCall)
}

func (r *Repository) getPositions(query string, args ...any) ([]*domain.Position, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []*domain.Position
	for rows.Next() {
		pos := &domain.Position{}
		var departments string

		dst := []any{
			&pos.ID, &pos.Name, &pos.Kind, &pos.Priority, &pos.Required, &pos.SameStaffWeekly,
			&pos.AllowMultiple, &pos.StaffSeveral, &pos.Dependence, &pos.HolidayToday,
			&pos.HolidayTomorrow, &departments, &pos.OutputLocation, &pos.CreatedAt, &pos.Version,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		pos.Departments = splitList(departments)
		positions = append(positions, pos)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return positions, nil
}
