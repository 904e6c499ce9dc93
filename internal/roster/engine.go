package roster

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/calendar"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
)

// 日度排班引擎的参数
type Parameters struct {
	MaxDayRetries int // 单日分配的最大重试次数
}

// Engine 是日度排班引擎，持有一次排班调用内的全部可变状态：
// 公平性计数器、周固定表、额外休假表和已生成的每日计划。
// 引擎内部没有并发，日期必须严格按时间顺序处理，
// 因为依赖岗位和周固定岗位都会读取之前日期写入的状态。
type Engine struct {
	params    *Parameters
	cal       *calendar.Calendar
	rng       *rand.Rand
	positions []*domain.Position // 按优先级升序排列
	staff     []*domain.StaffMember
	staffMap  map[string]*domain.StaffMember

	standardCnt counterSpace // 标准岗位的公平性计数器
	severalCnt  counterSpace // staffSeveral 岗位使用独立的计数器空间
	sticky      stickyMap
	// extraLeave 记录由 holidayToday / holidayTomorrow 标志产生的额外休假，
	// 键为日期，值为当天额外休假的员工姓名集合
	extraLeave map[string]map[string]bool
	plans      map[string]*domain.DayPlan
}

func New(params *Parameters, cal *calendar.Calendar, rng *rand.Rand, positions []*domain.Position, staff []*domain.StaffMember) (*Engine, error) {
	e := &Engine{
		params:      params,
		cal:         cal,
		rng:         rng,
		positions:   make([]*domain.Position, len(positions)),
		staff:       staff,
		staffMap:    make(map[string]*domain.StaffMember, len(staff)),
		standardCnt: make(counterSpace),
		severalCnt:  make(counterSpace),
		sticky:      make(stickyMap),
		extraLeave:  make(map[string]map[string]bool),
		plans:       make(map[string]*domain.DayPlan),
	}

	copy(e.positions, positions)
	sort.SliceStable(e.positions, func(i, j int) bool {
		return e.positions[i].Priority < e.positions[j].Priority
	})

	positionByID := make(map[int64]*domain.Position, len(positions))
	for _, pos := range e.positions {
		positionByID[pos.ID] = pos
	}

	// 依赖关系只允许单跳：被依赖的岗位本身不能再依赖其他岗位
	for _, pos := range e.positions {
		if pos.Dependence == nil {
			continue
		}
		target, exists := positionByID[*pos.Dependence]
		if !exists {
			return nil, fmt.Errorf("岗位 %s 依赖的岗位 %d 不存在", pos.Name, *pos.Dependence)
		}
		if target.Dependence != nil {
			return nil, fmt.Errorf("岗位 %s 依赖的岗位 %s 不是独立岗位", pos.Name, target.Name)
		}
	}

	for _, st := range staff {
		if _, exists := e.staffMap[st.Name]; exists {
			return nil, fmt.Errorf("员工姓名 %s 重复", st.Name)
		}
		e.staffMap[st.Name] = st
	}

	return e, nil
}
