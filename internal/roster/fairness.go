package roster

// counterSpace 是一组公平性计数器：岗位 ID -> 员工姓名 -> 已分配次数。
// 标准岗位和 staffSeveral 岗位各自使用独立的 counterSpace。
type counterSpace map[int64]map[string]int

func (cs counterSpace) value(posID int64, name string) int {
	return cs[posID][name]
}

func (cs counterSpace) increment(posID int64, name string) {
	if _, exists := cs[posID]; !exists {
		cs[posID] = make(map[string]int)
	}
	cs[posID][name]++
}

func (cs counterSpace) clone() counterSpace {
	cloned := make(counterSpace, len(cs))
	for posID, counters := range cs {
		cloned[posID] = make(map[string]int, len(counters))
		for name, cnt := range counters {
			cloned[posID][name] = cnt
		}
	}
	return cloned
}

// leastUsed 在候选人中选出指定计数器空间下计数最小的员工，
// 多人并列最小时等概率随机选择一人，选中后计数加一。
// 随机并列打破是有意为之：它在不偏向列表顺序的前提下摊平负载。
// 候选人列表本身的顺序是确定的，因此固定随机种子可以复现整次排班。
func (e *Engine) leastUsed(candidates []string, space counterSpace, posID int64) string {
	minCnt := space.value(posID, candidates[0])
	for _, name := range candidates[1:] {
		if cnt := space.value(posID, name); cnt < minCnt {
			minCnt = cnt
		}
	}

	ties := make([]string, 0, len(candidates))
	for _, name := range candidates {
		if space.value(posID, name) == minCnt {
			ties = append(ties, name)
		}
	}

	chosen := ties[e.rng.Intn(len(ties))]
	space.increment(posID, chosen)
	return chosen
}
