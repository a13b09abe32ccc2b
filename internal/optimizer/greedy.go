package optimizer

import "sort"

// buildInitial 构造贪心初始解：按优先级、最早开始时间的顺序，
// 把每台手术追加到能给出最早可行开始时间的手术室末尾。
// 无法安排的手术进入 unplaced 列表，而不是让整次优化失败
func (o *Optimizer) buildInitial() (*solution, *scoreCache) {
	ins := o.ins
	sol := newSolution(ins)

	order := make([]int, len(ins.surgeries))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := &ins.surgeries[order[i]], &ins.surgeries[order[j]]
		if ra, rb := priorityRank(a.priority), priorityRank(b.priority); ra != rb {
			return ra < rb
		}
		if a.earliest != b.earliest {
			return a.earliest < b.earliest
		}
		return a.id < b.id
	})

	cache := newScoreCache(ins)

	for _, si := range order {
		bestRoom := -1
		var bestSlot packSlot

		for room := range ins.rooms {
			seq := append(append([]int(nil), sol.seqs[room]...), si)
			slots, reason := ins.packRoom(room, seq)
			if reason != ReasonOK {
				continue
			}
			slot := slots[len(slots)-1]

			// 追加到末尾不会改变同室其他手术的时间，只需检查新手术自身
			override := map[int]placement{
				si: {room: room, start: slot.start, end: slot.end, setup: slot.setup},
			}
			if reason := ins.checkPlacement(sol, override, si, room, slot.start, slot.end); reason != ReasonOK {
				continue
			}

			if bestRoom < 0 || slot.start < bestSlot.start {
				bestRoom = room
				bestSlot = slot
			}
		}

		if bestRoom < 0 {
			sol.unplaced = append(sol.unplaced, si)
			continue
		}

		p := placement{room: bestRoom, start: bestSlot.start, end: bestSlot.end, setup: bestSlot.setup}
		sol.seqs[bestRoom] = append(sol.seqs[bestRoom], si)
		sol.placed[si] = p
		cache.add(ins, si, p)
	}

	return sol, cache
}
