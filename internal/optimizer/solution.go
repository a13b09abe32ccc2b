package optimizer

// placement 记录一台手术在当前方案中的落位。room 为 -1 表示未安排
type placement struct {
	room  int
	start int
	end   int
	setup int // 与同室前一台手术之间所需的准备时间（第一台为初始准备时间）
}

// solution 是一次优化运行内部的可变解。
// 每个手术室内的开始时间完全由手术顺序推导得出，因此解只需要维护顺序
type solution struct {
	seqs     [][]int     // 每个手术室内按先后顺序排列的手术下标
	placed   []placement // 以手术下标为下标
	unplaced []int
}

func newSolution(ins *instance) *solution {
	sol := &solution{
		seqs:   make([][]int, len(ins.rooms)),
		placed: make([]placement, len(ins.surgeries)),
	}
	for i := range sol.placed {
		sol.placed[i].room = -1
	}
	return sol
}

func (s *solution) clone() *solution {
	c := &solution{
		seqs:     make([][]int, len(s.seqs)),
		placed:   make([]placement, len(s.placed)),
		unplaced: make([]int, len(s.unplaced)),
	}
	for i, seq := range s.seqs {
		c.seqs[i] = make([]int, len(seq))
		copy(c.seqs[i], seq)
	}
	copy(c.placed, s.placed)
	copy(c.unplaced, s.unplaced)
	return c
}

// placedSurgeries 按手术室顺序枚举所有已安排的手术，保证遍历顺序确定
func (s *solution) placedSurgeries() []int {
	placed := make([]int, 0, len(s.placed))
	for _, seq := range s.seqs {
		placed = append(placed, seq...)
	}
	return placed
}

type packSlot struct {
	start int
	end   int
	setup int
}

// packRoom 依次推导手术室内一个手术序列的开始时间。
// 规则：同一时间窗内相邻两台手术之间的间隔不得小于换台准备时间，
// 每个时间窗的第一台手术之前要留出落在时间窗内的准备时间，
// 当天第一台使用按手术类型查找的初始准备时间
func (ins *instance) packRoom(room int, seq []int) ([]packSlot, Reason) {
	slots := make([]packSlot, len(seq))
	windows := ins.rooms[room].windows

	prevEnd := -1
	prevWin := -1
	prevType := ""
	for i, si := range seq {
		su := &ins.surgeries[si]

		var setup int
		if prevEnd < 0 {
			setup = ins.initialSetup[su.typ]
		} else {
			setup = ins.betweenSetup[prevType][su.typ]
		}

		lower := su.earliest
		if prevEnd >= 0 && prevEnd+setup > lower {
			lower = prevEnd + setup
		}

		start, win := fitIntoWindows(windows, lower, su.duration, setup, prevWin)
		if win < 0 {
			return nil, ReasonRoomWindow
		}
		if su.maxWait > 0 && start-su.earliest > su.maxWait {
			return nil, ReasonPatientWait
		}

		slots[i] = packSlot{start: start, end: start + su.duration, setup: setup}
		prevEnd = slots[i].end
		prevWin = win
		prevType = su.typ
	}

	return slots, ReasonOK
}

// fitIntoWindows 在时间窗序列中寻找不早于 lower 的最早可行开始时间。
// 进入新的时间窗时，准备时间也必须完整落在时间窗内
func fitIntoWindows(windows []window, lower, duration, setup, prevWin int) (int, int) {
	for wi, w := range windows {
		cand := lower
		if wi == prevWin {
			if cand < w.start {
				cand = w.start
			}
		} else if cand < w.start+setup {
			cand = w.start + setup
		}
		if cand+duration <= w.end {
			return cand, wi
		}
	}
	return 0, -1
}
