package optimizer

import "math/rand"

type moveKind int8

const (
	moveRelocate moveKind = iota // 将一台手术移动到另一个手术室/位置
	moveSwap                     // 交换两台手术的落位
	moveReorder                  // 交换同一手术室内相邻两台手术的先后顺序
)

// reasonNoop 表示移动不会改变方案，仅在搜索内部使用
const reasonNoop Reason = "无效移动"

type move struct {
	kind   moveKind
	a      int // 手术下标
	b      int // swap/reorder 的另一台手术
	toRoom int // relocate 的目标手术室
	toPos  int // relocate 的目标插入位置
}

// candidate 是一个完成了可行性检查和评估的邻域候选
type candidate struct {
	mv    move
	rooms []int   // 受影响的手术室
	seqs  [][]int // 这些手术室的新顺序
	slots [][]packSlot
	score float64
	sig   moveSignature // 本移动的签名，用于禁忌判断
	rev   moveSignature // 逆移动的签名，被选中后登记到禁忌表
}

// randomMove 按与各移动类型权重成比例的概率采样一个邻域移动。
// relocate 0.5 / swap 0.35 / reorder 0.15
func (o *Optimizer) randomMove(sol *solution, placed []int, rng *rand.Rand) (move, bool) {
	if len(placed) == 0 {
		return move{}, false
	}

	r := rng.Float64()
	switch {
	case r < 0.5 || len(placed) < 2:
		a := placed[rng.Intn(len(placed))]
		toRoom := rng.Intn(len(o.ins.rooms))
		toPos := rng.Intn(len(sol.seqs[toRoom]) + 1)
		return move{kind: moveRelocate, a: a, toRoom: toRoom, toPos: toPos}, true
	case r < 0.85:
		i := rng.Intn(len(placed))
		j := rng.Intn(len(placed) - 1)
		if j >= i {
			j++
		}
		return move{kind: moveSwap, a: placed[i], b: placed[j]}, true
	default:
		rooms := make([]int, 0, len(sol.seqs))
		for ri, seq := range sol.seqs {
			if len(seq) >= 2 {
				rooms = append(rooms, ri)
			}
		}
		if len(rooms) == 0 {
			return move{}, false
		}
		ri := rooms[rng.Intn(len(rooms))]
		pos := rng.Intn(len(sol.seqs[ri]) - 1)
		return move{kind: moveReorder, a: sol.seqs[ri][pos], b: sol.seqs[ri][pos+1]}, true
	}
}

func indexOf(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func removeValue(seq []int, v int) []int {
	out := make([]int, 0, len(seq)-1)
	for _, x := range seq {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

func insertAt(seq []int, pos, v int) []int {
	if pos < 0 {
		pos = 0
	}
	if pos > len(seq) {
		pos = len(seq)
	}
	out := make([]int, 0, len(seq)+1)
	out = append(out, seq[:pos]...)
	out = append(out, v)
	out = append(out, seq[pos:]...)
	return out
}

func equalSeq(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// buildCandidate 根据移动构造受影响手术室的新顺序和移动签名
func (o *Optimizer) buildCandidate(sol *solution, mv move) (*candidate, Reason) {
	ins := o.ins

	cand := &candidate{mv: mv}
	switch mv.kind {
	case moveRelocate:
		fromRoom := sol.placed[mv.a].room
		surgeryID := ins.surgeries[mv.a].id
		cand.sig = moveSignature{kind: moveRelocate, a: surgeryID, b: ins.rooms[fromRoom].id, c: ins.rooms[mv.toRoom].id}
		cand.rev = moveSignature{kind: moveRelocate, a: surgeryID, b: ins.rooms[mv.toRoom].id, c: ins.rooms[fromRoom].id}

		if mv.toRoom == fromRoom {
			seq := insertAt(removeValue(sol.seqs[fromRoom], mv.a), mv.toPos, mv.a)
			if equalSeq(seq, sol.seqs[fromRoom]) {
				return nil, reasonNoop
			}
			cand.rooms = []int{fromRoom}
			cand.seqs = [][]int{seq}
		} else {
			cand.rooms = []int{fromRoom, mv.toRoom}
			cand.seqs = [][]int{
				removeValue(sol.seqs[fromRoom], mv.a),
				insertAt(append([]int(nil), sol.seqs[mv.toRoom]...), mv.toPos, mv.a),
			}
		}
	case moveSwap, moveReorder:
		ra, rb := sol.placed[mv.a].room, sol.placed[mv.b].room
		idA, idB := ins.surgeries[mv.a].id, ins.surgeries[mv.b].id
		if idA > idB {
			idA, idB = idB, idA
		}
		cand.sig = moveSignature{kind: mv.kind, a: idA, b: idB}
		cand.rev = cand.sig

		pa, pb := indexOf(sol.seqs[ra], mv.a), indexOf(sol.seqs[rb], mv.b)
		if ra == rb {
			seq := append([]int(nil), sol.seqs[ra]...)
			seq[pa], seq[pb] = seq[pb], seq[pa]
			cand.rooms = []int{ra}
			cand.seqs = [][]int{seq}
		} else {
			seqA := append([]int(nil), sol.seqs[ra]...)
			seqB := append([]int(nil), sol.seqs[rb]...)
			seqA[pa] = mv.b
			seqB[pb] = mv.a
			cand.rooms = []int{ra, rb}
			cand.seqs = [][]int{seqA, seqB}
		}
	}

	return cand, ReasonOK
}

// tryMove 对一个移动做完整的可行性检查和增量评估。
// 只有受影响手术室会被重新推导时间，其余手术室的落位和聚合量原样保留
func (o *Optimizer) tryMove(sol *solution, cache *scoreCache, mv move) (*candidate, Reason) {
	cand, reason := o.buildCandidate(sol, mv)
	if reason != ReasonOK {
		return nil, reason
	}
	ins := o.ins

	// 重新推导受影响手术室的时间
	override := make(map[int]placement)
	cand.slots = make([][]packSlot, len(cand.rooms))
	for i, room := range cand.rooms {
		slots, packReason := ins.packRoom(room, cand.seqs[i])
		if packReason != ReasonOK {
			return nil, packReason
		}
		cand.slots[i] = slots
		for j, si := range cand.seqs[i] {
			override[si] = placement{room: room, start: slots[j].start, end: slots[j].end, setup: slots[j].setup}
		}
	}

	// 所有被重新推导时间的手术都要重新通过约束检查
	for si, p := range override {
		if reason := ins.checkPlacement(sol, override, si, p.room, p.start, p.end); reason != ReasonOK {
			return nil, reason
		}
	}

	// 增量评估：撤销受影响手术室的旧聚合量，登记新的
	trial := cache.clone()
	for _, room := range cand.rooms {
		for _, si := range sol.seqs[room] {
			trial.remove(ins, si, sol.placed[si])
		}
	}
	for i, room := range cand.rooms {
		for j, si := range cand.seqs[i] {
			trial.add(ins, si, placement{room: room, start: cand.slots[i][j].start, end: cand.slots[i][j].end, setup: cand.slots[i][j].setup})
		}
	}
	cand.score, _ = ins.score(trial, o.weights)

	return cand, ReasonOK
}

// applyCandidate 将选中的候选落实到当前方案，并同步更新聚合缓存
func (o *Optimizer) applyCandidate(sol *solution, cache *scoreCache, cand *candidate) {
	ins := o.ins

	for _, room := range cand.rooms {
		for _, si := range sol.seqs[room] {
			cache.remove(ins, si, sol.placed[si])
			sol.placed[si] = placement{room: -1}
		}
	}
	for i, room := range cand.rooms {
		sol.seqs[room] = cand.seqs[i]
		for j, si := range cand.seqs[i] {
			p := placement{room: room, start: cand.slots[i][j].start, end: cand.slots[i][j].end, setup: cand.slots[i][j].setup}
			sol.placed[si] = p
			cache.add(ins, si, p)
		}
	}
}
