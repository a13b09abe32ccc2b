package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
)

func TestBuildCandidateDetectsNoop(t *testing.T) {
	o := newDemoOptimizer(t, testParams())
	sol, _ := o.buildInitial()

	placed := sol.placedSurgeries()
	require.NotEmpty(t, placed)
	si := placed[len(placed)-1]
	room := sol.placed[si].room
	pos := indexOf(sol.seqs[room], si)

	// 把手术搬回原来的位置不构成移动
	_, reason := o.buildCandidate(sol, move{kind: moveRelocate, a: si, toRoom: room, toPos: pos})
	assert.Equal(t, reasonNoop, reason)
}

// swap 的签名按手术 ID 排序,与移动中两台手术的先后顺序无关
func TestBuildCandidateSwapSignatureNormalized(t *testing.T) {
	o := newDemoOptimizer(t, testParams())
	sol, _ := o.buildInitial()

	placed := sol.placedSurgeries()
	require.GreaterOrEqual(t, len(placed), 2)
	a, b := placed[0], placed[1]

	forward, reason := o.buildCandidate(sol, move{kind: moveSwap, a: a, b: b})
	require.Equal(t, ReasonOK, reason)
	backward, reason := o.buildCandidate(sol, move{kind: moveSwap, a: b, b: a})
	require.Equal(t, ReasonOK, reason)

	assert.Equal(t, forward.sig, backward.sig)
	assert.Equal(t, forward.sig, forward.rev)
}

// relocate 的逆移动签名是原路搬回,被选中后用它登记禁忌
func TestBuildCandidateRelocateReverseSignature(t *testing.T) {
	o := newDemoOptimizer(t, testParams())
	sol, _ := o.buildInitial()

	placed := sol.placedSurgeries()
	require.NotEmpty(t, placed)
	si := placed[0]
	fromRoom := sol.placed[si].room
	toRoom := (fromRoom + 1) % len(o.ins.rooms)

	cand, reason := o.buildCandidate(sol, move{kind: moveRelocate, a: si, toRoom: toRoom})
	require.Equal(t, ReasonOK, reason)

	surgeryID := o.ins.surgeries[si].id
	assert.Equal(t, moveSignature{kind: moveRelocate, a: surgeryID, b: o.ins.rooms[fromRoom].id, c: o.ins.rooms[toRoom].id}, cand.sig)
	assert.Equal(t, moveSignature{kind: moveRelocate, a: surgeryID, b: o.ins.rooms[toRoom].id, c: o.ins.rooms[fromRoom].id}, cand.rev)
}

// 移动落实之后,增量维护的聚合缓存必须与从头评估一致
func TestApplyCandidateKeepsCacheConsistent(t *testing.T) {
	o := newDemoOptimizer(t, testParams())
	sol, cache := o.buildInitial()

	// 同一手术室内把最后一台手术搬到队首,找一个可行的手术室
	var cand *candidate
	for room, seq := range sol.seqs {
		if len(seq) < 2 {
			continue
		}
		mv := move{kind: moveRelocate, a: seq[len(seq)-1], toRoom: room, toPos: 0}
		if c, reason := o.tryMove(sol, cache, mv); reason == ReasonOK {
			cand = c
			break
		}
	}
	require.NotNil(t, cand, "初始解中应当存在可行的室内重排移动")

	o.applyCandidate(sol, cache, cand)

	incremental, _ := o.ins.score(cache, o.weights)
	full, _ := o.ins.score(o.ins.evaluate(sol), o.weights)
	assert.InDelta(t, full, incremental, 1e-9)
	assert.InDelta(t, cand.score, incremental, 1e-9)

	// 方案内部保持一致:顺序表与落位表互相对应
	for room, seq := range sol.seqs {
		for _, si := range seq {
			assert.Equal(t, room, sol.placed[si].room)
		}
	}
}

// 不可行的移动不会污染当前方案和缓存
func TestTryMoveRejectsInfeasible(t *testing.T) {
	o := newDemoOptimizer(t, testParams())
	sol, cache := o.buildInitial()

	before, _ := o.ins.score(cache, o.weights)

	// CABG 依赖固定在手术室 1 的体外循环机,搬去手术室 2 不可行
	cabg := -1
	for si := range o.ins.surgeries {
		if o.ins.surgeries[si].id == 1 {
			cabg = si
		}
	}
	require.GreaterOrEqual(t, cabg, 0)
	require.Equal(t, 0, sol.placed[cabg].room)

	_, reason := o.tryMove(sol, cache, move{kind: moveRelocate, a: cabg, toRoom: 1, toPos: 0})
	assert.NotEqual(t, ReasonOK, reason)

	after, _ := o.ins.score(cache, o.weights)
	assert.Equal(t, before, after)
}

func TestPriorityRank(t *testing.T) {
	assert.Less(t, priorityRank(domain.PriorityEmergency), priorityRank(domain.PriorityHigh))
	assert.Less(t, priorityRank(domain.PriorityHigh), priorityRank(domain.PriorityMedium))
	assert.Less(t, priorityRank(domain.PriorityMedium), priorityRank(domain.PriorityLow))
}
