package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightsFromMap(t *testing.T) {
	t.Run("未给出权重时使用默认值", func(t *testing.T) {
		assert.Equal(t, DefaultWeights(), weightsFromMap(nil))
	})

	t.Run("给出权重表后未命名的指标权重为零", func(t *testing.T) {
		w := weightsFromMap(map[string]float64{
			MetricRoomUtilization: 1,
			MetricSetupTimes:      0.8,
		})
		assert.Equal(t, 1.0, w.RoomUtilization)
		assert.Equal(t, 0.8, w.SetupTimes)
		assert.Zero(t, w.SurgeonPreference)
		assert.Zero(t, w.EmergencyPriority)
	})
}

func TestScoreBreakdownNormalized(t *testing.T) {
	o := newDemoOptimizer(t, testParams())
	sol, cache := o.buildInitial()
	require.NotEmpty(t, sol.placedSurgeries())

	score, b := o.ins.score(cache, DefaultWeights())
	assert.Greater(t, score, 0.0)

	for name, value := range b.Map() {
		assert.GreaterOrEqual(t, value, 0.0, "指标 %s 低于下界", name)
		assert.LessOrEqual(t, value, 1.0, "指标 %s 超出上界", name)
	}

	// 总评分是各子指标的加权和
	w := DefaultWeights()
	expected := w.RoomUtilization*b.RoomUtilization +
		w.SetupTimes*b.SetupTimes +
		w.SurgeonPreference*b.SurgeonPreference +
		w.WorkloadBalance*b.WorkloadBalance +
		w.PatientWait*b.PatientWait +
		w.EmergencyPriority*b.EmergencyPriority +
		w.OperationalCost*b.OperationalCost +
		w.StaffOvertime*b.StaffOvertime
	assert.InDelta(t, expected, score, 1e-9)
}

// 增量维护的聚合缓存必须与从头评估得到的结果一致
func TestScoreCacheIncrementalConsistency(t *testing.T) {
	o := newDemoOptimizer(t, testParams())
	sol, cache := o.buildInitial()

	fullScore, fullBreakdown := o.ins.score(o.ins.evaluate(sol), DefaultWeights())
	cachedScore, cachedBreakdown := o.ins.score(cache, DefaultWeights())
	assert.InDelta(t, fullScore, cachedScore, 1e-9)
	assert.Equal(t, fullBreakdown, cachedBreakdown)

	// 撤销再登记同一台手术,评分不变
	placed := sol.placedSurgeries()
	require.NotEmpty(t, placed)
	si := placed[0]

	clone := cache.clone()
	clone.remove(o.ins, si, sol.placed[si])
	clone.add(o.ins, si, sol.placed[si])

	redoneScore, _ := o.ins.score(clone, DefaultWeights())
	assert.InDelta(t, cachedScore, redoneScore, 1e-9)
}

func TestScoreCacheCloneIsIndependent(t *testing.T) {
	o := newDemoOptimizer(t, testParams())
	sol, cache := o.buildInitial()

	placed := sol.placedSurgeries()
	require.NotEmpty(t, placed)

	before, _ := o.ins.score(cache, DefaultWeights())
	clone := cache.clone()
	clone.remove(o.ins, placed[0], sol.placed[placed[0]])

	after, _ := o.ins.score(cache, DefaultWeights())
	assert.Equal(t, before, after)
}

// 理想成本按最低正时薪计算,零成本手术室会让实际成本低于理想成本,
// 成本指标必须封顶在 1,否则不同方案的评分失去可比性
func TestScoreOperationalCostZeroCostRoom(t *testing.T) {
	surgeries, rooms, surgeons, units, matrix := demoData()
	rooms[1].HourlyCost = 0

	o, err := New(testParams(), surgeries, rooms, surgeons, units, matrix)
	require.NoError(t, err)

	sol, cache := o.buildInitial()
	require.NotEmpty(t, sol.placedSurgeries())
	require.Less(t, cache.costSum, cache.idealCost)

	_, b := o.ins.score(cache, DefaultWeights())
	assert.Equal(t, 1.0, b.OperationalCost)
	for name, value := range b.Map() {
		assert.GreaterOrEqual(t, value, 0.0, "指标 %s 低于下界", name)
		assert.LessOrEqual(t, value, 1.0, "指标 %s 超出上界", name)
	}
}

func TestScoreEmptySolution(t *testing.T) {
	o := newDemoOptimizer(t, testParams())
	sol := newSolution(o.ins)

	score, b := o.ins.score(o.ins.evaluate(sol), DefaultWeights())

	// 空方案没有换台、等待和加班,利用率为零
	assert.Zero(t, b.RoomUtilization)
	assert.Equal(t, 1.0, b.SetupTimes)
	assert.Equal(t, 1.0, b.PatientWait)
	assert.Equal(t, 1.0, b.StaffOvertime)
	assert.Greater(t, score, 0.0)
}
