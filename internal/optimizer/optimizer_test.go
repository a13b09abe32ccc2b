package optimizer

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
)

// demoMatrix 是测试用的切换时间矩阵,覆盖 CABG/KNEE/APPEN 三种手术类型的全部组合
func demoMatrix() *domain.SetupTimeMatrix {
	m := domain.NewSetupTimeMatrix()
	m.Set(nil, "CABG", 30)
	m.Set(nil, "KNEE", 15)
	m.Set(nil, "APPEN", 10)
	for from, row := range map[string]map[string]int32{
		"CABG":  {"CABG": 40, "KNEE": 45, "APPEN": 30},
		"KNEE":  {"CABG": 35, "KNEE": 20, "APPEN": 15},
		"APPEN": {"CABG": 30, "KNEE": 15, "APPEN": 10},
	} {
		for to, minutes := range row {
			m.Set(lo.ToPtr(from), to, minutes)
		}
	}
	return m
}

// demoData 构造一套双手术室的测试数据:
// CABG 需要固定在 1 号手术室的体外循环机,两台 KNEE 都需要唯一一台移动 C 臂机
func demoData() ([]*domain.Surgery, []*domain.OperatingRoom, []*domain.Surgeon, []*domain.EquipmentUnit, *domain.SetupTimeMatrix) {
	rooms := []*domain.OperatingRoom{
		{
			ID:         1,
			Name:       "手术室 1",
			Windows:    []domain.TimeWindow{{StartTime: "08:00:00", EndTime: "18:00:00"}},
			Equipment:  []string{"体外循环机"},
			HourlyCost: 1200,
		},
		{
			ID:         2,
			Name:       "手术室 2",
			Windows:    []domain.TimeWindow{{StartTime: "08:00:00", EndTime: "16:00:00"}},
			HourlyCost: 800,
		},
	}

	surgeons := []*domain.Surgeon{
		{
			ID:               1,
			Name:             "陈建华",
			Windows:          []domain.TimeWindow{{StartTime: "08:00:00", EndTime: "18:00:00"}},
			PreferredRoomIDs: []int64{1},
			RegularMinutes:   480,
		},
		{
			ID:               2,
			Name:             "李晓梅",
			Windows:          []domain.TimeWindow{{StartTime: "08:00:00", EndTime: "16:00:00"}},
			PreferredRoomIDs: []int64{2},
			RegularMinutes:   480,
		},
		{
			ID:             3,
			Name:           "王志强",
			Windows:        []domain.TimeWindow{{StartTime: "09:00:00", EndTime: "18:00:00"}},
			RegularMinutes: 480,
		},
	}

	units := []*domain.EquipmentUnit{
		{ID: 1, Name: "移动 C 臂机 1 号", EquipmentType: "C臂机"},
	}

	surgeries := []*domain.Surgery{
		{
			ID:                1,
			SurgeryType:       "CABG",
			DurationMinutes:   240,
			Priority:          domain.PriorityHigh,
			SurgeonID:         1,
			RequiredEquipment: []string{"体外循环机"},
			EarliestStart:     "08:00:00",
		},
		{
			ID:                2,
			SurgeryType:       "KNEE",
			DurationMinutes:   120,
			Priority:          domain.PriorityMedium,
			SurgeonID:         2,
			RequiredEquipment: []string{"C臂机"},
			EarliestStart:     "08:00:00",
		},
		{
			ID:              3,
			SurgeryType:     "APPEN",
			DurationMinutes: 60,
			Priority:        domain.PriorityEmergency,
			SurgeonID:       3,
			EarliestStart:   "09:00:00",
			MaxWaitMinutes:  120,
		},
		{
			ID:                4,
			SurgeryType:       "KNEE",
			DurationMinutes:   120,
			Priority:          domain.PriorityLow,
			SurgeonID:         2,
			RequiredEquipment: []string{"C臂机"},
			EarliestStart:     "10:00:00",
		},
	}

	return surgeries, rooms, surgeons, units, demoMatrix()
}

func testParams() Parameters {
	params := DefaultParameters()
	params.ScheduleDate = "2025-03-10"
	params.RandomSeed = 1
	return params
}

func newDemoOptimizer(t *testing.T, params Parameters) *Optimizer {
	t.Helper()
	surgeries, rooms, surgeons, units, matrix := demoData()
	o, err := New(params, surgeries, rooms, surgeons, units, matrix)
	require.NoError(t, err)
	return o
}

// assertFeasible 校验一组排程结果满足全部硬约束:
// 手术时长一致,同一手术室内不重叠且预留了足够的切换时间,
// 每台手术都落在所属手术室的时间窗内,同一医生的手术互不重叠
func assertFeasible(
	t *testing.T,
	result *Result,
	surgeries []*domain.Surgery,
	rooms []*domain.OperatingRoom,
	matrix *domain.SetupTimeMatrix,
) {
	t.Helper()

	surgeryByID := make(map[int64]*domain.Surgery, len(surgeries))
	for _, surgery := range surgeries {
		surgeryByID[surgery.ID] = surgery
	}
	roomByID := make(map[int64]*domain.OperatingRoom, len(rooms))
	for _, room := range rooms {
		roomByID[room.ID] = room
	}

	byRoom := make(map[int64][]Assignment)
	bySurgeon := make(map[int64][]Assignment)
	for _, a := range result.Assignments {
		surgery := surgeryByID[a.SurgeryID]
		require.NotNil(t, surgery, "排程结果引用了不存在的手术 %d", a.SurgeryID)
		assert.Equal(t, surgery.SurgeonID, a.SurgeonID)
		assert.Equal(t, time.Duration(surgery.DurationMinutes)*time.Minute, a.EndTime.Sub(a.StartTime),
			"手术 %d 的排程时长与登记的时长不一致", a.SurgeryID)

		room := roomByID[a.RoomID]
		require.NotNil(t, room, "排程结果引用了不存在的手术室 %d", a.RoomID)
		inWindow := false
		for _, w := range room.Windows {
			windowStart, err := time.Parse("15:04:05", w.StartTime)
			require.NoError(t, err)
			windowEnd, err := time.Parse("15:04:05", w.EndTime)
			require.NoError(t, err)
			startMinutes := a.StartTime.Hour()*60 + a.StartTime.Minute()
			endMinutes := a.EndTime.Hour()*60 + a.EndTime.Minute()
			if startMinutes >= windowStart.Hour()*60+windowStart.Minute() &&
				endMinutes <= windowEnd.Hour()*60+windowEnd.Minute() {
				inWindow = true
			}
		}
		assert.True(t, inWindow, "手术 %d 超出了手术室 %d 的可用时间窗", a.SurgeryID, a.RoomID)

		byRoom[a.RoomID] = append(byRoom[a.RoomID], a)
		bySurgeon[a.SurgeonID] = append(bySurgeon[a.SurgeonID], a)
	}

	for roomID, items := range byRoom {
		sort.Slice(items, func(i, j int) bool { return items[i].StartTime.Before(items[j].StartTime) })
		for i := 1; i < len(items); i++ {
			prev, cur := items[i-1], items[i]
			setup, exists := matrix.Between[surgeryByID[prev.SurgeryID].SurgeryType][surgeryByID[cur.SurgeryID].SurgeryType]
			require.True(t, exists)
			assert.GreaterOrEqual(t, cur.StartTime.Sub(prev.EndTime), time.Duration(setup)*time.Minute,
				"手术室 %d 中手术 %d 和 %d 之间的切换时间不足", roomID, prev.SurgeryID, cur.SurgeryID)
		}
	}

	for surgeonID, items := range bySurgeon {
		sort.Slice(items, func(i, j int) bool { return items[i].StartTime.Before(items[j].StartTime) })
		for i := 1; i < len(items); i++ {
			prev, cur := items[i-1], items[i]
			assert.False(t, cur.StartTime.Before(prev.EndTime),
				"医生 %d 的手术 %d 和 %d 时间重叠", surgeonID, prev.SurgeryID, cur.SurgeryID)
		}
	}
}

func TestNewRejectsInvalidParameters(t *testing.T) {
	surgeries, rooms, surgeons, units, matrix := demoData()

	cases := []struct {
		name   string
		mutate func(p *Parameters)
	}{
		{"负的最大迭代次数", func(p *Parameters) { p.MaxIterations = -1 }},
		{"禁忌期限为零", func(p *Parameters) { p.TabuTenure = 0 }},
		{"负的无改进迭代上限", func(p *Parameters) { p.MaxNoImprovement = -1 }},
		{"时间上限为零", func(p *Parameters) { p.TimeLimitSeconds = 0 }},
		{"负的权重", func(p *Parameters) { p.Weights = map[string]float64{MetricSetupTimes: -0.5} }},
		{"日期格式错误", func(p *Parameters) { p.ScheduleDate = "2025/03/10" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := testParams()
			tc.mutate(&params)
			_, err := New(params, surgeries, rooms, surgeons, units, matrix)
			require.ErrorIs(t, err, ErrInvalidParameters)
		})
	}
}

func TestNewRejectsIncompleteData(t *testing.T) {
	t.Run("切换时间矩阵缺项", func(t *testing.T) {
		surgeries, rooms, surgeons, units, matrix := demoData()
		delete(matrix.Between["CABG"], "KNEE")
		_, err := New(testParams(), surgeries, rooms, surgeons, units, matrix)
		require.ErrorIs(t, err, ErrDataIntegrity)
	})

	t.Run("缺少初始准备时间", func(t *testing.T) {
		surgeries, rooms, surgeons, units, matrix := demoData()
		delete(matrix.Initial, "APPEN")
		_, err := New(testParams(), surgeries, rooms, surgeons, units, matrix)
		require.ErrorIs(t, err, ErrDataIntegrity)
	})

	t.Run("主刀医生不存在", func(t *testing.T) {
		surgeries, rooms, surgeons, units, matrix := demoData()
		surgeries[0].SurgeonID = 999
		_, err := New(testParams(), surgeries, rooms, surgeons, units, matrix)
		require.ErrorIs(t, err, ErrDataIntegrity)
	})

	t.Run("手术时长不合法", func(t *testing.T) {
		surgeries, rooms, surgeons, units, matrix := demoData()
		surgeries[1].DurationMinutes = 0
		_, err := New(testParams(), surgeries, rooms, surgeons, units, matrix)
		require.ErrorIs(t, err, ErrDataIntegrity)
	})

	t.Run("时间窗次序颠倒", func(t *testing.T) {
		surgeries, rooms, surgeons, units, matrix := demoData()
		rooms[0].Windows = []domain.TimeWindow{{StartTime: "18:00:00", EndTime: "08:00:00"}}
		_, err := New(testParams(), surgeries, rooms, surgeons, units, matrix)
		require.ErrorIs(t, err, ErrDataIntegrity)
	})
}

func TestRunProducesFeasibleSchedule(t *testing.T) {
	surgeries, rooms, surgeons, units, matrix := demoData()
	o, err := New(testParams(), surgeries, rooms, surgeons, units, matrix)
	require.NoError(t, err)

	result, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.UnplacedSurgeryIDs)
	assert.Len(t, result.Assignments, len(surgeries))
	assertFeasible(t, result, surgeries, rooms, matrix)

	assert.Greater(t, result.Score, 0.0)
	assert.GreaterOrEqual(t, result.ExecutionTimeSeconds, 0.0)
	require.Len(t, result.Metrics, 8)
	for name, value := range result.Metrics {
		assert.GreaterOrEqual(t, value, 0.0, "指标 %s 低于下界", name)
		assert.LessOrEqual(t, value, 1.0, "指标 %s 超出上界", name)
	}
}

// 零次迭代直接返回贪心初始解,搜索只能在其基础上改进
func TestRunNeverWorseThanGreedy(t *testing.T) {
	greedyParams := testParams()
	greedyParams.MaxIterations = 0
	greedy, err := newDemoOptimizer(t, greedyParams).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, greedy.IterationCount)
	assert.Equal(t, TerminationIterationLimit, greedy.Termination)

	tabu, err := newDemoOptimizer(t, testParams()).Run(context.Background())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, tabu.Score, greedy.Score)
}

func TestRunDeterministicWithSeed(t *testing.T) {
	first, err := newDemoOptimizer(t, testParams()).Run(context.Background())
	require.NoError(t, err)
	second, err := newDemoOptimizer(t, testParams()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.IterationCount, second.IterationCount)
	assert.Equal(t, first.Assignments, second.Assignments)
	assert.Equal(t, first.UnplacedSurgeryIDs, second.UnplacedSurgeryIDs)
}

// 取消属于正常结束:返回当前已知的最好解,而不是错误
func TestRunCancelledReturnsBestKnown(t *testing.T) {
	surgeries, rooms, _, _, matrix := demoData()
	o := newDemoOptimizer(t, testParams())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := o.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, TerminationCancelled, result.Termination)
	assert.Empty(t, result.UnplacedSurgeryIDs)
	assertFeasible(t, result, surgeries, rooms, matrix)
}

func TestRunTimeLimit(t *testing.T) {
	params := testParams()
	params.MaxIterations = 100_000_000
	params.MaxNoImprovement = 0
	params.TimeLimitSeconds = 1

	result, err := newDemoOptimizer(t, params).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TerminationTimeLimit, result.Termination)
	assert.GreaterOrEqual(t, result.ExecutionTimeSeconds, 1.0)
}

// 医生完全不在可用时间内时,其手术进入未安排列表,其余手术照常排程
func TestRunUnavailableSurgeonLeavesSurgeryUnplaced(t *testing.T) {
	surgeries, rooms, surgeons, units, matrix := demoData()
	surgeons[2].Windows = []domain.TimeWindow{{StartTime: "06:00:00", EndTime: "07:30:00"}}

	o, err := New(testParams(), surgeries, rooms, surgeons, units, matrix)
	require.NoError(t, err)

	result, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int64{3}, result.UnplacedSurgeryIDs)
	assert.Len(t, result.Assignments, len(surgeries)-1)
	assertFeasible(t, result, surgeries, rooms, matrix)
}

func TestRunReportsProgress(t *testing.T) {
	o := newDemoOptimizer(t, testParams())

	var snapshots []Progress
	o.OnProgress("run-1", func(p Progress) {
		snapshots = append(snapshots, p)
	})

	result, err := o.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, snapshots)

	lastIteration := 0
	for _, p := range snapshots {
		assert.Equal(t, "run-1", p.OptimizationID)
		assert.Equal(t, domain.OptimizationStatusRunning, p.Status)
		assert.Greater(t, p.CurrentIteration, lastIteration)
		assert.InDelta(t, float64(p.CurrentIteration)/float64(p.TotalIterations)*100, p.ProgressPercentage, 1e-9)
		assert.GreaterOrEqual(t, p.BestScore, p.CurrentScore)
		lastIteration = p.CurrentIteration
	}
	assert.LessOrEqual(t, lastIteration, result.IterationCount)
}

// 一旦请求给出了权重表,未命名的指标权重即为 0
func TestRunWeightsOverride(t *testing.T) {
	params := testParams()
	params.Weights = map[string]float64{MetricRoomUtilization: 1}

	result, err := newDemoOptimizer(t, params).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Metrics, 8)
	assert.InDelta(t, result.Metrics[MetricRoomUtilization], result.Score, 1e-9)
}
