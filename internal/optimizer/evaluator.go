package optimizer

import (
	"math"

	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
)

// 八项子指标在对外接口中的名称
const (
	MetricRoomUtilization   = "room_utilization"
	MetricSetupTimes        = "setup_times"
	MetricSurgeonPreference = "surgeon_preference"
	MetricWorkloadBalance   = "workload_balance"
	MetricPatientWait       = "patient_wait"
	MetricEmergencyPriority = "emergency_priority"
	MetricOperationalCost   = "operational_cost"
	MetricStaffOvertime     = "staff_overtime"
)

// Weights 是各子指标的权重，未出现在请求中的指标权重为 0（即该项被禁用）
type Weights struct {
	RoomUtilization   float64
	SetupTimes        float64
	SurgeonPreference float64
	WorkloadBalance   float64
	PatientWait       float64
	EmergencyPriority float64
	OperationalCost   float64
	StaffOvertime     float64
}

// DefaultWeights 返回文档约定的默认权重
func DefaultWeights() Weights {
	return Weights{
		RoomUtilization:   1.0,
		SetupTimes:        0.8,
		SurgeonPreference: 0.7,
		WorkloadBalance:   0.6,
		PatientWait:       0.5,
		EmergencyPriority: 1.0,
		OperationalCost:   0.4,
		StaffOvertime:     0.3,
	}
}

// weightsFromMap 将请求中的权重表转换为 Weights。
// 传入 nil 表示调用方没有给出权重，使用默认值；
// 一旦给出了权重表，表中未命名的指标权重即为 0
func weightsFromMap(m map[string]float64) Weights {
	if m == nil {
		return DefaultWeights()
	}
	return Weights{
		RoomUtilization:   m[MetricRoomUtilization],
		SetupTimes:        m[MetricSetupTimes],
		SurgeonPreference: m[MetricSurgeonPreference],
		WorkloadBalance:   m[MetricWorkloadBalance],
		PatientWait:       m[MetricPatientWait],
		EmergencyPriority: m[MetricEmergencyPriority],
		OperationalCost:   m[MetricOperationalCost],
		StaffOvertime:     m[MetricStaffOvertime],
	}
}

// Breakdown 是一次评估得到的八项子指标，均已归一化到 [0, 1]，越大越好
type Breakdown struct {
	RoomUtilization   float64 `json:"room_utilization"`
	SetupTimes        float64 `json:"setup_times"`
	SurgeonPreference float64 `json:"surgeon_preference"`
	WorkloadBalance   float64 `json:"workload_balance"`
	PatientWait       float64 `json:"patient_wait"`
	EmergencyPriority float64 `json:"emergency_priority"`
	OperationalCost   float64 `json:"operational_cost"`
	StaffOvertime     float64 `json:"staff_overtime"`
}

func (b Breakdown) Map() map[string]float64 {
	return map[string]float64{
		MetricRoomUtilization:   b.RoomUtilization,
		MetricSetupTimes:        b.SetupTimes,
		MetricSurgeonPreference: b.SurgeonPreference,
		MetricWorkloadBalance:   b.WorkloadBalance,
		MetricPatientWait:       b.PatientWait,
		MetricEmergencyPriority: b.EmergencyPriority,
		MetricOperationalCost:   b.OperationalCost,
		MetricStaffOvertime:     b.StaffOvertime,
	}
}

// scoreCache 维护评分所需的聚合量。
// 邻域搜索时只需撤销/登记受影响手术室中的手术，不必重新扫描整个方案，
// 这是增量评估的关键：复制缓存是 O(医生数)，登记是 O(受影响手术室内的手术数)
type scoreCache struct {
	surgeonBusy []int

	busyTotal  int
	setupTotal int
	busySumSq  int64
	overtSum   int

	waitSum    int
	emergWait  int
	emergCount int

	prefEligible int
	prefOK       int

	placedCount int
	costSum     float64
	idealCost   float64
}

func newScoreCache(ins *instance) *scoreCache {
	return &scoreCache{
		surgeonBusy: make([]int, len(ins.surgeons)),
	}
}

func (c *scoreCache) clone() *scoreCache {
	clone := *c
	clone.surgeonBusy = make([]int, len(c.surgeonBusy))
	copy(clone.surgeonBusy, c.surgeonBusy)
	return &clone
}

func (c *scoreCache) add(ins *instance, si int, p placement) {
	su := &ins.surgeries[si]
	surgeon := &ins.surgeons[su.surgeon]

	c.busyTotal += su.duration
	c.setupTotal += p.setup

	oldBusy := c.surgeonBusy[su.surgeon]
	newBusy := oldBusy + su.duration
	c.surgeonBusy[su.surgeon] = newBusy
	c.busySumSq += int64(newBusy)*int64(newBusy) - int64(oldBusy)*int64(oldBusy)
	c.overtSum += overtime(newBusy, surgeon.regularMinutes) - overtime(oldBusy, surgeon.regularMinutes)

	wait := p.start - su.earliest
	if wait < 0 {
		wait = 0
	}
	c.waitSum += wait
	if su.priority == domain.PriorityEmergency {
		c.emergWait += wait
		c.emergCount++
	}

	if len(surgeon.preferredRooms) > 0 {
		c.prefEligible++
		if surgeon.preferredRooms[p.room] {
			c.prefOK++
		}
	}

	c.placedCount++
	c.costSum += float64(su.duration+p.setup) * ins.rooms[p.room].hourlyCost / 60
	c.idealCost += float64(su.duration) * ins.minHourlyCost / 60
}

func (c *scoreCache) remove(ins *instance, si int, p placement) {
	su := &ins.surgeries[si]
	surgeon := &ins.surgeons[su.surgeon]

	c.busyTotal -= su.duration
	c.setupTotal -= p.setup

	oldBusy := c.surgeonBusy[su.surgeon]
	newBusy := oldBusy - su.duration
	c.surgeonBusy[su.surgeon] = newBusy
	c.busySumSq += int64(newBusy)*int64(newBusy) - int64(oldBusy)*int64(oldBusy)
	c.overtSum += overtime(newBusy, surgeon.regularMinutes) - overtime(oldBusy, surgeon.regularMinutes)

	wait := p.start - su.earliest
	if wait < 0 {
		wait = 0
	}
	c.waitSum -= wait
	if su.priority == domain.PriorityEmergency {
		c.emergWait -= wait
		c.emergCount--
	}

	if len(surgeon.preferredRooms) > 0 {
		c.prefEligible--
		if surgeon.preferredRooms[p.room] {
			c.prefOK--
		}
	}

	c.placedCount--
	c.costSum -= float64(su.duration+p.setup) * ins.rooms[p.room].hourlyCost / 60
	c.idealCost -= float64(su.duration) * ins.minHourlyCost / 60
}

func overtime(busy, regular int) int {
	if busy > regular {
		return busy - regular
	}
	return 0
}

// evaluate 从头构建一个方案的聚合缓存，只在初始解和最终结果上使用
func (ins *instance) evaluate(sol *solution) *scoreCache {
	cache := newScoreCache(ins)
	for _, seq := range sol.seqs {
		for _, si := range seq {
			cache.add(ins, si, sol.placed[si])
		}
	}
	return cache
}

// score 由聚合缓存计算总评分和八项子指标，每项都是方案的纯函数
func (ins *instance) score(c *scoreCache, w Weights) (float64, Breakdown) {
	var b Breakdown

	if ins.capacityTotal > 0 {
		b.RoomUtilization = float64(c.busyTotal) / float64(ins.capacityTotal)
	}

	if occupied := c.busyTotal + c.setupTotal; occupied > 0 {
		b.SetupTimes = 1 - float64(c.setupTotal)/float64(occupied)
	} else {
		b.SetupTimes = 1
	}

	if c.prefEligible > 0 {
		b.SurgeonPreference = float64(c.prefOK) / float64(c.prefEligible)
	} else {
		b.SurgeonPreference = 1
	}

	b.WorkloadBalance = 1
	if n := len(c.surgeonBusy); n > 0 && c.busyTotal > 0 {
		mean := float64(c.busyTotal) / float64(n)
		variance := float64(c.busySumSq)/float64(n) - mean*mean
		if variance < 0 {
			variance = 0
		}
		cv := math.Sqrt(variance) / mean
		b.WorkloadBalance = 1 - math.Min(1, cv)
	}

	b.PatientWait = 1
	if c.placedCount > 0 {
		avgWait := float64(c.waitSum) / float64(c.placedCount)
		b.PatientWait = 1 - math.Min(1, avgWait/float64(ins.horizon))
	}

	b.EmergencyPriority = 1
	if c.emergCount > 0 {
		avgWait := float64(c.emergWait) / float64(c.emergCount)
		b.EmergencyPriority = 1 - math.Min(1, avgWait/float64(ins.horizon))
	}

	b.OperationalCost = 1
	if c.costSum > 0 {
		// 存在零成本手术室时 costSum 可能低于理想成本，封顶在 1
		b.OperationalCost = math.Min(1, c.idealCost/c.costSum)
	}

	b.StaffOvertime = 1
	if ins.regularTotal > 0 {
		b.StaffOvertime = 1 - math.Min(1, float64(c.overtSum)/float64(ins.regularTotal))
	}

	score := w.RoomUtilization*b.RoomUtilization +
		w.SetupTimes*b.SetupTimes +
		w.SurgeonPreference*b.SurgeonPreference +
		w.WorkloadBalance*b.WorkloadBalance +
		w.PatientWait*b.PatientWait +
		w.EmergencyPriority*b.EmergencyPriority +
		w.OperationalCost*b.OperationalCost +
		w.StaffOvertime*b.StaffOvertime

	return score, b
}
