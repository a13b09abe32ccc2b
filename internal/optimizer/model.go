package optimizer

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
)

var (
	// ErrInvalidParameters 表示优化参数不合法，在搜索开始前就会被拒绝
	ErrInvalidParameters = errors.New("优化参数不合法")
	// ErrDataIntegrity 表示基础数据不完整（例如换台准备时间矩阵缺项），
	// 此时不能用默认值静默替代，否则不同批次优化的评分将失去可比性
	ErrDataIntegrity = errors.New("基础数据不完整")
)

const dayMinutes = 24 * 60

// window 表示一天内的一个可用时间段，单位为从零点开始计的分钟数
type window struct {
	start int
	end   int
}

type surgeryInfo struct {
	id        int64
	typ       string
	duration  int
	priority  domain.SurgeryPriority
	surgeon   int // surgeons 中的下标
	earliest  int
	maxWait   int // 0 表示不限制
	equipment []string
}

type roomInfo struct {
	id         int64
	windows    []window
	equipment  map[string]bool // 固定设备类型（含固定安装在此手术室的设备单元）
	hourlyCost float64
	capacity   int // 所有可用时间窗的总时长
}

type surgeonInfo struct {
	id             int64
	windows        []window
	preferredRooms map[int]bool
	regularMinutes int
}

// instance 是一次优化运行所需的全部只读数据。
// 所有实体都被映射为稠密下标，方便在搜索过程中用切片代替 map
type instance struct {
	date      time.Time
	surgeries []surgeryInfo
	rooms     []roomInfo
	surgeons  []surgeonInfo

	surgeonSurgeries [][]int          // 每个医生名下的手术下标
	demandByEquip    map[string][]int // 每种设备类型被哪些手术需要

	initialSetup map[string]int
	betweenSetup map[string]map[string]int

	mobileUnits map[string]int // 每种可移动设备的单元数量

	minHourlyCost float64
	capacityTotal int
	regularTotal  int
	horizon       int // 手术室时间窗的最大跨度，用于归一化等待时间
}

// parseClock 将 15:04:05 格式的时间解析为从零点开始计的分钟数
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func parseWindows(windows []domain.TimeWindow, owner string) ([]window, int, error) {
	parsed := make([]window, 0, len(windows))
	total := 0
	for _, w := range windows {
		start, err := parseClock(w.StartTime)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %s 的可用时间窗开始时间格式错误", ErrDataIntegrity, owner)
		}
		end, err := parseClock(w.EndTime)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %s 的可用时间窗结束时间格式错误", ErrDataIntegrity, owner)
		}
		if end <= start {
			return nil, 0, fmt.Errorf("%w: %s 的可用时间窗结束时间不能早于开始时间", ErrDataIntegrity, owner)
		}
		parsed = append(parsed, window{start: start, end: end})
		total += end - start
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].start < parsed[j].start })
	return parsed, total, nil
}

func buildInstance(
	date time.Time,
	surgeries []*domain.Surgery,
	rooms []*domain.OperatingRoom,
	surgeons []*domain.Surgeon,
	units []*domain.EquipmentUnit,
	matrix *domain.SetupTimeMatrix,
) (*instance, error) {
	ins := &instance{
		date:          date,
		initialSetup:  make(map[string]int),
		betweenSetup:  make(map[string]map[string]int),
		mobileUnits:   make(map[string]int),
		demandByEquip: make(map[string][]int),
	}

	// 手术室
	roomIndex := make(map[int64]int, len(rooms))
	minWindowStart, maxWindowEnd := dayMinutes, 0
	for i, room := range rooms {
		windows, capacity, err := parseWindows(room.Windows, fmt.Sprintf("手术室 %s", room.Name))
		if err != nil {
			return nil, err
		}
		equipment := make(map[string]bool, len(room.Equipment))
		for _, typ := range room.Equipment {
			equipment[typ] = true
		}
		ins.rooms = append(ins.rooms, roomInfo{
			id:         room.ID,
			windows:    windows,
			equipment:  equipment,
			hourlyCost: room.HourlyCost,
			capacity:   capacity,
		})
		roomIndex[room.ID] = i
		ins.capacityTotal += capacity
		if room.HourlyCost > 0 && (ins.minHourlyCost == 0 || room.HourlyCost < ins.minHourlyCost) {
			ins.minHourlyCost = room.HourlyCost
		}
		for _, w := range windows {
			if w.start < minWindowStart {
				minWindowStart = w.start
			}
			if w.end > maxWindowEnd {
				maxWindowEnd = w.end
			}
		}
	}
	ins.horizon = maxWindowEnd - minWindowStart
	if ins.horizon <= 0 {
		ins.horizon = dayMinutes
	}

	// 设备：固定安装的设备补充到所在手术室的能力集合中，可移动的设备按类型计数
	for _, unit := range units {
		if unit.RoomID == nil {
			ins.mobileUnits[unit.EquipmentType]++
			continue
		}
		ri, exists := roomIndex[*unit.RoomID]
		if !exists {
			return nil, fmt.Errorf("%w: 设备 %s 固定在未知的手术室 %d 中", ErrDataIntegrity, unit.Name, *unit.RoomID)
		}
		ins.rooms[ri].equipment[unit.EquipmentType] = true
	}

	// 医生
	surgeonIndex := make(map[int64]int, len(surgeons))
	for i, surgeon := range surgeons {
		windows, _, err := parseWindows(surgeon.Windows, fmt.Sprintf("医生 %s", surgeon.Name))
		if err != nil {
			return nil, err
		}
		preferred := make(map[int]bool, len(surgeon.PreferredRoomIDs))
		for _, roomID := range surgeon.PreferredRoomIDs {
			if ri, exists := roomIndex[roomID]; exists {
				preferred[ri] = true
			}
		}
		regular := int(surgeon.RegularMinutes)
		if regular <= 0 {
			regular = 8 * 60
		}
		ins.surgeons = append(ins.surgeons, surgeonInfo{
			id:             surgeon.ID,
			windows:        windows,
			preferredRooms: preferred,
			regularMinutes: regular,
		})
		surgeonIndex[surgeon.ID] = i
		ins.regularTotal += regular
	}
	ins.surgeonSurgeries = make([][]int, len(surgeons))

	// 手术需求
	for i, surgery := range surgeries {
		gi, exists := surgeonIndex[surgery.SurgeonID]
		if !exists {
			return nil, fmt.Errorf("%w: 手术 %d 指定的主刀医生 %d 不存在", ErrDataIntegrity, surgery.ID, surgery.SurgeonID)
		}
		if surgery.DurationMinutes <= 0 {
			return nil, fmt.Errorf("%w: 手术 %d 的预计时长必须大于 0", ErrDataIntegrity, surgery.ID)
		}
		earliest, err := parseClock(surgery.EarliestStart)
		if err != nil {
			return nil, fmt.Errorf("%w: 手术 %d 的最早开始时间格式错误", ErrDataIntegrity, surgery.ID)
		}
		ins.surgeries = append(ins.surgeries, surgeryInfo{
			id:        surgery.ID,
			typ:       surgery.SurgeryType,
			duration:  int(surgery.DurationMinutes),
			priority:  surgery.Priority,
			surgeon:   gi,
			earliest:  earliest,
			maxWait:   int(surgery.MaxWaitMinutes),
			equipment: surgery.RequiredEquipment,
		})
		ins.surgeonSurgeries[gi] = append(ins.surgeonSurgeries[gi], i)
		for _, typ := range surgery.RequiredEquipment {
			ins.demandByEquip[typ] = append(ins.demandByEquip[typ], i)
		}
	}

	// 换台准备时间矩阵必须覆盖需求中出现的所有类型组合，缺项直接报错
	if err := ins.loadSetupMatrix(matrix); err != nil {
		return nil, err
	}

	return ins, nil
}

func (ins *instance) loadSetupMatrix(matrix *domain.SetupTimeMatrix) error {
	if matrix == nil {
		return fmt.Errorf("%w: 缺少换台准备时间矩阵", ErrDataIntegrity)
	}

	types := make([]string, 0)
	seen := make(map[string]bool)
	for _, su := range ins.surgeries {
		if !seen[su.typ] {
			seen[su.typ] = true
			types = append(types, su.typ)
		}
	}

	for _, to := range types {
		minutes, exists := matrix.Initial[to]
		if !exists {
			return fmt.Errorf("%w: 矩阵缺少手术类型 %s 的初始准备时间", ErrDataIntegrity, to)
		}
		if minutes < 0 {
			return fmt.Errorf("%w: 手术类型 %s 的初始准备时间不能为负", ErrDataIntegrity, to)
		}
		ins.initialSetup[to] = int(minutes)
	}

	for _, from := range types {
		ins.betweenSetup[from] = make(map[string]int, len(types))
		for _, to := range types {
			row, exists := matrix.Between[from]
			if !exists {
				return fmt.Errorf("%w: 矩阵缺少 %s→%s 的换台准备时间", ErrDataIntegrity, from, to)
			}
			minutes, exists := row[to]
			if !exists {
				return fmt.Errorf("%w: 矩阵缺少 %s→%s 的换台准备时间", ErrDataIntegrity, from, to)
			}
			if minutes < 0 {
				return fmt.Errorf("%w: %s→%s 的换台准备时间不能为负", ErrDataIntegrity, from, to)
			}
			ins.betweenSetup[from][to] = int(minutes)
		}
	}

	return nil
}

// clockTime 将分钟数还原为排班日期当天的具体时刻
func (ins *instance) clockTime(minutes int) time.Time {
	year, month, day := ins.date.Date()
	base := time.Date(year, month, day, 0, 0, 0, 0, ins.date.Location())
	return base.Add(time.Duration(minutes) * time.Minute)
}

func priorityRank(p domain.SurgeryPriority) int {
	switch p {
	case domain.PriorityEmergency:
		return 0
	case domain.PriorityHigh:
		return 1
	case domain.PriorityMedium:
		return 2
	default:
		return 3
	}
}
