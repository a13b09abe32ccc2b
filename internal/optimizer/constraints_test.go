package optimizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
)

func TestCheckPlacementSurgeonWindow(t *testing.T) {
	ins := newDemoInstance(t)
	sol := newSolution(ins)

	// 王志强 09:00 才上班,APPEN 不能在 08:00 开始
	reason := ins.checkPlacement(sol, nil, 2, 0, 8*60, 9*60)
	assert.Equal(t, ReasonSurgeonWindow, reason)
}

func TestCheckPlacementSurgeonConflict(t *testing.T) {
	ins := newDemoInstance(t)
	sol := newSolution(ins)

	// 两台 KNEE 的主刀都是李晓梅,时间重叠即冲突
	sol.seqs[1] = []int{1}
	sol.placed[1] = placement{room: 1, start: 495, end: 615, setup: 15}

	reason := ins.checkPlacement(sol, nil, 3, 0, 600, 720)
	assert.Equal(t, ReasonSurgeonConflict, reason)
}

func TestCheckPlacementEquipmentMissing(t *testing.T) {
	ins := newDemoInstance(t)
	sol := newSolution(ins)

	// 体外循环机固定在手术室 1,没有可移动的替代
	reason := ins.checkPlacement(sol, nil, 0, 1, 510, 750)
	assert.Equal(t, ReasonEquipmentMissing, reason)
}

func TestCheckPlacementEquipmentBusy(t *testing.T) {
	surgeries, rooms, surgeons, units, matrix := demoData()
	// 换一位主刀,避免医生冲突先于设备冲突被检出
	surgeries[3].SurgeonID = 3
	date, err := time.Parse("2006-01-02", "2025-03-10")
	require.NoError(t, err)
	ins, err := buildInstance(date, surgeries, rooms, surgeons, units, matrix)
	require.NoError(t, err)

	sol := newSolution(ins)
	sol.seqs[1] = []int{1}
	sol.placed[1] = placement{room: 1, start: 495, end: 615, setup: 15}

	// 唯一的移动 C 臂机已被另一间手术室占用
	reason := ins.checkPlacement(sol, nil, 3, 0, 600, 720)
	assert.Equal(t, ReasonEquipmentBusy, reason)
}

func TestCheckPlacementRoomEquipmentNotShared(t *testing.T) {
	ins := newDemoInstance(t)
	sol := newSolution(ins)

	// 手术室自带的设备随房间独占,不占用移动设备的额度
	reason := ins.checkPlacement(sol, nil, 0, 0, 510, 750)
	assert.Equal(t, ReasonOK, reason)
}

func TestCheckPlacementOverride(t *testing.T) {
	ins := newDemoInstance(t)
	sol := newSolution(ins)

	sol.seqs[1] = []int{1}
	sol.placed[1] = placement{room: 1, start: 495, end: 615, setup: 15}

	// override 中的新落位优先于方案中的旧落位:KNEE 让位之后不再冲突
	override := map[int]placement{
		1: {room: 1, start: 13 * 60, end: 15 * 60, setup: 15},
	}
	reason := ins.checkPlacement(sol, override, 3, 0, 600, 720)
	assert.Equal(t, ReasonOK, reason)
}

func TestBuildInstanceMobileUnits(t *testing.T) {
	surgeries, rooms, surgeons, units, matrix := demoData()
	units = append(units, &domain.EquipmentUnit{ID: 2, Name: "移动 C 臂机 2 号", EquipmentType: "C臂机"})

	date, err := time.Parse("2006-01-02", "2025-03-10")
	require.NoError(t, err)
	ins, err := buildInstance(date, surgeries, rooms, surgeons, units, matrix)
	require.NoError(t, err)

	assert.Equal(t, 2, ins.mobileUnits["C臂机"])
	assert.True(t, ins.rooms[0].equipment["体外循环机"])
	assert.False(t, ins.rooms[1].equipment["体外循环机"])
}
