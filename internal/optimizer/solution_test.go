package optimizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDemoInstance(t *testing.T) *instance {
	t.Helper()
	surgeries, rooms, surgeons, units, matrix := demoData()
	date, err := time.Parse("2006-01-02", "2025-03-10")
	require.NoError(t, err)
	ins, err := buildInstance(date, surgeries, rooms, surgeons, units, matrix)
	require.NoError(t, err)
	return ins
}

// 手术下标与 demoData 中的顺序一致:0=CABG 1=KNEE 2=APPEN(急诊) 3=KNEE
func TestPackRoomDerivesSetupChain(t *testing.T) {
	ins := newDemoInstance(t)

	// 手术室 1 开放 08:00-18:00。CABG 是当天第一台,开始时间要在初始准备之后;
	// KNEE 紧随其后,与 CABG 之间必须留出 45 分钟的换台时间
	slots, reason := ins.packRoom(0, []int{0, 1})
	require.Equal(t, ReasonOK, reason)
	require.Len(t, slots, 2)

	assert.Equal(t, packSlot{start: 8*60 + 30, end: 12*60 + 30, setup: 30}, slots[0])
	assert.Equal(t, packSlot{start: 13*60 + 15, end: 15*60 + 15, setup: 45}, slots[1])
}

func TestPackRoomRespectsEarliestStart(t *testing.T) {
	ins := newDemoInstance(t)

	// APPEN 最早 09:00 开始,虽然初始准备 10 分钟早已完成,也不能提前
	slots, reason := ins.packRoom(0, []int{2})
	require.Equal(t, ReasonOK, reason)
	assert.Equal(t, packSlot{start: 9 * 60, end: 10 * 60, setup: 10}, slots[0])
}

func TestPackRoomWindowOverflow(t *testing.T) {
	ins := newDemoInstance(t)

	// 手术室 2 只开放到 16:00,CABG+KNEE+KNEE 连同换台时间放不下
	_, reason := ins.packRoom(1, []int{0, 1, 3})
	assert.Equal(t, ReasonRoomWindow, reason)
}

func TestPackRoomMaxWait(t *testing.T) {
	ins := newDemoInstance(t)

	// CABG 之后 APPEN 要等到 13:00 才能开始,超出了 120 分钟的最长等待
	_, reason := ins.packRoom(0, []int{0, 2})
	assert.Equal(t, ReasonPatientWait, reason)
}

func TestFitIntoWindows(t *testing.T) {
	windows := []window{{start: 480, end: 600}, {start: 720, end: 1080}}

	t.Run("首个时间窗可容纳", func(t *testing.T) {
		start, win := fitIntoWindows(windows, 480, 90, 30, -1)
		assert.Equal(t, 510, start)
		assert.Equal(t, 0, win)
	})

	t.Run("跨入下一个时间窗时准备时间重新计算", func(t *testing.T) {
		// 510+100 超出首个时间窗,落到第二个时间窗时准备时间要完整落在窗内
		start, win := fitIntoWindows(windows, 480, 100, 30, -1)
		assert.Equal(t, 750, start)
		assert.Equal(t, 1, win)
	})

	t.Run("全部时间窗都放不下", func(t *testing.T) {
		_, win := fitIntoWindows(windows, 480, 400, 30, -1)
		assert.Equal(t, -1, win)
	})
}

func TestSolutionClone(t *testing.T) {
	ins := newDemoInstance(t)
	sol := newSolution(ins)
	sol.seqs[0] = []int{0, 2}
	sol.placed[0] = placement{room: 0, start: 510, end: 750, setup: 30}
	sol.unplaced = []int{3}

	clone := sol.clone()
	clone.seqs[0][0] = 1
	clone.placed[0].start = 600
	clone.unplaced[0] = 2

	assert.Equal(t, []int{0, 2}, sol.seqs[0])
	assert.Equal(t, 510, sol.placed[0].start)
	assert.Equal(t, []int{3}, sol.unplaced)
}
