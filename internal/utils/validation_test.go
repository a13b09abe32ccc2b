package utils

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
)

func TestValidateTimeWindows(t *testing.T) {
	t.Run("合法的多个时段", func(t *testing.T) {
		err := ValidateTimeWindows([]domain.TimeWindow{
			{StartTime: "08:00:00", EndTime: "12:00:00"},
			{StartTime: "12:00:00", EndTime: "18:00:00"},
		})
		assert.NoError(t, err)
	})

	t.Run("开始时间格式错误", func(t *testing.T) {
		err := ValidateTimeWindows([]domain.TimeWindow{
			{StartTime: "8:00", EndTime: "12:00:00"},
		})
		assert.Error(t, err)
	})

	t.Run("结束时间不大于开始时间", func(t *testing.T) {
		err := ValidateTimeWindows([]domain.TimeWindow{
			{StartTime: "12:00:00", EndTime: "12:00:00"},
		})
		assert.Error(t, err)
	})

	t.Run("时段之间冲突", func(t *testing.T) {
		err := ValidateTimeWindows([]domain.TimeWindow{
			{StartTime: "08:00:00", EndTime: "12:00:00"},
			{StartTime: "11:00:00", EndTime: "14:00:00"},
		})
		assert.Error(t, err)
	})
}

func validationFixture() ([]*domain.Surgery, *domain.SetupTimeMatrix, []domain.ScheduleItem) {
	surgeries := []*domain.Surgery{
		{ID: 1, SurgeryType: "CABG", DurationMinutes: 240, SurgeonID: 1},
		{ID: 2, SurgeryType: "KNEE", DurationMinutes: 120, SurgeonID: 2},
		{ID: 3, SurgeryType: "APPEN", DurationMinutes: 60, SurgeonID: 3},
	}

	matrix := domain.NewSetupTimeMatrix()
	matrix.Set(lo.ToPtr("CABG"), "KNEE", 45)
	matrix.Set(lo.ToPtr("KNEE"), "APPEN", 15)
	matrix.Set(lo.ToPtr("CABG"), "APPEN", 30)

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	at := func(hour, minute int) time.Time {
		return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	}
	items := []domain.ScheduleItem{
		{SurgeryID: 1, RoomID: 1, SurgeonID: 1, StartTime: at(8, 30), EndTime: at(12, 30)},
		{SurgeryID: 2, RoomID: 1, SurgeonID: 2, StartTime: at(13, 15), EndTime: at(15, 15)},
		{SurgeryID: 3, RoomID: 2, SurgeonID: 3, StartTime: at(9, 0), EndTime: at(10, 0)},
	}
	return surgeries, matrix, items
}

func TestValidateScheduleItems(t *testing.T) {
	t.Run("合法的排程", func(t *testing.T) {
		surgeries, matrix, items := validationFixture()
		assert.NoError(t, ValidateScheduleItems(items, surgeries, matrix))
	})

	t.Run("引用了不存在的手术", func(t *testing.T) {
		surgeries, matrix, items := validationFixture()
		items[0].SurgeryID = 99
		assert.Error(t, ValidateScheduleItems(items, surgeries, matrix))
	})

	t.Run("同一台手术出现多次", func(t *testing.T) {
		surgeries, matrix, items := validationFixture()
		items[2].SurgeryID = items[0].SurgeryID
		items[2].EndTime = items[2].StartTime.Add(240 * time.Minute)
		assert.Error(t, ValidateScheduleItems(items, surgeries, matrix))
	})

	t.Run("时长与登记不一致", func(t *testing.T) {
		surgeries, matrix, items := validationFixture()
		items[1].EndTime = items[1].StartTime.Add(90 * time.Minute)
		assert.Error(t, ValidateScheduleItems(items, surgeries, matrix))
	})

	t.Run("同一手术室内重叠", func(t *testing.T) {
		surgeries, matrix, items := validationFixture()
		items[1].StartTime = items[0].StartTime.Add(60 * time.Minute)
		items[1].EndTime = items[1].StartTime.Add(120 * time.Minute)
		assert.Error(t, ValidateScheduleItems(items, surgeries, matrix))
	})

	t.Run("切换时间不足", func(t *testing.T) {
		surgeries, matrix, items := validationFixture()
		// CABG 之后 45 分钟内不能开始 KNEE
		items[1].StartTime = items[0].EndTime.Add(30 * time.Minute)
		items[1].EndTime = items[1].StartTime.Add(120 * time.Minute)
		assert.Error(t, ValidateScheduleItems(items, surgeries, matrix))
	})

	t.Run("缺少切换时间配置", func(t *testing.T) {
		surgeries, matrix, items := validationFixture()
		delete(matrix.Between["CABG"], "KNEE")
		assert.Error(t, ValidateScheduleItems(items, surgeries, matrix))
	})

	t.Run("同一医生的手术重叠", func(t *testing.T) {
		surgeries, matrix, items := validationFixture()
		surgeries[2].SurgeonID = 1
		items[2].SurgeonID = 1
		assert.Error(t, ValidateScheduleItems(items, surgeries, matrix))
	})

	t.Run("没有矩阵时跳过切换时间检查", func(t *testing.T) {
		surgeries, _, items := validationFixture()
		assert.NoError(t, ValidateScheduleItems(items, surgeries, nil))
	})
}

func TestGenerateRandomSurgery(t *testing.T) {
	surgeonIDs := []int64{1, 2, 3}
	for i := 0; i < 20; i++ {
		surgery := GenerateRandomSurgery("2025-03-10", surgeonIDs)
		require.NotNil(t, surgery)
		assert.NotEmpty(t, surgery.PatientName)
		assert.NotEmpty(t, surgery.SurgeryType)
		assert.Positive(t, surgery.DurationMinutes)
		assert.Contains(t, surgeonIDs, surgery.SurgeonID)
		assert.Equal(t, "2025-03-10", surgery.ScheduleDate)

		_, err := time.Parse("15:04:05", surgery.EarliestStart)
		assert.NoError(t, err)
	}
}

func TestGenerateRandomOperatingRoom(t *testing.T) {
	room := GenerateRandomOperatingRoom(1)
	require.NotNil(t, room)
	assert.NotEmpty(t, room.Name)
	assert.Positive(t, room.HourlyCost)
	assert.NoError(t, ValidateTimeWindows(room.Windows))
}
