package utils

import (
	"fmt"
	"sort"
	"time"

	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
)

func ValidateTimeWindows(windows []domain.TimeWindow) error {
	// 检查每一个时段的结束时间是不是都大于开始时间
	for i, w := range windows {
		startTime, err := time.Parse("15:04:05", w.StartTime)
		if err != nil {
			return fmt.Errorf("第 %d 个时段的开始时间格式错误", i+1)
		}
		endTime, err := time.Parse("15:04:05", w.EndTime)
		if err != nil {
			return fmt.Errorf("第 %d 个时段的结束时间格式错误", i+1)
		}
		if !endTime.After(startTime) {
			return fmt.Errorf("第 %d 个时段的结束时间必须大于开始时间", i+1)
		}
	}

	// 检查各个时段之间是否冲突
	for i := 0; i < len(windows); i++ {
		iStartTime, _ := time.Parse("15:04:05", windows[i].StartTime)
		iEndTime, _ := time.Parse("15:04:05", windows[i].EndTime)

		for j := i + 1; j < len(windows); j++ {
			jStartTime, _ := time.Parse("15:04:05", windows[j].StartTime)
			jEndTime, _ := time.Parse("15:04:05", windows[j].EndTime)

			if !(jStartTime.After(iEndTime) || jStartTime.Equal(iEndTime) || iStartTime.After(jEndTime) || iStartTime.Equal(jEndTime)) {
				return fmt.Errorf("第 %d 个时段和第 %d 个时段的时间冲突", i+1, j+1)
			}
		}
	}
	return nil
}

func getSurgeryByID(surgeries []*domain.Surgery, id int64) *domain.Surgery {
	for _, surgery := range surgeries {
		if surgery.ID == id {
			return surgery
		}
	}
	return nil
}

// 检查一份排程结果是否能被安全地应用:
// 所有条目引用的手术必须存在,同一手术室内的手术不能重叠且必须预留足够的切换时间,
// 同一医生的手术之间也不能重叠。
func ValidateScheduleItems(items []domain.ScheduleItem, surgeries []*domain.Surgery, matrix *domain.SetupTimeMatrix) error {
	seen := make(map[int64]bool)
	for i, item := range items {
		surgery := getSurgeryByID(surgeries, item.SurgeryID)
		if surgery == nil {
			return fmt.Errorf("排程结果中的第 %d 项引用了不存在的手术 %d", i+1, item.SurgeryID)
		}
		if seen[item.SurgeryID] {
			return fmt.Errorf("手术 %d 在排程结果中出现了多次", item.SurgeryID)
		}
		seen[item.SurgeryID] = true

		if !item.EndTime.After(item.StartTime) {
			return fmt.Errorf("手术 %d 的结束时间必须大于开始时间", item.SurgeryID)
		}
		if item.EndTime.Sub(item.StartTime) != time.Duration(surgery.DurationMinutes)*time.Minute {
			return fmt.Errorf("手术 %d 的时长与登记的时长不一致", item.SurgeryID)
		}
	}

	// 按手术室分组后检查重叠和切换时间
	byRoom := make(map[int64][]domain.ScheduleItem)
	for _, item := range items {
		byRoom[item.RoomID] = append(byRoom[item.RoomID], item)
	}
	for roomID, roomItems := range byRoom {
		sort.Slice(roomItems, func(i, j int) bool {
			return roomItems[i].StartTime.Before(roomItems[j].StartTime)
		})
		for i := 1; i < len(roomItems); i++ {
			prev, cur := roomItems[i-1], roomItems[i]
			if cur.StartTime.Before(prev.EndTime) {
				return fmt.Errorf("手术室 %d 中的手术 %d 和手术 %d 时间重叠", roomID, prev.SurgeryID, cur.SurgeryID)
			}
			if matrix == nil {
				continue
			}
			prevSurgery := getSurgeryByID(surgeries, prev.SurgeryID)
			curSurgery := getSurgeryByID(surgeries, cur.SurgeryID)
			setup, ok := matrix.Between[prevSurgery.SurgeryType][curSurgery.SurgeryType]
			if !ok {
				return fmt.Errorf("缺少从 %s 到 %s 的切换时间配置", prevSurgery.SurgeryType, curSurgery.SurgeryType)
			}
			if cur.StartTime.Sub(prev.EndTime) < time.Duration(setup)*time.Minute {
				return fmt.Errorf("手术室 %d 中的手术 %d 和手术 %d 之间的切换时间不足", roomID, prev.SurgeryID, cur.SurgeryID)
			}
		}
	}

	// 按医生分组后检查重叠
	bySurgeon := make(map[int64][]domain.ScheduleItem)
	for _, item := range items {
		bySurgeon[item.SurgeonID] = append(bySurgeon[item.SurgeonID], item)
	}
	for surgeonID, surgeonItems := range bySurgeon {
		sort.Slice(surgeonItems, func(i, j int) bool {
			return surgeonItems[i].StartTime.Before(surgeonItems[j].StartTime)
		})
		for i := 1; i < len(surgeonItems); i++ {
			prev, cur := surgeonItems[i-1], surgeonItems[i]
			if cur.StartTime.Before(prev.EndTime) {
				return fmt.Errorf("医生 %d 的手术 %d 和手术 %d 时间重叠", surgeonID, prev.SurgeryID, cur.SurgeryID)
			}
		}
	}

	return nil
}
