package seed

import (
	"log/slog"

	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
	"github.com/smartsched-dev/or-scheduler/backend/internal/repository"
)

// 演示用的切换时间矩阵,单位为分钟。
// 心脏类手术之后需要较长的消毒和设备复位时间。
var demoSetupTimes = []domain.SetupTimeEntry{
	{FromType: nil, ToType: "CABG", Minutes: 30},
	{FromType: nil, ToType: "KNEE", Minutes: 15},
	{FromType: nil, ToType: "APPEN", Minutes: 10},
}

var demoSetupBetween = map[string]map[string]int32{
	"CABG":  {"CABG": 40, "KNEE": 45, "APPEN": 30},
	"KNEE":  {"CABG": 35, "KNEE": 20, "APPEN": 15},
	"APPEN": {"CABG": 30, "KNEE": 15, "APPEN": 10},
}

// SeedDemoData 插入一套可以直接发起优化的演示数据:
// 两间手术室、三位医生、一台移动 C 臂机和一天的手术需求。
func SeedDemoData(r *repository.Repository, scheduleDate string) {
	rooms := []*domain.OperatingRoom{
		{
			Name: "手术室 1",
			Windows: []domain.TimeWindow{
				{StartTime: "08:00:00", EndTime: "18:00:00"},
			},
			Equipment:  []string{"体外循环机"},
			HourlyCost: 1200,
		},
		{
			Name: "手术室 2",
			Windows: []domain.TimeWindow{
				{StartTime: "08:00:00", EndTime: "16:00:00"},
			},
			HourlyCost: 800,
		},
	}
	for _, room := range rooms {
		if err := r.CreateOperatingRoom(room); err != nil {
			slog.Error("无法插入手术室", "name", room.Name, "error", err)
			return
		}
	}

	surgeons := []*domain.Surgeon{
		{
			Name:        "陈建华",
			Specialties: []string{"心胸外科"},
			Windows: []domain.TimeWindow{
				{StartTime: "08:00:00", EndTime: "18:00:00"},
			},
			PreferredRoomIDs: []int64{rooms[0].ID},
			RegularMinutes:   480,
		},
		{
			Name:        "李晓梅",
			Specialties: []string{"骨科"},
			Windows: []domain.TimeWindow{
				{StartTime: "08:00:00", EndTime: "16:00:00"},
			},
			PreferredRoomIDs: []int64{rooms[1].ID},
			RegularMinutes:   480,
		},
		{
			Name:        "王志强",
			Specialties: []string{"普通外科"},
			Windows: []domain.TimeWindow{
				{StartTime: "09:00:00", EndTime: "18:00:00"},
			},
			RegularMinutes: 480,
		},
	}
	for _, surgeon := range surgeons {
		if err := r.CreateSurgeon(surgeon); err != nil {
			slog.Error("无法插入医生", "name", surgeon.Name, "error", err)
			return
		}
	}

	unit := &domain.EquipmentUnit{
		Name:          "移动 C 臂机 1 号",
		EquipmentType: "C臂机",
	}
	if err := r.CreateEquipmentUnit(unit); err != nil {
		slog.Error("无法插入设备", "name", unit.Name, "error", err)
		return
	}

	entries := make([]domain.SetupTimeEntry, 0, len(demoSetupTimes)+9)
	entries = append(entries, demoSetupTimes...)
	for from, row := range demoSetupBetween {
		for to, minutes := range row {
			f := from
			entries = append(entries, domain.SetupTimeEntry{FromType: &f, ToType: to, Minutes: minutes})
		}
	}
	if err := r.ReplaceSetupTimes(entries); err != nil {
		slog.Error("无法插入切换时间", "error", err)
		return
	}

	surgeries := []*domain.Surgery{
		{
			PatientName:       "赵国栋",
			SurgeryType:       "CABG",
			DurationMinutes:   240,
			Priority:          domain.PriorityHigh,
			SurgeonID:         surgeons[0].ID,
			RequiredEquipment: []string{"体外循环机"},
			ScheduleDate:      scheduleDate,
			EarliestStart:     "08:00:00",
		},
		{
			PatientName:       "孙丽娟",
			SurgeryType:       "KNEE",
			DurationMinutes:   120,
			Priority:          domain.PriorityMedium,
			SurgeonID:         surgeons[1].ID,
			RequiredEquipment: []string{"C臂机"},
			ScheduleDate:      scheduleDate,
			EarliestStart:     "08:00:00",
		},
		{
			PatientName:     "周明轩",
			SurgeryType:     "APPEN",
			DurationMinutes: 60,
			Priority:        domain.PriorityEmergency,
			SurgeonID:       surgeons[2].ID,
			ScheduleDate:    scheduleDate,
			EarliestStart:   "09:00:00",
			MaxWaitMinutes:  120,
		},
		{
			PatientName:     "吴雅婷",
			SurgeryType:     "KNEE",
			DurationMinutes: 120,
			Priority:        domain.PriorityLow,
			SurgeonID:       surgeons[1].ID,
			ScheduleDate:    scheduleDate,
			EarliestStart:   "10:00:00",
		},
	}
	for _, surgery := range surgeries {
		if err := r.CreateSurgery(surgery); err != nil {
			slog.Error("无法插入手术", "patient", surgery.PatientName, "error", err)
			return
		}
	}

	slog.Info("演示数据插入成功",
		"rooms", len(rooms),
		"surgeons", len(surgeons),
		"surgeries", len(surgeries),
		"schedule_date", scheduleDate,
	)
}
