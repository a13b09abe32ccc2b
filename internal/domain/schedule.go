package domain

import "time"

// ScheduleItem 是已生效排班表中的一台手术
type ScheduleItem struct {
	SurgeryID int64     `json:"surgeryID"`
	RoomID    int64     `json:"roomID"`
	SurgeonID int64     `json:"surgeonID"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// Schedule 是某一天的权威排班表，由优化结果经过确认后生成
type Schedule struct {
	ID             int64          `json:"id"`
	ScheduleDate   string         `json:"scheduleDate"`   // 格式为 2006-01-02
	OptimizationID *string        `json:"optimizationID"` // 来源优化任务，手工录入时为空
	Items          []ScheduleItem `json:"items"`
	CreatedAt      time.Time      `json:"createdAt"`
	Version        int32          `json:"-"`
}
