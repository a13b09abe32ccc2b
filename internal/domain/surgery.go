package domain

import "time"

type SurgeryPriority string

const (
	PriorityEmergency SurgeryPriority = "急诊"
	PriorityHigh      SurgeryPriority = "高"
	PriorityMedium    SurgeryPriority = "中"
	PriorityLow       SurgeryPriority = "低"
)

type Surgery struct {
	ID                int64           `json:"id"`
	PatientName       string          `json:"patientName"`
	SurgeryType       string          `json:"surgeryType"`
	DurationMinutes   int32           `json:"durationMinutes"`
	Priority          SurgeryPriority `json:"priority"`
	SurgeonID         int64           `json:"surgeonID"`
	RequiredEquipment []string        `json:"requiredEquipment"`
	ScheduleDate      string          `json:"scheduleDate"`   // 格式为 2006-01-02
	EarliestStart     string          `json:"earliestStart"`  // 格式为 15:04:05
	MaxWaitMinutes    int32           `json:"maxWaitMinutes"` // 0 表示不限制等待时间
	CreatedAt         time.Time       `json:"createdAt"`
	Version           int32           `json:"-"`
}
