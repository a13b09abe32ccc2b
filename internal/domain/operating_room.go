package domain

import "time"

// TimeWindow 表示一天内的一个可用时间段，开始和结束时间的格式均为 15:04:05
type TimeWindow struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type OperatingRoom struct {
	ID         int64        `json:"id"`
	Name       string       `json:"name"`
	Windows    []TimeWindow `json:"windows"`
	Equipment  []string     `json:"equipment"` // 固定安装在手术室内的设备类型
	HourlyCost float64      `json:"hourlyCost"`
	CreatedAt  time.Time    `json:"createdAt"`
	Version    int32        `json:"-"`
}
