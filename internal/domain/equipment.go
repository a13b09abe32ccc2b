package domain

import "time"

// EquipmentUnit 表示一台具体的设备。
// RoomID 不为空时表示设备固定安装在某个手术室内，为空则表示可以在手术室之间移动的设备。
type EquipmentUnit struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	EquipmentType string    `json:"equipmentType"`
	RoomID        *int64    `json:"roomID"`
	CreatedAt     time.Time `json:"createdAt"`
	Version       int32     `json:"-"`
}
