package domain

import "time"

type Surgeon struct {
	ID               int64        `json:"id"`
	UserID           *int64       `json:"userID"` // 关联的登录账号，可以为空
	Name             string       `json:"name"`
	Specialties      []string     `json:"specialties"`
	Windows          []TimeWindow `json:"windows"`
	PreferredRoomIDs []int64      `json:"preferredRoomIDs"`
	RegularMinutes   int32        `json:"regularMinutes"` // 每日正常工作时长（分钟），超出部分计为加班
	CreatedAt        time.Time    `json:"createdAt"`
	Version          int32        `json:"-"`
}
