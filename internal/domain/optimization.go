package domain

import (
	"encoding/json"
	"time"
)

// 优化任务的状态，取值与前端约定的接口保持一致
type OptimizationStatus string

const (
	OptimizationStatusPending   OptimizationStatus = "pending"
	OptimizationStatusRunning   OptimizationStatus = "running"
	OptimizationStatusCompleted OptimizationStatus = "completed"
	OptimizationStatusFailed    OptimizationStatus = "failed"
	OptimizationStatusCancelled OptimizationStatus = "cancelled"
)

// OptimizationRun 记录一次优化任务的完整生命周期。
// Parameters 和 Result 以 JSON 形式原样保存，避免数据库结构跟随优化器参数变动。
type OptimizationRun struct {
	ID           string             `json:"id"`           // uuid
	ScheduleDate string             `json:"scheduleDate"` // 格式为 2006-01-02
	RequestedBy  int64              `json:"requestedBy"`
	Parameters   json.RawMessage    `json:"parameters"`
	Status       OptimizationStatus `json:"status"`
	Result       json.RawMessage    `json:"result"`
	ErrorMessage string             `json:"errorMessage"`
	CreatedAt    time.Time          `json:"createdAt"`
	FinishedAt   *time.Time         `json:"finishedAt"`
	Version      int32              `json:"-"`
}

// OptimizationTaskMessage 是通过消息队列投递给优化 worker 的任务
type OptimizationTaskMessage struct {
	OptimizationID string `json:"optimizationID"`
}
