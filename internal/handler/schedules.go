package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
	"github.com/smartsched-dev/or-scheduler/backend/internal/optimizer"
	"github.com/smartsched-dev/or-scheduler/backend/internal/utils"
)

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		h.errorResponse(w, r, "日期格式错误")
		return
	}

	schedule, err := h.repository.GetScheduleByDate(date)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "该日期还没有应用的排程")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "获取排程成功", schedule)
}

// 优化请求的字段采用下划线风格,与优化结果和进度中的字段保持一致。
func (h *Handler) RequestOptimization(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScheduleDate     string             `json:"schedule_date" validate:"required,datetime=2006-01-02"`
		MaxIterations    *int               `json:"max_iterations"`
		TabuTenure       *int               `json:"tabu_tenure"`
		MaxNoImprovement *int               `json:"max_no_improvement"`
		TimeLimitSeconds *int               `json:"time_limit_seconds"`
		Weights          map[string]float64 `json:"weights"`
		RandomSeed       *int64             `json:"random_seed"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	params := optimizer.DefaultParameters()
	params.ScheduleDate = req.ScheduleDate
	if req.MaxIterations != nil {
		params.MaxIterations = *req.MaxIterations
	}
	if req.TabuTenure != nil {
		params.TabuTenure = *req.TabuTenure
	}
	if req.MaxNoImprovement != nil {
		params.MaxNoImprovement = *req.MaxNoImprovement
	}
	if req.TimeLimitSeconds != nil {
		params.TimeLimitSeconds = *req.TimeLimitSeconds
	}
	if req.Weights != nil {
		params.Weights = req.Weights
	}
	if req.RandomSeed != nil {
		params.RandomSeed = *req.RandomSeed
	}

	if err := params.Validate(); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 该日期必须已经登记了待排的手术
	surgeries, err := h.repository.GetSurgeriesByDate(params.ScheduleDate)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if len(surgeries) == 0 {
		h.errorResponse(w, r, "该日期没有待排的手术")
		return
	}

	subString := r.Context().Value(SubCtxKey).(string)
	sub, err := strconv.ParseInt(subString, 10, 64)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	parameters, err := json.Marshal(params)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	run := &domain.OptimizationRun{
		ID:           uuid.NewString(),
		ScheduleDate: params.ScheduleDate,
		RequestedBy:  sub,
		Parameters:   parameters,
		Status:       domain.OptimizationStatusPending,
	}

	if err := h.repository.CreateOptimizationRun(run); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 将优化任务发送到消息队列,由 optimizer worker 异步执行
	taskMessage := domain.OptimizationTaskMessage{
		OptimizationID: run.ID,
	}
	taskData, err := json.Marshal(taskMessage)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := h.taskChannel.PublishWithContext(
		ctx,
		"",
		"optimization_queue",
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        taskData,
		},
	); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "优化任务已提交", run)
}

func (h *Handler) GetOptimizationRunsByDate(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		h.errorResponse(w, r, "日期格式错误")
		return
	}

	runs, err := h.repository.GetOptimizationRunsByDate(date)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取优化任务列表成功", runs)
}

func (h *Handler) GetOptimizationRun(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(OptimizationRunCtx).(*domain.OptimizationRun)
	h.successResponse(w, r, "获取优化任务成功", run)
}

func (h *Handler) GetOptimizationProgress(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(OptimizationRunCtx).(*domain.OptimizationRun)

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationExpiration)*time.Minute)
	defer cancel()

	val, err := h.redisClient.Get(ctx, fmt.Sprintf("optimization_progress_%s", run.ID)).Result()
	if err != nil {
		switch {
		case errors.Is(err, redis.Nil):
			// worker 还没有上报过进度,返回一条只含状态的进度
			h.successResponse(w, r, "获取优化进度成功", optimizer.Progress{
				OptimizationID: run.ID,
				Status:         run.Status,
			})
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	var progress optimizer.Progress
	if err := json.Unmarshal([]byte(val), &progress); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取优化进度成功", progress)
}

func (h *Handler) GetOptimizationResult(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(OptimizationRunCtx).(*domain.OptimizationRun)

	if run.Status != domain.OptimizationStatusCompleted && run.Status != domain.OptimizationStatusCancelled {
		h.errorResponse(w, r, "优化任务还没有可用的结果")
		return
	}
	if len(run.Result) == 0 {
		h.errorResponse(w, r, "优化任务没有产生结果")
		return
	}

	var result optimizer.Result
	if err := json.Unmarshal(run.Result, &result); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取优化结果成功", result)
}

func (h *Handler) CancelOptimization(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(OptimizationRunCtx).(*domain.OptimizationRun)

	if run.Status != domain.OptimizationStatusPending && run.Status != domain.OptimizationStatusRunning {
		h.errorResponse(w, r, "优化任务已结束，无法取消")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationExpiration)*time.Minute)
	defer cancel()

	key := fmt.Sprintf("optimization_cancel_%s", run.ID)
	if err := h.redisClient.Set(ctx, key, "1", time.Duration(h.config.Optimizer.ProgressExpiration)*time.Second).Err(); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "取消请求已提交", nil)
}

func (h *Handler) ApplyOptimizationResult(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(OptimizationRunCtx).(*domain.OptimizationRun)

	if run.Status != domain.OptimizationStatusCompleted && run.Status != domain.OptimizationStatusCancelled {
		h.errorResponse(w, r, "优化任务还没有可用的结果")
		return
	}
	if len(run.Result) == 0 {
		h.errorResponse(w, r, "优化任务没有产生结果")
		return
	}

	var result optimizer.Result
	if err := json.Unmarshal(run.Result, &result); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 应用前重新校验结果,防止基础数据在优化之后被修改过
	surgeries, err := h.repository.GetSurgeriesByDate(run.ScheduleDate)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	matrix, err := h.repository.GetSetupTimeMatrix()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	items := make([]domain.ScheduleItem, 0, len(result.Assignments))
	for _, a := range result.Assignments {
		items = append(items, domain.ScheduleItem{
			SurgeryID: a.SurgeryID,
			RoomID:    a.RoomID,
			SurgeonID: a.SurgeonID,
			StartTime: a.StartTime,
			EndTime:   a.EndTime,
		})
	}

	if err := utils.ValidateScheduleItems(items, surgeries, matrix); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	schedule := &domain.Schedule{
		ScheduleDate:   run.ScheduleDate,
		OptimizationID: &run.ID,
		Items:          items,
	}

	if err := h.repository.InsertSchedule(schedule); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "排程应用成功", schedule)
}
