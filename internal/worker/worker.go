package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/smartsched-dev/or-scheduler/backend/internal/config"
	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
	"github.com/smartsched-dev/or-scheduler/backend/internal/optimizer"
	"github.com/smartsched-dev/or-scheduler/backend/internal/repository"
)

// Worker 从消息队列中取出优化任务并执行,
// 执行期间的进度和取消标记都通过 redis 传递。
type Worker struct {
	cfg         *config.Config
	repository  *repository.Repository
	redisClient *redis.Client
	mailChannel *amqp.Channel
}

func NewWorker(cfg *config.Config, repo *repository.Repository, rdb *redis.Client, mailCh *amqp.Channel) *Worker {
	return &Worker{
		cfg:         cfg,
		repository:  repo,
		redisClient: rdb,
		mailChannel: mailCh,
	}
}

func progressKey(optimizationID string) string {
	return fmt.Sprintf("optimization_progress_%s", optimizationID)
}

func cancelKey(optimizationID string) string {
	return fmt.Sprintf("optimization_cancel_%s", optimizationID)
}

func (w *Worker) reportProgress(ctx context.Context, progress optimizer.Progress) {
	data, err := json.Marshal(progress)
	if err != nil {
		slog.Error("无法序列化优化进度", "error", err)
		return
	}

	expiration := time.Duration(w.cfg.Optimizer.ProgressExpiration) * time.Second
	if err := w.redisClient.Set(ctx, progressKey(progress.OptimizationID), data, expiration).Err(); err != nil {
		slog.Error("无法写入优化进度", "error", err)
	}
}

// watchCancel 轮询 redis 中的取消标记,发现后取消正在执行的优化。
func (w *Worker) watchCancel(ctx context.Context, optimizationID string, cancel context.CancelFunc) {
	interval := time.Duration(w.cfg.Optimizer.CancelPollInterval) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := w.redisClient.Get(ctx, cancelKey(optimizationID)).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) {
					slog.Error("无法读取取消标记", "error", err)
				}
				continue
			}
			slog.Info("收到取消请求", "optimization_id", optimizationID)
			cancel()
			return
		}
	}
}

// shouldProcess 判断一条投递能否执行:pending 是正常情况,
// running 说明上一次投递在执行前的阶段失败后被重新入队,需要继续,
// 终态的任务不再重复执行。
func shouldProcess(status domain.OptimizationStatus) bool {
	return status == domain.OptimizationStatusPending || status == domain.OptimizationStatusRunning
}

func (w *Worker) HandleTask(optimizationID string) error {
	run, err := w.repository.GetOptimizationRunByID(optimizationID)
	if err != nil {
		return fmt.Errorf("无法获取优化任务: %w", err)
	}

	if !shouldProcess(run.Status) {
		slog.Warn("优化任务已被处理过，跳过", "optimization_id", run.ID, "status", run.Status)
		return nil
	}

	if run.Status == domain.OptimizationStatusRunning {
		// 上一次投递标记 running 后因临时故障重新入队,从头继续执行
		slog.Warn("优化任务被重新投递，继续执行", "optimization_id", run.ID)
	} else if err := w.repository.UpdateOptimizationRunStatus(run.ID, domain.OptimizationStatusRunning); err != nil {
		return fmt.Errorf("无法更新优化任务状态: %w", err)
	}

	var params optimizer.Parameters
	if err := json.Unmarshal(run.Parameters, &params); err != nil {
		w.finish(run, domain.OptimizationStatusFailed, nil, fmt.Sprintf("参数解析失败: %v", err))
		return nil
	}

	// 加载当天的全部基础数据
	surgeries, err := w.repository.GetSurgeriesByDate(run.ScheduleDate)
	if err != nil {
		return fmt.Errorf("无法获取手术列表: %w", err)
	}
	rooms, err := w.repository.GetAllOperatingRooms()
	if err != nil {
		return fmt.Errorf("无法获取手术室列表: %w", err)
	}
	surgeons, err := w.repository.GetAllSurgeons()
	if err != nil {
		return fmt.Errorf("无法获取医生列表: %w", err)
	}
	units, err := w.repository.GetAllEquipmentUnits()
	if err != nil {
		return fmt.Errorf("无法获取设备列表: %w", err)
	}
	matrix, err := w.repository.GetSetupTimeMatrix()
	if err != nil {
		return fmt.Errorf("无法获取切换时间矩阵: %w", err)
	}

	opt, err := optimizer.New(params, surgeries, rooms, surgeons, units, matrix)
	if err != nil {
		// 参数或数据问题属于任务本身的失败,不重新入队
		w.finish(run, domain.OptimizationStatusFailed, nil, err.Error())
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go w.watchCancel(ctx, run.ID, cancel)

	opt.OnProgress(run.ID, func(progress optimizer.Progress) {
		w.reportProgress(context.Background(), progress)
	})

	result, err := opt.Run(ctx)
	if err != nil {
		w.finish(run, domain.OptimizationStatusFailed, nil, err.Error())
		return nil
	}

	status := domain.OptimizationStatusCompleted
	if result.Termination == optimizer.TerminationCancelled {
		status = domain.OptimizationStatusCancelled
	}

	w.finish(run, status, result, "")
	w.notifyRequester(run, result)

	return nil
}

// finish 持久化最终状态并写入最后一条进度。
func (w *Worker) finish(run *domain.OptimizationRun, status domain.OptimizationStatus, result *optimizer.Result, errorMessage string) {
	run.Status = status
	run.ErrorMessage = errorMessage

	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			slog.Error("无法序列化优化结果", "error", err)
		} else {
			run.Result = data
		}
	}

	if err := w.repository.FinishOptimizationRun(run); err != nil {
		slog.Error("无法持久化优化结果", "optimization_id", run.ID, "error", err)
	}

	progress := optimizer.Progress{
		OptimizationID: run.ID,
		Status:         status,
	}
	if result != nil {
		progress.ProgressPercentage = 100
		progress.CurrentIteration = result.IterationCount
		progress.TotalIterations = result.IterationCount
		progress.CurrentScore = result.Score
		progress.BestScore = result.Score
		progress.TimeElapsed = result.ExecutionTimeSeconds
	}
	w.reportProgress(context.Background(), progress)

	slog.Info("优化任务结束", "optimization_id", run.ID, "status", status)
}

// notifyRequester 给发起人发一封结果通知邮件,失败只记日志。
func (w *Worker) notifyRequester(run *domain.OptimizationRun, result *optimizer.Result) {
	user, err := w.repository.GetUserByID(run.RequestedBy)
	if err != nil {
		slog.Error("无法获取优化任务发起人", "optimization_id", run.ID, "error", err)
		return
	}

	mailMessage := domain.MailMessage{
		Type: "optimization_finished",
		To:   user.Email,
		Data: domain.OptimizationFinishedMailData{
			FullName:       user.FullName,
			OptimizationID: run.ID,
			ScheduleDate:   run.ScheduleDate,
			Status:         string(run.Status),
			Score:          result.Score,
		},
	}

	mailData, err := json.Marshal(mailMessage)
	if err != nil {
		slog.Error("无法序列化邮件信息", "error", err)
		return
	}

	ctx, cancelPublish := context.WithTimeout(context.Background(), time.Duration(w.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancelPublish()

	if err := w.mailChannel.PublishWithContext(
		ctx,
		"",
		"email_queue",
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        mailData,
		},
	); err != nil {
		slog.Error("无法发送结果通知邮件", "optimization_id", run.ID, "error", err)
	}
}
