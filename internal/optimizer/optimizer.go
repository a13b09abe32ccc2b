package optimizer

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
)

// Parameters 是一次优化运行的全部参数
type Parameters struct {
	ScheduleDate     string             `json:"schedule_date"`
	MaxIterations    int                `json:"max_iterations"`
	TabuTenure       int                `json:"tabu_tenure"`
	MaxNoImprovement int                `json:"max_no_improvement"` // 0 表示不启用收敛停止
	TimeLimitSeconds int                `json:"time_limit_seconds"`
	NeighborsPerIter int                `json:"neighbors_per_iter"`
	Weights          map[string]float64 `json:"weights"`     // nil 表示使用默认权重
	RandomSeed       int64              `json:"random_seed"` // 0 表示按当前时间播种
}

func DefaultParameters() Parameters {
	return Parameters{
		MaxIterations:    100,
		TabuTenure:       10,
		MaxNoImprovement: 20,
		TimeLimitSeconds: 300,
		NeighborsPerIter: 60,
	}
}

func (p *Parameters) Validate() error {
	// 迭代次数允许为 0：此时直接返回贪心初始解
	if p.MaxIterations < 0 {
		return fmt.Errorf("%w: 最大迭代次数不能为负", ErrInvalidParameters)
	}
	if p.TabuTenure <= 0 {
		return fmt.Errorf("%w: 禁忌期限必须大于 0", ErrInvalidParameters)
	}
	if p.MaxNoImprovement < 0 {
		return fmt.Errorf("%w: 无改进迭代上限不能为负", ErrInvalidParameters)
	}
	if p.TimeLimitSeconds <= 0 {
		return fmt.Errorf("%w: 时间上限必须大于 0", ErrInvalidParameters)
	}
	if p.NeighborsPerIter <= 0 {
		return fmt.Errorf("%w: 每轮邻域候选数必须大于 0", ErrInvalidParameters)
	}
	for name, w := range p.Weights {
		if w < 0 {
			return fmt.Errorf("%w: 权重 %s 不能为负", ErrInvalidParameters, name)
		}
	}
	return nil
}

// TerminationReason 是一次运行的结束原因，超出预算属于正常结束而不是错误
type TerminationReason string

const (
	TerminationIterationLimit TerminationReason = "iteration_limit"
	TerminationTimeLimit      TerminationReason = "time_limit"
	TerminationNoImprovement  TerminationReason = "no_improvement"
	TerminationCancelled      TerminationReason = "cancelled"
)

type Assignment struct {
	SurgeryID int64     `json:"surgery_id"`
	RoomID    int64     `json:"room_id"`
	SurgeonID int64     `json:"surgeon_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type Result struct {
	Assignments          []Assignment       `json:"assignments"`
	UnplacedSurgeryIDs   []int64            `json:"unplaced_surgery_ids"`
	Score                float64            `json:"score"`
	Metrics              map[string]float64 `json:"metrics"`
	IterationCount       int                `json:"iteration_count"`
	ExecutionTimeSeconds float64            `json:"execution_time_seconds"`
	Termination          TerminationReason  `json:"termination"`
}

// Progress 是运行期间对外报告的进度快照，字段与前端约定的接口一致
type Progress struct {
	OptimizationID     string                    `json:"optimization_id"`
	ProgressPercentage float64                   `json:"progress_percentage"`
	CurrentIteration   int                       `json:"current_iteration"`
	TotalIterations    int                       `json:"total_iterations"`
	CurrentScore       float64                   `json:"current_score"`
	BestScore          float64                   `json:"best_score"`
	TimeElapsed        float64                   `json:"time_elapsed"`
	Status             domain.OptimizationStatus `json:"status"`
}

// Optimizer 对一天的手术需求执行禁忌搜索。
// 一次运行独占自己的解和禁忌表，只读的基础数据可以在并发运行之间共享
type Optimizer struct {
	params  Parameters
	ins     *instance
	weights Weights
	rng     *rand.Rand

	progressID string
	onProgress func(Progress)
}

func New(
	params Parameters,
	surgeries []*domain.Surgery,
	rooms []*domain.OperatingRoom,
	surgeons []*domain.Surgeon,
	units []*domain.EquipmentUnit,
	matrix *domain.SetupTimeMatrix,
) (*Optimizer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	date, err := time.Parse("2006-01-02", params.ScheduleDate)
	if err != nil {
		return nil, fmt.Errorf("%w: 日期格式错误", ErrInvalidParameters)
	}

	ins, err := buildInstance(date, surgeries, rooms, surgeons, units, matrix)
	if err != nil {
		return nil, err
	}

	seed := params.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Optimizer{
		params:  params,
		ins:     ins,
		weights: weightsFromMap(params.Weights),
		rng:     rand.New(rand.NewSource(seed)),
	}, nil
}

// OnProgress 注册进度回调，id 会原样带在每个进度快照中
func (o *Optimizer) OnProgress(id string, fn func(Progress)) {
	o.progressID = id
	o.onProgress = fn
}

// Run 是搜索主循环。取消属于正常结束：返回当前找到的最好解而不是错误
func (o *Optimizer) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	deadline := start.Add(time.Duration(o.params.TimeLimitSeconds) * time.Second)

	cur, curCache := o.buildInitial()
	curScore, _ := o.ins.score(curCache, o.weights)

	best := cur.clone()
	bestScore := curScore

	tabu := newTabuList(maxInt(32, o.params.TabuTenure*4))

	reason := TerminationIterationLimit
	iterations := 0
	noImprove := 0

	for iter := 1; iter <= o.params.MaxIterations; iter++ {
		// 每轮迭代边界检查取消信号与时间预算
		if ctx.Err() != nil {
			reason = TerminationCancelled
			break
		}
		if !time.Now().Before(deadline) {
			reason = TerminationTimeLimit
			break
		}

		placed := cur.placedSurgeries()
		if len(placed) == 0 {
			reason = TerminationNoImprovement
			break
		}

		var bestCand *candidate
		var fallback *candidate

		for k := 0; k < o.params.NeighborsPerIter; k++ {
			mv, ok := o.randomMove(cur, placed, o.rng)
			if !ok {
				continue
			}

			cand, moveReason := o.tryMove(cur, curCache, mv)
			if moveReason != ReasonOK {
				continue
			}

			// 备选：忽略禁忌状态下的最好移动，所有候选都被禁忌时使用
			if fallback == nil || cand.score > fallback.score {
				fallback = cand
			}

			if !admissible(tabu, cand, iter, bestScore) {
				continue
			}

			if bestCand == nil || cand.score > bestCand.score {
				bestCand = cand
			}
		}

		chosen := bestCand
		if chosen == nil {
			chosen = fallback
		}
		if chosen == nil {
			// 本轮采样不到任何可行移动
			iterations = iter
			noImprove++
			if o.params.MaxNoImprovement > 0 && noImprove >= o.params.MaxNoImprovement {
				reason = TerminationNoImprovement
				break
			}
			continue
		}

		o.applyCandidate(cur, curCache, chosen)
		curScore = chosen.score
		tabu.add(chosen.rev, iter+o.params.TabuTenure)
		iterations = iter

		if curScore > bestScore {
			bestScore = curScore
			best = cur.clone()
			noImprove = 0
		} else {
			noImprove++
		}

		o.reportProgress(iter, curScore, bestScore, start)

		if o.params.MaxNoImprovement > 0 && noImprove >= o.params.MaxNoImprovement {
			reason = TerminationNoImprovement
			break
		}
	}

	return o.buildResult(best, iterations, time.Since(start), reason), nil
}

// admissible 判断一个候选能否参与本轮选择。
// 特赦规则：被禁忌的移动只要能超过历史最好解就不受禁忌限制
func admissible(tabu *tabuList, cand *candidate, iter int, bestScore float64) bool {
	return !tabu.isTabu(cand.sig, iter) || cand.score > bestScore
}

// reportProgress 以逐渐变疏的频率上报进度：前 10 轮每轮一次，
// 之后每 10 轮一次，超过 100 轮后每 50 轮一次
func (o *Optimizer) reportProgress(iter int, curScore, bestScore float64, start time.Time) {
	if o.onProgress == nil {
		return
	}
	switch {
	case iter <= 10:
	case iter <= 100 && iter%10 == 0:
	case iter%50 == 0:
	default:
		return
	}

	total := o.params.MaxIterations
	percentage := 100.0
	if total > 0 {
		percentage = float64(iter) / float64(total) * 100
	}
	o.onProgress(Progress{
		OptimizationID:     o.progressID,
		ProgressPercentage: percentage,
		CurrentIteration:   iter,
		TotalIterations:    total,
		CurrentScore:       curScore,
		BestScore:          bestScore,
		TimeElapsed:        time.Since(start).Seconds(),
		Status:             domain.OptimizationStatusRunning,
	})
}

func (o *Optimizer) buildResult(best *solution, iterations int, elapsed time.Duration, reason TerminationReason) *Result {
	ins := o.ins

	cache := ins.evaluate(best)
	score, breakdown := ins.score(cache, o.weights)

	assignments := make([]Assignment, 0, len(best.placed))
	for _, seq := range best.seqs {
		for _, si := range seq {
			p := best.placed[si]
			su := &ins.surgeries[si]
			assignments = append(assignments, Assignment{
				SurgeryID: su.id,
				RoomID:    ins.rooms[p.room].id,
				SurgeonID: ins.surgeons[su.surgeon].id,
				StartTime: ins.clockTime(p.start),
				EndTime:   ins.clockTime(p.end),
			})
		}
	}
	sort.Slice(assignments, func(i, j int) bool {
		if !assignments[i].StartTime.Equal(assignments[j].StartTime) {
			return assignments[i].StartTime.Before(assignments[j].StartTime)
		}
		return assignments[i].SurgeryID < assignments[j].SurgeryID
	})

	unplaced := make([]int64, 0, len(best.unplaced))
	for _, si := range best.unplaced {
		unplaced = append(unplaced, ins.surgeries[si].id)
	}

	return &Result{
		Assignments:          assignments,
		UnplacedSurgeryIDs:   unplaced,
		Score:                score,
		Metrics:              breakdown.Map(),
		IterationCount:       iterations,
		ExecutionTimeSeconds: elapsed.Seconds(),
		Termination:          reason,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
