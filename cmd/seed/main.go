package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/samber/lo"
	"github.com/smartsched-dev/or-scheduler/backend/internal/config"
	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
	"github.com/smartsched-dev/or-scheduler/backend/internal/repository"
	"github.com/smartsched-dev/or-scheduler/backend/internal/seed"
	"github.com/smartsched-dev/or-scheduler/backend/internal/utils"
)

func main() {
	var op int
	var n int
	var scheduleDate string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机用户, 2: 插入随机手术室, 3: 插入随机医生, 4: 插入随机手术, 5: 插入演示数据)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.StringVar(&scheduleDate, "date", time.Now().AddDate(0, 0, 1).Format("2006-01-02"), "手术日期")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 {
			slog.Error("请输入合法的用户数量")
		} else {
			cnt := n
			for i := 0; i < n; i++ {
				user, err := utils.GenerateRandomUser(cfg.Seed.User.Password, cfg.Email.UserDomain)
				if err != nil {
					slog.Error("无法生成随机用户", slog.String("error", err.Error()))
					continue
				}

				if err := repo.CreateUser(user); err != nil {
					slog.Error("无法插入用户", slog.String("error", err.Error()))
					continue
				}

				cnt--
			}

			slog.Info("插入用户成功", slog.Int("count", n-cnt))
		}
	case 2:
		if n <= 0 {
			slog.Error("请输入合法的手术室数量")
		} else {
			cnt := n
			for i := 0; i < n; i++ {
				room := utils.GenerateRandomOperatingRoom(i + 1)
				if err := repo.CreateOperatingRoom(room); err != nil {
					slog.Error("无法插入手术室", slog.String("error", err.Error()))
					continue
				}

				cnt--
			}

			slog.Info("插入手术室成功", slog.Int("count", n-cnt))
		}
	case 3:
		if n <= 0 {
			slog.Error("请输入合法的医生数量")
		} else {
			cnt := n
			for i := 0; i < n; i++ {
				surgeon := utils.GenerateRandomSurgeon()
				if err := repo.CreateSurgeon(surgeon); err != nil {
					slog.Error("无法插入医生", slog.String("error", err.Error()))
					continue
				}

				cnt--
			}

			slog.Info("插入医生成功", slog.Int("count", n-cnt))
		}
	case 4:
		if n <= 0 {
			slog.Error("请输入合法的手术数量")
			return
		}

		// 随机手术必须挂在已有的医生上
		surgeons, err := repo.GetAllSurgeons()
		if err != nil {
			slog.Error("无法获取医生列表", slog.String("error", err.Error()))
			return
		}
		if len(surgeons) == 0 {
			slog.Error("数据库中没有医生，请先插入医生")
			return
		}

		surgeonIDs := lo.Map(surgeons, func(s *domain.Surgeon, _ int) int64 { return s.ID })

		cnt := n
		for i := 0; i < n; i++ {
			surgery := utils.GenerateRandomSurgery(scheduleDate, surgeonIDs)
			if err := repo.CreateSurgery(surgery); err != nil {
				slog.Error("无法插入手术", slog.String("error", err.Error()))
				continue
			}

			cnt--
		}

		slog.Info("插入手术成功", slog.Int("count", n-cnt))
	case 5:
		seed.SeedDemoData(repo, scheduleDate)
	default:
		slog.Error("指定的操作非法")
	}
}
