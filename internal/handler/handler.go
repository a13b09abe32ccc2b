package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/smartsched-dev/or-scheduler/backend/internal/config"
	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
	"github.com/smartsched-dev/or-scheduler/backend/internal/repository"
)

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  *repository.Repository
	translator  ut.Translator
	mailChannel *amqp.Channel
	taskChannel *amqp.Channel
	redisClient *redis.Client

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, mailCh *amqp.Channel, taskCh *amqp.Channel, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		translator:  trans,
		mailChannel: mailCh,
		taskChannel: taskCh,
		redisClient: rdb,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Route("/reset-password", func(r chi.Router) {
			r.Post("/require", h.RequireResetPassword)
			r.Post("/confirm", h.ConfirmResetPassword)
		})
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Route("/my-info", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
			r.Route("/update-email", func(r chi.Router) {
				r.Post("/require", h.RequireUpdateEmail)
				r.Post("/confirm", h.ConfirmUpdateEmail)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/", h.CreateUser)
			r.Get("/", h.GetAllUserInfo)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userInfo)
				r.Get("/", h.GetUserInfo)
				r.With(h.preventOperateInitialAdmin).With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Patch("/", h.UpdateUser)
				r.With(h.preventOperateInitialAdmin).With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Delete("/", h.DeleteUser)
			})
		})

		// 排班协调员和管理员可以维护手术排程的基础数据
		coordinators := []domain.Role{domain.RoleAdmin, domain.RoleCoordinator}

		r.Route("/surgeries", func(r chi.Router) {
			r.With(h.RequiredRole(coordinators)).Post("/", h.CreateSurgery)
			r.Get("/", h.GetSurgeriesByDate)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.surgery)
				r.Get("/", h.GetSurgery)
				r.With(h.RequiredRole(coordinators)).Patch("/", h.UpdateSurgery)
				r.With(h.RequiredRole(coordinators)).Delete("/", h.DeleteSurgery)
			})
		})

		r.Route("/operating-rooms", func(r chi.Router) {
			r.With(h.RequiredRole(coordinators)).Post("/", h.CreateOperatingRoom)
			r.Get("/", h.GetAllOperatingRooms)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.operatingRoom)
				r.Get("/", h.GetOperatingRoom)
				r.With(h.RequiredRole(coordinators)).Patch("/", h.UpdateOperatingRoom)
				r.With(h.RequiredRole(coordinators)).Delete("/", h.DeleteOperatingRoom)
			})
		})

		r.Route("/surgeons", func(r chi.Router) {
			r.With(h.RequiredRole(coordinators)).Post("/", h.CreateSurgeon)
			r.Get("/", h.GetAllSurgeons)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.surgeon)
				r.Get("/", h.GetSurgeon)
				r.With(h.RequiredRole(coordinators)).Patch("/", h.UpdateSurgeon)
				r.With(h.RequiredRole(coordinators)).Delete("/", h.DeleteSurgeon)
			})
		})

		r.Route("/equipment-units", func(r chi.Router) {
			r.With(h.RequiredRole(coordinators)).Post("/", h.CreateEquipmentUnit)
			r.Get("/", h.GetAllEquipmentUnits)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.equipmentUnit)
				r.Get("/", h.GetEquipmentUnit)
				r.With(h.RequiredRole(coordinators)).Patch("/", h.UpdateEquipmentUnit)
				r.With(h.RequiredRole(coordinators)).Delete("/", h.DeleteEquipmentUnit)
			})
		})

		r.Route("/setup-times", func(r chi.Router) {
			r.Get("/", h.GetSetupTimes)
			r.With(h.RequiredRole(coordinators)).Put("/", h.ReplaceSetupTimes)
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", h.GetSchedule)
			r.Route("/optimize", func(r chi.Router) {
				r.Use(h.RequiredRole(coordinators))
				r.Post("/", h.RequestOptimization)
				r.Get("/", h.GetOptimizationRunsByDate)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(h.optimizationRun)
					r.Get("/", h.GetOptimizationRun)
					r.Get("/progress", h.GetOptimizationProgress)
					r.Get("/result", h.GetOptimizationResult)
					r.Post("/cancel", h.CancelOptimization)
					r.Post("/apply", h.ApplyOptimizationResult)
				})
			})
		})
	})
}
