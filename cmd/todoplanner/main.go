package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"todo-planner/internal/assistant"
	"todo-planner/internal/bot"
	"todo-planner/internal/config"
	"todo-planner/internal/cronexpr"
	"todo-planner/internal/logging"
	"todo-planner/internal/ratelimit"
	"todo-planner/internal/repository"
	"todo-planner/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("config")
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	db, err := repository.NewDB(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("db")
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	mode, err := cronexpr.ParseMode(cfg.CronMode)
	if err != nil {
		logger.Fatal().Err(err).Msg("cron mode")
	}
	calc := cronexpr.NewCalculator(mode)
	limiter := ratelimit.New(ratelimit.DefaultPolicies())

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	scheduleRepo := repository.NewScheduledTaskRepository(db)
	threadRepo := repository.NewThreadRepository(db)
	prefsRepo := repository.NewPreferencesRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	var completer service.Completer
	if cfg.Assistant.APIKey != "" {
		completer = assistant.New(assistant.Config{
			URL:     cfg.Assistant.APIURL,
			APIKey:  cfg.Assistant.APIKey,
			Model:   cfg.Assistant.Model,
			Timeout: cfg.Assistant.Timeout,
		})
	} else {
		logger.Warn().Msg("ASSISTANT_API_KEY not set, assistant disabled")
	}

	taskSvc := service.NewTaskService(taskRepo, limiter)
	scheduleSvc := service.NewScheduledTaskService(scheduleRepo, calc, limiter, cfg.Location)
	assistantSvc := service.NewAssistantService(threadRepo, taskRepo, completer, limiter)
	prefsSvc := service.NewPreferenceService(prefsRepo, limiter)
	dashboardSvc := service.NewDashboardService(dashboardRepo)
	digestSvc := service.NewDigestService(taskRepo, scheduleRepo, prefsRepo, cfg.Location, logging.Component(logger, "digest"))
	sweepSvc := service.NewSweepService(scheduleRepo, taskRepo, calc.Next, logging.Component(logger, "sweep"),
		service.WithSweepTimeout(cfg.SweepTimeout),
		service.WithSweepLocation(cfg.Location),
	)

	if totals, err := dashboardSvc.Totals(ctx); err == nil {
		logger.Info().Int64("tasks", totals.Tasks).Int64("schedules", totals.ScheduledTasks).
			Int64("records", totals.Total()).Msg("database opened")
	}

	var telegramBot *bot.Bot
	if cfg.TelegramToken != "" {
		telegramBot, err = bot.New(cfg.TelegramToken, bot.Services{
			Users:       userRepo,
			Tasks:       taskSvc,
			Schedules:   scheduleSvc,
			Assistant:   assistantSvc,
			Preferences: prefsSvc,
			Dashboard:   dashboardSvc,
			Digest:      digestSvc,
		}, cfg.Location, logging.Component(logger, "bot"))
		if err != nil {
			logger.Fatal().Err(err).Msg("bot")
		}
		digestSvc.SetNotifier(telegramBot)
	} else {
		logger.Warn().Msg("TELEGRAM_TOKEN not set, running headless")
	}

	scheduler := service.NewSchedulerService(cfg.Location, logging.Component(logger, "scheduler"))
	if _, err := scheduler.ScheduleInterval("sweep", cfg.SweepInterval, func() {
		runJob(ctx, logger, "sweep", 0, func(jobCtx context.Context) error {
			_, err := sweepSvc.Run(jobCtx)
			return err
		})
	}); err != nil {
		logger.Fatal().Err(err).Msg("schedule sweep")
	}
	if _, err := scheduler.ScheduleDaily("digest", cfg.DigestTime, func() {
		runJob(ctx, logger, "digest", 5*time.Minute, func(jobCtx context.Context) error {
			_, err := digestSvc.Send(jobCtx)
			return err
		})
	}); err != nil {
		logger.Fatal().Err(err).Msg("schedule digest")
	}
	scheduler.Start()
	defer scheduler.Stop()

	logger.Info().
		Dur("sweep_interval", cfg.SweepInterval).
		Str("digest_time", cfg.DigestTime).
		Str("cron_mode", calc.Mode().String()).
		Str("timezone", cfg.Location.String()).
		Msg("todo planner started")

	if telegramBot != nil {
		if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal().Err(err).Msg("bot stopped with error")
		}
	} else {
		<-ctx.Done()
	}
	logger.Info().Msg("shutdown complete")
}

// runJob runs one scheduled job under the process context. A zero timeout
// leaves the deadline to the job itself.
func runJob(ctx context.Context, logger zerolog.Logger, name string, timeout time.Duration, job func(context.Context) error) {
	if ctx.Err() != nil {
		return
	}
	jobCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := job(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Str("job", name).Msg("scheduled job failed")
	}
}
