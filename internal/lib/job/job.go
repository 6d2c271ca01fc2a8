// Package job runs background work on an asynq queue backed by Redis.
package job

import (
	"context"
	"fmt"

	"github.com/deppfellow/formula-lab/internal/config"
	"github.com/deppfellow/formula-lab/internal/lib/email"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

type mailer interface {
	SendWelcomeEmail(to, firstName string) error
}

// JobService enqueues tasks through Client and processes them with an
// in-process worker server.
type JobService struct {
	Client *asynq.Client
	server *asynq.Server
	mailer mailer
	logger *zerolog.Logger
}

func NewJobService(logger *zerolog.Logger, cfg *config.Config) *JobService {
	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Address}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			Logger:   &asynqLogger{logger: logger},
			LogLevel: asynq.WarnLevel,
		},
	)

	return &JobService{
		Client: asynq.NewClient(redisOpt),
		server: server,
		mailer: email.NewClient(cfg, logger),
		logger: logger,
	}
}

func (j *JobService) mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskWelcome, j.handleWelcomeEmailTask)
	return mux
}

// Start launches the workers and returns once they are running.
func (j *JobService) Start() error {
	j.logger.Info().Msg("starting background job server")
	if err := j.server.Start(j.mux()); err != nil {
		return fmt.Errorf("starting job server: %w", err)
	}
	return nil
}

// EnqueueWelcomeEmail schedules a welcome email for a new user.
func (j *JobService) EnqueueWelcomeEmail(ctx context.Context, to, firstName string) error {
	task, err := NewWelcomeEmailTask(to, firstName)
	if err != nil {
		return err
	}

	info, err := j.Client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueueing %s: %w", TaskWelcome, err)
	}

	j.logger.Debug().Str("task_id", info.ID).Str("queue", info.Queue).Msg("enqueued welcome email")
	return nil
}

func (j *JobService) Stop() {
	j.logger.Info().Msg("stopping background job server")
	j.server.Shutdown()
	if err := j.Client.Close(); err != nil {
		j.logger.Warn().Err(err).Msg("failed to close job client")
	}
}

// asynqLogger routes asynq's own logs into zerolog.
type asynqLogger struct {
	logger *zerolog.Logger
}

func (l *asynqLogger) Debug(args ...any) { l.logger.Debug().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...any)  { l.logger.Info().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...any)  { l.logger.Warn().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...any) { l.logger.Error().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Fatal(args ...any) { l.logger.Fatal().Msg(fmt.Sprint(args...)) }
