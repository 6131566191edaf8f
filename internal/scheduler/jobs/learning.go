package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/projeval/internal/learning"
	"github.com/wonny/projeval/internal/scheduler"
	"github.com/wonny/projeval/pkg/logger"
)

// Runner runs one learning pass
type Runner interface {
	Run(ctx context.Context) (*learning.RunResult, error)
}

// LearningJob runs the outcome learning pipeline on the configured schedule
// Schedule: LEARNING_SCHEDULE (기본 월요일 03:00)
type LearningJob struct {
	runner   Runner
	schedule string
	logger   *logger.Logger
}

// NewLearningJob creates a new learning job
func NewLearningJob(runner Runner, schedule string, log *logger.Logger) *LearningJob {
	return &LearningJob{
		runner:   runner,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *LearningJob) Name() string {
	return "outcome_learning"
}

// Schedule returns the cron schedule
func (j *LearningJob) Schedule() string {
	return j.schedule
}

// Run executes one learning run
func (j *LearningJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled learning run")

	result, err := j.runner.Run(ctx)
	if err != nil {
		// 다른 인스턴스가 실행 중: 재시도하지 않음
		if errors.Is(err, learning.ErrRunInProgress) {
			return fmt.Errorf("%w: %w", scheduler.ErrSkipped, err)
		}
		return fmt.Errorf("learning run: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":      result.RunID,
		"compared":    result.Counts.Compared,
		"suggestions": result.Counts.Suggestions,
		"proposals":   result.Counts.Proposals,
		"matches":     result.Counts.Matches,
		"alerts":      result.Counts.AlertsCreated,
		"duration":    result.Duration,
	}).Info("Scheduled learning run completed")

	return nil
}
