package service

import (
	"context"
	"time"

	"github.com/nsvirk/hrassistapi/pkg/utils/zaplogger"
	"github.com/robfig/cron/v3"
)

// sweepJobTimeout bounds one retention run
const sweepJobTimeout = 2 * time.Minute

// SweepResult counts the rows removed by one retention run
type SweepResult struct {
	Sessions         int64 `json:"sessions"`
	Metrics          int64 `json:"metrics"`
	RememberMeTokens int64 `json:"remember_me_tokens"`
}

// CronService runs the retention jobs
type CronService struct {
	c                 *cron.Cron
	schedule          string
	sessionService    *SessionService
	metricsService    *MetricsService
	rememberMeService *RememberMeService
	metricsRetention  time.Duration
	rememberMeIdle    time.Duration
}

// NewCronService creates a new CronService.
// A zero rememberMeIdle leaves remember-me tokens alone.
func NewCronService(schedule string, sessions *SessionService, metrics *MetricsService, rememberMe *RememberMeService, metricsRetention, rememberMeIdle time.Duration) *CronService {
	return &CronService{
		c:                 cron.New(),
		schedule:          schedule,
		sessionService:    sessions,
		metricsService:    metrics,
		rememberMeService: rememberMe,
		metricsRetention:  metricsRetention,
		rememberMeIdle:    rememberMeIdle,
	}
}

// Start starts the cron service
func (cs *CronService) Start() {
	zaplogger.Info("Initializing CronService")

	// ------------------------------------------------------------
	// Add your SCHEDULED jobs here
	// ------------------------------------------------------------
	cs.addScheduledJob("Retention SWEEP Job", cs.sweepJob, cs.schedule)

	// ------------------------------------------------------------
	// Add your STARTUP jobs here
	// ------------------------------------------------------------
	cs.addStartupJob("Retention SWEEP Job", cs.sweepJob, 5*time.Second)
	// ------------------------------------------------------------

	cs.c.Start()
}

// Stop stops the scheduler and waits for a running job to finish
func (cs *CronService) Stop() {
	<-cs.c.Stop().Done()
}

// addStartupJob adds a startup job to the cron service
func (cs *CronService) addStartupJob(name string, job func(), delay time.Duration) {
	go func() {
		time.Sleep(delay)
		zaplogger.Info("STARTED STARTUP job", zaplogger.Fields{
			"job": name,
		})
		job()
		zaplogger.Info("COMPLETED STARTUP job", zaplogger.Fields{
			"job": name,
		})
	}()
	zaplogger.Info("QUEUED STARTUP job", zaplogger.Fields{
		"job": name,
	})
}

func (cs *CronService) addScheduledJob(name string, job func(), schedule string) {
	_, err := cs.c.AddFunc(schedule, func() {
		zaplogger.Info("STARTED SCHEDULED JOB", zaplogger.Fields{
			"job": name,
		})
		job()
		zaplogger.Info("COMPLETED SCHEDULED JOB", zaplogger.Fields{
			"job": name,
		})
	})
	if err != nil {
		zaplogger.Error("FAILED TO QUEUE SCHEDULED JOB", zaplogger.Fields{
			"job":   name,
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info("QUEUED SCHEDULED job", zaplogger.Fields{
		"job": name,
	})
}

func (cs *CronService) sweepJob() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepJobTimeout)
	defer cancel()
	cs.RunSweep(ctx)
}

// RunSweep purges expired sessions, metrics past retention and idle remember-me tokens.
// Each step runs even if an earlier one failed; failures are logged.
func (cs *CronService) RunSweep(ctx context.Context) SweepResult {
	jobName := "Retention SWEEP Job "
	var result SweepResult

	n, err := cs.sessionService.DeleteExpired(ctx)
	if err != nil {
		zaplogger.Error(jobName, zaplogger.Fields{
			"step":  "DeleteExpiredSessions",
			"error": err.Error(),
		})
	}
	result.Sessions = n

	if cs.metricsRetention > 0 {
		cutoff := cs.metricsService.NowFunc().Add(-cs.metricsRetention)
		n, err = cs.metricsService.Purge(ctx, cutoff)
		if err != nil {
			zaplogger.Error(jobName, zaplogger.Fields{
				"step":  "PurgeMetrics",
				"error": err.Error(),
			})
		}
		result.Metrics = n
	}

	if cs.rememberMeIdle > 0 {
		n, err = cs.rememberMeService.SweepIdle(ctx, cs.rememberMeIdle)
		if err != nil {
			zaplogger.Error(jobName, zaplogger.Fields{
				"step":  "SweepIdleRememberMe",
				"error": err.Error(),
			})
		}
		result.RememberMeTokens = n
	}

	zaplogger.Info(jobName, zaplogger.Fields{
		"sessions":           result.Sessions,
		"metrics":            result.Metrics,
		"remember_me_tokens": result.RememberMeTokens,
	})
	return result
}
