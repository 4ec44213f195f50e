package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"CreditProcess/internal/config"
	"CreditProcess/internal/logger"
	"CreditProcess/internal/notification"
	"CreditProcess/internal/reminders"
	"CreditProcess/internal/serviceiface"
	"CreditProcess/internal/store"
)

// CronService runs the scheduled jobs: the reminder sweep, the aging
// alert mail, and the daily follow-up scan. Schedules come from
// services.yaml with config package defaults behind them.
type CronService struct {
	config    map[string]interface{}
	records   store.RecordStore
	reminders *reminders.Store
	mailer    *notification.Mailer
	runner    *cronRunner
}

func NewCronService(cfg map[string]interface{}, records store.RecordStore, rem *reminders.Store, mailer *notification.Mailer) serviceiface.Service {
	return &CronService{
		config:    cfg,
		records:   records,
		reminders: rem,
		mailer:    mailer,
	}
}

func (s *CronService) Name() string {
	return "cron"
}

func (s *CronService) schedule(key, fallback string) string {
	if s.config != nil {
		if v, ok := s.config[key].(string); ok && v != "" {
			return v
		}
	}
	return fallback
}

func (s *CronService) agingThreshold() int {
	if s.config != nil {
		switch v := s.config["aging_threshold_days"].(type) {
		case int:
			if v > 0 {
				return v
			}
		case float64:
			if v > 0 {
				return int(v)
			}
		}
	}
	return config.DefaultAgingAlertThresholdDays
}

func (s *CronService) Start() error {
	log.Println("Starting cron service...")

	tz := config.DefaultTimeZone
	if s.config != nil {
		if v, ok := s.config["timezone"].(string); ok && v != "" {
			tz = v
		}
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("invalid timezone for cron service: %v", err)
	}

	runner, err := newCronRunner(loc)
	if err != nil {
		return err
	}
	s.runner = runner

	sweep := NewReminderSweep(s.reminders, s.mailer)
	if err := runner.add(s.schedule("reminder_sweep_schedule", config.DefaultReminderSweepSchedule), func() {
		if err := sweep.Run(context.Background()); err != nil {
			logger.Auditf("Reminder sweep failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule reminder sweep: %v", err)
	}
	logger.Audit("Reminder sweep scheduled")

	alert := NewAgingAlertJob(s.records, s.mailer, s.agingThreshold())
	if err := runner.add(s.schedule("aging_alert_schedule", config.DefaultAgingAlertSchedule), func() {
		if err := RetryWithBackoff(2, 2*time.Second, func() error {
			return alert.Run(context.Background())
		}); err != nil {
			logger.Auditf("Aging alert failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule aging alert: %v", err)
	}
	logger.Audit("Aging alert scheduled")

	scan := NewFollowupScan(s.records)
	if err := runner.add(s.schedule("followup_scan_schedule", config.DefaultFollowupScanSchedule), func() {
		if err := scan.Run(context.Background()); err != nil {
			logger.Auditf("Follow-up scan failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule follow-up scan: %v", err)
	}
	logger.Audit("Follow-up scan scheduled")

	runner.start()
	logger.Auditf("Cron service started (%s)", tz)
	return nil
}

func (s *CronService) Stop() error {
	if s.runner != nil {
		s.runner.stop()
	}
	log.Println("Cron service stopped.")
	return nil
}
