package config

const (
	DefaultTimeZone = "America/New_York"

	// Cron schedules (cron/v3 standard five-field expressions).
	DefaultReminderSweepSchedule = "*/1 * * * *"
	DefaultAgingAlertSchedule    = "30 8 * * 1-5"
	DefaultFollowupScanSchedule  = "0 7 * * *"

	// Follow-up and aging tunables from the legacy console.
	DefaultAgingAlertThresholdDays = 44
	FollowupWindowMonths           = 3

	// Password gate defaults.
	DefaultMaxUsers             = 100
	DefaultSessionTimeoutSec    = 30 * 60
	DefaultMaxLoginAttempts     = 5
	DefaultAccountLockSec       = 60
	DefaultSessionCleanerPeriod = 60

	// Reminder presets and bounds (hours).
	ReminderPresetShort = 4
	ReminderPresetDay   = 24
	ReminderPresetTwo   = 48
	ReminderMaxHours    = 24 * 14
	ReminderKeepDone    = 50

	// Submits at or above this row count take the staging fast path when
	// the backend offers one.
	BulkStageThreshold = 100
)
