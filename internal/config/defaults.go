package config

const (
	// defaultQueueFile matches the path the touch console has always used, so
	// an upgraded installation keeps its queue.
	defaultQueueFile = "~/linuxcnc/configs/job_queue.json"

	defaultLogDir                 = "~/.local/share/camqueue/logs"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultPollInterval           = 1
	defaultWatchdogTimeout        = 0
	defaultNotifyRequestTimeout   = 10
	defaultHistoryArchiveEnabled  = true
	defaultHistoryArchiveFilename = "history.db"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			QueueFile: defaultQueueFile,
			LogDir:    defaultLogDir,
		},
		Workflow: Workflow{
			PollInterval:    defaultPollInterval,
			WatchdogTimeout: defaultWatchdogTimeout,
		},
		History: History{
			ArchiveEnabled: defaultHistoryArchiveEnabled,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
