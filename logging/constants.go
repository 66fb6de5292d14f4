package logging

const (
	infoLogLevel    = "INFO"
	warningLogLevel = "WARNING"
	errorLogLevel   = "ERROR"

	// run statuses, one per driver state plus the initial one
	NotStarted   = "not-started"
	Provisioning = "provisioning"
	Staging      = "staging"
	Running      = "running"
	Finalizing   = "finalizing"
	Done         = "done"
	Failed       = "failed"
)
