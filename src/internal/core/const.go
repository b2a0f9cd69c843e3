// FILE: logpulse/src/internal/core/const.go
package core

// Second precision local wall-clock format used in entries and log lines
const TimestampFormat = "2006-01-02 15:04:05"

// Number of buffered entries replayed to a viewer on connect
const InitialLogsCount = 50

// Event bus topics
const (
	TopicLog           = "log"
	TopicConfigChanged = "configChanged"
	TopicLogRotation   = "logRotation"
	TopicAlertFailed   = "alertFailed"
)
