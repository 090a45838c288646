package models

// MonitorState is a state of the comment monitor's lifecycle.
type MonitorState string

const (
	StateIdle            MonitorState = "IDLE"
	StateResolvingTarget MonitorState = "RESOLVING_TARGET"
	StateInitialLoad     MonitorState = "INITIAL_LOAD"
	StatePolling         MonitorState = "POLLING"
	StateStopped         MonitorState = "STOPPED"
	StateFailed          MonitorState = "FAILED"
)

// IsTerminal reports whether the monitor can no longer make progress from this state.
func (s MonitorState) IsTerminal() bool {
	return s == StateStopped || s == StateFailed
}
