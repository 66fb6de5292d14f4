package logging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunLog is the record of one run of the pipeline.
// It is printed as JSON when the run finishes.
type RunLog struct {
	sync.RWMutex   `json:"-"`
	ID             string                 `json:"id"`
	Execution      string                 `json:"execution,omitempty"`
	Volume         string                 `json:"volume,omitempty"`
	Status         string                 `json:"status"`
	Created        string                 `json:"created,omitempty"`
	CreatedObj     time.Time              `json:"-"`
	LastUpdated    string                 `json:"lastUpdated,omitempty"`
	LastUpdatedObj time.Time              `json:"-"`
	Params         map[string]interface{} `json:"params,omitempty"`
	Command        []string               `json:"command,omitempty"`
	Uploaded       string                 `json:"uploaded,omitempty"`
	Stats          *Stats                 `json:"stats"`
	Event          *EventLog              `json:"eventLog,omitempty"`
}

// Stats holds the timing and outcome of a run
type Stats struct {
	Duration    float64       `json:"duration"` // seconds
	DurationObj time.Duration `json:"-"`
	ExitCode    *int          `json:"exitCode,omitempty"`
}

// NewRunLog returns a not-started record for the named execution
func NewRunLog(execution string) *RunLog {
	l := &RunLog{
		ID:        uuid.New().String(),
		Execution: execution,
		Status:    NotStarted,
		Stats:     &Stats{},
		Event:     &EventLog{},
	}
	l.Event.info("init log")
	return l
}

// Start stamps the creation time; called when the driver enters its first state
func (l *RunLog) Start() {
	l.Lock()
	defer l.Unlock()
	t := time.Now()
	l.CreatedObj = t
	l.Created = timef(t)
	l.LastUpdatedObj = t
	l.LastUpdated = timef(t)
}

// SetStatus records a state transition
func (l *RunLog) SetStatus(status string) {
	l.Lock()
	l.Status = status
	l.touch()
	l.Unlock()
	l.Event.Infof("entered state %v", status)
}

func (l *RunLog) SetVolume(volume string) {
	l.Lock()
	defer l.Unlock()
	l.Volume = volume
	l.touch()
}

func (l *RunLog) SetCommand(args []string) {
	l.Lock()
	defer l.Unlock()
	l.Command = append([]string{}, args...)
	l.touch()
}

func (l *RunLog) SetParams(params map[string]interface{}) {
	l.Lock()
	defer l.Unlock()
	l.Params = params
}

func (l *RunLog) SetExitCode(code int) {
	l.Lock()
	defer l.Unlock()
	l.Stats.ExitCode = &code
	l.touch()
}

func (l *RunLog) SetUploaded(remote string) {
	l.Lock()
	defer l.Unlock()
	l.Uploaded = remote
	l.touch()
}

// Finish moves the record to a terminal status and computes the duration
func (l *RunLog) Finish(status string) {
	l.Lock()
	t := time.Now()
	l.Status = status
	l.LastUpdatedObj = t
	l.LastUpdated = timef(t)
	if !l.CreatedObj.IsZero() {
		l.Stats.DurationObj = t.Sub(l.CreatedObj)
		l.Stats.Duration = l.Stats.DurationObj.Seconds()
	}
	l.Unlock()
	l.Event.Infof("run finished with status %v", status)
}

// GetStatus is safe to call while the run is in progress
func (l *RunLog) GetStatus() string {
	l.RLock()
	defer l.RUnlock()
	return l.Status
}

// JSON renders the record, indented
func (l *RunLog) JSON() ([]byte, error) {
	l.RLock()
	defer l.RUnlock()
	l.Event.RLock()
	defer l.Event.RUnlock()
	return json.MarshalIndent(l, "", "  ")
}

// caller holds the lock
func (l *RunLog) touch() {
	l.LastUpdatedObj = time.Now()
	l.LastUpdated = timef(l.LastUpdatedObj)
}

// EventLog is the list of notable things that happened during a run
type EventLog struct {
	sync.RWMutex `json:"-"`
	Events       []string `json:"events,omitempty"`
}

// a record is "<timestamp> - <level> - <message>"
func (log *EventLog) Write(level, message string) {
	log.Lock()
	defer log.Unlock()
	timestamp := timef(time.Now())

	record := fmt.Sprintf("%v - %v - %v", timestamp, level, message)
	log.Events = append(log.Events, record)
}

func (log *EventLog) Infof(f string, v ...interface{}) {
	log.info(fmt.Sprintf(f, v...))
}

func (log *EventLog) info(m string) {
	log.Write(infoLogLevel, m)
}

func (log *EventLog) Warnf(f string, v ...interface{}) {
	log.Write(warningLogLevel, fmt.Sprintf(f, v...))
}

// Errorf records err and returns it unchanged
func (log *EventLog) Errorf(err error, f string, v ...interface{}) error {
	m := fmt.Sprintf(f, v...)
	if err != nil {
		m = fmt.Sprintf("%v: %v", m, err)
	}
	log.Write(errorLogLevel, m)
	return err
}

// Snapshot returns a copy of the events recorded so far
func (log *EventLog) Snapshot() []string {
	log.RLock()
	defer log.RUnlock()
	return append([]string{}, log.Events...)
}

func timef(t time.Time) string {
	return t.Format("2006/01/02 15:04:05")
}
