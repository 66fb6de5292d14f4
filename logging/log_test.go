package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"regexp"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLogLifecycle(t *testing.T) {
	l := NewRunLog("brave_rangeland_42")
	assert.Equal(t, NotStarted, l.GetStatus())
	assert.Len(t, l.ID, 36)

	l.Start()
	for _, s := range []string{Provisioning, Staging, Running, Finalizing} {
		l.SetStatus(s)
		assert.Equal(t, s, l.GetStatus())
	}
	l.SetVolume("pvc-1")
	l.SetCommand([]string{"/root/nextflow", "run"})
	l.SetExitCode(1)
	l.Finish(Failed)

	b, err := l.JSON()
	require.NoError(t, err)
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "failed", out["status"])
	assert.Equal(t, "pvc-1", out["volume"])
	assert.Equal(t, "brave_rangeland_42", out["execution"])
	assert.Equal(t, float64(1), out["stats"].(map[string]interface{})["exitCode"])

	events := l.Event.Snapshot()
	require.NotEmpty(t, events)
	record := regexp.MustCompile(`^\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2} - INFO - .+$`)
	for _, e := range events {
		assert.Regexp(t, record, e)
	}
	assert.Contains(t, events[len(events)-1], "run finished with status failed")
}

func TestExitCodeOmittedUntilKnown(t *testing.T) {
	l := NewRunLog("")
	b, err := l.JSON()
	require.NoError(t, err)
	assert.NotContains(t, string(b), "exitCode")
	assert.NotContains(t, string(b), "execution")
}

func TestEventLogLevels(t *testing.T) {
	e := &EventLog{}
	e.Warnf("skipping upload of %v", "nextflow.log")
	boom := errors.New("boom")
	assert.Equal(t, boom, e.Errorf(boom, "upload failed"))

	events := e.Snapshot()
	require.Len(t, events, 2)
	assert.Contains(t, events[0], " - WARNING - skipping upload of nextflow.log")
	assert.Contains(t, events[1], " - ERROR - upload failed: boom")
}

func TestConfigure(t *testing.T) {
	defer log.SetFormatter(&log.TextFormatter{})
	defer log.SetLevel(log.InfoLevel)
	defer log.SetOutput(os.Stderr)

	buf := &bytes.Buffer{}
	require.NoError(t, Configure(buf, "debug", "json"))
	log.WithField("state", "staging").Debug("entering state")
	assert.Contains(t, buf.String(), `"state":"staging"`)

	assert.Error(t, Configure(buf, "loud", "text"))
	assert.Error(t, Configure(buf, "info", "xml"))
}
