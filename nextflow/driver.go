package nextflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/uc-cdis/nf-rangeland/config"
	"github.com/uc-cdis/nf-rangeland/logging"
	"github.com/uc-cdis/nf-rangeland/params"
	"github.com/uc-cdis/nf-rangeland/provision"
	"github.com/uc-cdis/nf-rangeland/runerr"
	"github.com/uc-cdis/nf-rangeland/storage"
	"github.com/uc-cdis/nf-rangeland/tracing"
)

// State is a state of the run lifecycle
type State string

const (
	StateProvisioning State = logging.Provisioning
	StateStaging      State = logging.Staging
	StateRunning      State = logging.Running
	StateFinalizing   State = logging.Finalizing
	StateDone         State = logging.Done
	StateFailed       State = logging.Failed
)

// Terminal reports whether s ends a run
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Context is what a run knows about where it is running
type Context struct {
	VolumeID  string
	Workspace string
}

func (c Context) fields(state State) log.Fields {
	return log.Fields{
		"state":     state,
		"volume":    c.VolumeID,
		"workspace": c.Workspace,
	}
}

func (c Context) attributes(state State) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(tracing.AttrKeyState, string(state)),
		attribute.String(tracing.AttrKeyVolume, c.VolumeID),
		attribute.String(tracing.AttrKeyWorkspace, c.Workspace),
	}
}

// Result describes how a run ended.
// Command is nil when the run never reached the running state,
// in which case ExitCode is -1.
type Result struct {
	State    State
	VolumeID string
	Command  *Command
	ExitCode int
	Uploaded string
	Log      *logging.RunLog
}

// Driver takes a parameter set through provisioning, staging, running and finalizing
type Driver struct {
	cfg         *config.Config
	provisioner provision.Provisioner
	runner      ProcessRunner
	uploader    storage.Uploader

	// Environ supplies the environment the nextflow process inherits
	Environ func() []string
}

// NewDriver wires a driver. The uploader may be nil when no log store is configured,
// in which case an existing log makes finalizing fail.
func NewDriver(cfg *config.Config, p provision.Provisioner, r ProcessRunner, u storage.Uploader) *Driver {
	return &Driver{
		cfg:         cfg,
		provisioner: p,
		runner:      r,
		uploader:    u,
		Environ:     os.Environ,
	}
}

// Provision requests the shared volume for a run and returns its name
func (d *Driver) Provision(ctx context.Context) (string, error) {
	ctx, span := tracing.Start(ctx, string(StateProvisioning))
	defer span.End()

	if d.provisioner == nil {
		return "", runerr.Config(nil, "no provisioner configured")
	}
	gib, err := d.cfg.StorageGiB()
	if err != nil {
		return "", runerr.Config(err, "invalid storage size")
	}
	volume, err := d.provisioner.RequestVolume(ctx, gib)
	if err != nil {
		tracing.SetSpanError(ctx, err)
		return "", err
	}
	span.SetAttributes(attribute.String(tracing.AttrKeyVolume, volume))
	return volume, nil
}

// Execute runs the whole lifecycle, starting with provisioning.
// The returned Result is never nil; err is non-nil exactly when Result.State is StateFailed.
func (d *Driver) Execute(ctx context.Context, values *params.Values) (*Result, error) {
	res := d.newResult(values)
	flags, err := d.flags(values)
	if err != nil {
		return d.fail(res, err)
	}

	d.enter(res, StateProvisioning, Context{Workspace: d.cfg.Nextflow.Workspace})
	volume, err := d.Provision(ctx)
	if err != nil {
		return d.fail(res, err)
	}
	return d.run(ctx, res, volume, flags)
}

// Run starts the lifecycle at staging on a volume provisioned earlier
func (d *Driver) Run(ctx context.Context, volumeID string, values *params.Values) (*Result, error) {
	res := d.newResult(values)
	if strings.TrimSpace(volumeID) == "" {
		return d.fail(res, runerr.Config(nil, "a volume name is required"))
	}
	flags, err := d.flags(values)
	if err != nil {
		return d.fail(res, err)
	}
	return d.run(ctx, res, volumeID, flags)
}

func (d *Driver) newResult(values *params.Values) *Result {
	runLog := logging.NewRunLog(d.cfg.ExecutionName)
	runLog.Start()
	if values != nil {
		runLog.SetParams(values.Map())
	}
	return &Result{ExitCode: -1, Log: runLog}
}

func (d *Driver) flags(values *params.Values) ([]string, error) {
	if values == nil {
		return nil, runerr.Config(nil, "no parameter values")
	}
	return params.Flags(values)
}

func (d *Driver) run(ctx context.Context, res *Result, volume string, flags []string) (out *Result, err error) {
	res.VolumeID = volume
	res.Log.SetVolume(volume)
	nctx := Context{VolumeID: volume, Workspace: d.cfg.Nextflow.Workspace}

	fin := &finalizer{
		localLog:  filepath.Join(nctx.Workspace, d.cfg.Nextflow.LogFile),
		prefix:    d.cfg.Logs.Prefix,
		fileName:  d.cfg.Logs.FileName,
		execution: d.cfg.ExecutionName,
		uploader:  d.uploader,
		runLog:    res.Log,
	}
	defer func() {
		out = res
		if p := recover(); p != nil {
			err = runerr.Execution(fmt.Errorf("panic: %v", p), res.ExitCode, "nextflow run aborted")
		}
		d.enter(res, StateFinalizing, nctx)
		if ferr := fin.finalize(ctx); ferr != nil {
			if err != nil {
				err = multierror.Append(err, ferr)
			} else {
				err = ferr
			}
		}
		res.Uploaded = fin.uploaded
		if err != nil {
			d.fail(res, err)
			return
		}
		d.finish(res, StateDone)
	}()

	d.enter(res, StateStaging, nctx)
	if err = d.stage(ctx, nctx); err != nil {
		return res, err
	}

	d.enter(res, StateRunning, nctx)
	cmd := BuildCommand(d.cfg.Nextflow, d.cfg.JVMOptions(), volume, flags, d.environ())
	res.Command = cmd
	res.Log.SetCommand(cmd.Args)
	log.WithFields(nctx.fields(StateRunning)).Info("Launching Nextflow Runtime")
	log.Info(cmd.String())

	code, err := d.execute(ctx, nctx, cmd)
	res.ExitCode = code
	res.Log.SetExitCode(code)
	return res, err
}

func (d *Driver) stage(ctx context.Context, nctx Context) error {
	ctx, span := tracing.Start(ctx, string(StateStaging))
	defer span.End()
	span.SetAttributes(nctx.attributes(StateStaging)...)
	nf := d.cfg.Nextflow
	if err := Stage(nf.BaseDir, nf.Workspace, nf.Ignore); err != nil {
		tracing.SetSpanError(ctx, err)
		return err
	}
	return nil
}

func (d *Driver) execute(ctx context.Context, nctx Context, cmd *Command) (int, error) {
	ctx, span := tracing.Start(ctx, string(StateRunning))
	defer span.End()
	span.SetAttributes(nctx.attributes(StateRunning)...)

	if d.runner == nil {
		return -1, runerr.Config(nil, "no process runner configured")
	}
	code, err := d.runner.Run(ctx, cmd)
	span.SetAttributes(attribute.Int(tracing.AttrKeyExitCode, code))
	switch {
	case err != nil:
		err = runerr.Execution(err, code, "failed to run %v", cmd.Args[0])
	case code != 0:
		err = runerr.Execution(nil, code, "nextflow exited with status %d", code)
	}
	if err != nil {
		tracing.SetSpanError(ctx, err)
	}
	return code, err
}

func (d *Driver) environ() []string {
	if d.Environ == nil {
		return nil
	}
	return d.Environ()
}

func (d *Driver) enter(res *Result, state State, nctx Context) {
	res.State = state
	res.Log.SetStatus(string(state))
	log.WithFields(nctx.fields(state)).Infof("entering %v", state)
}

// finish moves res to a terminal state; a run is finished at most once
func (d *Driver) finish(res *Result, state State) {
	if res.State.Terminal() || !state.Terminal() {
		return
	}
	res.State = state
	res.Log.Finish(string(state))
	log.WithFields(log.Fields{
		"state":  state,
		"volume": res.VolumeID,
	}).Infof("run %v", state)
}

func (d *Driver) fail(res *Result, err error) (*Result, error) {
	state := res.State
	if state == "" {
		state = logging.NotStarted
	}
	res.Log.Event.Errorf(err, "run failed in state %v", state)
	d.finish(res, StateFailed)
	log.WithError(err).Error("run failed")
	return res, err
}
