package nextflow

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/uc-cdis/nf-rangeland/logging"
	"github.com/uc-cdis/nf-rangeland/runerr"
	"github.com/uc-cdis/nf-rangeland/storage"
	"github.com/uc-cdis/nf-rangeland/tracing"
)

// finalizer uploads the nextflow log once staging has begun.
// It runs at most once per run, whatever path the run takes out.
type finalizer struct {
	once     sync.Once
	err      error
	uploaded string

	localLog  string
	prefix    string
	fileName  string
	execution string
	uploader  storage.Uploader
	runLog    *logging.RunLog
}

func (f *finalizer) finalize(ctx context.Context) error {
	f.once.Do(func() {
		f.err = f.upload(ctx)
	})
	return f.err
}

func (f *finalizer) upload(ctx context.Context) error {
	ctx, span := tracing.Start(ctx, string(StateFinalizing))
	defer span.End()

	if _, err := os.Stat(f.localLog); err != nil {
		log.WithField("path", f.localLog).Info("no nextflow log to upload")
		return nil
	}
	if f.execution == "" {
		log.Warn("Skipping logs upload, failed to get execution name")
		f.runLog.Event.Warnf("skipped log upload: execution name unknown")
		return nil
	}
	remote := storage.Join(f.prefix, f.execution, f.fileName)
	span.SetAttributes(attribute.String(tracing.AttrKeyRemote, remote))
	log.WithField("remote", remote).Infof("Uploading %v to %v", filepath.Base(f.localLog), remote)

	if f.uploader == nil {
		err := runerr.Upload(nil, "no uploader configured for %v", remote)
		tracing.SetSpanError(ctx, err)
		return f.runLog.Event.Errorf(err, "log upload failed")
	}
	if err := f.uploader.Upload(ctx, f.localLog, remote); err != nil {
		err = runerr.Upload(err, "failed to upload %v to %v", f.localLog, remote)
		tracing.SetSpanError(ctx, err)
		return f.runLog.Event.Errorf(err, "log upload failed")
	}
	f.uploaded = remote
	f.runLog.SetUploaded(remote)
	f.runLog.Event.Infof("uploaded nextflow log to %v", remote)
	return nil
}
