package nextflow

import (
	"os"
	"path/filepath"
	"strings"

	cp "github.com/otiai10/copy"
	log "github.com/sirupsen/logrus"

	"github.com/uc-cdis/nf-rangeland/runerr"
)

// Stage copies baseDir into workspace.
// Entries whose name is in ignore are skipped at every depth.
// Symlinks are followed; dangling ones are skipped.
// An existing workspace is merged into, not replaced.
func Stage(baseDir, workspace string, ignore []string) error {
	src, err := filepath.Abs(baseDir)
	if err != nil {
		return runerr.Staging(err, "failed to resolve %v", baseDir)
	}
	dest, err := filepath.Abs(workspace)
	if err != nil {
		return runerr.Staging(err, "failed to resolve %v", workspace)
	}
	if src == dest || strings.HasPrefix(dest, src+string(filepath.Separator)) {
		return runerr.Staging(nil, "workspace %v must not be inside %v", dest, src)
	}
	info, err := os.Stat(src)
	if err != nil {
		return runerr.Staging(err, "failed to stat base directory")
	}
	if !info.IsDir() {
		return runerr.Staging(nil, "base directory %v is not a directory", src)
	}

	skip := make(map[string]bool, len(ignore))
	for _, name := range ignore {
		skip[name] = true
	}

	opts := cp.Options{
		Skip: func(srcinfo os.FileInfo, src, dest string) (bool, error) {
			return skip[srcinfo.Name()], nil
		},
		OnSymlink: func(src string) cp.SymlinkAction {
			if _, err := os.Stat(src); err != nil {
				log.WithField("path", src).Warn("skipping dangling symlink")
				return cp.Skip
			}
			return cp.Deep
		},
		OnDirExists: func(src, dest string) cp.DirExistsAction {
			return cp.Merge
		},
	}
	if err = cp.Copy(src, dest, opts); err != nil {
		return runerr.Staging(err, "failed to copy %v to %v", src, dest)
	}
	return nil
}
