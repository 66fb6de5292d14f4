package nextflow

import (
	"path/filepath"
	"strings"

	"github.com/uc-cdis/nf-rangeland/config"
)

// Command is one invocation of the nextflow launcher.
// It is built once by BuildCommand and consumed once by a ProcessRunner.
type Command struct {
	Args []string `json:"args"`
	Dir  string   `json:"dir"`
	Env  []string `json:"-"`
}

// String is the command line as it is logged
func (c *Command) String() string {
	return strings.Join(c.Args, " ")
}

// BuildCommand assembles the nextflow command line for a run on volume.
// flags come from params.Flags and are appended after the fixed arguments.
// environ is the inherited environment, usually os.Environ().
func BuildCommand(nf config.Nextflow, jvmOptions, volume string, flags, environ []string) *Command {
	args := []string{
		nf.Binary,
		"run",
		filepath.Join(nf.Workspace, nf.EntryFile),
		"-work-dir",
		nf.Workspace,
		"-profile",
		nf.Profile,
		"-c",
		nf.ConfigFile,
	}
	args = append(args, flags...)

	return &Command{
		Args: args,
		Dir:  nf.Workspace,
		Env: overlay(environ, [][2]string{
			{"NXF_HOME", nf.Home},
			{"NXF_OPTS", jvmOptions},
			{"K8S_STORAGE_CLAIM_NAME", volume},
			{"NXF_DISABLE_CHECK_LATEST", "true"},
		}),
	}
}

// overlay returns environ with vars set, replacing any inherited value
func overlay(environ []string, vars [][2]string) []string {
	set := make(map[string]bool, len(vars))
	for _, kv := range vars {
		set[kv[0]] = true
	}
	env := make([]string, 0, len(environ)+len(vars))
	for _, e := range environ {
		key := e
		if i := strings.Index(e, "="); i >= 0 {
			key = e[:i]
		}
		if set[key] {
			continue
		}
		env = append(env, e)
	}
	for _, kv := range vars {
		env = append(env, kv[0]+"="+kv[1])
	}
	return env
}

// Getenv looks key up in the command's environment
func (c *Command) Getenv(key string) (string, bool) {
	for i := len(c.Env) - 1; i >= 0; i-- {
		if strings.HasPrefix(c.Env[i], key+"=") {
			return c.Env[i][len(key)+1:], true
		}
	}
	return "", false
}
