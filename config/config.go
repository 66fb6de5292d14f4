package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"k8s.io/apimachinery/pkg/api/resource"
)

// this file contains type definitions for the runner config and a function for loading it
// the environment is read exactly once, in Load, and nothing downstream touches it again

const (
	// environment variables
	executionTokenEnvVar = "FLYTE_INTERNAL_EXECUTION_ID"
	executionNameEnvVar  = "NF_EXECUTION_NAME"
	awsCredsEnvVar       = "AWSCREDS"
	awsRegionEnvVar      = "AWS_REGION"

	gib = 1 << 30
)

// DefaultIgnore is the set of directory names never staged into the shared workspace:
// tooling caches, artifacts of earlier runs, package manager trees.
var DefaultIgnore = []string{
	"latch",
	".latch",
	"nextflow",
	".nextflow",
	"work",
	"results",
	"miniconda",
	"anaconda3",
	"mambaforge",
}

type Config struct {
	Provision Provision `json:"provision"`
	Nextflow  Nextflow  `json:"nextflow"`
	Logs      Logs      `json:"logs"`

	// resolved from the environment by Load
	Token         string          `json:"-"`
	ExecutionName string          `json:"-"`
	AWSCreds      *AWSCredentials `json:"-"`
}

type Provision struct {
	Endpoint string `json:"endpoint"`
	Storage  string `json:"storage"` // kubernetes quantity, e.g. 100Gi
}

type Nextflow struct {
	Binary     string   `json:"binary"`
	BaseDir    string   `json:"base_dir"`
	Workspace  string   `json:"workspace"`
	EntryFile  string   `json:"entry_file"`
	ConfigFile string   `json:"config_file"`
	Profile    string   `json:"profile"`
	LogFile    string   `json:"log_file"` // relative to the workspace
	Home       string   `json:"home"`
	MinHeap    string   `json:"min_heap"`
	MaxHeap    string   `json:"max_heap"`
	CPUs       int      `json:"cpus"`
	Ignore     []string `json:"ignore"`
}

type Logs struct {
	Prefix   string `json:"prefix"`
	FileName string `json:"file_name"`
	Region   string `json:"region"`
}

type AWSCredentials struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
}

// Default returns the configuration the nf-core/rangeland task ships with
func Default() *Config {
	return &Config{
		Provision: Provision{
			Endpoint: "http://nf-dispatcher-service.flyte.svc.cluster.local/provision-storage",
			Storage:  "100Gi",
		},
		Nextflow: Nextflow{
			Binary:     "/root/nextflow",
			BaseDir:    "/root",
			Workspace:  "/nf-workdir",
			EntryFile:  "main.nf",
			ConfigFile: "latch.config",
			Profile:    "docker",
			LogFile:    ".nextflow.log",
			Home:       "/root/.nextflow",
			MinHeap:    "2048M",
			MaxHeap:    "8G",
			CPUs:       4,
			Ignore:     append([]string{}, DefaultIgnore...),
		},
		Logs: Logs{
			Prefix:   "s3://latch-logs/your_log_dir/nf_nf_core_rangeland",
			FileName: "nextflow.log",
			Region:   "us-east-1",
		},
	}
}

// Load builds the config: defaults, then the JSON file at path (if path is non-empty),
// then the environment. The result is validated before it is returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		b, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %v: %v", path, err)
		}
		if err = json.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %v: %v", path, err)
		}
	}
	if err := cfg.FromEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv fills the fields that only the execution environment knows.
// lookup is os.LookupEnv outside of tests.
func (c *Config) FromEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(executionTokenEnvVar); ok {
		c.Token = strings.TrimSpace(v)
	}
	if v, ok := lookup(executionNameEnvVar); ok {
		c.ExecutionName = strings.TrimSpace(v)
	}
	if v, ok := lookup(awsRegionEnvVar); ok && v != "" {
		c.Logs.Region = v
	}
	if v, ok := lookup(awsCredsEnvVar); ok && v != "" {
		creds := &AWSCredentials{}
		if err := json.Unmarshal([]byte(v), creds); err != nil {
			return fmt.Errorf("error unmarshalling aws secret: %v", err)
		}
		c.AWSCreds = creds
	}
	return nil
}

// Validate checks everything that can be checked before a run starts.
// The execution token is not checked here; the provisioning client owns that failure.
func (c *Config) Validate() error {
	if _, err := c.StorageGiB(); err != nil {
		return err
	}
	u, err := url.Parse(c.Provision.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("provision endpoint %q is not an absolute url", c.Provision.Endpoint)
	}
	nf := c.Nextflow
	for name, v := range map[string]string{
		"binary":      nf.Binary,
		"base_dir":    nf.BaseDir,
		"workspace":   nf.Workspace,
		"entry_file":  nf.EntryFile,
		"config_file": nf.ConfigFile,
		"profile":     nf.Profile,
		"log_file":    nf.LogFile,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("nextflow %v is required", name)
		}
	}
	if !filepath.IsAbs(nf.Workspace) {
		return fmt.Errorf("workspace %q must be an absolute path", nf.Workspace)
	}
	if filepath.Clean(nf.Workspace) == filepath.Clean(nf.BaseDir) {
		return fmt.Errorf("workspace and base_dir must differ")
	}
	if nf.CPUs < 0 {
		return fmt.Errorf("cpus must not be negative")
	}
	for _, q := range []string{nf.MinHeap, nf.MaxHeap} {
		if q == "" {
			continue
		}
		if _, err := resource.ParseQuantity(q); err != nil {
			return fmt.Errorf("heap size %q: %v", q, err)
		}
	}
	if strings.TrimSpace(c.Logs.Prefix) == "" || strings.TrimSpace(c.Logs.FileName) == "" {
		return fmt.Errorf("log prefix and file name are required")
	}
	return nil
}

// StorageGiB returns the shared volume size as whole GiB, rounding up
func (c *Config) StorageGiB() (int, error) {
	q, err := resource.ParseQuantity(c.Provision.Storage)
	if err != nil {
		return 0, fmt.Errorf("storage size %q: %v", c.Provision.Storage, err)
	}
	bytes := q.Value()
	if bytes <= 0 {
		return 0, fmt.Errorf("storage size %q must be positive", c.Provision.Storage)
	}
	return int((bytes + gib - 1) / gib), nil
}

// JVMOptions is the NXF_OPTS value for the nextflow launcher
func (c *Config) JVMOptions() string {
	opts := []string{}
	if c.Nextflow.MinHeap != "" {
		opts = append(opts, "-Xms"+c.Nextflow.MinHeap)
	}
	if c.Nextflow.MaxHeap != "" {
		opts = append(opts, "-Xmx"+c.Nextflow.MaxHeap)
	}
	if c.Nextflow.CPUs > 0 {
		opts = append(opts, fmt.Sprintf("-XX:ActiveProcessorCount=%d", c.Nextflow.CPUs))
	}
	return strings.Join(opts, " ")
}
