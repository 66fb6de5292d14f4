package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"gopkg.in/yaml.v2"

	"github.com/uc-cdis/nf-rangeland/config"
	"github.com/uc-cdis/nf-rangeland/logging"
	"github.com/uc-cdis/nf-rangeland/nextflow"
	"github.com/uc-cdis/nf-rangeland/params"
	"github.com/uc-cdis/nf-rangeland/provision"
	"github.com/uc-cdis/nf-rangeland/runerr"
	"github.com/uc-cdis/nf-rangeland/storage"
	"github.com/uc-cdis/nf-rangeland/tracing"
)

const version = "0.1.0"

/*
nf-rangeland runs the nf-core/rangeland nextflow pipeline as a platform task.

usage:
 - provision the shared volume:   `nf-rangeland initialize`
 - run on a provisioned volume:   `nf-rangeland run --volume $PVC --params params.json`
 - provision and run in one step: `nf-rangeland execute --params params.json`
 - print the parameter surface:   `nf-rangeland params --format yaml`
 - serve the parameter surface:   `nf-rangeland listen --port 8000`

environment:
 - FLYTE_INTERNAL_EXECUTION_ID  execution token sent to the provisioning service
 - NF_EXECUTION_NAME            execution name used in the log upload path; the task
                                definition must set it, otherwise the upload is skipped
 - AWSCREDS, AWS_REGION         credentials and region for the log bucket
*/
func main() {
	app := newApp(os.Stdout)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "nf-rangeland"
	app.Usage = "Run the nf-core/rangeland nextflow pipeline"
	app.Version = version
	app.Writer = out
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "path to a JSON config file"},
		cli.StringFlag{Name: "log-level", Value: "info", Usage: "logrus level"},
		cli.StringFlag{Name: "log-format", Value: "text", Usage: "text or json"},
		cli.BoolFlag{Name: "trace", Usage: "print tracing spans to stderr"},
	}
	app.Before = func(c *cli.Context) error {
		return logging.Configure(os.Stderr, c.String("log-level"), c.String("log-format"))
	}
	paramsFlag := cli.StringFlag{Name: "params", Usage: "JSON or YAML file of parameter values"}
	app.Commands = []cli.Command{
		{
			Name:   "initialize",
			Usage:  "provision the shared storage volume and print its name",
			Action: withTask(initialize),
		},
		{
			Name:   "run",
			Usage:  "stage the workspace on an existing volume and run nextflow",
			Flags:  []cli.Flag{cli.StringFlag{Name: "volume", Usage: "name of the provisioned volume"}, paramsFlag},
			Action: withTask(run),
		},
		{
			Name:   "execute",
			Usage:  "provision a volume, then stage and run nextflow",
			Flags:  []cli.Flag{paramsFlag},
			Action: withTask(execute),
		},
		{
			Name:   "params",
			Usage:  "print the declared parameters",
			Flags:  []cli.Flag{cli.StringFlag{Name: "format", Value: "json", Usage: "json or yaml"}},
			Action: printParams,
		},
		{
			Name:  "listen",
			Usage: "serve the declared parameters over http",
			Flags: []cli.Flag{cli.UintFlag{Name: "port", Value: 8000}},
			Action: func(c *cli.Context) error {
				reg, err := params.Rangeland()
				if err != nil {
					return err
				}
				return runServer(reg, c.Uint("port"))
			},
		},
	}
	return app
}

// task is everything a command needs that comes from config and the environment
type task struct {
	ctx    context.Context
	driver *nextflow.Driver
	out    io.Writer
}

type taskAction func(c *cli.Context, t *task) error

// withTask loads config, wires the driver and opens a span for the command
func withTask(f taskAction) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		cfg, err := config.Load(c.GlobalString("config"))
		if err != nil {
			return exit(runerr.Config(err, "failed to load config"))
		}
		ctx := context.Background()
		if c.GlobalBool("trace") {
			provider, err := tracing.NewProvider(os.Stderr, version)
			if err != nil {
				return fmt.Errorf("could not initialize tracing: %v", err)
			}
			defer func() {
				if err := provider.Shutdown(context.Background()); err != nil {
					log.WithError(err).Debug("tracing shutdown error")
				}
			}()
			ctx = provider.WithTracer(ctx)
		}
		ctx, span := tracing.Start(ctx, c.Command.Name)
		defer span.End()

		var uploader storage.Uploader
		if s3, err := storage.NewS3Uploader(cfg.Logs.Region, cfg.AWSCreds); err != nil {
			log.WithError(err).Warn("log upload disabled")
		} else {
			uploader = s3
		}
		t := &task{
			ctx:    ctx,
			driver: nextflow.NewDriver(cfg, provision.NewClient(cfg.Provision.Endpoint, cfg.Token), nextflow.NewExecRunner(), uploader),
			out:    c.App.Writer,
		}
		if err = f(c, t); err != nil {
			tracing.SetSpanError(ctx, err)
			return exit(err)
		}
		return nil
	}
}

func initialize(c *cli.Context, t *task) error {
	volume, err := t.driver.Provision(t.ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(t.out, volume)
	return nil
}

func run(c *cli.Context, t *task) error {
	values, err := loadValues(c.String("params"))
	if err != nil {
		return err
	}
	res, err := t.driver.Run(t.ctx, c.String("volume"), values)
	return report(t.out, res, err)
}

func execute(c *cli.Context, t *task) error {
	values, err := loadValues(c.String("params"))
	if err != nil {
		return err
	}
	res, err := t.driver.Execute(t.ctx, values)
	return report(t.out, res, err)
}

func loadValues(file string) (*params.Values, error) {
	if file == "" {
		return nil, runerr.Config(nil, "--params is required")
	}
	reg, err := params.Rangeland()
	if err != nil {
		return nil, err
	}
	return params.LoadValues(reg, file)
}

// report prints the run record and passes the run error through
func report(out io.Writer, res *nextflow.Result, err error) error {
	if res != nil && res.Log != nil {
		b, jerr := res.Log.JSON()
		if jerr != nil {
			log.WithError(jerr).Error("failed to render run log")
		} else {
			fmt.Fprintln(out, string(b))
		}
	}
	return err
}

func printParams(c *cli.Context) error {
	reg, err := params.Rangeland()
	if err != nil {
		return err
	}
	views, err := parameterViews(reg)
	if err != nil {
		return err
	}
	var b []byte
	switch c.String("format") {
	case "json":
		b, err = json.MarshalIndent(views, "", "  ")
	case "yaml":
		b, err = yaml.Marshal(reg.Descriptors())
	default:
		return fmt.Errorf("unknown format %q, want json or yaml", c.String("format"))
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(b))
	return nil
}

// exit maps an error to a process exit status: the nextflow exit code
// when the pipeline ran and failed, 1 otherwise
func exit(err error) error {
	code := runerr.ExitCode(err)
	if code <= 0 {
		code = 1
	}
	return cli.NewExitError(err.Error(), code)
}
