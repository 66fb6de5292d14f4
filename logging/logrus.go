package logging

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
)

// Configure sets up the standard logrus logger for the CLI.
// format is "text" or "json".
func Configure(out io.Writer, level, format string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	switch format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q, want text or json", format)
	}
	log.SetOutput(out)
	log.SetLevel(lvl)
	return nil
}
