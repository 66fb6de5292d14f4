/*
Package tracing keeps an OpenTelemetry tracer in a context.Context so the driver
and the CLI can open spans without a package global.

When no tracer has been set a no-op tracer is used.
*/
package tracing
