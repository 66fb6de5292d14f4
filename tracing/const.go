package tracing

// Span attribute keys used by the runner
const (
	AttrKeyState     = "rangeland.state"
	AttrKeyVolume    = "rangeland.volume"
	AttrKeyWorkspace = "rangeland.workspace"
	AttrKeyExitCode  = "rangeland.exit_code"
	AttrKeyErrorKind = "rangeland.error.kind"
	AttrKeyRemote    = "rangeland.remote"
)

// InstrumentationName names the tracer handed out by NewProvider
const InstrumentationName = "github.com/uc-cdis/nf-rangeland"
