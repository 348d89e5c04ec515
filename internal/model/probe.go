package model

// ProbeKind selects which mechanism a custom health check uses.
type ProbeKind string

const (
	ProbeNone ProbeKind = "none"
	ProbeHTTP ProbeKind = "http"
	ProbeTCP  ProbeKind = "tcp"
	ProbeExec ProbeKind = "exec"
)

// Probe is a custom health check bound to a StableId.
type Probe struct {
	Kind       ProbeKind  `json:"kind"`
	IntervalS  int        `json:"interval_s"`
	TimeoutS   int        `json:"timeout_s"`
	Retries    int        `json:"retries"`
	HTTP       HTTPProbe  `json:"http,omitempty"`
	TCP        TCPProbe   `json:"tcp,omitempty"`
	Exec       ExecProbe  `json:"exec,omitempty"`
}

type HTTPProbe struct {
	Endpoint       string `json:"endpoint,omitempty"`
	ExpectedStatus int    `json:"expected_status,omitempty"`
}

type TCPProbe struct {
	Port int `json:"port,omitempty"`
}

type ExecProbe struct {
	Argv []string `json:"argv,omitempty"`
}

// Empty reports whether the probe is unset (kind none, or zero value).
func (p Probe) Empty() bool {
	return p.Kind == "" || p.Kind == ProbeNone
}
