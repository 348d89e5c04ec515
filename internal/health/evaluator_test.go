package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arcane-autoheal/autoheal/internal/model"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	httpErrs []error
	call     int
}

func (f *fakeProber) ProbeHTTP(ctx context.Context, endpoint string, expectedStatus int, timeout time.Duration) error {
	err := f.httpErrs[f.call]
	f.call++
	return err
}
func (f *fakeProber) ProbeTCP(ctx context.Context, host string, port int, timeout time.Duration) error {
	return nil
}
func (f *fakeProber) ProbeExec(ctx context.Context, containerID string, argv []string, timeout time.Duration) error {
	return nil
}

func exitCode(c int) *int { return &c }

func TestEvaluate_ExitedZeroIsOk(t *testing.T) {
	e := New(nil)
	v := e.Evaluate(context.Background(), model.Observation{State: model.StateExited, ExitCode: exitCode(0)}, model.Probe{})
	require.Equal(t, model.VerdictExitedOk, v)
}

func TestEvaluate_ExitedNonZeroIsFail(t *testing.T) {
	e := New(nil)
	v := e.Evaluate(context.Background(), model.Observation{State: model.StateExited, ExitCode: exitCode(1)}, model.Probe{})
	require.Equal(t, model.VerdictExitedFail, v)
}

func TestEvaluate_NativeUnhealthy(t *testing.T) {
	e := New(nil)
	v := e.Evaluate(context.Background(), model.Observation{State: model.StateRunning, HealthStatus: model.HealthUnhealthy}, model.Probe{})
	require.Equal(t, model.VerdictUnhealthy, v)
}

func TestEvaluate_NativeStarting(t *testing.T) {
	e := New(nil)
	v := e.Evaluate(context.Background(), model.Observation{State: model.StateRunning, HealthStatus: model.HealthStarting}, model.Probe{})
	require.Equal(t, model.VerdictStarting, v)
}

func TestEvaluate_RunningNoHealthNoProbeIsHealthy(t *testing.T) {
	e := New(nil)
	v := e.Evaluate(context.Background(), model.Observation{State: model.StateRunning, HealthStatus: model.HealthNone}, model.Probe{})
	require.Equal(t, model.VerdictHealthy, v)
}

func TestEvaluate_CustomProbeSucceedsOnRetry(t *testing.T) {
	prober := &fakeProber{httpErrs: []error{errors.New("refused"), nil}}
	e := New(prober)
	probe := model.Probe{Kind: model.ProbeHTTP, Retries: 3, HTTP: model.HTTPProbe{Endpoint: "/health", ExpectedStatus: 200}}
	v := e.Evaluate(context.Background(), model.Observation{State: model.StateRunning}, probe)
	require.Equal(t, model.VerdictHealthy, v)
	require.Equal(t, 2, prober.call)
}

func TestEvaluate_CustomProbeExhaustsRetries(t *testing.T) {
	prober := &fakeProber{httpErrs: []error{errors.New("a"), errors.New("b"), errors.New("c")}}
	e := New(prober)
	probe := model.Probe{Kind: model.ProbeHTTP, Retries: 3, HTTP: model.HTTPProbe{Endpoint: "/health"}}
	v := e.Evaluate(context.Background(), model.Observation{State: model.StateRunning}, probe)
	require.Equal(t, model.VerdictUnhealthy, v)
	require.Equal(t, 3, prober.call)
}

func TestEvaluate_CreatedIsUnknown(t *testing.T) {
	e := New(nil)
	v := e.Evaluate(context.Background(), model.Observation{State: model.StateCreated}, model.Probe{})
	require.Equal(t, model.VerdictUnknown, v)
}
