package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hejijunhao/scalr/internal/dispatch"
	"github.com/hejijunhao/scalr/internal/failure"
	"github.com/hejijunhao/scalr/internal/metrics"
	"github.com/hejijunhao/scalr/internal/output"
	"github.com/hejijunhao/scalr/internal/transport"
)

const systemPayload = `<LogsListResponse>
  <TransactionID>tx-1</TransactionID>
  <LogSet>
    <Item><ServerID>web-1</ServerID><Severity>2</Severity><Message>booted</Message><Source>scalarizr</Source></Item>
    <Item><ServerID>db-1</ServerID><Severity>5</Severity><Message>kernel panic</Message><Source>kernel</Source></Item>
  </LogSet>
</LogsListResponse>`

const scriptPayload = `<ScriptingLogsListResponse>
  <TransactionID>tx-2</TransactionID>
  <LogSet>
    <Item>
      <ServerID>web-1</ServerID><ScriptName>TTMAppConfigAndLaunch</ScriptName>
      <ScriptExitCode>1</ScriptExitCode><Message>s3cmd: SignatureDoesNotMatch</Message>
    </Item>
    <Item>
      <ServerID>web-1</ServerID><ScriptName>cleanup</ScriptName>
      <ScriptExitCode>0</ScriptExitCode><Message>done</Message>
    </Item>
    <Item>
      <ServerID>web-2</ServerID><ScriptName>deploy</ScriptName>
      <ScriptExitCode>3</ScriptExitCode><Message>unexpected</Message>
    </Item>
    <Item>
      <ServerID>db-1</ServerID><ScriptName>backup</ScriptName>
      <ScriptExitCode>1</ScriptExitCode><Message>No space left on device</Message>
    </Item>
  </LogSet>
</ScriptingLogsListResponse>`

// farmTransport answers each log action with a canned payload.
type farmTransport struct {
	mu       sync.Mutex
	payloads map[string]string
	errs     map[string]error
	calls    []*transport.Request
}

func (f *farmTransport) Send(_ context.Context, req *transport.Request) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if err := f.errs[req.Action.Remote]; err != nil {
		return nil, err
	}
	return []byte(f.payloads[req.Action.Remote]), nil
}

func newFarm() *farmTransport {
	return &farmTransport{payloads: map[string]string{
		"LogsList":          systemPayload,
		"ScriptingLogsList": scriptPayload,
	}}
}

func newCollector(t *farmTransport, opts ...Option) *Collector {
	d := dispatch.New(dispatch.Settings{Endpoint: "api.example.test", Version: "2.0.0"}, t)
	return New(d, opts...)
}

func TestCollect_RoutesIntoRegisteredSinks(t *testing.T) {
	farm := newFarm()
	reg, err := newCollector(farm).Collect(context.Background(), "farm-9", "web-1", "web-2")
	require.NoError(t, err)

	require.Len(t, farm.calls, 2)
	for _, call := range farm.calls {
		assert.Equal(t, []any{"farm-9", nil, 0, DefaultPageSize}, call.Arguments)
	}

	web1, ok := reg.Sink("web-1")
	require.True(t, ok)
	assert.Equal(t, 3, web1.Len())
	assert.Len(t, web1.SystemLogs(), 1)
	assert.Len(t, web1.ScriptingLogs(), 2)

	launch, ok := web1.ConfigAndLaunchScript()
	require.True(t, ok)
	assert.Equal(t, 1, launch.ExitCode())

	web2, _ := reg.Sink("web-2")
	assert.Equal(t, 1, web2.Len())

	_, ok = reg.Sink("db-1")
	assert.False(t, ok, "unrequested servers must not get sinks")
}

func TestCollect_SystemEntriesRoutedFirst(t *testing.T) {
	reg, err := newCollector(newFarm()).Collect(context.Background(), "farm-9", "web-1")
	require.NoError(t, err)

	web1, _ := reg.Sink("web-1")
	entries := web1.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "booted", entries[0].Message())
	assert.Equal(t, "s3cmd: SignatureDoesNotMatch", entries[1].Message())
	assert.Equal(t, "done", entries[2].Message())
}

// pagedTransport serves scripting log records in pages, honouring StartFrom
// and RecordsLimit up to its own per-page cap, and reports TotalRecords.
type pagedTransport struct {
	mu      sync.Mutex
	records []string // <Item> bodies
	total   int      // reported TotalRecords, len(records) when zero
	maxPage int      // service-side cap on page length, none when zero
	starts  []int
}

func (p *pagedTransport) Send(_ context.Context, req *transport.Request) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start, limit := req.Arguments[2].(int), req.Arguments[3].(int)
	p.starts = append(p.starts, start)
	if p.maxPage > 0 && limit > p.maxPage {
		limit = p.maxPage
	}
	total := p.total
	if total == 0 {
		total = len(p.records)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<%sResponse><TotalRecords>%d</TotalRecords><StartFrom>%d</StartFrom><LogSet>",
		req.Action.Remote, total, start)
	if req.Action.Remote == "ScriptingLogsList" {
		for i := start; i < start+limit && i < len(p.records); i++ {
			b.WriteString("<Item>" + p.records[i] + "</Item>")
		}
	}
	fmt.Fprintf(&b, "</LogSet></%sResponse>", req.Action.Remote)
	return []byte(b.String()), nil
}

func scriptRecord(server, name string, exitCode int) string {
	return fmt.Sprintf("<ServerID>%s</ServerID><ScriptName>%s</ScriptName><ScriptExitCode>%d</ScriptExitCode><Message>%s exited</Message>",
		server, name, exitCode, name)
}

// startsSeen returns the StartFrom of every request, both listings included.
// The system listing is always empty, so it contributes a single 0.
func (p *pagedTransport) startsSeen() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.starts...)
}

func TestCollect_FetchesEveryPage(t *testing.T) {
	pt := &pagedTransport{records: []string{
		scriptRecord("web-1", "prepare", 0),
		scriptRecord("web-1", "fetch", 0),
		scriptRecord("web-2", "deploy", 0),
		scriptRecord("web-1", "TTMAppConfigAndLaunch", 1),
		scriptRecord("web-1", "cleanup", 2),
	}}
	d := dispatch.New(dispatch.Settings{Endpoint: "api.example.test", Version: "2.0.0"}, pt)
	col := New(d, WithPageSize(2))

	reg, err := col.Collect(context.Background(), "farm-9", "web-1")
	require.NoError(t, err)

	assert.ElementsMatch(t, []int{0, 0, 2, 4}, pt.startsSeen())

	web1, _ := reg.Sink("web-1")
	var names []string
	for _, item := range web1.ScriptingLogs() {
		names = append(names, item.ScriptName())
	}
	assert.Equal(t, []string{"prepare", "fetch", "TTMAppConfigAndLaunch", "cleanup"}, names)

	launch, ok := web1.ConfigAndLaunchScript()
	require.True(t, ok)
	assert.Equal(t, 1, launch.ExitCode())
	assert.Len(t, web1.Failures(), 2)
}

func TestCollect_ServiceCapsPageLength(t *testing.T) {
	pt := &pagedTransport{maxPage: 1, records: []string{
		scriptRecord("web-1", "prepare", 0),
		scriptRecord("web-1", "TTMAppConfigAndLaunch", 1),
	}}
	d := dispatch.New(dispatch.Settings{Endpoint: "api.example.test", Version: "2.0.0"}, pt)

	reg, err := New(d).Collect(context.Background(), "farm-9", "web-1")
	require.NoError(t, err)

	web1, _ := reg.Sink("web-1")
	_, ok := web1.ConfigAndLaunchScript()
	assert.True(t, ok, "second page must be fetched")
	assert.Len(t, web1.Failures(), 1)
}

func TestCollect_EmptyPageEndsListing(t *testing.T) {
	pt := &pagedTransport{total: 50, records: []string{
		scriptRecord("web-1", "prepare", 0),
		scriptRecord("web-1", "deploy", 1),
		scriptRecord("web-1", "cleanup", 0),
	}}
	d := dispatch.New(dispatch.Settings{Endpoint: "api.example.test", Version: "2.0.0"}, pt)

	reg, err := New(d, WithPageSize(2)).Collect(context.Background(), "farm-9", "web-1")
	require.NoError(t, err)

	web1, _ := reg.Sink("web-1")
	assert.Equal(t, 3, web1.Len())
	assert.Len(t, pt.startsSeen(), 4, "system page, then script pages at 0, 2 and an empty one at 3")
}

func TestCollect_PropagatesDispatchErrors(t *testing.T) {
	farm := newFarm()
	boom := errors.New("connection reset")
	farm.errs = map[string]error{"ScriptingLogsList": boom}

	reg, err := newCollector(farm).Collect(context.Background(), "farm-9", "web-1")
	assert.Nil(t, reg)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "scripting_logs_list")
}

func TestCollect_MalformedLogsFail(t *testing.T) {
	farm := newFarm()
	farm.payloads["LogsList"] = `<LogsListResponse><LogSet><Item><Severity>loud</Severity></Item></LogSet></LogsListResponse>`

	_, err := newCollector(farm).Collect(context.Background(), "farm-9", "web-1")
	assert.ErrorIs(t, err, dispatch.ErrMalformedResponse)
}

func TestDiagnose_ClassifiesScriptFailuresPerSink(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	col := newCollector(newFarm(), WithMetrics(m))

	reg, err := col.Collect(context.Background(), "farm-9", "web-1", "web-2", "db-1")
	require.NoError(t, err)
	failures := col.Diagnose(reg)

	require.Len(t, failures, 3)
	assert.Equal(t, "web-1", failures[0].Owner())
	assert.True(t, failures[0].Has(failure.S3Authentication.Name))
	assert.Equal(t, "web-2", failures[1].Owner())
	assert.True(t, failures[1].IsGeneric())
	assert.Equal(t, "db-1", failures[2].Owner())
	assert.True(t, failures[2].Has(failure.DiskFull.Name))

	for _, f := range failures {
		assert.NotEqual(t, "kernel panic", f.Message(), "system entries are not script failures")
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("generic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("s3_authentication")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.Routed.WithLabelValues(metrics.RouteDelivered)))
}

func TestDiagnose_CustomClassifier(t *testing.T) {
	only := failure.Category{Name: "anything_nonzero"}
	col := newCollector(newFarm(), WithClassifier(failure.New(failure.ExitCodes(only, 1, 3))))

	reg, err := col.Collect(context.Background(), "farm-9", "web-2")
	require.NoError(t, err)

	failures := col.Diagnose(reg)
	require.Len(t, failures, 1)
	assert.Equal(t, []failure.Category{only}, failures[0].Categories())
}

type recordingOutput struct {
	reports []output.Report
	err     error
}

func (r *recordingOutput) Write(_ context.Context, rep output.Report) error {
	r.reports = append(r.reports, rep)
	return r.err
}

func (r *recordingOutput) Close() error { return nil }

func TestDeliver_WritesOneReportPerFailure(t *testing.T) {
	col := newCollector(newFarm())
	reg, err := col.Collect(context.Background(), "farm-9", "web-1", "db-1")
	require.NoError(t, err)

	out := &recordingOutput{}
	require.NoError(t, col.Deliver(context.Background(), col.Diagnose(reg), out, output.Minimal))

	require.Len(t, out.reports, 2)
	assert.Equal(t, "web-1", out.reports[0].Server)
	assert.Equal(t, "TTMAppConfigAndLaunch", out.reports[0].Script)
	assert.Empty(t, out.reports[0].Message)
	assert.Equal(t, "db-1", out.reports[1].Server)
}

func TestDeliver_StopsOnOutputError(t *testing.T) {
	col := newCollector(newFarm())
	reg, err := col.Collect(context.Background(), "farm-9", "web-1", "db-1")
	require.NoError(t, err)

	out := &recordingOutput{err: errors.New("closed pipe")}
	err = col.Deliver(context.Background(), col.Diagnose(reg), out, output.Standard)
	assert.Error(t, err)
	assert.Len(t, out.reports, 1)
}
