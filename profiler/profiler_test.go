package profiler

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances by step on every call.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func progressLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		if entry["message"] == "progress" {
			out = append(out, entry)
		}
	}
	return out
}

func TestAdvanceReportsPercentChanges(t *testing.T) {
	var buf bytes.Buffer
	tr := New(Options{Total: 4, Verbose: true, Logger: zerolog.New(&buf)})

	for i := 0; i < 4; i++ {
		tr.Advance()
	}

	lines := progressLines(t, &buf)
	require.Len(t, lines, 4)
	assert.EqualValues(t, 25, lines[0]["percent"])
	assert.EqualValues(t, 100, lines[3]["percent"])
	assert.Equal(t, 4, tr.Processed())
	assert.Equal(t, 100, tr.Percent())
}

func TestAdvanceSkipsUnchangedPercent(t *testing.T) {
	var buf bytes.Buffer
	tr := New(Options{Total: 1000, Verbose: true, Logger: zerolog.New(&buf)})

	for i := 0; i < 25; i++ {
		tr.Advance()
	}

	lines := progressLines(t, &buf)
	require.Len(t, lines, 2)
	assert.EqualValues(t, 1, lines[0]["percent"])
	assert.EqualValues(t, 2, lines[1]["percent"])
}

func TestAdvanceQuietWhenNotVerboseOrUnknownTotal(t *testing.T) {
	var buf bytes.Buffer
	quiet := New(Options{Total: 2, Logger: zerolog.New(&buf)})
	quiet.Advance()
	quiet.Advance()
	assert.Equal(t, 100, quiet.Percent())

	unknown := New(Options{Total: 0, Verbose: true, Logger: zerolog.New(&buf)})
	unknown.Advance()
	assert.Equal(t, 0, unknown.Percent())

	assert.Empty(t, progressLines(t, &buf))
}

func TestRecordMetric(t *testing.T) {
	tr := New(Options{Logger: zerolog.Nop()})
	assert.Nil(t, tr.Metric("changed_percent"))

	for _, v := range []float64{10, 0, 50} {
		tr.RecordMetric("changed_percent", v)
	}

	m := tr.Metric("changed_percent")
	require.NotNil(t, m)
	assert.InDelta(t, 20.0, m.Mean(), 1e-9)
	assert.Equal(t, 0.0, m.Min())
	assert.Equal(t, 50.0, m.Max())
	assert.EqualValues(t, 3, m.Count())
}

func TestStartOperation(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0), step: time.Millisecond}
	tr := New(Options{Logger: zerolog.Nop(), Now: clock.Now})

	done := tr.StartOperation("diff")
	done()
	done = tr.StartOperation("diff")
	done()

	op := tr.Operation("diff")
	require.NotNil(t, op)
	assert.EqualValues(t, 2, op.Count())
	assert.Equal(t, time.Millisecond, op.Average())
	assert.Nil(t, tr.Operation("regions"))
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	clock := &fakeClock{t: time.Unix(0, 0), step: time.Second}
	tr := New(Options{Logger: zerolog.New(&buf), Now: clock.Now})
	tr.Advance()
	tr.RecordMetric("changed_percent", 5)

	tr.Report()

	out := buf.String()
	assert.Contains(t, out, "run complete")
	assert.Contains(t, out, "metric summary")
	assert.Contains(t, out, `"metric":"changed_percent"`)
}
