package testutil

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/inference-sim/aika/sim/trace"
)

// AssertTraceGolden compares the rendered trace with testdata/golden/<name>.golden.
// Run the tests with -update to regenerate the file.
func AssertTraceGolden(t *testing.T, name string, records []trace.Record) {
	t.Helper()
	var buf bytes.Buffer
	if err := trace.Write(&buf, records); err != nil {
		t.Fatalf("render trace: %v", err)
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, buf.Bytes())
}
