package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tweag/nixtract/eval"
	"github.com/tweag/nixtract/metrics"
	"github.com/tweag/nixtract/types"
)

// fakeFinder is an in-process stand-in for eval.FinderHandle, substituting
// a fake factory for the real subprocess so the coordinator's drive loop
// can be tested without spawning anything.
type fakeFinder struct {
	stderr  *strings.Reader
	exited  bool
	waitErr error
}

func (f *fakeFinder) Stderr() io.Reader { return f.stderr }
func (f *fakeFinder) Exited() bool      { return f.exited }
func (f *fakeFinder) Wait() (int, error) { f.exited = true; return 0, f.waitErr }
func (f *fakeFinder) Kill() error        { f.exited = true; return nil }

// fakeDriver is an in-process eval.Driver: describeFn supplies a
// per-attribute-path response without spawning any process, letting
// graph tests exercise the coordinator's concurrency properties (I1-I5)
// without a real Nix evaluator.
type fakeDriver struct {
	finderLines []string
	describeFn  func(attributePath string) (*eval.DescribeResult, error)

	mu    sync.Mutex
	calls []string
}

func (d *fakeDriver) StartFinder(ctx context.Context) (eval.FinderHandle, error) {
	// The fake finder's entire output is available up front, so it is
	// modeled as already exited: real finders report Exited() only once
	// reaped, but every scenario here only needs the post-exit state the
	// drive loop eventually reaches.
	return &fakeFinder{stderr: strings.NewReader(strings.Join(d.finderLines, "\n") + "\n"), exited: true}, nil
}

func (d *fakeDriver) Describe(ctx context.Context, attributePath string) (*eval.DescribeResult, error) {
	d.mu.Lock()
	d.calls = append(d.calls, attributePath)
	d.mu.Unlock()
	return d.describeFn(attributePath)
}

func (d *fakeDriver) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

// fakeSink records every written record in order, under its own lock, so
// tests can assert on I2 (no duplicate output_path) and I5 (no partial
// writes — trivially true in-process, but the call discipline mirrors
// the real FileSink's one-critical-section-per-record contract).
type fakeSink struct {
	mu       sync.Mutex
	records  []*types.Record
	failNext bool
}

func (s *fakeSink) WriteRecord(r *types.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		return &SinkWriteError{Err: fmt.Errorf("injected sink failure")}
	}
	s.records = append(s.records, r)
	return nil
}

func (s *fakeSink) Close() error { return nil }

func traceLine(attributePath, outputPath string) string {
	payload, _ := json.Marshal(map[string]any{
		"foundDrvs": []map[string]string{{"attributePath": attributePath, "outputPath": outputPath}},
	})
	return "trace: " + string(payload)
}

func recordJSON(t *testing.T, r types.Record) []byte {
	t.Helper()
	data, err := types.SerializeRecord(&r)
	require.NoError(t, err)
	return data
}

func runCoordinator(t *testing.T, driver eval.Driver, sink Sink, nWorkers int) *Result {
	t.Helper()
	mc := metrics.NewCollector("flake", "test-run")
	c := NewCoordinator(driver, sink, Config{NWorkers: nWorkers}, nil, mc, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := c.Run(ctx)
	require.NoError(t, err)
	return result
}

func TestCoordinator_TrivialFlake_NoBuildInputs(t *testing.T) {
	driver := &fakeDriver{
		finderLines: []string{traceLine("trivial", "/nix/store/out-trivial")},
		describeFn: func(ap string) (*eval.DescribeResult, error) {
			rec := types.Record{
				AttributePath:  types.AttributePath{"trivial"},
				DerivationPath: "/nix/store/drv-trivial",
				OutputPath:     "/nix/store/out-trivial",
				Outputs:        []types.Output{{Name: "out", OutputPath: "/nix/store/out-trivial"}},
				Name:           "trivial-1.0",
				ParsedName:     &types.ParsedName{Name: "trivial", Version: "1.0"},
				BuildInputs:    []types.BuildInputEdge{},
			}
			return &eval.DescribeResult{Stdout: recordJSON(t, rec), ExitCode: 0}, nil
		},
	}
	sink := &fakeSink{}

	result := runCoordinator(t, driver, sink, 2)

	assert.False(t, result.QueueResidue)
	assert.Nil(t, result.FatalErr)
	require.Len(t, sink.records, 1)
	assert.Equal(t, "trivial-1.0", sink.records[0].Name)
	assert.Equal(t, "trivial", sink.records[0].ParsedName.Name)
	assert.Equal(t, "1.0", sink.records[0].ParsedName.Version)
	assert.Empty(t, sink.records[0].BuildInputs)
}

func TestCoordinator_ZeroDerivations_EmptyOutputFile(t *testing.T) {
	driver := &fakeDriver{
		finderLines: []string{},
		describeFn:  func(ap string) (*eval.DescribeResult, error) { return &eval.DescribeResult{}, nil },
	}
	sink := &fakeSink{}

	result := runCoordinator(t, driver, sink, 2)

	assert.False(t, result.QueueResidue)
	assert.Empty(t, sink.records)
}

func TestCoordinator_DirectBuildInput_SharedGrandchildDedupedOnce(t *testing.T) {
	// pkg2 and pkg3 both depend on shared-pkg1 (a diamond). Exactly one
	// record for shared-pkg1 must be emitted despite two independent
	// parents racing to enqueue it.
	driver := &fakeDriver{
		finderLines: []string{
			traceLine("pkg2", "/nix/store/out-pkg2"),
			traceLine("pkg3", "/nix/store/out-pkg3"),
		},
	}
	driver.describeFn = func(ap string) (*eval.DescribeResult, error) {
		switch ap {
		case "pkg2":
			rec := types.Record{
				AttributePath: types.AttributePath{"pkg2"}, DerivationPath: "/drv/pkg2", OutputPath: "/nix/store/out-pkg2",
				Outputs: []types.Output{{Name: "out", OutputPath: "/nix/store/out-pkg2"}}, Name: "pkg2",
				BuildInputs: []types.BuildInputEdge{{AttributePath: types.AttributePath{"sharedPkg1"}, BuildInputType: types.BuildInputTypeBuildInput, OutputPath: "/nix/store/out-shared-pkg1"}},
			}
			return &eval.DescribeResult{Stdout: recordJSON(t, rec)}, nil
		case "pkg3":
			rec := types.Record{
				AttributePath: types.AttributePath{"pkg3"}, DerivationPath: "/drv/pkg3", OutputPath: "/nix/store/out-pkg3",
				Outputs: []types.Output{{Name: "out", OutputPath: "/nix/store/out-pkg3"}}, Name: "pkg3",
				BuildInputs: []types.BuildInputEdge{{AttributePath: types.AttributePath{"sharedPkg1"}, BuildInputType: types.BuildInputTypeBuildInput, OutputPath: "/nix/store/out-shared-pkg1"}},
			}
			return &eval.DescribeResult{Stdout: recordJSON(t, rec)}, nil
		case "sharedPkg1":
			rec := types.Record{
				AttributePath: types.AttributePath{"sharedPkg1"}, DerivationPath: "/drv/shared", OutputPath: "/nix/store/out-shared-pkg1",
				Outputs: []types.Output{{Name: "out", OutputPath: "/nix/store/out-shared-pkg1"}}, Name: "shared-pkg1",
				BuildInputs: []types.BuildInputEdge{},
			}
			return &eval.DescribeResult{Stdout: recordJSON(t, rec)}, nil
		default:
			return &eval.DescribeResult{}, nil
		}
	}
	sink := &fakeSink{}

	result := runCoordinator(t, driver, sink, 8)

	assert.False(t, result.QueueResidue)
	require.Len(t, sink.records, 3)

	outputPaths := map[types.OutputPath]int{}
	for _, r := range sink.records {
		outputPaths[r.OutputPath]++
	}
	for op, count := range outputPaths {
		assert.Equalf(t, 1, count, "output path %s emitted %d times, want 1", op, count)
	}
	assert.Equal(t, 1, outputPaths["/nix/store/out-shared-pkg1"])
}

func TestCoordinator_DescriberEmptyStdout_NoRecordNoEdgesRunTerminates(t *testing.T) {
	driver := &fakeDriver{
		finderLines: []string{traceLine("ghost", "/nix/store/out-ghost")},
		describeFn:  func(ap string) (*eval.DescribeResult, error) { return &eval.DescribeResult{Stdout: nil, ExitCode: 0}, nil },
	}
	sink := &fakeSink{}

	result := runCoordinator(t, driver, sink, 2)

	assert.False(t, result.QueueResidue)
	assert.Empty(t, sink.records)
}

func TestCoordinator_UnbuildableEdge_NotEnqueued(t *testing.T) {
	driver := &fakeDriver{
		finderLines: []string{traceLine("root", "/nix/store/out-root")},
	}
	driver.describeFn = func(ap string) (*eval.DescribeResult, error) {
		if ap == "root" {
			rec := types.Record{
				AttributePath: types.AttributePath{"root"}, DerivationPath: "/drv/root", OutputPath: "/nix/store/out-root",
				Outputs: []types.Output{{Name: "out", OutputPath: "/nix/store/out-root"}}, Name: "root",
				BuildInputs: []types.BuildInputEdge{{AttributePath: types.AttributePath{"unbuildable"}, BuildInputType: types.BuildInputTypeNative}},
			}
			return &eval.DescribeResult{Stdout: recordJSON(t, rec)}, nil
		}
		t.Fatalf("describer should never be called for an edge with absent output_path, got %q", ap)
		return nil, nil
	}
	sink := &fakeSink{}

	result := runCoordinator(t, driver, sink, 2)

	assert.False(t, result.QueueResidue)
	require.Len(t, sink.records, 1)
	assert.Equal(t, types.OutputPath(""), sink.records[0].BuildInputs[0].OutputPath)
	assert.Equal(t, 1, driver.callCount())
}

func TestCoordinator_WorkerExceptionIsolation_OtherDerivationsStillEmitted(t *testing.T) {
	driver := &fakeDriver{
		finderLines: []string{
			traceLine("good1", "/nix/store/out-good1"),
			traceLine("bad", "/nix/store/out-bad"),
			traceLine("good2", "/nix/store/out-good2"),
		},
	}
	driver.describeFn = func(ap string) (*eval.DescribeResult, error) {
		if ap == "bad" {
			return &eval.DescribeResult{Stdout: []byte("{not valid json")}, nil
		}

		rec := types.Record{
			AttributePath: types.AttributePath{ap}, DerivationPath: "/drv/" + ap, OutputPath: types.OutputPath("/nix/store/out-" + ap),
			Outputs: []types.Output{{Name: "out", OutputPath: types.OutputPath("/nix/store/out-" + ap)}}, Name: ap,
			BuildInputs: []types.BuildInputEdge{},
		}
		return &eval.DescribeResult{Stdout: recordJSON(t, rec)}, nil
	}
	sink := &fakeSink{}

	result := runCoordinator(t, driver, sink, 4)

	assert.False(t, result.QueueResidue)
	names := map[string]bool{}
	for _, r := range sink.records {
		names[r.Name] = true
	}
	assert.True(t, names["good1"])
	assert.True(t, names["good2"])
	assert.False(t, names["bad"])
}

func TestCoordinator_SinkWriteFailure_AbortsRun(t *testing.T) {
	driver := &fakeDriver{
		finderLines: []string{traceLine("pkg", "/nix/store/out-pkg")},
		describeFn: func(ap string) (*eval.DescribeResult, error) {
			rec := types.Record{
				AttributePath: types.AttributePath{"pkg"}, DerivationPath: "/drv/pkg", OutputPath: "/nix/store/out-pkg",
				Outputs: []types.Output{{Name: "out", OutputPath: "/nix/store/out-pkg"}}, Name: "pkg", BuildInputs: []types.BuildInputEdge{},
			}
			return &eval.DescribeResult{Stdout: recordJSON(t, rec)}, nil
		},
	}
	sink := &failingSink{err: fmt.Errorf("disk full")}

	result := runCoordinator(t, driver, sink, 1)

	require.Error(t, result.FatalErr)
}

type failingSink struct{ err error }

func (s *failingSink) WriteRecord(r *types.Record) error { return &SinkWriteError{Err: s.err} }
func (s *failingSink) Close() error                      { return nil }
