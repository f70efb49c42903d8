package graph

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/tweag/nixtract/metrics"
	"github.com/tweag/nixtract/types"
)

// tracePrefix is the literal prefix that distinguishes a structured
// finder event line from diagnostic passthrough.
const tracePrefix = "trace: "

// foundDrv is one entry of a "trace:" event's foundDrvs array.
type foundDrv struct {
	AttributePath string `json:"attributePath"`
	OutputPath    string `json:"outputPath"`
}

type traceEvent struct {
	FoundDrvs []foundDrv `json:"foundDrvs"`
}

// FinderReader is the single task that owns the finder's stderr stream.
// It reads lines until EOF, classifies each as a structured "trace:"
// event or diagnostic passthrough, and pushes freshly discovered
// (attribute path, output path) pairs into the shared work queue.
//
// FinderReader does not decide global termination; it simply runs until
// its stderr reaches EOF.
type FinderReader struct {
	stderr      io.Reader
	queue       *workQueue
	queuedPaths *outputPathSet
	passthrough io.Writer
	logger      *zap.SugaredLogger
	metrics     *metrics.Collector
}

// NewFinderReader builds a reader bound to one finder's stderr stream and
// the coordinator's shared queue and dedup set.
func NewFinderReader(stderr io.Reader, queue *workQueue, queuedPaths *outputPathSet, passthrough io.Writer, logger *zap.SugaredLogger, mc *metrics.Collector) *FinderReader {
	return &FinderReader{
		stderr:      stderr,
		queue:       queue,
		queuedPaths: queuedPaths,
		passthrough: passthrough,
		logger:      logger,
		metrics:     mc,
	}
}

// Run reads lines until EOF, classifying and dispatching each. It returns
// when the stream is exhausted or errors (e.g. finder killed mid-read).
func (r *FinderReader) Run() {
	scanner := bufio.NewScanner(r.stderr)
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)

	for scanner.Scan() {
		r.handleLine(scanner.Text())
	}
	// EOF or scan error both end the reader's lifetime; a scan error
	// (oversized line) is not distinguished from clean EOF.
}

func (r *FinderReader) handleLine(line string) {
	if !strings.HasPrefix(line, tracePrefix) {
		r.forward(line)
		return
	}

	// Strip exactly the 6-character "trace:" prefix plus the following
	// character, then trim any further leading whitespace before
	// attempting to parse JSON.
	rest := line[len("trace:")+1:]
	rest = strings.TrimLeft(rest, " \t")

	var event traceEvent
	if err := json.Unmarshal([]byte(rest), &event); err != nil {
		r.metrics.IncFinderMalformedTrace()
		r.forward(line)
		return
	}
	if event.FoundDrvs == nil {
		r.forward(line)
		return
	}

	r.metrics.IncFinderEventsReceived()
	for _, d := range event.FoundDrvs {
		if d.AttributePath == "" || d.OutputPath == "" {
			r.metrics.IncFinderMalformedTrace()
			if r.logger != nil {
				r.logger.Warnw("finder event missing required field", "attributePath", d.AttributePath, "outputPath", d.OutputPath)
			}
			continue
		}

		outputPath := types.OutputPath(d.OutputPath)
		if !r.queuedPaths.TryAdd(outputPath) {
			r.metrics.IncOutputPathsDeduped()
			continue
		}

		r.metrics.IncDerivationsFound()
		r.queue.Push(types.ParseAttributePath(d.AttributePath))
	}
}

func (r *FinderReader) forward(line string) {
	if r.passthrough == nil {
		return
	}
	fmt.Fprintln(r.passthrough, line)
}
