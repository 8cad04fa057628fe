package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// respondFunc answers one oracle call.
type respondFunc func(ctx context.Context, audio Audio, instruction string) (string, error)

type fakeOracle struct {
	mu      sync.Mutex
	calls   []string
	respond respondFunc
}

func newFakeOracle(respond respondFunc) *fakeOracle {
	return &fakeOracle{respond: respond}
}

func (f *fakeOracle) Invoke(ctx context.Context, audio Audio, instruction string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, audio.Name+"|"+instruction)
	f.mu.Unlock()
	return f.respond(ctx, audio, instruction)
}

func (f *fakeOracle) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// callsFor counts calls made for one file.
func (f *fakeOracle) callsFor(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, name+"|") {
			n++
		}
	}
	return n
}

func isCombined(instruction string) bool {
	return strings.Contains(instruction, `"results"`)
}

// combinedAnswer builds a valid combined response giving every parameter
// the same verdict.
func combinedAnswer(parameters []string, verdict string, confidence int) string {
	records := make([]string, 0, len(parameters))
	for _, p := range parameters {
		records = append(records, fmt.Sprintf(`{"parameter":%q,"verdict":%q,"confidence":"%d%%","reasoning":"ok"}`, p, verdict, confidence))
	}
	return `{"results":[` + strings.Join(records, ",") + `]}`
}

type fakeReader struct {
	failing  map[string]error
	panicOn  string
	readHook func(file StoredFile)
}

func (r *fakeReader) ReadAudio(file StoredFile) (Audio, error) {
	if r.readHook != nil {
		r.readHook(file)
	}
	if file.Name == r.panicOn {
		panic("corrupt recording")
	}
	if err, ok := r.failing[file.Name]; ok {
		return Audio{}, err
	}
	return Audio{Name: file.Name, MIMEType: "audio/wav", Data: []byte("RIFF")}, nil
}

func testCatalog(t *testing.T) *CriterionCatalog {
	t.Helper()
	catalog, err := NewCriterionCatalog("")
	require.NoError(t, err)
	return catalog
}

func storedFiles(names ...string) []StoredFile {
	files := make([]StoredFile, 0, len(names))
	for _, n := range names {
		files = append(files, StoredFile{Path: "/tmp/" + n, Name: n, Size: 4, MIMEType: "audio/wav"})
	}
	return files
}

func newTestAuditService(t *testing.T, oracle OracleClient, reader AudioReader, concurrency int) *AuditService {
	t.Helper()
	logger := zap.NewNop()
	auditor := NewFileAuditor(oracle, testCatalog(t), logger)
	coordinator := NewCoordinator(auditor, reader, concurrency, logger)
	return NewAuditService(coordinator, nil, logger)
}
