package handlers

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"alfredoptarigan/call-auditor/internal/models"
	"alfredoptarigan/call-auditor/internal/repositories"
	"alfredoptarigan/call-auditor/internal/services"
)

type stubOracle struct{}

func (stubOracle) Invoke(_ context.Context, _ services.Audio, instruction string) (string, error) {
	if strings.Contains(instruction, `"results"`) {
		return `{"results":[{"parameter":"greeting","verdict":"Yes","confidence":"80%","reasoning":"Warm."}]}`, nil
	}
	return "Verdict: No\nConfidence: 60%\nReasoning: Custom check failed.", nil
}

type stubReports struct {
	report *models.AuditReport
}

func (s *stubReports) Create(context.Context, *models.AuditReport) error { return nil }

func (s *stubReports) FindByID(_ context.Context, id uuid.UUID) (*models.AuditReport, error) {
	if s.report != nil && s.report.ID == id {
		return s.report, nil
	}
	return nil, repositories.ErrNotFound
}

type testServer struct {
	app       *fiber.App
	uploadDir string
}

func newTestServer(t *testing.T, reports repositories.ReportRepository) *testServer {
	t.Helper()
	logger := zap.NewNop()

	uploadDir := filepath.Join(t.TempDir(), "uploads")
	storage := services.NewStorageService(services.StorageOptions{
		UploadPath:         uploadDir,
		MaxFileSize:        1 << 20,
		AllowedFormats:     []string{".wav", ".mp3"},
		MaxFilesPerRequest: 3,
	}, logger)
	require.NoError(t, storage.EnsureUploadDir())

	catalog, err := services.NewCriterionCatalog("")
	require.NoError(t, err)

	auditor := services.NewFileAuditor(stubOracle{}, catalog, logger)
	coordinator := services.NewCoordinator(auditor, storage, 2, logger)
	audits := services.NewAuditService(coordinator, nil, logger)
	tracker := services.NewJobTracker(repositories.NewMemoryJobRepository(), audits, logger)
	t.Cleanup(tracker.Stop)

	app := fiber.New()
	RegisterRoutes(app, Routes{
		Upload: NewUploadHandler(storage, catalog),
		Audit:  NewAuditHandler(storage, audits, services.NewProgressStreamer(audits, logger), tracker, logger),
		Jobs:   NewJobHandler(tracker),
		Report: NewReportHandler(reports),
	})

	return &testServer{app: app, uploadDir: uploadDir}
}

func (s *testServer) do(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := s.app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func (s *testServer) assertNoStagedFiles(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		entries, err := os.ReadDir(s.uploadDir)
		return err == nil && len(entries) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

// awaitJobResult polls a job until it completes and returns its result.
func (s *testServer) awaitJobResult(t *testing.T, jobID string) models.BatchResult {
	t.Helper()
	statusURL := "/api/v1/audit/jobs/" + jobID
	require.Eventually(t, func() bool {
		code, body := s.do(t, httptest.NewRequest(http.MethodGet, statusURL, nil))
		if code != http.StatusOK {
			return false
		}
		var job models.JobStatusResponse
		return json.Unmarshal(body, &job) == nil && job.Status == "completed"
	}, 2*time.Second, 20*time.Millisecond)

	status, body := s.do(t, httptest.NewRequest(http.MethodGet, statusURL+"/result", nil))
	require.Equal(t, http.StatusOK, status, string(body))

	var batch models.BatchResult
	require.NoError(t, json.Unmarshal(body, &batch))
	return batch
}

func wavBytes() []byte {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+32))
	buf.WriteString("WAVEfmt ")
	binary.Write(&buf, binary.LittleEndian, []uint32{16})
	binary.Write(&buf, binary.LittleEndian, []uint16{1, 1})
	binary.Write(&buf, binary.LittleEndian, []uint32{8000, 16000})
	binary.Write(&buf, binary.LittleEndian, []uint16{2, 16})
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(32))
	buf.Write(make([]byte, 32))
	return buf.Bytes()
}

// multipartRequest builds an audit submission. An empty requestJSON omits
// the request field.
func multipartRequest(t *testing.T, path, requestJSON string, filenames ...string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if requestJSON != "" {
		require.NoError(t, w.WriteField("request", requestJSON))
	}
	for _, name := range filenames {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(wavBytes())
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHealthAndParameters(t *testing.T) {
	srv := newTestServer(t, nil)

	status, _ := srv.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, status)

	status, body := srv.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/parameters", nil))
	require.Equal(t, http.StatusOK, status)

	var resp models.ParametersResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.Len(t, resp.Parameters, 10)
	assert.Equal(t, "greeting", resp.Parameters[0].ID)
	assert.NotContains(t, string(body), "Look for:")
}

func TestUpload(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.do(t, multipartRequest(t, "/api/v1/upload", "", "a.wav", "b.wav"))
	require.Equal(t, http.StatusOK, status, string(body))

	var resp models.UploadResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, 2, resp.FileCount)
	assert.Equal(t, []string{"a.wav", "b.wav"}, resp.UploadedFiles)
	assert.Equal(t, int64(2*len(wavBytes())), resp.TotalSize)
	srv.assertNoStagedFiles(t)

	status, _ = srv.do(t, multipartRequest(t, "/api/v1/upload", "", "a.wav", "b.wav", "c.wav", "d.wav"))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAuditSync(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.do(t, multipartRequest(t, "/api/v1/audit", `{"parameters":["greeting"]}`, "a.wav", "b.wav"))
	require.Equal(t, http.StatusOK, status, string(body))

	var batch models.BatchResult
	require.NoError(t, json.Unmarshal(body, &batch))
	assert.NotEmpty(t, batch.AuditID)
	assert.Equal(t, 2, batch.TotalFiles)
	require.Len(t, batch.Results, 2)
	assert.Equal(t, "a.wav", batch.Results[0].Filename)
	assert.Equal(t, models.OutcomeAffirmative, batch.Results[0].Results[0].Verdict)
	assert.InDelta(t, 80.0, batch.Results[0].OverallScore, 1e-9)
	srv.assertNoStagedFiles(t)
}

func TestAuditSyncWithCustomPrompt(t *testing.T) {
	srv := newTestServer(t, nil)

	req := `{"parameters":["greeting"],"custom_prompts":{"greeting":"Did the agent say hi?"}}`
	status, body := srv.do(t, multipartRequest(t, "/api/v1/audit", req, "a.wav"))
	require.Equal(t, http.StatusOK, status, string(body))

	var batch models.BatchResult
	require.NoError(t, json.Unmarshal(body, &batch))
	require.Len(t, batch.Results, 1)
	assert.Equal(t, models.OutcomeNegative, batch.Results[0].Results[0].Verdict)
	assert.Equal(t, "Custom check failed.", batch.Results[0].Results[0].Reasoning)
}

func TestAuditRejectsBadRequests(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name    string
		path    string
		request string
		files   []string
		message string
	}{
		{"invalid json", "/api/v1/audit", `{"parameters":`, []string{"a.wav"}, "Invalid JSON in request"},
		{"missing request", "/api/v1/audit", "", []string{"a.wav"}, "request field is required"},
		{"no parameters", "/api/v1/audit", `{"parameters":[]}`, []string{"a.wav"}, "at least one audit parameter"},
		{"no files", "/api/v1/audit", `{"parameters":["greeting"]}`, nil, "no files uploaded"},
		{"combined with custom prompts", "/api/v1/audit/combined", `{"parameters":["greeting"],"custom_prompts":{"greeting":"x"}}`, []string{"a.wav"}, "custom_prompts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := srv.do(t, multipartRequest(t, tt.path, tt.request, tt.files...))
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Contains(t, string(body), tt.message)
		})
	}
	srv.assertNoStagedFiles(t)
}

func TestAuditStream(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := srv.app.Test(multipartRequest(t, "/api/v1/audit/stream", `{"parameters":["greeting"]}`, "a.wav"), 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)

	order := []string{"event: started\n", "event: file_started\n", "event: file_completed\n", "event: completed\n"}
	last := -1
	for _, marker := range order {
		idx := strings.Index(text, marker)
		require.Greater(t, idx, last, marker)
		last = idx
	}
	assert.Contains(t, text, `"filename":"a.wav"`)
	srv.assertNoStagedFiles(t)
}

func TestAsyncJobLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.do(t, multipartRequest(t, "/api/v1/audit/async", `{"parameters":["greeting"]}`, "a.wav"))
	require.Equal(t, http.StatusAccepted, status, string(body))

	var submitted models.SubmitJobResponse
	require.NoError(t, json.Unmarshal(body, &submitted))
	require.NotEmpty(t, submitted.JobID)
	assert.Equal(t, "processing", submitted.Status)

	batch := srv.awaitJobResult(t, submitted.JobID)
	require.Len(t, batch.Results, 1)
	srv.assertNoStagedFiles(t)
}

func TestAsyncResultMatchesSync(t *testing.T) {
	srv := newTestServer(t, nil)
	req := `{"parameters":["greeting","closing"]}`

	status, body := srv.do(t, multipartRequest(t, "/api/v1/audit", req, "a.wav", "b.wav"))
	require.Equal(t, http.StatusOK, status, string(body))
	var syncBatch models.BatchResult
	require.NoError(t, json.Unmarshal(body, &syncBatch))

	status, body = srv.do(t, multipartRequest(t, "/api/v1/audit/async", req, "a.wav", "b.wav"))
	require.Equal(t, http.StatusAccepted, status, string(body))
	var submitted models.SubmitJobResponse
	require.NoError(t, json.Unmarshal(body, &submitted))

	asyncBatch := srv.awaitJobResult(t, submitted.JobID)

	assert.Equal(t, syncBatch.TotalFiles, asyncBatch.TotalFiles)
	assert.Equal(t, syncBatch.ProcessedFiles, asyncBatch.ProcessedFiles)
	assert.Equal(t, syncBatch.Results, asyncBatch.Results)
	assert.Equal(t, syncBatch.OverallSummary, asyncBatch.OverallSummary)
	assert.NotEqual(t, syncBatch.AuditID, asyncBatch.AuditID)
}

func TestUnknownJob(t *testing.T) {
	srv := newTestServer(t, nil)

	status, _ := srv.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/audit/jobs/nope", nil))
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = srv.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/audit/jobs/nope/result", nil))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestReports(t *testing.T) {
	id := uuid.New()
	reports := &stubReports{report: &models.AuditReport{
		ID:             id,
		TotalFiles:     1,
		ProcessedFiles: 1,
		OverallSummary: "Processed 1 of 1 files with 1 successful audits. Average score: 80.0%",
	}}
	srv := newTestServer(t, reports)

	status, body := srv.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+id.String(), nil))
	require.Equal(t, http.StatusOK, status)
	var batch models.BatchResult
	require.NoError(t, json.Unmarshal(body, &batch))
	assert.Equal(t, id.String(), batch.AuditID)

	status, _ = srv.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/reports/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = srv.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestReportsDisabled(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "disabled")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, fiber.StatusBadRequest, statusFor(&services.ValidationError{Message: "bad"}))
	assert.Equal(t, fiber.StatusNotFound, statusFor(services.ErrJobNotFound))
	assert.Equal(t, fiber.StatusNotFound, statusFor(repositories.ErrNotFound))
	assert.Equal(t, fiber.StatusConflict, statusFor(services.ErrJobNotReady))
	assert.Equal(t, fiber.StatusInternalServerError, statusFor(services.ErrResultMissing))
	assert.Equal(t, fiber.StatusInternalServerError, statusFor(errors.New("boom")))
}
