package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/LukaSashic/gruenderai/internal/analysis"
	"github.com/LukaSashic/gruenderai/internal/config"
	"github.com/LukaSashic/gruenderai/internal/delivery"
	"github.com/LukaSashic/gruenderai/internal/extract"
	"github.com/LukaSashic/gruenderai/internal/logging"
	"github.com/LukaSashic/gruenderai/internal/payment"
	"github.com/LukaSashic/gruenderai/internal/store"
	"github.com/LukaSashic/gruenderai/internal/telemetry"
)

type fakeRequester struct {
	raw analysis.RawAnalysis
	err error
}

func (f *fakeRequester) RequestAnalysis(ctx context.Context, documentText string) (analysis.RawAnalysis, error) {
	return f.raw, f.err
}

type fakePayments struct {
	createErr    error
	captured     map[string]payment.Order
	captureErr   error
	captureCalls int
}

func (f *fakePayments) CreateOrder(ctx context.Context, analysisID, returnURL, cancelURL string) (payment.Order, error) {
	if f.createErr != nil {
		return payment.Order{}, f.createErr
	}
	return payment.Order{
		ID:         "ORDER-" + analysisID,
		Status:     "CREATED",
		ApproveURL: "https://paypal.example/approve",
		AnalysisID: analysisID,
	}, nil
}

func (f *fakePayments) CaptureOrder(ctx context.Context, orderID string) (payment.Order, error) {
	f.captureCalls++
	if f.captureErr != nil {
		return payment.Order{}, f.captureErr
	}
	order, ok := f.captured[orderID]
	if !ok {
		return payment.Order{}, payment.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakePayments) GetOrder(ctx context.Context, orderID string) (payment.Order, error) {
	order, ok := f.captured[orderID]
	if !ok {
		return payment.Order{}, payment.ErrOrderNotFound
	}
	return order, nil
}

type fakeEnqueuer struct {
	jobs []delivery.Job
}

func (f *fakeEnqueuer) Enqueue(job delivery.Job) { f.jobs = append(f.jobs, job) }

type fixture struct {
	server   *Server
	store    store.Store
	payments *fakePayments
	jobs     *fakeEnqueuer
	cfg      *config.Config
}

func newFixture(t *testing.T, requester analysis.Requester) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Server.ReportsDir = t.TempDir()
	tracer, err := telemetry.NewProvider(context.Background(), telemetry.Config{})
	if err != nil {
		t.Fatalf("telemetry: %v", err)
	}
	payments := &fakePayments{captured: map[string]payment.Order{}}
	jobs := &fakeEnqueuer{}
	st := store.NewMemoryStore()
	srv := New(Options{
		Config:     cfg,
		Store:      st,
		Requester:  requester,
		Payments:   payments,
		Deliveries: jobs,
		Tracer:     tracer,
		Log:        logging.Nop(),
	})
	return &fixture{server: srv, store: st, payments: payments, jobs: jobs, cfg: cfg}
}

func buildDOCX(t *testing.T) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/document.xml")
	body := strings.Repeat(`<w:p><w:r><w:t>Der Businessplan beschreibt die Eroeffnung eines Friseursalons mit solider Finanzplanung.</w:t></w:r></w:p>`, 3)
	w.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))
	zw.Close()
	return buf.Bytes(), extract.ContentTypeDOCX
}

func multipartUpload(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(data)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		blob, _ := json.Marshal(body)
		rd = bytes.NewReader(blob)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func analyzeDocument(t *testing.T, f *fixture) string {
	t.Helper()
	data, ct := buildDOCX(t)
	body, formCT := multipartUpload(t, "plan.docx", ct, data)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", formCT)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("analyze status = %d: %s", rec.Code, rec.Body.String())
	}
	var result analysis.Analysis
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode analysis: %v", err)
	}
	if result.ID == "" {
		t.Fatal("analysis id missing")
	}
	return result.ID
}

func TestAnalyzeHappyPath(t *testing.T) {
	f := newFixture(t, &fakeRequester{raw: analysis.RawAnalysis{
		Score:        72,
		BusinessName: "Salon Schnittpunkt",
		Checklist:    map[string]string{"G1": "OK", "F1": "WARNUNG"},
	}})
	data, ct := buildDOCX(t)
	body, formCT := multipartUpload(t, "plan.docx", ct, data)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", formCT)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var result analysis.Analysis
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result.Score != 72 || result.BusinessName != "Salon Schnittpunkt" {
		t.Errorf("result = %d %q", result.Score, result.BusinessName)
	}
	if len(result.Checklist) != 27 || len(result.Issues) != 3 {
		t.Errorf("normalization missing: checklist=%d issues=%d", len(result.Checklist), len(result.Issues))
	}

	stored, err := f.store.GetAnalysis(result.ID)
	if err != nil {
		t.Fatalf("not stored: %v", err)
	}
	if stored.Paid {
		t.Error("fresh analysis must not be paid")
	}
}

func TestAnalyzeDegradedOnModelFailure(t *testing.T) {
	f := newFixture(t, &fakeRequester{err: errors.New("api down")})
	data, ct := buildDOCX(t)
	body, formCT := multipartUpload(t, "plan.docx", ct, data)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", formCT)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("degraded analysis must still return 200, got %d", rec.Code)
	}
	var result analysis.Analysis
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result.Score != 50 || result.PotentialScore != 70 {
		t.Errorf("degraded scores = %d %d", result.Score, result.PotentialScore)
	}
	if result.Error == "" {
		t.Error("degraded analysis must carry the error")
	}
}

func TestAnalyzeRejectsWrongType(t *testing.T) {
	f := newFixture(t, &fakeRequester{})
	body, formCT := multipartUpload(t, "plan.txt", "text/plain", []byte(strings.Repeat("text ", 100)))
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", formCT)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAnalyzeRejectsMissingFile(t *testing.T) {
	f := newFixture(t, &fakeRequester{})
	rec := doJSON(t, f.server, http.MethodPost, "/api/analyze", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAnalyzeRejectsOversizedUpload(t *testing.T) {
	f := newFixture(t, &fakeRequester{})
	f.cfg.Server.MaxUploadBytes = 100
	data, ct := buildDOCX(t)
	body, formCT := multipartUpload(t, "plan.docx", ct, data)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", formCT)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestCreatePayment(t *testing.T) {
	f := newFixture(t, &fakeRequester{})
	id := analyzeDocument(t, f)

	rec := doJSON(t, f.server, http.MethodPost, "/api/create-payment", map[string]string{"analysis_id": id})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["order_id"] != "ORDER-"+id {
		t.Errorf("order_id = %q", resp["order_id"])
	}
	if resp["approval_url"] == "" || resp["amount"] != "39.00" || resp["currency"] != "EUR" {
		t.Errorf("resp = %v", resp)
	}

	payRec, err := f.store.GetPayment(resp["order_id"])
	if err != nil {
		t.Fatalf("payment not stored: %v", err)
	}
	if payRec.Status != store.PaymentCreated || payRec.AnalysisID != id {
		t.Errorf("payment = %+v", payRec)
	}
}

func TestCreatePaymentUnknownAnalysis(t *testing.T) {
	f := newFixture(t, &fakeRequester{})
	rec := doJSON(t, f.server, http.MethodPost, "/api/create-payment", map[string]string{"analysis_id": "missing"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestCapturePaymentCompleted(t *testing.T) {
	f := newFixture(t, &fakeRequester{})
	id := analyzeDocument(t, f)
	rec := doJSON(t, f.server, http.MethodPost, "/api/create-payment", map[string]string{"analysis_id": id})
	var created map[string]string
	json.Unmarshal(rec.Body.Bytes(), &created)
	orderID := created["order_id"]

	f.payments.captured[orderID] = payment.Order{
		ID: orderID, Status: "COMPLETED", Completed: true,
		CaptureID: "CAP-1", PayerEmail: "payer@example.com", PayerName: "Pat Payer",
		AnalysisID: id,
	}

	rec = doJSON(t, f.server, http.MethodPost, "/api/capture-payment", map[string]string{"order_id": orderID})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	stored, _ := f.store.GetAnalysis(id)
	if !stored.Paid || stored.CustomerEmail != "payer@example.com" {
		t.Errorf("analysis not marked paid: %+v", stored)
	}
	payRec, _ := f.store.GetPayment(orderID)
	if payRec.Status != store.PaymentCompleted || payRec.CapturedAt.IsZero() {
		t.Errorf("payment = %+v", payRec)
	}
	if len(f.jobs.jobs) != 1 {
		t.Fatalf("jobs = %d", len(f.jobs.jobs))
	}
	job := f.jobs.jobs[0]
	if job.AnalysisID != id || job.Email != "payer@example.com" || job.Amount != "39.00" {
		t.Errorf("job = %+v", job)
	}
}

// The buyer-entered contact from the capture body must win over the
// PayPal payer's account contact; the report goes to who the buyer
// typed in, not to whoever owns the PayPal wallet.
func TestCapturePaymentCustomerContactWins(t *testing.T) {
	f := newFixture(t, &fakeRequester{})
	id := analyzeDocument(t, f)
	rec := doJSON(t, f.server, http.MethodPost, "/api/create-payment", map[string]string{"analysis_id": id})
	var created map[string]string
	json.Unmarshal(rec.Body.Bytes(), &created)
	orderID := created["order_id"]
	f.payments.captured[orderID] = payment.Order{
		ID: orderID, Status: "COMPLETED", Completed: true,
		PayerEmail: "paypal@example.com", PayerName: "Wallet Owner",
	}

	rec = doJSON(t, f.server, http.MethodPost, "/api/capture-payment", map[string]string{
		"order_id":       orderID,
		"analysis_id":    id,
		"customer_email": "direkt@example.com",
		"customer_name":  "Direkt Kundin",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	stored, _ := f.store.GetAnalysis(id)
	if stored.CustomerEmail != "direkt@example.com" || stored.CustomerName != "Direkt Kundin" {
		t.Errorf("contact = %q %q", stored.CustomerEmail, stored.CustomerName)
	}
	if len(f.jobs.jobs) != 1 || f.jobs.jobs[0].Email != "direkt@example.com" {
		t.Errorf("delivery job contact wrong: %+v", f.jobs.jobs)
	}
}

// An order whose analysis no longer exists must 404 before any capture
// call; money never moves for an undeliverable report.
func TestCapturePaymentUnknownAnalysisBeforeCapture(t *testing.T) {
	f := newFixture(t, &fakeRequester{})
	id := analyzeDocument(t, f)
	rec := doJSON(t, f.server, http.MethodPost, "/api/create-payment", map[string]string{"analysis_id": id})
	var created map[string]string
	json.Unmarshal(rec.Body.Bytes(), &created)
	orderID := created["order_id"]
	f.payments.captured[orderID] = payment.Order{ID: orderID, Status: "COMPLETED", Completed: true}
	f.store.DeleteAnalysis(id)

	rec = doJSON(t, f.server, http.MethodPost, "/api/capture-payment", map[string]string{"order_id": orderID})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
	if f.payments.captureCalls != 0 {
		t.Errorf("capture called %d times before validation", f.payments.captureCalls)
	}
	if len(f.jobs.jobs) != 0 {
		t.Error("no delivery expected")
	}
}

func TestCapturePaymentNotCompleted(t *testing.T) {
	f := newFixture(t, &fakeRequester{})
	id := analyzeDocument(t, f)
	rec := doJSON(t, f.server, http.MethodPost, "/api/create-payment", map[string]string{"analysis_id": id})
	var created map[string]string
	json.Unmarshal(rec.Body.Bytes(), &created)
	orderID := created["order_id"]
	f.payments.captured[orderID] = payment.Order{ID: orderID, Status: "PENDING", Completed: false}

	rec = doJSON(t, f.server, http.MethodPost, "/api/capture-payment", map[string]string{"order_id": orderID})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	stored, _ := f.store.GetAnalysis(id)
	if stored.Paid {
		t.Error("incomplete capture must not mark paid")
	}
	if len(f.jobs.jobs) != 0 {
		t.Error("incomplete capture must not queue delivery")
	}
	payRec, _ := f.store.GetPayment(orderID)
	if payRec.Status != store.PaymentFailed {
		t.Errorf("payment status = %q", payRec.Status)
	}
}

func TestCapturePaymentUnknownOrder(t *testing.T) {
	f := newFixture(t, &fakeRequester{})
	rec := doJSON(t, f.server, http.MethodPost, "/api/capture-payment", map[string]string{"order_id": "nope"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestDownloadReportGate(t *testing.T) {
	f := newFixture(t, &fakeRequester{})
	id := analyzeDocument(t, f)

	// The file existing on disk must not bypass the paid check.
	path := filepath.Join(f.cfg.Server.ReportsDir, id+".pdf")
	os.WriteFile(path, []byte("%PDF-fake"), 0o644)

	req := httptest.NewRequest(http.MethodGet, "/api/download-report/"+id, nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("unpaid download status = %d", rec.Code)
	}

	f.store.MarkPaid(id, "k@example.com", "K")
	rec = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/download-report/"+id, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("paid download status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Disposition"); !strings.Contains(ct, "businessplan-analyse.pdf") {
		t.Errorf("content disposition = %q", ct)
	}
}

func TestDownloadReportPendingFile(t *testing.T) {
	f := newFixture(t, &fakeRequester{})
	id := analyzeDocument(t, f)
	f.store.MarkPaid(id, "k@example.com", "K")

	req := httptest.NewRequest(http.MethodGet, "/api/download-report/"+id, nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestDownloadReportUnknownAnalysis(t *testing.T) {
	f := newFixture(t, &fakeRequester{})
	req := httptest.NewRequest(http.MethodGet, "/api/download-report/missing", nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestOrderStatus(t *testing.T) {
	f := newFixture(t, &fakeRequester{})
	id := analyzeDocument(t, f)
	rec := doJSON(t, f.server, http.MethodPost, "/api/create-payment", map[string]string{"analysis_id": id})
	var created map[string]string
	json.Unmarshal(rec.Body.Bytes(), &created)

	req := httptest.NewRequest(http.MethodGet, "/api/order-status/"+created["order_id"], nil)
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != store.PaymentCreated || resp["analysis_id"] != id {
		t.Errorf("resp = %v", resp)
	}

	w = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/order-status/unknown", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown order status = %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, &fakeRequester{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestShutdownStopsRun(t *testing.T) {
	f := newFixture(t, &fakeRequester{})
	errCh := make(chan error, 1)
	go func() { errCh <- f.server.Run("127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	if err := f.server.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("run did not return after shutdown")
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, &fakeRequester{})
	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != f.cfg.Server.FrontendURL {
		t.Errorf("origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}
