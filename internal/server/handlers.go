package server

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/LukaSashic/gruenderai/internal/analysis"
	"github.com/LukaSashic/gruenderai/internal/delivery"
	"github.com/LukaSashic/gruenderai/internal/extract"
	"github.com/LukaSashic/gruenderai/internal/payment"
	"github.com/LukaSashic/gruenderai/internal/store"
)

// handleAnalyze accepts the uploaded business plan, scores it and
// returns the normalized analysis. Model failures still produce a
// well-formed degraded analysis rather than an error.
func (s *Server) handleAnalyze(c *gin.Context) {
	ctx, span := s.tracer.Start(c.Request.Context(), "analyze")
	defer span.End()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Keine Datei hochgeladen"})
		return
	}
	if fileHeader.Size > s.cfg.Server.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": "Datei zu groß (max. 5 MB)"})
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType != extract.ContentTypePDF && contentType != extract.ContentTypeDOCX {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Nur PDF- und DOCX-Dateien werden unterstützt"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Datei konnte nicht gelesen werden"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, s.cfg.Server.MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Datei konnte nicht gelesen werden"})
		return
	}
	if int64(len(data)) > s.cfg.Server.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": "Datei zu groß (max. 5 MB)"})
		return
	}

	text, err := extract.FromUpload(data, contentType)
	if err != nil {
		if errors.Is(err, extract.ErrInsufficientText) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Aus dem Dokument konnte nicht genug Text extrahiert werden"})
			return
		}
		s.log.Warnw("extraction failed", "filename", fileHeader.Filename, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Dokument konnte nicht verarbeitet werden"})
		return
	}
	span.SetAttributes(attribute.Int("document_chars", len(text)))

	id := uuid.NewString()
	var result analysis.Analysis
	raw, err := s.requester.RequestAnalysis(ctx, text)
	if err != nil {
		s.log.Errorw("analysis request failed", "analysis_id", id, "error", err)
		result = s.normalizer.Degraded(err)
	} else {
		result = s.normalizer.Normalize(raw)
	}
	result.ID = id
	span.SetAttributes(attribute.Int("score", result.Score))

	rec := store.AnalysisRecord{
		ID:        id,
		Result:    result,
		Filename:  fileHeader.Filename,
		CreatedAt: s.now(),
	}
	if err := s.store.PutAnalysis(rec); err != nil {
		s.log.Errorw("store analysis failed", "analysis_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Analyse konnte nicht gespeichert werden"})
		return
	}

	c.JSON(http.StatusOK, result)
}

type createPaymentRequest struct {
	AnalysisID string `json:"analysis_id" binding:"required"`
}

func (s *Server) handleCreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "analysis_id fehlt"})
		return
	}
	if _, err := s.store.GetAnalysis(req.AnalysisID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Analyse nicht gefunden"})
		return
	}

	returnURL := s.cfg.Server.FrontendURL + "/payment/success"
	cancelURL := s.cfg.Server.FrontendURL + "/payment/cancel"
	order, err := s.payments.CreateOrder(c.Request.Context(), req.AnalysisID, returnURL, cancelURL)
	if err != nil {
		s.log.Errorw("create order failed", "analysis_id", req.AnalysisID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"detail": "Zahlung konnte nicht angelegt werden"})
		return
	}

	rec := store.PaymentRecord{
		OrderID:    order.ID,
		AnalysisID: req.AnalysisID,
		Amount:     s.cfg.PayPal.Price,
		Currency:   s.cfg.PayPal.Currency,
		Status:     store.PaymentCreated,
		CreatedAt:  s.now(),
	}
	if err := s.store.PutPayment(rec); err != nil {
		s.log.Errorw("store payment failed", "order_id", order.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Zahlung konnte nicht gespeichert werden"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":     order.ID,
		"approval_url": order.ApproveURL,
		"amount":       s.cfg.PayPal.Price,
		"currency":     s.cfg.PayPal.Currency,
	})
}

type capturePaymentRequest struct {
	OrderID       string `json:"order_id" binding:"required"`
	AnalysisID    string `json:"analysis_id"`
	CustomerEmail string `json:"customer_email"`
	CustomerName  string `json:"customer_name"`
}

// handleCapturePayment finalizes the order. Only a COMPLETED capture
// marks the analysis paid and queues delivery. The order and its
// analysis are both validated before any money moves.
func (s *Server) handleCapturePayment(c *gin.Context) {
	var req capturePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "order_id fehlt"})
		return
	}
	payRec, err := s.store.GetPayment(req.OrderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Bestellung nicht gefunden"})
		return
	}
	analysisID := firstNonEmpty(req.AnalysisID, payRec.AnalysisID)
	if _, err := s.store.GetAnalysis(analysisID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Analyse nicht gefunden"})
		return
	}

	order, err := s.payments.CaptureOrder(c.Request.Context(), req.OrderID)
	if errors.Is(err, payment.ErrOrderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Bestellung nicht gefunden"})
		return
	}
	if err != nil {
		s.log.Errorw("capture failed", "order_id", req.OrderID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"detail": "Zahlung konnte nicht abgeschlossen werden"})
		return
	}
	if !order.Completed {
		s.store.SetPaymentStatus(req.OrderID, store.PaymentFailed, s.now())
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Zahlung wurde nicht abgeschlossen", "status": order.Status})
		return
	}

	email := firstNonEmpty(req.CustomerEmail, order.PayerEmail)
	name := firstNonEmpty(req.CustomerName, order.PayerName)

	if err := s.store.SetPaymentStatus(req.OrderID, store.PaymentCompleted, s.now()); err != nil {
		s.log.Errorw("payment status update failed", "order_id", req.OrderID, "error", err)
	}
	if err := s.store.MarkPaid(analysisID, email, name); err != nil {
		s.log.Errorw("mark paid failed", "analysis_id", analysisID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Bestellung konnte nicht abgeschlossen werden"})
		return
	}

	s.deliveries.Enqueue(delivery.Job{
		AnalysisID: analysisID,
		OrderID:    req.OrderID,
		Email:      email,
		Name:       name,
		Amount:     payRec.Amount,
		Currency:   payRec.Currency,
	})

	c.JSON(http.StatusOK, gin.H{
		"status":      store.PaymentCompleted,
		"analysis_id": analysisID,
		"capture_id":  order.CaptureID,
	})
}

// handleDownloadReport serves the rendered PDF, but only for paid
// analyses. An existing file alone never unlocks the download.
func (s *Server) handleDownloadReport(c *gin.Context) {
	id := c.Param("id")
	rec, err := s.store.GetAnalysis(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Analyse nicht gefunden"})
		return
	}
	if !rec.Paid {
		c.JSON(http.StatusForbidden, gin.H{"detail": "Bericht noch nicht freigeschaltet"})
		return
	}
	path := filepath.Join(s.cfg.Server.ReportsDir, id+".pdf")
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Bericht wird noch erstellt, bitte später erneut versuchen"})
		return
	}
	c.FileAttachment(path, "businessplan-analyse.pdf")
}

func (s *Server) handleOrderStatus(c *gin.Context) {
	rec, err := s.store.GetPayment(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Bestellung nicht gefunden"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order_id":    rec.OrderID,
		"analysis_id": rec.AnalysisID,
		"status":      rec.Status,
		"amount":      rec.Amount,
		"currency":    rec.Currency,
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
