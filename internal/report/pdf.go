package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Renderer produces the report PDF from an analysis markdown body.
type Renderer interface {
	Render(ctx context.Context, markdown string) ([]byte, error)
}

// ChromiumPDFRenderer prints the report through headless Chromium. The
// markdown is converted to HTML with embedded styles, loaded via a data
// URL and printed to A4.
type ChromiumPDFRenderer struct {
	chromePath string
}

func NewChromiumPDFRenderer() *ChromiumPDFRenderer {
	return &ChromiumPDFRenderer{chromePath: detectChromePath()}
}

func (r *ChromiumPDFRenderer) Render(ctx context.Context, markdown string) ([]byte, error) {
	htmlDoc, err := BuildHTML(markdown)
	if err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var pdf []byte
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlDoc))
	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			footer := `<div style="width:100%;text-align:center;font-size:9px;color:#666;">` +
				`Seite <span class="pageNumber"></span> von <span class="totalPages"></span></div>`
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate(`<div></div>`).
				WithFooterTemplate(footer).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.5).
				WithMarginBottom(0.75).
				WithMarginLeft(0.45).
				WithMarginRight(0.45).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = out
			return nil
		}),
	); err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	return pdf, nil
}

// BuildHTML converts the report markdown into a standalone HTML page
// with the print styles inlined.
func BuildHTML(markdown string) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return "<!doctype html><html lang='de'><head><meta charset='utf-8'><title>Businessplan-Analyse</title>" +
		"<style>" + reportCSS + "</style></head><body><div class='report'>" +
		content.String() +
		"</div></body></html>", nil
}

const reportCSS = `
html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;}
body{font-family:'Segoe UI',Arial,sans-serif;color:#1f2937;background:#fff;line-height:1.55;font-size:13px;}
.report{max-width:760px;margin:0 auto;}
h1{font-size:24px;color:#111827;border-bottom:3px solid #2563eb;padding-bottom:8px;}
h2{font-size:18px;color:#1e3a5f;margin-top:28px;border-bottom:1px solid #e5e7eb;padding-bottom:4px;}
h3{font-size:14px;color:#1f2937;margin-top:18px;}
table{border-collapse:collapse;width:100%;margin:10px 0;}
th,td{border:1px solid #d1d5db;padding:6px 10px;text-align:left;vertical-align:top;}
th{background:#f3f4f6;}
blockquote{border-left:4px solid #2563eb;background:#eff6ff;margin:8px 0;padding:8px 14px;font-style:normal;}
code{background:#f3f4f6;padding:1px 4px;border-radius:3px;font-size:12px;}
hr{border:none;border-top:1px solid #e5e7eb;margin:24px 0;}
h2,h3{page-break-after:avoid;}
table,blockquote{page-break-inside:avoid;}
`

func detectChromePath() string {
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
