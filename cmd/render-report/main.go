// render-report rebuilds the report for a saved analysis JSON file,
// either as markdown or as the printed PDF. Useful for reprocessing a
// delivery that failed and for iterating on the report layout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/LukaSashic/gruenderai/internal/analysis"
	"github.com/LukaSashic/gruenderai/internal/report"
)

func main() {
	inputPath := flag.String("input", "", "Path to saved analysis JSON")
	outputPath := flag.String("output", "", "Path to write markdown (defaults to stdout)")
	pdfPath := flag.String("pdf", "", "Optional path to write the printed PDF")
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("missing required -input")
	}

	in, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	var a analysis.Analysis
	if err := json.Unmarshal(in, &a); err != nil {
		log.Fatalf("decode analysis JSON: %v", err)
	}

	md := report.BuildMarkdown(a, time.Now())
	if err := writeMarkdown(*outputPath, md); err != nil {
		log.Fatalf("write markdown: %v", err)
	}

	if *pdfPath != "" {
		renderer := report.NewChromiumPDFRenderer()
		pdf, err := renderer.Render(context.Background(), md)
		if err != nil {
			log.Fatalf("render pdf: %v", err)
		}
		if err := os.WriteFile(*pdfPath, pdf, 0o644); err != nil {
			log.Fatalf("write pdf: %v", err)
		}
	}
}

func writeMarkdown(outputPath, markdown string) error {
	if outputPath == "" {
		_, err := fmt.Print(markdown)
		return err
	}
	return os.WriteFile(outputPath, []byte(markdown), 0o644)
}
