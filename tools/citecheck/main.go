package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/mike-ai-lab/ConstructLM-sub002/internal/locator"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/pdfengine"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/render"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/source"
)

func main() {
	manifestPath := flag.String("manifest", "", "Path to the YAML document manifest")
	answerPath := flag.String("answer", "-", "Path to the answer text, or - for stdin")
	strict := flag.Bool("strict", false, "Exit 1 when any citation is unresolved or its quote is not found")
	verbose := flag.Bool("v", false, "Log pipeline decisions to stderr")
	flag.Parse()

	if *manifestPath == "" {
		fmt.Fprintln(os.Stderr, "usage: citecheck -manifest docs.yaml [-answer answer.txt] [-strict]")
		os.Exit(2)
	}

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		logger = l
		defer logger.Sync()
	}

	docs, err := loadManifest(*manifestPath)
	if err != nil {
		log.Fatal(err)
	}
	text, err := readAnswer(*answerPath)
	if err != nil {
		log.Fatalf("Failed to read answer: %v", err)
	}

	engine := pdfengine.NewScheduler(pdfengine.Options{
		Cache:  pdfengine.NewLocalLRU(0),
		Logger: logger,
	})
	r := render.New(source.NewMatcher(), locator.New(engine, locator.DefaultSettings(), logger), logger)
	ans := r.Render(context.Background(), text, docs)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ans); err != nil {
		log.Fatalf("Failed to write result: %v", err)
	}

	if *strict {
		if n := unresolved(ans); n > 0 {
			fmt.Fprintf(os.Stderr, "%d of %d citations unresolved\n", n, len(ans.Citations))
			os.Exit(1)
		}
	}
}

func readAnswer(path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

// unresolved counts citations a reader could not follow to their quote
func unresolved(ans render.Answer) int {
	n := 0
	for _, c := range ans.Citations {
		switch c.Status {
		case render.StatusNotFound, render.StatusPending:
			n++
		case render.StatusFound:
			if !c.QuoteFound {
				n++
			}
		}
	}
	return n
}
