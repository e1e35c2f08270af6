package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"gonum.org/v1/plot/vg"

	"github.com/teatak/viterbi/alphabet"
	"github.com/teatak/viterbi/config"
	"github.com/teatak/viterbi/hmm"
	"github.com/teatak/viterbi/render"
	"github.com/teatak/viterbi/util"
	"github.com/teatak/viterbi/viterbi"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config file (optional)")
	modelPath := flag.String("model", "", "Path to model file (default data/dice.hmm)")
	alphabetPath := flag.String("alphabet", "", "Path to symbol alphabet file (default: numeric symbols)")
	workers := flag.Int("workers", 0, "Goroutines per time step (default 1)")
	plotPath := flag.String("plot", "", "Write the decoded path plot to this file (png, svg, pdf)")
	scoresPath := flag.String("scores-plot", "", "Write the per-state score margin plot to this file")
	showScore := flag.Bool("scores", false, "Print the log-probability of the decoded path")
	flag.Parse()

	// 1. Resolve configuration: defaults <- config file <- flags
	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
		cfg = *loaded
	}
	cfg.Merge(&config.Config{Model: *modelPath, Alphabet: *alphabetPath, Workers: *workers})

	// 2. Load Resources
	if !util.FileExists(cfg.Model) {
		fmt.Fprintf(os.Stderr, "Error: model file not found at %s.\n", cfg.Model)
		os.Exit(1)
	}
	model, err := hmm.Load(cfg.Model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading model: %v\n", err)
		os.Exit(1)
	}

	symbols := alphabet.New()
	if cfg.Alphabet != "" {
		if err := symbols.Load(cfg.Alphabet); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading alphabet: %v\n", err)
			os.Exit(1)
		}
		if symbols.Size() != model.NumSymbols() {
			log.Printf("Warning: alphabet has %d symbols, model emits %d.", symbols.Size(), model.NumSymbols())
		}
	}

	decoder := &viterbi.Decoder{Workers: cfg.Workers}

	// Helper to process one observation line
	process := func(line string) {
		obs, err := symbols.Encode(symbols.Fields(line, model.NumSymbols()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}
		tr, err := decoder.Trellis(model, obs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}

		fmt.Println(formatObservations(symbols, obs))
		fmt.Println(model.FormatPath(tr.Path))
		if *showScore {
			fmt.Printf("log P = %.6f\n", tr.LogProb)
		}

		width := vg.Length(tr.Len())*vg.Points(6) + 2*vg.Inch
		if *plotPath != "" {
			p, err := render.PathPlot(model, tr)
			if err == nil {
				err = render.SavePlot(p, width, 2*vg.Inch, *plotPath)
			}
			if err != nil {
				log.Printf("Warning: path plot failed: %v", err)
			}
		}
		if *scoresPath != "" {
			p, err := render.ScorePlot(model, tr)
			if err == nil {
				err = render.SavePlot(p, width, 3*vg.Inch, *scoresPath)
			}
			if err != nil {
				log.Printf("Warning: score plot failed: %v", err)
			}
		}
	}

	// If args provided (non-flag args), decode them as one sequence
	args := flag.Args()
	if len(args) > 0 {
		process(strings.Join(args, " "))
		return
	}

	// Otherwise interactive mode
	fmt.Println("Enter observations to decode (Ctrl+D to exit):")
	scanner := bufio.NewScanner(os.Stdin)
	buf := make([]byte, 1024*1024)
	scanner.Buffer(buf, 1024*1024)
	for scanner.Scan() {
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		process(text)
	}
}

func formatObservations(symbols *alphabet.Alphabet, obs []int) string {
	var sb strings.Builder
	for _, o := range obs {
		tok, _ := symbols.Token(o)
		sb.WriteString(tok)
	}
	return sb.String()
}
