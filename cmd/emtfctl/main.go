// emtfctl is the offline, batch counterpart to cmd/engine: it runs the same
// six-stage pipeline over a file of events with no HTTP server or database,
// for bank validation and scripted reconstruction runs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/urfave/cli/v2"

	"github.com/rawblock/emtf-trigger/internal/bank"
	"github.com/rawblock/emtf-trigger/internal/oracle"
	"github.com/rawblock/emtf-trigger/internal/pipeline"
	"github.com/rawblock/emtf-trigger/internal/shadow"
	"github.com/rawblock/emtf-trigger/pkg/models"
)

func main() {
	app := &cli.App{
		Name:  "emtfctl",
		Usage: "offline batch runner for the EMTF track reconstruction core",
		Commands: []*cli.Command{
			runCommand(),
			shadowCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "reconstruct tracks for every event in a batch file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "bank",
				Usage:    "path to the snappy-compressed pattern bank archive",
				EnvVars:  []string{"EMTF_BANK_PATH"},
				Required: true,
			},
			&cli.StringFlag{
				Name:     "events",
				Usage:    "path to a JSON file holding [][]RawHit (one hit list per event)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "path to write the JSON array of per-event track results (default: stdout)",
			},
			&cli.BoolFlag{
				Name:  "omtf",
				Usage: "reconstruct OMTF-region sectors instead of EMTF",
			},
			&cli.BoolFlag{
				Name:  "run2",
				Usage: "apply the Run-2 RPC validity window instead of Run-3",
			},
			&cli.Float64Flag{
				Name:  "discr-pt-cut",
				Usage: "discriminator cutoff (GeV) applied at track production",
				Value: 8.0,
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	b, err := bank.Load(c.String("bank"))
	if err != nil {
		return fmt.Errorf("load pattern bank: %w", err)
	}

	events, err := readEvents(c.String("events"))
	if err != nil {
		return fmt.Errorf("read events: %w", err)
	}

	predictor := oracle.NewPredictor()
	pipe := pipeline.New(b, predictor, c.Bool("omtf"), c.Bool("run2"), c.Float64("discr-pt-cut"))

	results := make([]eventResult, len(events))
	for i, raw := range events {
		tr, err := pipe.RunEvent(raw)
		if err != nil {
			results[i] = eventResult{Event: i, Error: err.Error()}
			continue
		}
		results[i] = eventResult{Event: i, Tracks: tr}
	}

	return writeResults(c.String("out"), results)
}

type eventResult struct {
	Event  int             `json:"event"`
	Tracks []*models.Track `json:"tracks,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func shadowCommand() *cli.Command {
	return &cli.Command{
		Name:  "shadow",
		Usage: "score a candidate pattern bank against the production bank over one event batch",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "bank",
				Usage:    "path to the production pattern bank archive",
				EnvVars:  []string{"EMTF_BANK_PATH"},
				Required: true,
			},
			&cli.StringFlag{
				Name:     "candidate",
				Usage:    "path to the candidate pattern bank archive",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "events",
				Usage:    "path to a JSON file holding [][]RawHit (one hit list per event)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "path to write per-event divergence results as JSON (default: stdout)",
			},
			&cli.BoolFlag{
				Name:  "omtf",
				Usage: "reconstruct OMTF-region sectors instead of EMTF",
			},
			&cli.BoolFlag{
				Name:  "run2",
				Usage: "apply the Run-2 RPC validity window instead of Run-3",
			},
			&cli.Float64Flag{
				Name:  "discr-pt-cut",
				Usage: "discriminator cutoff (GeV) applied at track production",
				Value: 8.0,
			},
		},
		Action: shadowAction,
	}
}

func shadowAction(c *cli.Context) error {
	prodBank, err := bank.Load(c.String("bank"))
	if err != nil {
		return fmt.Errorf("load production bank: %w", err)
	}
	candBank, err := bank.Load(c.String("candidate"))
	if err != nil {
		return fmt.Errorf("load candidate bank: %w", err)
	}

	events, err := readEvents(c.String("events"))
	if err != nil {
		return fmt.Errorf("read events: %w", err)
	}

	predictor := oracle.NewPredictor()
	omtf, run2, cut := c.Bool("omtf"), c.Bool("run2"), c.Float64("discr-pt-cut")
	prod := pipeline.New(prodBank, predictor, omtf, run2, cut)
	cand := pipeline.New(candBank, predictor, omtf, run2, cut)

	runner := shadow.NewShadowRunner(nil, 0, prod, cand)
	runID := uuid.New()

	results := make([]*shadow.ShadowResult, 0, len(events))
	var sumARI, sumVI float64
	for i, raw := range events {
		res, err := runner.RunShadowAnalysis(context.Background(), runID, i, raw)
		if err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		sumARI += res.ARI
		sumVI += res.VI
		results = append(results, res)
	}

	if n := len(results); n > 0 {
		log.Printf("[Shadow] %d events: avg ARI=%.4f avg VI=%.4f", n, sumARI/float64(n), sumVI/float64(n))
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	if path := c.String("out"); path != "" {
		return os.WriteFile(path, data, 0o644)
	}
	_, err = os.Stdout.Write(append(data, '\n'))
	return err
}

func readEvents(path string) ([][]models.RawHit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var events [][]models.RawHit
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode events file: %w", err)
	}
	return events, nil
}

func writeResults(path string, results []eventResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
