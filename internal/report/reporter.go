package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"churn-predictor/internal/common"
	"churn-predictor/internal/ml"

	"github.com/rs/zerolog/log"
)

// Reporter writes the report files of one run
type Reporter struct {
	run        *ml.RunResult
	summary    Summary
	outputPath string
}

// NewReporter creates a new reporter
func NewReporter(run *ml.RunResult, threshold float64, outputPath string) *Reporter {
	return &Reporter{
		run:        run,
		summary:    Summarize(run.Predictions, threshold),
		outputPath: outputPath,
	}
}

// Summary returns the run summary.
func (r *Reporter) Summary() Summary {
	return r.summary
}

// GenerateReport writes the text summary, the per-customer CSV and the JSON report
// under the output path.
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.writeFile("run_summary.txt", r.WriteSummary); err != nil {
		return err
	}
	if err := r.writeFile("predictions.csv", r.WriteCSV); err != nil {
		return err
	}
	if err := r.writeFile("run.json", r.WriteJSON); err != nil {
		return err
	}
	return nil
}

func (r *Reporter) writeFile(name string, write func(io.Writer) error) error {
	path := filepath.Join(r.outputPath, name)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer file.Close()

	if err := write(file); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	log.Info().Str("file", path).Msg("Report generated")
	return nil
}

// WriteSummary writes a human-readable summary
func (r *Reporter) WriteSummary(w io.Writer) error {
	s := r.summary
	var b strings.Builder

	fmt.Fprintf(&b, "CHURN PREDICTION SUMMARY\n")
	fmt.Fprintf(&b, "========================\n\n")
	fmt.Fprintf(&b, "Run: %s\n", r.run.ID)
	fmt.Fprintf(&b, "Model: %s (%s)\n", r.run.Model.DisplayName(), r.run.Model)
	fmt.Fprintf(&b, "Source: %s\n", r.run.Source)
	fmt.Fprintf(&b, "Created: %s\n", r.run.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Duration: %s\n\n", r.run.Duration.Round(time.Millisecond))

	fmt.Fprintf(&b, "PREDICTIONS\n")
	fmt.Fprintf(&b, "-----------\n")
	fmt.Fprintf(&b, "Customers: %d\n", s.Total)
	fmt.Fprintf(&b, "Churned: %d (%.2f%%)\n", s.Churned, s.ChurnRate)
	fmt.Fprintf(&b, "Retained: %d\n", s.Retained)

	if !s.HasProbabilities {
		fmt.Fprintf(&b, "\nNo churn probabilities for this run.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "At risk (p >= %.2f): %d\n\n", s.Threshold, s.AtRisk)

	fmt.Fprintf(&b, "PROBABILITY HISTOGRAM\n")
	fmt.Fprintf(&b, "---------------------\n")
	for _, bin := range s.Histogram {
		fmt.Fprintf(&b, "%s: %d\n", bin.Label, bin.Count)
	}

	fmt.Fprintf(&b, "\nTHRESHOLD SWEEP\n")
	fmt.Fprintf(&b, "---------------\n")
	for _, p := range s.Sweep {
		fmt.Fprintf(&b, "%.2f: %d (%.2f%%)\n", p.Threshold, p.Count, p.Rate)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteCSV writes one row per customer
func (r *Reporter) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	header := []string{"ID_Cliente", "Apellido_Nombre", "Prediccion", "Probabilidad"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, p := range r.run.Predictions {
		prob := ""
		if p.Probability != nil {
			prob = strconv.FormatFloat(*p.Probability, 'f', 4, 64)
		}
		record := []string{p.CustomerID, p.CustomerName, strconv.Itoa(p.Label), prob}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteJSON writes the run, its predictions and the summary
func (r *Reporter) WriteJSON(w io.Writer) error {
	report := map[string]interface{}{
		"run":          r.run,
		"summary":      r.summary,
		"generated_at": time.Now(),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// WriteOverview writes the aggregate of many runs
func WriteOverview(w io.Writer, o Overview) error {
	var b strings.Builder

	fmt.Fprintf(&b, "PREDICTION HISTORY\n")
	fmt.Fprintf(&b, "==================\n\n")
	fmt.Fprintf(&b, "Runs: %d\n", o.Runs)
	for _, id := range common.ModelIDs {
		fmt.Fprintf(&b, "  %s: %d\n", id.DisplayName(), o.RunsByModel[id])
	}
	fmt.Fprintf(&b, "Retained: %d\n", o.Retained)
	fmt.Fprintf(&b, "Churned: %d\n\n", o.Churned)

	fmt.Fprintf(&b, "RISK BANDS\n")
	fmt.Fprintf(&b, "----------\n")
	fmt.Fprintf(&b, "High (p >= 0.80): %d\n", o.HighRisk)
	fmt.Fprintf(&b, "Medium (0.50 <= p < 0.80): %d\n", o.MediumRisk)
	fmt.Fprintf(&b, "Low (p < 0.50): %d\n", o.LowRisk)

	if len(o.Daily) > 0 {
		fmt.Fprintf(&b, "\nBY DAY\n")
		fmt.Fprintf(&b, "------\n")
		for _, d := range o.Daily {
			fmt.Fprintf(&b, "%s: %d retained, %d churned\n", d.Day, d.Retained, d.Churned)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
