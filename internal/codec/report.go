package codec

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"heredity/internal/domain"
)

// Report is the JSON form of an inference run
type Report struct {
	PedigreeID  string                  `json:"pedigree_id,omitempty"`
	Individuals []domain.NamedPosterior `json:"individuals"`
	Worlds      uint64                  `json:"worlds"`
	ElapsedMS   float64                 `json:"elapsed_ms"`
}

// NewReport creates a report from a completed run
func NewReport(run *domain.InferenceRun) Report {
	return Report{
		PedigreeID:  run.PedigreeID,
		Individuals: run.Posteriors,
		Worlds:      run.Worlds,
		ElapsedMS:   float64(run.Elapsed.Microseconds()) / 1000,
	}
}

// WriteText prints every individual's posteriors in input order:
//
//	Harry:
//	  Gene:
//	    2: 0.0092
//	    1: 0.4557
//	    0: 0.5351
//	  Trait:
//	    True: 0.2665
//	    False: 0.7335
func WriteText(w io.Writer, posteriors []domain.NamedPosterior) error {
	var b strings.Builder
	for _, p := range posteriors {
		fmt.Fprintf(&b, "%s:\n", p.Name)
		b.WriteString("  Gene:\n")
		for _, g := range domain.GeneCounts {
			fmt.Fprintf(&b, "    %d: %.4f\n", g, p.Gene.Of(g))
		}
		b.WriteString("  Trait:\n")
		fmt.Fprintf(&b, "    True: %.4f\n", p.Trait.True())
		fmt.Fprintf(&b, "    False: %.4f\n", p.Trait.False())
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// WriteJSON writes the run as an indented JSON report
func WriteJSON(w io.Writer, run *domain.InferenceRun) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(NewReport(run)); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// ReadJSON reads a report written by WriteJSON
func ReadJSON(r io.Reader) (*Report, error) {
	var report Report
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}
