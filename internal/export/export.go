// Package export writes generated samples to interchange formats so
// they can be inspected or post-processed outside this tool. It
// consumes explicit sample slices and never reaches back into the
// sampling engine.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mgriffen/bnet/bayes"
	"github.com/mgriffen/bnet/sampling"
)

// Format identifies a sample export format.
type Format string

const (
	FormatArrow Format = "arrow"
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
)

// ParseFormat maps a user-supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "arrow", "ipc":
		return FormatArrow, nil
	case "csv":
		return FormatCSV, nil
	case "jsonl", "ndjson":
		return FormatJSONL, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want arrow, csv, or jsonl)", s)
	}
}

// Write writes samples to w in the given format. Column order follows
// the order slice, normally the network's sampling order.
func Write(w io.Writer, format Format, order []bayes.Variable, samples []sampling.Sample) error {
	switch format {
	case FormatArrow:
		return WriteArrow(w, order, samples)
	case FormatCSV:
		return WriteCSV(w, order, samples)
	case FormatJSONL:
		return WriteJSONL(w, samples)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// WriteWeighted writes weighted samples to w in the given format,
// appending a weight column after the variable columns.
func WriteWeighted(w io.Writer, format Format, order []bayes.Variable, samples []sampling.WeightedSample) error {
	switch format {
	case FormatArrow:
		return WriteWeightedArrow(w, order, samples)
	case FormatCSV:
		return WriteWeightedCSV(w, order, samples)
	case FormatJSONL:
		return WriteWeightedJSONL(w, samples)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// WriteCSV writes samples as CSV with a header row of variable names.
func WriteCSV(w io.Writer, order []bayes.Variable, samples []sampling.Sample) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(order))
	for i, v := range order {
		header[i] = string(v)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, len(order))
	for i, s := range samples {
		for j, v := range order {
			val, ok := s[v]
			if !ok {
				return fmt.Errorf("sample %d missing variable %q", i, v)
			}
			row[j] = strconv.FormatBool(val)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteWeightedCSV writes weighted samples as CSV with a trailing
// weight column.
func WriteWeightedCSV(w io.Writer, order []bayes.Variable, samples []sampling.WeightedSample) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(order)+1)
	for i, v := range order {
		header[i] = string(v)
	}
	header[len(order)] = "weight"
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, len(order)+1)
	for i, ws := range samples {
		for j, v := range order {
			val, ok := ws.Values[v]
			if !ok {
				return fmt.Errorf("sample %d missing variable %q", i, v)
			}
			row[j] = strconv.FormatBool(val)
		}
		row[len(order)] = strconv.FormatFloat(ws.Weight, 'g', -1, 64)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJSONL writes one JSON object per sample, one per line. Keys are
// variable names, so no column order is needed.
func WriteJSONL(w io.Writer, samples []sampling.Sample) error {
	enc := json.NewEncoder(w)
	for i, s := range samples {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("failed to encode sample %d: %w", i, err)
		}
	}
	return nil
}

// weightedLine is the JSONL shape for a weighted sample.
type weightedLine struct {
	Values sampling.Sample `json:"values"`
	Weight float64         `json:"weight"`
}

// WriteWeightedJSONL writes one JSON object per weighted sample.
func WriteWeightedJSONL(w io.Writer, samples []sampling.WeightedSample) error {
	enc := json.NewEncoder(w)
	for i, ws := range samples {
		if err := enc.Encode(weightedLine{Values: ws.Values, Weight: ws.Weight}); err != nil {
			return fmt.Errorf("failed to encode sample %d: %w", i, err)
		}
	}
	return nil
}
