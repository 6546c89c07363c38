package export

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/mgriffen/bnet/bayes"
	"github.com/mgriffen/bnet/sampling"
)

// weightColumn is the name of the trailing weight column in weighted
// exports. A variable with this name would collide with it.
const weightColumn = "weight"

// WriteArrow writes samples as an Arrow IPC stream with one Boolean
// column per variable. The stream format works on any io.Writer,
// including stdout.
func WriteArrow(w io.Writer, order []bayes.Variable, samples []sampling.Sample) error {
	schema, err := arrowSchema(order, false)
	if err != nil {
		return err
	}
	mem := memory.NewGoAllocator()

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i, s := range samples {
		for j, v := range order {
			val, ok := s[v]
			if !ok {
				return fmt.Errorf("sample %d missing variable %q", i, v)
			}
			b.Field(j).(*array.BooleanBuilder).Append(val)
		}
	}

	return writeRecord(w, mem, schema, b)
}

// WriteWeightedArrow writes weighted samples as an Arrow IPC stream
// with one Boolean column per variable and a trailing Float64 weight
// column.
func WriteWeightedArrow(w io.Writer, order []bayes.Variable, samples []sampling.WeightedSample) error {
	schema, err := arrowSchema(order, true)
	if err != nil {
		return err
	}
	mem := memory.NewGoAllocator()

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i, ws := range samples {
		for j, v := range order {
			val, ok := ws.Values[v]
			if !ok {
				return fmt.Errorf("sample %d missing variable %q", i, v)
			}
			b.Field(j).(*array.BooleanBuilder).Append(val)
		}
		b.Field(len(order)).(*array.Float64Builder).Append(ws.Weight)
	}

	return writeRecord(w, mem, schema, b)
}

// arrowSchema builds the schema for an export: Boolean per variable,
// plus the Float64 weight column when weighted.
func arrowSchema(order []bayes.Variable, weighted bool) (*arrow.Schema, error) {
	fields := make([]arrow.Field, 0, len(order)+1)
	for _, v := range order {
		if weighted && string(v) == weightColumn {
			return nil, fmt.Errorf("variable %q collides with the weight column", v)
		}
		fields = append(fields, arrow.Field{Name: string(v), Type: arrow.FixedWidthTypes.Boolean})
	}
	if weighted {
		fields = append(fields, arrow.Field{Name: weightColumn, Type: arrow.PrimitiveTypes.Float64})
	}
	return arrow.NewSchema(fields, nil), nil
}

// writeRecord flushes the builder as a single record batch to w.
func writeRecord(w io.Writer, mem memory.Allocator, schema *arrow.Schema, b *array.RecordBuilder) error {
	rec := b.NewRecord()
	defer rec.Release()

	fw := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	return nil
}
