package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hupe1980/vecbench/blobstore"
	"github.com/hupe1980/vecbench/codec"
)

// Sink receives a finished report.
type Sink interface {
	Write(ctx context.Context, r *Report) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r *Report) error

// Write calls f.
func (f SinkFunc) Write(ctx context.Context, r *Report) error { return f(ctx, r) }

// WriteAll writes r to every sink and joins the errors. A failing sink
// does not stop the others.
func WriteAll(ctx context.Context, r *Report, sinks ...Sink) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Write(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BlobSink stores the report as one encoded blob.
type BlobSink struct {
	store blobstore.BlobStore
	name  string
	codec codec.Codec
}

// NewBlobSink returns a sink writing name in store. A nil codec means
// codec.Default.
func NewBlobSink(store blobstore.BlobStore, name string, c codec.Codec) *BlobSink {
	if c == nil {
		c = codec.Default
	}
	return &BlobSink{store: store, name: name, codec: c}
}

// Write encodes r as indented JSON and puts it.
func (s *BlobSink) Write(ctx context.Context, r *Report) error {
	data, err := s.codec.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report with %s: %w", s.codec.Name(), err)
	}
	if err := s.store.Put(ctx, s.name, append(data, '\n')); err != nil {
		return fmt.Errorf("store report %s: %w", s.name, err)
	}
	return nil
}

// ReadBlob decodes a report written by BlobSink.
func ReadBlob(ctx context.Context, store blobstore.BlobStore, name string, c codec.Codec) (*Report, error) {
	if c == nil {
		c = codec.Default
	}
	rc, _, err := blobstore.NewReader(ctx, store, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}

	var r Report
	if err := c.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", name, err)
	}
	return &r, nil
}

// JSONSink writes the encoded report to a writer.
type JSONSink struct {
	w     io.Writer
	codec codec.Codec
}

// NewJSONSink returns a sink encoding to w. A nil codec means codec.Default.
func NewJSONSink(w io.Writer, c codec.Codec) *JSONSink {
	if c == nil {
		c = codec.Default
	}
	return &JSONSink{w: w, codec: c}
}

// Write encodes r as indented JSON followed by a newline.
func (s *JSONSink) Write(_ context.Context, r *Report) error {
	data, err := s.codec.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report with %s: %w", s.codec.Name(), err)
	}
	_, err = s.w.Write(append(data, '\n'))
	return err
}

// TextSink prints one table row per round.
type TextSink struct {
	w io.Writer
}

// NewTextSink returns a sink printing to w.
func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

// Write prints the report summary and its rounds.
func (s *TextSink) Write(_ context.Context, r *Report) error {
	tw := tabwriter.NewWriter(s.w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintf(s.w, "index=%s mode=%s points=%d dim=%d queries=%d k=%d workers=%d prepare=%s\n",
		r.IndexKind, r.Mode, r.Points, r.Dimension, r.QueryCount, r.K, r.Workers, r.Prepare)

	fmt.Fprintln(tw, "ef\trecall(%)\tduration\tqps\tp50\tp95\tp99\t")
	for _, rd := range r.Rounds {
		fmt.Fprintf(tw, "%d\t%.2f\t%s\t%.0f\t%s\t%s\t%s\t\n",
			rd.Ef, rd.Recall, rd.Duration, rd.QPS, rd.Latency.P50, rd.Latency.P95, rd.Latency.P99)
	}

	return tw.Flush()
}
