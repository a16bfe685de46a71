package o11y

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

type recordingSpan struct {
	fields map[string]any
	ended  bool
}

func newRecordingSpan() *recordingSpan {
	return &recordingSpan{fields: map[string]any{}}
}

func (s *recordingSpan) AddField(key string, val any)    { s.fields["app."+key] = val }
func (s *recordingSpan) AddRawField(key string, val any) { s.fields[key] = val }
func (s *recordingSpan) RecordMetric(Metric)             {}
func (s *recordingSpan) End()                            { s.ended = true }

func TestAddResultToSpan(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want map[string]any
	}{
		{
			name: "success",
			err:  nil,
			want: map[string]any{"result": "success"},
		},
		{
			name: "error",
			err:  errors.New("boom"),
			want: map[string]any{"result": "error", "error": "boom"},
		},
		{
			name: "warning",
			err:  NewWarning("nothing to do"),
			want: map[string]any{"warning": "nothing to do", "result": "success"},
		},
		{
			name: "canceled",
			err:  fmt.Errorf("op: %w", context.Canceled),
			want: map[string]any{"result": "canceled", "warning": "op: context canceled"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			span := newRecordingSpan()
			AddResultToSpan(span, tt.err)
			assert.Check(t, cmp.DeepEqual(span.fields, tt.want))
		})
	}
}

func TestEnd_SeesFinalError(t *testing.T) {
	span := newRecordingSpan()
	func() (err error) {
		defer End(span, &err)
		return errors.New("late")
	}()
	assert.Check(t, span.ended)
	assert.Check(t, cmp.Equal(span.fields["error"], "late"))
}

func TestWarning(t *testing.T) {
	warn := NewWarning("no rows")
	assert.Check(t, IsWarning(warn))
	assert.Check(t, IsWarning(fmt.Errorf("wrapped: %w", warn)))
	assert.Check(t, !IsWarning(errors.New("real")))
	assert.Check(t, !IsWarning(nil))

	assert.Check(t, AllWarning(warn, nil, Warningf("also %s", "warned")))
	assert.Check(t, !AllWarning(warn, errors.New("real")))
	assert.Check(t, !AllWarning(nil, nil))
}

func TestFromContext_Noop(t *testing.T) {
	ctx := context.Background()
	// none of these should panic without a provider
	ctx, span := StartSpan(ctx, "nothing")
	span.AddField("k", "v")
	span.End()
	Log(ctx, "msg", Field("k", "v"))
	AddField(ctx, "k", "v")
	AddFieldToTrace(ctx, "k", "v")
	assert.Check(t, FromContext(ctx).MetricsProvider() != nil)
}
