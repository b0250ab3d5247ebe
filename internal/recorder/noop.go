package recorder

import "TrendSentinel/internal/report"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordDigest(_ *report.Digest) error { return nil }
func (n *NoopRecorder) Close() error                        { return nil }
func (n *NoopRecorder) RecentRuns(_ int) ([]RunRow, error) { return nil, nil }
