package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordCycle(_ *CycleEvent) error           { return nil }
func (n *NoopRecorder) RecordAnnotation(_ *AnnotationEvent) error { return nil }
func (n *NoopRecorder) RecordControl(_ *ControlEvent) error       { return nil }
func (n *NoopRecorder) RecentCycles(_ int) ([]CycleEvent, error)  { return nil, nil }
func (n *NoopRecorder) Close() error                              { return nil }
