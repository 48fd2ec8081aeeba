package domain

// FeatureFailure describes one feature the store rejected.
type FeatureFailure struct {
	Index      int // position in the submitted batch
	SourceLine int
	Unit       int
	Code       int
	Message    string
}

// PublishReport is what a feature store reported for one bulk insert.
// Succeeded and Failed are taken from the store's per-feature results, which
// may report partial success even when an all-or-nothing insert was requested.
type PublishReport struct {
	Queued    int
	Succeeded int
	Failed    int
	Failures  []FeatureFailure
}
