package models

// Cursor is a pipeline's resume point. It is monotonically non-decreasing and
// only advances after a block has been fully processed; it rewinds only on an
// explicit resume-from-checkpoint at startup.
type Cursor struct {
	ChainID            uint64 `json:"chain_id" db:"chain_id"`
	Pipeline           string `json:"pipeline" db:"pipeline"`
	LastProcessedBlock uint64 `json:"last_processed_block" db:"last_processed_block"`
}

// Pipeline names used as cursor keys.
const (
	PipelineScanner = "scanner"
	PipelineTracker = "tracker"
)
