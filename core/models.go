package core

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities, assigned by the storage
// backend (database sequence or serial column).
type ID uint64

// SourceRefFromText derives a deterministic source reference from text
// content using BLAKE2b hashing. Identical content always produces the same
// reference, which is what makes record intake idempotent per owner.
func SourceRefFromText(text string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Record is a unit of embeddable text owned by a single owner. All storage
// and search operations are scoped by OwnerID; records never cross owners.
type Record struct {
	Id        ID
	OwnerID   string
	SourceRef string // unique per owner, immutable (e.g., commit hash)
	Text      string
	Category  string // origin tag, e.g., repository name
	CreatedAt time.Time
	Vector    []float32 // embedding, nil until the orchestrator writes it
}

// HasVector reports whether the record carries an embedding.
func (r *Record) HasVector() bool {
	return len(r.Vector) > 0
}

// JobProgress is a point-in-time snapshot of embedding completion for one
// owner. It is computed on demand from store counts and never persisted.
type JobProgress struct {
	TotalRecords         int
	RecordsWithVector    int
	RecordsWithoutVector int
	PercentComplete      float64
	ReadyForSearch       bool
}

// NewJobProgress derives a JobProgress from raw counts. An owner with zero
// records reports 0%, not NaN.
func NewJobProgress(total, withVector int) JobProgress {
	missing := total - withVector
	if missing < 0 {
		missing = 0
	}
	percent := 0.0
	if total > 0 {
		percent = float64(withVector) / float64(total) * 100.0
	}
	return JobProgress{
		TotalRecords:         total,
		RecordsWithVector:    withVector,
		RecordsWithoutVector: missing,
		PercentComplete:      percent,
		ReadyForSearch:       withVector > 0,
	}
}

// HitOrigin identifies which retrieval path produced a scored record.
type HitOrigin string

const (
	// OriginSemantic marks hits ranked by vector similarity.
	OriginSemantic HitOrigin = "semantic"
	// OriginRecent marks hits included for recency only; their similarity
	// is zero by definition.
	OriginRecent HitOrigin = "recent"
)

// ScoredRecord pairs a record with its similarity score and origin.
type ScoredRecord struct {
	Record     *Record
	Similarity float32
	Origin     HitOrigin
}

// OwnerProfile is a read-only snapshot of an owner's derived profile,
// maintained outside this subsystem and consumed during context assembly.
type OwnerProfile struct {
	OwnerID    string
	Projects   []string
	Tags       []string
	FocusAreas []string
	UpdatedAt  time.Time
}

// ContextBundle is the context builder's output, constructed fresh per
// request and never persisted. RankedHits and RecentHits are disjoint by
// SourceRef, and FormattedText is a pure function of the other fields.
type ContextBundle struct {
	RankedHits    []ScoredRecord
	RecentHits    []ScoredRecord
	Profile       *OwnerProfile
	QueryTopics   []string
	QueryIntent   string
	FormattedText string
}
