package api

import (
	"strings"

	"github.com/herohde/shoginet/pkg/usi"
)

// Work job kinds.
const (
	WorkAnalysis = "analysis"
	WorkMove     = "move"
	WorkPuzzle   = "puzzle"
)

// Engine flavors.
const (
	FlavorStd     = "yaneuraou"
	FlavorVariant = "fairy"
)

// Clock is the time control attached to a move job. btime/wtime are in
// centiseconds, byo and inc in seconds.
type Clock struct {
	BTime int64 `json:"btime"`
	WTime int64 `json:"wtime"`
	Byo   int64 `json:"byo"`
	Inc   int64 `json:"inc"`
}

// Work describes the unit of work inside a job.
type Work struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Level   int    `json:"level,omitempty"`
	Flavor  string `json:"flavor,omitempty"`
	Clock   *Clock `json:"clock,omitempty"`
	MultiPV int    `json:"multipv,omitempty"`
}

// Job is a unit of work received from the server. Unknown fields are
// preserved nowhere; the client consumes only what it understands.
type Job struct {
	Work          Work   `json:"work"`
	Position      string `json:"position"`
	Moves         string `json:"moves"`
	Variant       string `json:"variant,omitempty"`
	GameID        string `json:"game_id,omitempty"`
	SkipPositions []int  `json:"skipPositions,omitempty"`
	Nodes         int64  `json:"nodes,omitempty"`
	MultiPV       int    `json:"multipv,omitempty"`
}

// EffectiveVariant returns the job variant, defaulting to standard.
func (j *Job) EffectiveVariant() string {
	if j.Variant == "" {
		return "standard"
	}
	return j.Variant
}

// UseVariantEngine reports whether the job targets the variant engine.
func (j *Job) UseVariantEngine() bool {
	return j.Work.Flavor == FlavorVariant
}

// EffectiveMultiPV returns the requested multi-PV count, zero if unset.
// Newer servers place it on the work block, older ones on the job.
func (j *Job) EffectiveMultiPV() int {
	if j.Work.MultiPV > 0 {
		return j.Work.MultiPV
	}
	return j.MultiPV
}

// MoveList splits the space-joined move list.
func (j *Job) MoveList() []string {
	return strings.Fields(j.Moves)
}

// ClientInfo identifies this client in the envelope.
type ClientInfo struct {
	Version string `json:"version"`
	Runtime string `json:"runtime"`
	APIKey  string `json:"apikey"`
}

// EngineInfo describes a running engine: its advertised name and the
// options applied to it.
type EngineInfo struct {
	Name    string            `json:"name,omitempty"`
	Options map[string]string `json:"options,omitempty"`
}

// Envelope is the standard client-identity block attached to every
// outbound POST body.
type Envelope struct {
	Shoginet ClientInfo  `json:"shoginet"`
	StdInfo  *EngineInfo `json:"yaneuraou,omitempty"`
	VarInfo  *EngineInfo `json:"fairy,omitempty"`
}

// MoveResult carries the played move, null when the engine had none.
type MoveResult struct {
	BestMove *string `json:"bestmove"`
}

// AnalysisPly is one per-ply analysis entry in single-PV form. A skipped
// ply carries only the marker.
type AnalysisPly struct {
	Skipped bool       `json:"skipped,omitempty"`
	Depth   *int       `json:"depth,omitempty"`
	Score   *usi.Score `json:"score,omitempty"`
	Nodes   *int64     `json:"nodes,omitempty"`
	Time    *int64     `json:"time,omitempty"`
	NPS     *int64     `json:"nps,omitempty"`
	PV      *string    `json:"pv,omitempty"`
}

// MultiPVAnalysis is the four-array analysis form, each table indexed
// [ply][multipv-1][depth].
type MultiPVAnalysis struct {
	Time  [][][]*int64  `json:"time"`
	Nodes [][][]*int64  `json:"nodes"`
	Score [][][]*int64  `json:"score"`
	PV    [][][]*string `json:"pv"`
}

// Result is an outbound result body: the envelope plus exactly one of
// the job-kind payloads.
type Result struct {
	Envelope
	Analysis any         `json:"analysis,omitempty"`
	Move     *MoveResult `json:"move,omitempty"`
	Found    *bool       `json:"result,omitempty"`
}
