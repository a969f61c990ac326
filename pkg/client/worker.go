// Package client implements the distributed analysis client: the worker
// pool, the per-worker job loop against two engine subprocesses, the
// backoff policy and the progress-report side channel.
package client

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/seekerror/build"
	"github.com/seekerror/stdlib/pkg/lang"
	"github.com/seekerror/stdlib/pkg/util/iox"
	"go.uber.org/atomic"

	"github.com/herohde/shoginet/pkg/api"
	"github.com/herohde/shoginet/pkg/config"
	"github.com/herohde/shoginet/pkg/logx"
	"github.com/herohde/shoginet/pkg/usi"
)

var version = build.NewVersion(2, 0, 0)

// Version returns the client version.
func Version() string {
	return fmt.Sprintf("%v", version)
}

const (
	// progressReportInterval is how often a running analysis posts
	// partial results through the reporter.
	progressReportInterval = 5 * time.Second
	// defaultAnalysisNodes caps each analysed position unless the job
	// says otherwise.
	defaultAnalysisNodes = 3_500_000
)

// Session is the engine surface the worker drives. *usi.Engine implements
// it; tests substitute scripted sessions.
type Session interface {
	USI(ctx context.Context) (map[string]string, error)
	IsReady(ctx context.Context) error
	SetOption(ctx context.Context, name, value string) error
	SetVariantOptions(ctx context.Context, variant string) error
	NewGame(ctx context.Context) error
	Go(ctx context.Context, position string, moves []string, opt usi.GoOptions) error
	RecvBestmove(ctx context.Context) (lang.Optional[string], error)
	RecvAnalysis(ctx context.Context) (*usi.Analysis, error)
	RecvPuzzleAnalysis(ctx context.Context) (lang.Optional[string], []int64, error)
	Name() string
	PID() int
	Alive() bool
	Kill(ctx context.Context)
}

var _ Session = (*usi.Engine)(nil)

// SpawnFunc starts an engine of the given kind.
type SpawnFunc func(ctx context.Context, kind usi.Kind) (Session, error)

// Worker is a long-lived unit owning two engine sessions and running the
// poll/work/report loop until stopped.
type Worker struct {
	conf    *config.Config
	threads int
	memory  int64 // MiB for this worker, split between the two engines

	api      *api.Client
	reporter *Reporter
	spawn    SpawnFunc

	name string

	alive    *atomic.Bool
	wake     iox.AsyncCloser
	finished iox.AsyncCloser

	mu       sync.Mutex
	job      *api.Job
	fatalErr error

	backoff *Backoff

	enginesMu sync.Mutex
	engines   map[usi.Kind]Session
	infos     map[usi.Kind]*api.EngineInfo

	nodes     atomic.Int64
	positions atomic.Int64
}

// NewWorker creates a worker with the given thread bucket and memory
// share. A nil spawn uses the configured engine commands.
func NewWorker(conf *config.Config, client *api.Client, reporter *Reporter, threads int, memory int64, spawn SpawnFunc) *Worker {
	w := &Worker{
		conf:     conf,
		threads:  threads,
		memory:   memory,
		api:      client,
		reporter: reporter,
		spawn:    spawn,
		alive:    atomic.NewBool(true),
		wake:     iox.NewAsyncCloser(),
		finished: iox.NewAsyncCloser(),
		backoff:  NewBackoff(conf.FixedBackoff),
		engines:  map[usi.Kind]Session{},
		infos:    map[usi.Kind]*api.EngineInfo{},
	}
	if w.spawn == nil {
		w.spawn = func(ctx context.Context, kind usi.Kind) (Session, error) {
			command := conf.StdEngineCmd
			if kind.Variants() {
				command = conf.VariantEngineCmd
			}
			return usi.Start(ctx, kind, command, conf.EngineDir)
		}
	}
	return w
}

// SetName sets the worker display name.
func (w *Worker) SetName(name string) {
	w.name = name
}

// Alive reports whether the worker should keep polling.
func (w *Worker) Alive() bool {
	return w.alive.Load()
}

// Stop ends the loop and kills both engines immediately, surfacing as a
// dead-engine error in any in-flight operation.
func (w *Worker) Stop(ctx context.Context) {
	w.alive.Store(false)
	w.killEngines(ctx)
	w.wake.Close()
}

// StopSoon ends the loop after the in-flight job completes.
func (w *Worker) StopSoon() {
	w.alive.Store(false)
	w.wake.Close()
}

// Finished is closed when the worker loop has exited and both engine
// sessions are destroyed.
func (w *Worker) Finished() <-chan struct{} {
	return w.finished.Closed()
}

// FatalError returns the error that terminated the worker, if any.
func (w *Worker) FatalError() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.fatalErr
}

// HasJob reports whether a job is currently held.
func (w *Worker) HasJob() bool {
	return w.currentJob() != nil
}

// Positions returns the number of positions processed.
func (w *Worker) Positions() int64 {
	return w.positions.Load()
}

// Nodes returns the number of nodes crunched.
func (w *Worker) Nodes() int64 {
	return w.nodes.Load()
}

func (w *Worker) currentJob() *api.Job {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.job
}

func (w *Worker) setJob(job *api.Job) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.job = job
}

func (w *Worker) setFatal(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.fatalErr = err
}

// Run is the outer loop. It exits on Stop/StopSoon or a fatal error, and
// guarantees both engines are destroyed before Finished closes.
func (w *Worker) Run(ctx context.Context) {
	defer w.finished.Close()
	defer w.killEngines(ctx)

	for w.Alive() {
		if err := w.runInner(ctx); err != nil {
			w.setFatal(err)
			if !errors.Is(err, api.ErrUpdateRequired) {
				logx.Errorf(ctx, "Fatal error in worker %v: %v", w.name, err)
			}
			return
		}
	}
}

// runInner performs one poll/work/report iteration. It returns an error
// only for fatal conditions; transient failures back off internally.
func (w *Worker) runInner(ctx context.Context) error {
	path, body, err := w.prepare(ctx)
	if err != nil {
		if !errors.Is(err, usi.ErrDead) {
			return err
		}

		alive := w.Alive()
		var t time.Duration
		if alive {
			t = w.backoff.Next()
			logx.Errorf(ctx, "Engine process has died. Backing off %.1fs: %v", t.Seconds(), err)
		}
		w.abortJob(ctx)
		if alive {
			w.sleepFor(t)
			w.killEngines(ctx)
		}
		return nil
	}

	stop := !w.Alive()
	if stop && path == "acquire" {
		// Exiting with nothing to report.
		w.setJob(nil)
		return nil
	}

	resp, err := w.api.Post(ctx, path, stop, body)
	if err != nil {
		w.setJob(nil)
		t := w.backoff.Next()
		logx.Errorf(ctx, "Backing off %.1fs after failed request (%v)", t.Seconds(), err)
		w.sleepFor(t)
		return nil
	}
	return w.handleResponse(ctx, path, resp)
}

func (w *Worker) handleResponse(ctx context.Context, path string, resp *api.Response) error {
	switch {
	case resp.NoJob():
		w.setJob(nil)
		t := w.backoff.Next()
		logx.Debugf(ctx, "No job received. Backing off %.1fs", t.Seconds())
		w.sleepFor(t)

	case resp.JobAccepted():
		logx.Debugf(ctx, "Got job: %v", string(resp.Body))

		var job api.Job
		if err := resp.JSON(&job); err != nil {
			w.setJob(nil)
			t := w.backoff.Next()
			logx.Errorf(ctx, "Invalid job body (%v). Backing off %.1fs", err, t.Seconds())
			w.sleepFor(t)
			return nil
		}
		w.setJob(&job)
		w.backoff = NewBackoff(w.conf.FixedBackoff)

	case resp.ServerError():
		w.setJob(nil)
		t := w.backoff.Next()
		logx.Errorf(ctx, "Server error: HTTP %v. Backing off %.1fs", resp.Status, t.Seconds())
		w.sleepFor(t)

	case resp.ClientError():
		w.setJob(nil)
		t := w.backoff.Next()
		if resp.RateLimited() {
			t += rateLimitPause
		}
		logx.Debugf(ctx, "Client error: HTTP %v: %v", resp.Status, string(resp.Body))

		msg, err := resp.UpdateRequested()
		if msg != "" {
			logx.Errorf(ctx, "%v", msg)
		}
		if err != nil {
			logx.Errorf(ctx, "Stopping worker for update.")
			return err
		}
		if msg == "" {
			logx.Errorf(ctx, "Client error: HTTP %v. Backing off %.1fs.", resp.Status, t.Seconds())
		}
		w.sleepFor(t)

	default:
		w.setJob(nil)
		t := w.backoff.Next()
		logx.Errorf(ctx, "Unexpected HTTP status for %v: %v", path, resp.StatusCode)
		w.sleepFor(t)
	}
	return nil
}

func (w *Worker) prepare(ctx context.Context) (string, *api.Result, error) {
	if err := w.startEngines(ctx); err != nil {
		return "", nil, err
	}
	return w.work(ctx)
}

// work chooses the path for this iteration: execute the held job, or
// request a new one.
func (w *Worker) work(ctx context.Context) (string, *api.Result, error) {
	job := w.currentJob()
	if job != nil {
		switch job.Work.Type {
		case api.WorkAnalysis:
			result, err := w.analysis(ctx, job)
			return "analysis/" + job.Work.ID, result, err
		case api.WorkMove:
			result, err := w.bestmove(ctx, job)
			return "move/" + job.Work.ID, result, err
		case api.WorkPuzzle:
			result, err := w.puzzle(ctx, job)
			return "puzzle/" + job.Work.ID, result, err
		default:
			logx.Warningf(ctx, "Invalid job type: %v", job.Work.Type)
			w.setJob(nil)
		}
	}
	return "acquire", w.result(), nil
}

// startEngines spawns any session that is missing or has exited, runs the
// handshake and applies the invariant options plus user overrides.
func (w *Worker) startEngines(ctx context.Context) error {
	w.enginesMu.Lock()
	defer w.enginesMu.Unlock()

	for _, kind := range []usi.Kind{usi.KindVariant, usi.KindStd} {
		if s := w.engines[kind]; s != nil {
			if s.Alive() {
				continue
			}
			s.Kill(ctx) // release pipes of the exited process
		}

		s, err := w.spawn(ctx, kind)
		if err != nil {
			return fmt.Errorf("spawn %v engine: %w: %v", kind, usi.ErrDead, err)
		}
		w.engines[kind] = s

		info, err := s.USI(ctx)
		if err != nil {
			return err
		}
		delete(info, "author")

		name := info["name"]
		if name == "" {
			name = fmt.Sprintf("%v <?>", kind)
		}
		logx.Infof(ctx, "Started %v, threads: %v (%v), pid: %v",
			name, strings.Repeat("+", w.threads), w.threads, s.PID())

		options := map[string]string{
			"Threads":  strconv.Itoa(w.threads),
			"USI_Hash": strconv.FormatInt(w.memory/2, 10),
		}
		if kind == usi.KindStd {
			options["EnteringKingRule"] = "CSARule27H"
			options["BookFile"] = "no_book"
			options["ConsiderationMode"] = "true"
			options["OutputFailLHPV"] = "true"
		}

		overrides := w.conf.EngineStd
		if kind.Variants() {
			overrides = w.conf.EngineVariant
		}
		for k, v := range overrides {
			options[k] = v
		}

		names := make([]string, 0, len(options))
		for k := range options {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			if err := s.SetOption(ctx, k, options[k]); err != nil {
				return err
			}
		}
		if err := s.IsReady(ctx); err != nil {
			return err
		}

		w.infos[kind] = &api.EngineInfo{Name: name, Options: options}
	}
	return nil
}

func (w *Worker) engine(variant bool) Session {
	w.enginesMu.Lock()
	defer w.enginesMu.Unlock()

	if variant {
		return w.engines[usi.KindVariant]
	}
	return w.engines[usi.KindStd]
}

// killEngines destroys both sessions.
func (w *Worker) killEngines(ctx context.Context) {
	w.enginesMu.Lock()
	defer w.enginesMu.Unlock()

	for kind, s := range w.engines {
		if s != nil {
			s.Kill(ctx)
		}
		delete(w.engines, kind)
	}
}

// envelope builds the standard client-identity block.
func (w *Worker) envelope() api.Envelope {
	w.enginesMu.Lock()
	defer w.enginesMu.Unlock()

	return api.Envelope{
		Shoginet: api.ClientInfo{
			Version: Version(),
			Runtime: runtime.Version(),
			APIKey:  w.conf.Key,
		},
		StdInfo: w.infos[usi.KindStd],
		VarInfo: w.infos[usi.KindVariant],
	}
}

func (w *Worker) result() *api.Result {
	return &api.Result{Envelope: w.envelope()}
}

// bestmove executes a move job against the flavor engine.
func (w *Worker) bestmove(ctx context.Context, job *api.Job) (*api.Result, error) {
	lvl := job.Work.Level
	if lvl < 1 || lvl > len(lvlSkill)-1 {
		return nil, fmt.Errorf("invalid level %v in job %v", lvl, job.Work.ID)
	}
	idx := lvl - 1

	variant := job.EffectiveVariant()
	useVariant := job.UseVariantEngine()
	moves := job.MoveList()
	engine := w.engine(useVariant)

	logx.Debugf(ctx, "Playing %v with lvl %v", w.jobName(job, -1), lvl)

	if err := engine.SetVariantOptions(ctx, variant); err != nil {
		return nil, err
	}
	if useVariant {
		if err := engine.SetOption(ctx, "Skill_Level", strconv.FormatInt(lvlSkill[idx], 10)); err != nil {
			return nil, err
		}
	} else {
		if err := engine.SetOption(ctx, "SkillLevel", strconv.FormatInt(max(lvlSkill[idx], 0), 10)); err != nil {
			return nil, err
		}
	}
	if err := engine.SetOption(ctx, "MultiPV", "1"); err != nil {
		return nil, err
	}
	if err := engine.NewGame(ctx); err != nil {
		return nil, err
	}
	if err := engine.IsReady(ctx); err != nil {
		return nil, err
	}

	opt := usi.GoOptions{
		MoveTime: lang.Some(moveTimeMillis(lvl, w.threads)),
		Depth:    lang.Some(lvlDepths[idx]),
	}
	if !useVariant {
		opt.Nodes = lang.Some(lvlNodes[idx])
	}
	if c := job.Work.Clock; c != nil {
		opt.Clock = lang.Some(usi.Clock{BTime: c.BTime, WTime: c.WTime, Byo: c.Byo, Inc: c.Inc})
	}

	start := time.Now()
	if err := engine.Go(ctx, job.Position, moves, opt); err != nil {
		return nil, err
	}
	bm, err := engine.RecvBestmove(ctx)
	if err != nil {
		return nil, err
	}

	token, _ := bm.V()
	logx.Infof(ctx, "Engine(%v) played move(%v) in %v (%v) with lvl %v: %.3fs elapsed",
		engine.Name(), token, w.jobName(job, -1), variant, lvl, time.Since(start).Seconds())
	w.positions.Inc()

	result := w.result()
	result.Move = &api.MoveResult{}
	if v, ok := bm.V(); ok {
		result.Move.BestMove = &v
	}
	return result, nil
}

// analysis executes an analysis job: every ply from the last move back to
// the root, with periodic partial reports.
func (w *Worker) analysis(ctx context.Context, job *api.Job) (*api.Result, error) {
	variant := job.EffectiveVariant()
	useVariant := job.UseVariantEngine()
	moves := job.MoveList()
	engine := w.engine(useVariant)

	multipv := job.EffectiveMultiPV()
	nodesCap := job.Nodes
	if nodesCap == 0 {
		nodesCap = defaultAnalysisNodes
	}
	skip := map[int]bool{}
	for _, ply := range job.SkipPositions {
		skip[ply] = true
	}

	if err := engine.SetVariantOptions(ctx, variant); err != nil {
		return nil, err
	}
	skillName := "SkillLevel"
	if useVariant {
		skillName = "Skill_Level"
	}
	if err := engine.SetOption(ctx, skillName, "20"); err != nil {
		return nil, err
	}
	mpv := "1"
	if multipv > 0 {
		mpv = strconv.Itoa(multipv)
	}
	if err := engine.SetOption(ctx, "MultiPV", mpv); err != nil {
		return nil, err
	}
	if useVariant {
		if err := engine.SetOption(ctx, "USI_AnalyseMode", "true"); err != nil {
			return nil, err
		}
	}
	if err := engine.NewGame(ctx); err != nil {
		return nil, err
	}
	if err := engine.IsReady(ctx); err != nil {
		return nil, err
	}

	result := w.result()
	var plain []*api.AnalysisPly
	var multi *api.MultiPVAnalysis
	if multipv == 0 {
		plain = make([]*api.AnalysisPly, len(moves)+1)
		result.Analysis = plain
	} else {
		multi = &api.MultiPVAnalysis{
			Time:  make([][][]*int64, len(moves)+1),
			Nodes: make([][][]*int64, len(moves)+1),
			Score: make([][][]*int64, len(moves)+1),
			PV:    make([][][]*string, len(moves)+1),
		}
		// Every ply slot serializes as an array, even when skipped or
		// not yet analysed.
		for i := range multi.Time {
			multi.Time[i] = [][]*int64{}
			multi.Nodes[i] = [][]*int64{}
			multi.Score[i] = [][]*int64{}
			multi.PV[i] = [][]*string{}
		}
		result.Analysis = multi
	}

	start := time.Now()
	lastProgress := start
	numPositions := 0

	for ply := len(moves); ply >= 0; ply-- {
		if skip[ply] {
			if plain != nil {
				plain[ply] = &api.AnalysisPly{Skipped: true}
			}
			continue
		}

		if w.reporter != nil && time.Since(lastProgress) > progressReportInterval {
			w.reporter.Send(ctx, job, result)
			lastProgress = time.Now()
		}

		logx.Debugf(ctx, "Analysing: %v", w.jobName(job, ply))

		opt := usi.GoOptions{
			Nodes:    lang.Some(nodesCap),
			MoveTime: lang.Some(int64(7000)),
		}
		if err := engine.Go(ctx, job.Position, moves[:ply], opt); err != nil {
			return nil, err
		}
		a, err := engine.RecvAnalysis(ctx)
		if err != nil {
			return nil, err
		}

		if plain != nil {
			p, err := singlePVPly(a)
			if err != nil {
				return nil, fmt.Errorf("%v: %v", w.jobName(job, ply), err)
			}
			plain[ply] = p
		} else {
			multi.Time[ply] = nonNilTable(a.Times)
			multi.Nodes[ply] = nonNilTable(a.Nodes)
			multi.Score[ply] = nonNilTable(a.Scores)
			multi.PV[ply] = nonNilTable(a.PVs)
		}

		if n, ok := a.DeepestNodes(); ok {
			w.nodes.Add(n)
		}
		w.positions.Inc()
		numPositions++
	}

	if numPositions > 0 {
		elapsed := time.Since(start)
		logx.Infof(ctx, "%v took %.1fs (%.2fs per position - %v)",
			w.jobName(job, -1), elapsed.Seconds(), elapsed.Seconds()/float64(numPositions), engine.Name())
	} else {
		logx.Infof(ctx, "%v done (nothing to do)", w.jobName(job, -1))
	}
	return result, nil
}

// singlePVPly extracts the first-PV highest-depth result. Nodes, time,
// nps and pv attachments are best effort.
func singlePVPly(a *usi.Analysis) (*api.AnalysisPly, error) {
	if len(a.Scores) == 0 || len(a.Scores[0]) == 0 {
		return nil, errors.New("engine returned no analysis")
	}
	depth := len(a.Scores[0]) - 1
	cell := a.Scores[0][depth]
	if cell == nil {
		return nil, errors.New("engine returned no score at final depth")
	}
	score := usi.DecodeScore(*cell)

	p := &api.AnalysisPly{Depth: &depth, Score: &score}
	if n, ok := firstPVCell(a.Nodes, depth); ok {
		p.Nodes = &n
		if t, ok := firstPVCell(a.Times, depth); ok {
			p.Time = &t
			if t > 200 {
				nps := n * 1000 / t
				p.NPS = &nps
			}
		}
	}
	if pv, ok := firstPVCell(a.PVs, depth); ok {
		p.PV = &pv
	}
	return p, nil
}

// nonNilTable keeps a ply slot an array on the wire even when the engine
// reported nothing.
func nonNilTable[T any](table [][]*T) [][]*T {
	if table == nil {
		return [][]*T{}
	}
	return table
}

func firstPVCell[T any](table [][]*T, depth int) (T, bool) {
	var zero T
	if len(table) == 0 || len(table[0]) <= depth {
		return zero, false
	}
	if v := table[0][depth]; v != nil {
		return *v, true
	}
	return zero, false
}

// puzzle extends the line move by move until the engine runs out, claims
// a win, or the winner's options become ambiguous.
func (w *Worker) puzzle(ctx context.Context, job *api.Job) (*api.Result, error) {
	useVariant := job.UseVariantEngine()
	moves := job.MoveList()
	movesLen := len(moves)
	engine := w.engine(useVariant)

	// Side to move of the puzzle position, adjusted by the parity of
	// the prefix moves, is the winning side.
	fields := strings.Fields(job.Position)
	sente := !(len(fields) > 1 && fields[1] == "w")
	winnerTurn := sente
	if movesLen%2 == 1 {
		winnerTurn = !sente
	}

	if err := engine.SetVariantOptions(ctx, "standard"); err != nil {
		return nil, err
	}
	skillName := "SkillLevel"
	if useVariant {
		skillName = "Skill_Level"
	}
	if err := engine.SetOption(ctx, skillName, "20"); err != nil {
		return nil, err
	}
	if err := engine.SetOption(ctx, "MultiPV", "3"); err != nil {
		return nil, err
	}
	if useVariant {
		if err := engine.SetOption(ctx, "USI_AnalyseMode", "true"); err != nil {
			return nil, err
		}
	}
	if err := engine.NewGame(ctx); err != nil {
		return nil, err
	}
	if err := engine.IsReady(ctx); err != nil {
		return nil, err
	}

	result := w.result()
	start := time.Now()
	numPositions := 0
	turn := winnerTurn

	for {
		numPositions++

		opt := usi.GoOptions{
			Depth:    lang.Some(int64(18)),
			MoveTime: lang.Some(int64(3000)),
		}
		if err := engine.Go(ctx, job.Position, moves, opt); err != nil {
			return nil, err
		}
		bm, scores, err := engine.RecvPuzzleAnalysis(ctx)
		if err != nil {
			return nil, err
		}

		token, ok := bm.V()
		if !ok || token == "win" || (turn == winnerTurn && isAmbiguous(scores)) {
			break
		}
		moves = append(moves, token)
		turn = !turn
	}

	found := len(moves) > movesLen
	elapsed := time.Since(start)
	if found {
		logx.Infof(ctx, "%v found after %.1fs (%.2fs per position - %v)",
			w.jobName(job, -1), elapsed.Seconds(), elapsed.Seconds()/float64(numPositions), engine.Name())
	} else {
		logx.Debugf(ctx, "Engine(%v) is looking for new puzzles (%v) - %.1fs",
			engine.Name(), w.jobName(job, -1), elapsed.Seconds())
	}

	result.Found = &found
	return result, nil
}

// winChances maps a score to winning chances in [-1, 1].
func winChances(score int64) float64 {
	if score > usi.ScoreCeiling {
		return 1
	}
	if score < -usi.ScoreCeiling {
		return -1
	}
	return 2/(1+math.Exp(-0.0007*float64(score))) - 1
}

// isAmbiguous reports whether the second PV is close enough to the best
// that the position has no single winning move.
func isAmbiguous(scores []int64) bool {
	if len(scores) <= 1 {
		return false
	}
	return winChances(scores[0]) < winChances(scores[1])+0.33
}

// abortJob tells the server the held job will not be completed.
func (w *Worker) abortJob(ctx context.Context) {
	job := w.currentJob()
	if job == nil {
		return
	}

	logx.Debugf(ctx, "Aborting job %v", job.Work.ID)

	envelope := w.envelope()
	resp, err := w.api.Post(ctx, "abort/"+job.Work.ID, false, &envelope)
	switch {
	case err != nil:
		logx.Errorf(ctx, "Could not abort job %v (%v). Continuing.", job.Work.ID, err)
	case resp.StatusCode == 204:
		logx.Infof(ctx, "Aborted job %v", job.Work.ID)
	default:
		logx.Errorf(ctx, "Unexpected HTTP status for abort: %v", resp.StatusCode)
	}

	w.setJob(nil)
}

// sleepFor waits out a backoff, cut short when the worker is woken for
// shutdown.
func (w *Worker) sleepFor(t time.Duration) {
	select {
	case <-time.After(t):
	case <-w.wake.Closed():
	}
}

// jobName renders a job for log lines. A non-negative ply adds a "#ply"
// suffix.
func (w *Worker) jobName(job *api.Job, ply int) string {
	var b strings.Builder
	switch {
	case job.Work.Type == api.WorkPuzzle:
		b.WriteString("Puzzle - ")
		b.WriteString(job.Work.ID)
	case job.GameID != "":
		b.WriteString(w.api.BaseURL())
		b.WriteString(job.GameID)
	default:
		b.WriteString(job.Work.ID)
	}
	if ply >= 0 {
		fmt.Fprintf(&b, "#%v", ply)
	}
	return b.String()
}
