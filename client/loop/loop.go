// Package loop drives the poll cycle: poll, detect, schedule effects,
// reconcile, then decide when to poll again.
//
// All client state is owned by the goroutine running Controller.Run.
// Network calls run on their own goroutines and hand their results back to
// it, so nothing blocks the control goroutine and no two requests to the
// engine are ever in flight at once.
package loop

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"truco-table/client/detect"
	"truco-table/client/effects"
	"truco-table/client/phrase"
	"truco-table/client/snapshot"
	"truco-table/client/view"
)

var (
	ErrBusy    = errors.New("a request to the engine is already outstanding")
	ErrNoGame  = errors.New("no game started")
	ErrStopped = errors.New("poll loop stopped")
)

// Engine is the remote game engine.
type Engine interface {
	Start(ctx context.Context, targetScore int) error
	Poll(ctx context.Context) (snapshot.Snapshot, error)
	Act(ctx context.Context, action string) error
}

// GameRecord is a finished game as handed to a Recorder.
type GameRecord struct {
	Session       uuid.UUID `json:"session"`
	TargetScore   int       `json:"target_score"`
	MyScore       int       `json:"my_score"`
	OpponentScore int       `json:"opp_score"`
	Won           bool      `json:"won"`
	Tally         Tally     `json:"tally"`
	EndedAt       time.Time `json:"ended_at"`
}

type Recorder interface {
	RecordGame(ctx context.Context, g GameRecord) error
}

type Config struct {
	PollInterval  time.Duration
	AdvanceAction string
	Durations     effects.Durations
	Book          *phrase.Book
}

func DefaultConfig() Config {
	return Config{
		PollInterval:  time.Second,
		AdvanceAction: "call_envido",
		Durations:     effects.DefaultDurations(),
		Book:          phrase.Default,
	}
}

type Option func(*Controller)

func WithLogger(l *logrus.Entry) Option { return func(c *Controller) { c.log = l } }

// WithClock replaces the wall clock, for tests.
func WithClock(clk effects.Clock) Option { return func(c *Controller) { c.rawClock = clk } }

func WithFeedback(f effects.Feedback) Option { return func(c *Controller) { c.feedback = f } }

func WithRecorder(r Recorder) Option { return func(c *Controller) { c.rec = r } }

// WithOnScreen is called on the control goroutine after every publish with
// the sections of the board that changed.
func WithOnScreen(f func(Screen, []view.Section)) Option { return func(c *Controller) { c.onScreen = f } }

type Controller struct {
	engine   Engine
	cfg      Config
	log      *logrus.Entry
	rawClock effects.Clock
	feedback effects.Feedback
	rec      Recorder
	onScreen func(Screen, []view.Section)

	clock      effects.Clock
	detector   *detect.Detector
	reconciler *view.Reconciler
	sched      *effects.Scheduler

	work chan func()
	done chan struct{}
	ctx  context.Context

	// owned by the control goroutine
	state         ClientState
	phase         State
	started       bool
	gen           uint64
	pollTimer     effects.Timer
	model         view.Model
	polls         int
	lastErr       string
	tally         Tally
	recorded      bool
	advanceQueued bool

	screen atomic.Pointer[Screen]
}

func New(engine Engine, cfg Config, opts ...Option) *Controller {
	if cfg.Book == nil {
		cfg.Book = phrase.Default
	}
	c := &Controller{
		engine:   engine,
		cfg:      cfg,
		log:      logrus.NewEntry(logrus.StandardLogger()),
		rawClock: effects.SystemClock{},
		work:     make(chan func(), 64),
		done:     make(chan struct{}),
		ctx:      context.Background(),
		phase:    Idle,
	}
	for _, o := range opts {
		o(c)
	}
	c.clock = postingClock{inner: c.rawClock, post: c.post}
	c.detector = detect.New(cfg.Book)
	c.reconciler = view.NewReconciler(cfg.Book)
	c.sched = effects.NewScheduler(c.clock, cfg.Durations,
		effects.WithLogger(c.log.WithField("component", "effects")),
		effects.WithFeedback(c.feedback),
		effects.WithAdvance(c.advance),
		effects.WithOnChange(c.publish),
	)
	c.publish()
	return c
}

// Run processes work until ctx is cancelled. Every state change happens
// inside Run.
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	defer close(c.done)
	for {
		select {
		case f := <-c.work:
			f()
		case <-ctx.Done():
			c.stopPollTimer()
			c.sched.Reset()
			return ctx.Err()
		}
	}
}

// Screen returns the latest published picture. Safe from any goroutine.
func (c *Controller) Screen() Screen { return *c.screen.Load() }

// Start hard-resets the client and asks the engine for a new game. It
// returns once the engine answered the start request; the first poll follows
// on its own.
func (c *Controller) Start(ctx context.Context, targetScore int) error {
	return c.call(ctx, func(reply func(error)) { c.start(targetScore, reply) })
}

// Act sends a player action. Engine rejections come back as *api.ActionError.
// On success the loop re-polls immediately.
func (c *Controller) Act(ctx context.Context, action string) error {
	return c.call(ctx, func(reply func(error)) { c.act(action, reply) })
}

// Refresh polls now. It is the manual retry after a failed poll.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.call(ctx, func(reply func(error)) {
		switch {
		case !c.started:
			reply(ErrNoGame)
		case c.phase != Idle:
			reply(ErrBusy)
		default:
			c.stopPollTimer()
			c.poll()
			reply(nil)
		}
	})
}

// DismissSummary closes the round summary on the player's request. It
// reports whether a summary was showing.
func (c *Controller) DismissSummary(ctx context.Context) (bool, error) {
	var dismissed bool
	err := c.call(ctx, func(reply func(error)) {
		dismissed = c.sched.DismissSummary()
		c.publish()
		reply(nil)
	})
	return dismissed, err
}

func (c *Controller) start(target int, reply func(error)) {
	c.reset(target)
	c.phase = Polling
	c.publish()

	gen := c.gen
	log := c.log.WithFields(logrus.Fields{"session": c.state.Session, "target_score": target})
	log.Info("starting game")
	c.async(func() func() {
		err := c.engine.Start(c.ctx, target)
		return func() {
			if gen != c.gen {
				reply(err)
				return
			}
			if err != nil {
				c.phase = Idle
				c.lastErr = err.Error()
				log.WithError(err).Warn("start failed")
				c.publish()
				reply(err)
				return
			}
			reply(nil)
			c.poll()
		}
	})
}

// reset cancels every pending timer before touching the cursor, so nothing
// from the previous game can fire into the new one.
func (c *Controller) reset(target int) {
	c.sched.Reset()
	c.stopPollTimer()
	c.gen++
	c.state = ClientState{Session: uuid.New(), TargetScore: target}
	c.started = true
	c.model = view.Model{}
	c.polls = 0
	c.lastErr = ""
	c.tally = Tally{}
	c.recorded = false
	c.advanceQueued = false
}

func (c *Controller) act(action string, reply func(error)) {
	if !c.started {
		reply(ErrNoGame)
		return
	}
	if c.phase != Idle {
		reply(ErrBusy)
		return
	}
	c.stopPollTimer()
	c.phase = AwaitingResponse
	c.publish()

	gen := c.gen
	log := c.log.WithFields(logrus.Fields{"session": c.state.Session, "action": action})
	c.async(func() func() {
		err := c.engine.Act(c.ctx, action)
		return func() {
			if gen != c.gen {
				reply(err)
				return
			}
			c.phase = Idle
			if err != nil {
				c.lastErr = err.Error()
				log.WithError(err).Warn("action failed")
				c.publish()
				reply(err)
				c.flushAdvance()
				return
			}
			log.Debug("action accepted")
			reply(nil)
			c.poll()
		}
	})
}

func (c *Controller) poll() {
	if c.phase != Idle && c.phase != Polling {
		return
	}
	c.phase = Polling
	c.publish()

	gen := c.gen
	c.async(func() func() {
		s, err := c.engine.Poll(c.ctx)
		return func() {
			if gen != c.gen {
				return
			}
			c.phase = Idle
			if err != nil {
				// ClientState stays as it was so the next good poll diffs
				// from the last snapshot we actually processed.
				c.lastErr = err.Error()
				c.log.WithError(err).WithField("session", c.state.Session).Warn("poll failed")
				c.publish()
				c.flushAdvance()
				return
			}
			c.apply(s)
		}
	})
}

func (c *Controller) apply(s snapshot.Snapshot) {
	res := c.detector.Detect(c.state.LastSnapshot, s, c.state.Cursor)
	if res.Rescanned && c.state.LastSnapshot != nil {
		// The engine log restarted, so line ids seen before now name new lines.
		c.log.WithFields(logrus.Fields{"session": c.state.Session, "cursor": c.state.Cursor}).Info("engine log shrank, rescanning")
		c.sched.Reset()
	}
	c.sched.Apply(res.Events)
	for _, e := range res.Events {
		switch e.Kind {
		case detect.RoundBoundary:
			c.tally.addHand(s, e)
		case detect.GameOver:
			c.advanceQueued = false
			c.record(e.Outcome)
		}
	}
	c.model = c.reconciler.Reconcile(s)

	c.state.LastSnapshot = &s
	c.state.Cursor = res.Cursor
	c.state.LastPhase = s.Phase
	c.polls++
	c.lastErr = ""

	c.log.WithFields(logrus.Fields{
		"session": c.state.Session,
		"phase":   s.Phase,
		"cursor":  res.Cursor,
		"events":  len(res.Events),
	}).Debug("snapshot applied")

	if s.Phase == snapshot.Playing && !s.IsMyTurn {
		gen := c.gen
		c.pollTimer = c.clock.AfterFunc(c.cfg.PollInterval, func() {
			if gen != c.gen || c.phase != Idle {
				return
			}
			c.pollTimer = nil
			c.poll()
		})
	}
	c.publish()
	c.flushAdvance()
}

// advance is the scheduler's request to move past a dismissed round
// summary. It waits for any outstanding request to finish first.
func (c *Controller) advance() {
	c.advanceQueued = true
	c.flushAdvance()
}

func (c *Controller) flushAdvance() {
	if !c.advanceQueued || c.phase != Idle || !c.started {
		return
	}
	if c.state.LastPhase == snapshot.GameOver {
		c.advanceQueued = false
		return
	}
	c.advanceQueued = false
	action := c.cfg.AdvanceAction
	c.act(action, func(err error) {
		if err != nil {
			c.log.WithError(err).WithField("action", action).Warn("advance after round summary failed")
		}
	})
}

func (c *Controller) record(o detect.Outcome) {
	if c.recorded || c.rec == nil {
		return
	}
	c.recorded = true
	g := GameRecord{
		Session:       c.state.Session,
		TargetScore:   o.TargetScore,
		MyScore:       o.MyScore,
		OpponentScore: o.OpponentScore,
		Won:           o.Won,
		Tally:         c.tally,
		EndedAt:       time.Now().UTC(),
	}
	ctx := c.ctx
	go func() {
		if err := c.rec.RecordGame(ctx, g); err != nil {
			c.log.WithError(err).WithField("session", g.Session).Warn("record game failed")
		}
	}()
}

func (c *Controller) stopPollTimer() {
	if c.pollTimer != nil {
		c.pollTimer.Stop()
		c.pollTimer = nil
	}
}

func (c *Controller) publish() {
	s := Screen{
		State:     c.phase,
		Started:   c.started,
		View:      c.model,
		Overlay:   c.sched.Overlay(),
		Cursor:    c.state.Cursor,
		LastPhase: c.state.LastPhase,
		Polls:     c.polls,
		LastError: c.lastErr,
		Tally:     c.tally,
	}
	if c.started {
		s.Session = c.state.Session.String()
	}
	prev := c.screen.Swap(&s)
	if c.onScreen != nil && prev != nil {
		c.onScreen(s, view.Changed(prev.View, s.View))
	}
}

// async runs blocking work off the control goroutine and posts the
// continuation it returns back onto it.
func (c *Controller) async(work func() func()) {
	go func() {
		next := work()
		c.post(next)
	}()
}

func (c *Controller) post(f func()) bool {
	select {
	case c.work <- f:
		return true
	case <-c.done:
		return false
	}
}

func (c *Controller) call(ctx context.Context, f func(reply func(error))) error {
	ch := make(chan error, 1)
	if !c.post(func() { f(func(err error) { ch <- err }) }) {
		return ErrStopped
	}
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}
}

// postingClock delivers timer callbacks to the control goroutine.
type postingClock struct {
	inner effects.Clock
	post  func(func()) bool
}

func (p postingClock) AfterFunc(d time.Duration, f func()) effects.Timer {
	return p.inner.AfterFunc(d, func() { p.post(f) })
}
