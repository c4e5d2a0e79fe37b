package effects

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"truco-table/client/detect"
	"truco-table/client/phrase"
	"truco-table/client/snapshot"
)

type recordingFeedback struct {
	celebrated, booed int
}

func (r *recordingFeedback) Celebrate(detect.Outcome) { r.celebrated++ }
func (r *recordingFeedback) Boo(detect.Outcome)       { r.booed++ }

type harness struct {
	clock    *ManualClock
	sched    *Scheduler
	feedback *recordingFeedback
	advances int
	changes  int
}

func newHarness() *harness {
	h := &harness{clock: NewManualClock(), feedback: &recordingFeedback{}}
	h.sched = NewScheduler(h.clock, DefaultDurations(),
		WithFeedback(h.feedback),
		WithAdvance(func() { h.advances++ }),
		WithOnChange(func() { h.changes++ }),
	)
	return h
}

func speech(idx int, who phrase.Speaker, text string) detect.Event {
	return detect.Event{Kind: detect.Speech, ID: "log@" + string(rune('0'+idx)), Index: idx, Speaker: who, Text: text}
}

func boundary(id string, folded phrase.Speaker) detect.Event {
	return detect.Event{Kind: detect.RoundBoundary, ID: id, Index: -1, Folded: folded, Summary: []string{"Vos ganás la mano"}}
}

func TestSpeechExpires(t *testing.T) {
	h := newHarness()
	h.sched.Apply([]detect.Event{speech(1, phrase.Self, "¡Envido!")})

	o := h.sched.Overlay()
	assert.Equal(t, Bubble{Visible: true, Text: "¡Envido!"}, o.MySpeech)
	assert.False(t, o.OpponentSpeech.Visible)

	h.clock.Advance(2 * time.Second)
	assert.True(t, h.sched.Overlay().MySpeech.Visible)
	h.clock.Advance(600 * time.Millisecond)
	assert.False(t, h.sched.Overlay().MySpeech.Visible)
	assert.Equal(t, 1, h.changes)
	assert.Zero(t, h.sched.Pending())
}

func TestSpeechRetriggerRestartsTimer(t *testing.T) {
	h := newHarness()
	h.sched.Apply([]detect.Event{speech(1, phrase.Opponent, "¡Truco!")})
	h.clock.Advance(2 * time.Second)
	h.sched.Apply([]detect.Event{speech(2, phrase.Opponent, "¡Quiero retruco!")})

	assert.Equal(t, "¡Quiero retruco!", h.sched.Overlay().OpponentSpeech.Text)
	assert.Equal(t, 1, h.sched.Pending())

	h.clock.Advance(time.Second) // the first timer would have fired here
	assert.True(t, h.sched.Overlay().OpponentSpeech.Visible)
	h.clock.Advance(2 * time.Second)
	assert.False(t, h.sched.Overlay().OpponentSpeech.Visible)
}

func TestSameTransitionScheduledOnce(t *testing.T) {
	h := newHarness()
	evs := []detect.Event{speech(1, phrase.Self, "¡Truco!"), boundary("playing>round_end@1", phrase.Nobody)}

	h.sched.Apply(evs)
	pending := h.sched.Pending()
	h.sched.Apply(evs)
	assert.Equal(t, pending, h.sched.Pending())

	h.clock.Advance(10 * time.Second)
	assert.Equal(t, 1, h.advances)
}

func TestRoundSummaryLifecycle(t *testing.T) {
	h := newHarness()
	h.sched.Apply([]detect.Event{speech(1, phrase.Opponent, "No quiero")})
	h.sched.Apply([]detect.Event{boundary("playing>round_end@2", phrase.Opponent)})

	o := h.sched.Overlay()
	assert.False(t, o.OpponentSpeech.Visible, "bubbles cleared at hand end")
	assert.True(t, o.OpponentFolded)
	assert.False(t, o.MyFolded)
	assert.False(t, o.Summary.Visible)

	h.clock.Advance(time.Second)
	o = h.sched.Overlay()
	require.True(t, o.Summary.Visible)
	assert.Equal(t, []string{"Vos ganás la mano"}, o.Summary.Lines)
	assert.Zero(t, h.advances)

	h.clock.Advance(2 * time.Second)
	assert.False(t, h.sched.Overlay().Summary.Visible)
	assert.Equal(t, 1, h.advances)

	assert.False(t, h.sched.DismissSummary())
	assert.Equal(t, 1, h.advances)
}

func TestExplicitDismissAdvancesOnce(t *testing.T) {
	h := newHarness()
	h.sched.Apply([]detect.Event{boundary("b", phrase.Nobody)})
	assert.False(t, h.sched.DismissSummary(), "not visible yet")

	h.clock.Advance(time.Second)
	assert.True(t, h.sched.DismissSummary())
	assert.False(t, h.sched.DismissSummary())

	h.clock.Advance(5 * time.Second) // auto dismiss was cancelled
	assert.Equal(t, 1, h.advances)
	assert.Zero(t, h.sched.Pending())
}

func TestResetMarkers(t *testing.T) {
	h := newHarness()
	h.sched.Apply([]detect.Event{boundary("b", phrase.Self)})
	assert.True(t, h.sched.Overlay().MyFolded)

	h.sched.Apply([]detect.Event{
		{Kind: detect.EnterDealing, ID: "round_end>dealing@3"},
		{Kind: detect.ResetMarkers, ID: "round_end>dealing@3/markers"},
	})
	o := h.sched.Overlay()
	assert.False(t, o.MyFolded)
	assert.False(t, o.OpponentFolded)
}

func TestGameOverShownOnce(t *testing.T) {
	h := newHarness()
	ev := detect.Event{Kind: detect.GameOver, ID: "game_over", Outcome: detect.Outcome{Won: true, MyScore: 30, OpponentScore: 21}}

	for i := 0; i < 5; i++ {
		h.sched.Apply([]detect.Event{ev})
	}
	o := h.sched.Overlay().GameOver
	assert.True(t, o.Visible)
	assert.Equal(t, "¡Ganaste!", o.Title)
	assert.Equal(t, "30 - 21", o.Score)
	assert.Equal(t, Celebrate, o.Mode)
	assert.Equal(t, 1, h.feedback.celebrated)
	assert.Zero(t, h.feedback.booed)
}

func TestGameOverLossBoos(t *testing.T) {
	h := newHarness()
	h.sched.Apply([]detect.Event{{Kind: detect.GameOver, ID: "game_over", Outcome: detect.Outcome{MyScore: 3, OpponentScore: 30}}})
	o := h.sched.Overlay().GameOver
	assert.Equal(t, "¡Te ganaron!", o.Title)
	assert.Equal(t, Boo, o.Mode)
	assert.Equal(t, 1, h.feedback.booed)
}

func TestGameOverDropsQueuedSummary(t *testing.T) {
	h := newHarness()
	h.sched.Apply([]detect.Event{boundary("b", phrase.Nobody)})
	h.sched.Apply([]detect.Event{{Kind: detect.GameOver, ID: "game_over", Outcome: detect.Outcome{Won: true}}})

	h.clock.Advance(10 * time.Second)
	assert.False(t, h.sched.Overlay().Summary.Visible)
	assert.Zero(t, h.advances)
}

func TestResetCancelsEverything(t *testing.T) {
	h := newHarness()
	h.sched.Apply([]detect.Event{
		speech(1, phrase.Self, "¡Truco!"),
		boundary("b", phrase.Opponent),
		{Kind: detect.GameOver, ID: "game_over", Outcome: detect.Outcome{Won: true}},
	})
	h.sched.Reset()

	assert.Zero(t, h.sched.Pending())
	assert.Equal(t, Overlay{}, h.sched.Overlay())

	h.clock.Advance(10 * time.Second)
	assert.Zero(t, h.advances)
	assert.Zero(t, h.changes)

	// a new game may show game over again
	h.sched.Apply([]detect.Event{{Kind: detect.GameOver, ID: "game_over", Outcome: detect.Outcome{Won: true}}})
	assert.Equal(t, 2, h.feedback.celebrated)
}

func TestDetectorToSchedulerExactlyOnce(t *testing.T) {
	h := newHarness()
	d := detect.New(nil)

	playing := snapshot.Snapshot{Phase: snapshot.Playing, Log: []string{"a"}}
	ended := snapshot.Snapshot{Phase: snapshot.RoundEnd, Log: []string{"a", "Vos ganás la mano"}}

	cursor := 0
	prev := (*snapshot.Snapshot)(nil)
	for _, cur := range []snapshot.Snapshot{playing, ended, ended, ended} {
		res := d.Detect(prev, cur, cursor)
		h.sched.Apply(res.Events)
		cursor = res.Cursor
		c := cur
		prev = &c
	}
	h.clock.Advance(10 * time.Second)
	assert.Equal(t, 1, h.advances)
}
