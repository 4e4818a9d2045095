package driver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spboyer/ptsauto/internal/execution"
	"github.com/spboyer/ptsauto/internal/models"
	"github.com/spboyer/ptsauto/internal/prompts"
	"github.com/spboyer/ptsauto/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// recordingTranscript counts closes so tests can check it is closed once.
type recordingTranscript struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closes int
}

func (r *recordingTranscript) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(p)
}

func (r *recordingTranscript) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closes++
	return nil
}

func (r *recordingTranscript) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

func (r *recordingTranscript) Closes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closes
}

type eventLog struct {
	mu     sync.Mutex
	events []session.Event
}

func (l *eventLog) observe(ev session.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) types() []session.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]session.EventType, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Type
	}
	return out
}

func demoScript() prompts.Script {
	return prompts.New("demo", "pts/demo").
		Expect(prompts.Literal("System Test Configuration")).
		Expect(prompts.MustRegexp(`Connections:.*`)).Send("2").
		Expect(prompts.Literal("Would you like to save these test results (Y/n):")).Send("y").
		Expect(prompts.Literal("Enter a name for the result file:")).Send("15-10-2026-ptsnginx").
		Script()
}

func demoChild() *execution.FakeChild {
	return &execution.FakeChild{
		Turns: []execution.FakeTurn{
			{Output: "Phoronix Test Suite\n\nnginx 1.23.2:\n    System Test Configuration\n"},
			{Output: "        1: 1\n        2: 20\n        Connections: ", ReadLine: true},
			{Delay: 20 * time.Millisecond, Output: "\n    Would you like to save these test results (Y/n): ", ReadLine: true},
			{Output: "    Enter a name for the result file: ", ReadLine: true},
			{Output: "\nRunning test...\nRequests Per Second: 41235.12\n"},
		},
	}
}

func TestDriver_ExpectStrategyAnswersPrompts(t *testing.T) {
	child := demoChild()
	tr := &recordingTranscript{}
	log := &eventLog{}

	d := &Driver{
		Spawner:    child,
		Strategy:   NewExpectStrategy(ExpectOptions{}),
		Timeout:    5 * time.Second,
		Transcript: tr,
		Observer:   log.observe,
	}
	out := d.Run(context.Background(), execution.Command{Path: "phoronix-test-suite"}, demoScript())

	require.NoError(t, out.Err)
	assert.Equal(t, models.StatusSucceeded, out.Status)
	assert.Equal(t, 0, out.ExitCode)
	assert.False(t, out.Killed)
	assert.Equal(t, []string{"2", "y", "15-10-2026-ptsnginx"}, child.Lines())
	assert.Contains(t, tr.String(), "Requests Per Second: 41235.12")
	assert.Equal(t, 1, tr.Closes())
	assert.False(t, out.EndedAt.Before(out.StartedAt))

	types := log.types()
	require.NotEmpty(t, types)
	assert.Equal(t, session.EventRunStart, types[0])
	assert.Equal(t, session.EventRunComplete, types[len(types)-1])
	assert.Contains(t, types, session.EventPromptMatched)
	assert.Contains(t, types, session.EventResponseSent)
	assert.Contains(t, types, session.EventProcessExit)
}

func TestDriver_NonZeroExitIsNotADriverFailure(t *testing.T) {
	child := demoChild()
	child.ExitCode = 3

	d := &Driver{Spawner: child, Strategy: NewExpectStrategy(ExpectOptions{}), Timeout: 5 * time.Second}
	out := d.Run(context.Background(), execution.Command{Path: "pts"}, demoScript())

	require.NoError(t, out.Err)
	assert.Equal(t, models.StatusSucceeded, out.Status)
	assert.Equal(t, 3, out.ExitCode)
}

func TestDriver_BlindStrategy(t *testing.T) {
	child := demoChild()
	tr := &recordingTranscript{}

	d := &Driver{
		Spawner:    child,
		Strategy:   NewBlindStrategy(BlindOptions{Delay: 5 * time.Millisecond}),
		Timeout:    5 * time.Second,
		Transcript: tr,
	}
	out := d.Run(context.Background(), execution.Command{Path: "pts"}, demoScript())

	require.NoError(t, out.Err)
	assert.Equal(t, models.StatusSucceeded, out.Status)
	// the informational first step is skipped, so exactly three lines go out
	assert.Equal(t, []string{"2", "y", "15-10-2026-ptsnginx"}, child.Lines())
	assert.Equal(t, 1, tr.Closes())
}

func TestDriver_TimeoutWaitingForPrompt(t *testing.T) {
	child := &execution.FakeChild{
		Turns: []execution.FakeTurn{{Output: "Phoronix Test Suite\n"}},
		Hang:  true,
	}
	tr := &recordingTranscript{}
	log := &eventLog{}

	d := &Driver{
		Spawner:      child,
		Strategy:     NewExpectStrategy(ExpectOptions{}),
		Timeout:      100 * time.Millisecond,
		Transcript:   tr,
		Observer:     log.observe,
		DrainTimeout: time.Second,
	}
	start := time.Now()
	out := d.Run(context.Background(), execution.Command{Path: "pts"}, demoScript())

	assert.Equal(t, models.StatusTimedOut, out.Status)
	require.Error(t, out.Err)
	assert.ErrorIs(t, out.Err, ErrTimeout)
	assert.True(t, out.Killed)
	assert.True(t, child.Killed())
	assert.Equal(t, 1, tr.Closes())
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.Contains(t, tr.String(), "Phoronix Test Suite")
	assert.Contains(t, log.types(), session.EventError)
}

func TestDriver_TimeoutWhenChildNeverFinishes(t *testing.T) {
	child := demoChild()
	child.Hang = true

	d := &Driver{
		Spawner:  child,
		Strategy: NewExpectStrategy(ExpectOptions{}),
		Timeout:  300 * time.Millisecond,
	}
	out := d.Run(context.Background(), execution.Command{Path: "pts"}, demoScript())

	assert.Equal(t, models.StatusTimedOut, out.Status)
	assert.ErrorIs(t, out.Err, ErrTimeout)
	assert.True(t, child.Killed())
	assert.Equal(t, 1, child.Spawns())
}

func TestDriver_PromptTimeout(t *testing.T) {
	child := &execution.FakeChild{
		Turns: []execution.FakeTurn{{Output: "System Test Configuration\n"}},
		Hang:  true,
	}
	d := &Driver{
		Spawner:  child,
		Strategy: NewExpectStrategy(ExpectOptions{PromptTimeout: 50 * time.Millisecond}),
		Timeout:  10 * time.Second,
	}
	start := time.Now()
	out := d.Run(context.Background(), execution.Command{Path: "pts"}, demoScript())

	assert.Equal(t, models.StatusTimedOut, out.Status)
	var stepErr *StepError
	require.ErrorAs(t, out.Err, &stepErr)
	assert.Equal(t, 2, stepErr.Step)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDriver_OutputEndsBeforePrompt(t *testing.T) {
	child := &execution.FakeChild{
		Turns:    []execution.FakeTurn{{Output: "The test profile could not be found.\n"}},
		ExitCode: 1,
	}
	tr := &recordingTranscript{}

	d := &Driver{Spawner: child, Strategy: NewExpectStrategy(ExpectOptions{}), Timeout: 5 * time.Second, Transcript: tr}
	out := d.Run(context.Background(), execution.Command{Path: "pts"}, demoScript())

	assert.Equal(t, models.StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, ErrEOF)
	assert.Equal(t, 1, tr.Closes())
}

func TestDriver_ParentCancelIsFailure(t *testing.T) {
	child := &execution.FakeChild{Hang: true}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	d := &Driver{Spawner: child, Strategy: NewExpectStrategy(ExpectOptions{}), Timeout: 10 * time.Second}
	out := d.Run(ctx, execution.Command{Path: "pts"}, demoScript())

	assert.Equal(t, models.StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.True(t, out.Killed)
}

func TestDriver_SpawnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	spawner := execution.NewMockSpawner(ctrl)
	spawner.EXPECT().
		Spawn(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("exec: \"phoronix-test-suite\": executable file not found in $PATH"))

	tr := &recordingTranscript{}
	log := &eventLog{}
	d := &Driver{Spawner: spawner, Strategy: NewExpectStrategy(ExpectOptions{}), Transcript: tr, Observer: log.observe}
	out := d.Run(context.Background(), execution.Command{Path: "phoronix-test-suite"}, demoScript())

	assert.Equal(t, models.StatusFailed, out.Status)
	require.Error(t, out.Err)
	assert.Contains(t, out.Err.Error(), "spawning phoronix-test-suite")
	assert.Equal(t, -1, out.ExitCode)
	assert.Equal(t, 1, tr.Closes())
	assert.Equal(t, []session.EventType{session.EventError, session.EventRunComplete}, log.types())
}

type brokenPipe struct{}

func (brokenPipe) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestDriver_BrokenInputKillsChild(t *testing.T) {
	ctrl := gomock.NewController(t)
	proc := execution.NewMockProcess(ctrl)
	proc.EXPECT().Output().Return(strings.NewReader("    Connections: ")).AnyTimes()
	proc.EXPECT().Input().Return(brokenPipe{}).AnyTimes()
	proc.EXPECT().Pid().Return(4242).AnyTimes()
	proc.EXPECT().Kill().Return(nil).Times(1)
	proc.EXPECT().Wait(gomock.Any()).Return(nil).AnyTimes()
	proc.EXPECT().ExitCode().Return(-1).AnyTimes()
	proc.EXPECT().Close().Return(nil).AnyTimes()

	spawner := execution.NewMockSpawner(ctrl)
	spawner.EXPECT().Spawn(gomock.Any(), gomock.Any()).Return(proc, nil)

	script := prompts.New("demo", "pts/demo").
		Expect(prompts.MustRegexp(`Connections:.*`)).Send("2").
		Script()

	d := &Driver{Spawner: spawner, Strategy: NewExpectStrategy(ExpectOptions{}), Timeout: 5 * time.Second}
	out := d.Run(context.Background(), execution.Command{Path: "pts"}, script)

	assert.Equal(t, models.StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, io.ErrClosedPipe)
	assert.Equal(t, 4242, out.Pid)
	assert.True(t, out.Killed)
}

func TestNew(t *testing.T) {
	s, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, StrategyExpect, s.Name())

	s, err = New(Config{Strategy: StrategyExpect, Options: map[string]any{
		"prompt_timeout": 30,
		"max_buffer":     4096,
	}})
	require.NoError(t, err)
	es := s.(*ExpectStrategy)
	assert.Equal(t, 30*time.Second, es.opts.PromptTimeout)
	assert.Equal(t, 4096, es.MaxBuffer())

	s, err = New(Config{Strategy: StrategyBlind})
	require.NoError(t, err)
	assert.Equal(t, DefaultBlindDelay, s.(*BlindStrategy).opts.Delay)

	s, err = New(Config{Strategy: StrategyBlind, Options: map[string]any{"delay": "250ms"}})
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, s.(*BlindStrategy).opts.Delay)

	s, err = New(Config{Strategy: StrategyBlind, Options: map[string]any{"delay": 1.5}})
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, s.(*BlindStrategy).opts.Delay)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Config{Strategy: "telepathy"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver strategy")

	_, err = New(Config{Strategy: StrategyBlind, Options: map[string]any{"dleay": 2}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blind strategy options")

	_, err = New(Config{Strategy: StrategyExpect, Options: map[string]any{"prompt_timeout": "soon"}})
	require.Error(t, err)
}
