package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"mythforge/internal/entity"
	"mythforge/internal/perception"
	"mythforge/internal/phase"
	"mythforge/internal/prompt"
	"mythforge/internal/schema"
	"mythforge/internal/validate"
)

func TestMain(m *testing.M) {
	// The genai dependency starts a package-level opencensus worker on
	// import. It is not ours to stop, so leak detection skips it.
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func newTestOrchestrator(t *testing.T, opts Options) *Orchestrator {
	t.Helper()
	reg := schema.NewRegistry()
	classifier := perception.NewClassifier(reg, perception.DefaultConfig(), nil)
	validator := validate.New(reg, nil)
	engine := phase.NewEngine(reg, nil)
	prompts := prompt.NewBuilder(prompt.NewRegistry(), prompt.Budget{}, nil)
	return New(reg, classifier, validator, engine, prompts, nil, opts, nil)
}

// seedField injects an already-extracted value into a session, bypassing
// the classifier.
func seedField(t *testing.T, o *Orchestrator, sessionID, name string, value any) {
	t.Helper()
	sess, ok := o.Session(sessionID)
	require.True(t, ok)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.Extracted[name] = perception.ExtractedField{
		Field:      name,
		Value:      value,
		Confidence: 1,
		Source:     perception.SourceExplicit,
	}
}

func TestStartSession(t *testing.T) {
	o := newTestOrchestrator(t, DefaultOptions())

	t.Run("fresh session", func(t *testing.T) {
		res := o.StartSession(phase.ModeUniverse, nil, nil)
		require.True(t, res.Success)
		assert.NotEmpty(t, res.SessionID)
		assert.Equal(t, PhaseGathering, res.Phase)
		assert.Equal(t, "concept", res.CreationPhase)
		assert.NotEmpty(t, res.QuickReplies)
		assert.Equal(t, 1, o.ActiveSessionCount())
	})

	t.Run("existing entity starts in adjusting", func(t *testing.T) {
		existing := entity.Entity{"name": "Eldoria", "theme": "fantasy"}
		res := o.StartSession(phase.ModeUniverse, nil, existing)
		require.True(t, res.Success)
		assert.Equal(t, PhaseAdjusting, res.Phase)
		assert.Equal(t, phase.ReviewPhaseID, res.CreationPhase)

		sess, ok := o.Session(res.SessionID)
		require.True(t, ok)
		name, _ := sess.Generated.GetString("name")
		assert.Equal(t, "Eldoria", name)

		// the session holds a copy, not the caller's map
		existing["name"] = "Mutated"
		name, _ = sess.Generated.GetString("name")
		assert.Equal(t, "Eldoria", name)
	})
}

func TestProcessMessageFailsFast(t *testing.T) {
	o := newTestOrchestrator(t, DefaultOptions())
	ctx := context.Background()

	res := o.ProcessMessage(ctx, "no-such-session", "hello")
	assert.False(t, res.Success)
	assert.Equal(t, "session not found", res.Message)

	start := o.StartSession(phase.ModeUniverse, nil, nil)
	end := o.EndSession(start.SessionID)
	require.True(t, end.Success)
	assert.Zero(t, o.ActiveSessionCount())

	res = o.ProcessMessage(ctx, start.SessionID, "hello")
	assert.False(t, res.Success)
	assert.Equal(t, "session is not active", res.Message)
}

func TestCreateFlow(t *testing.T) {
	o := newTestOrchestrator(t, DefaultOptions())
	ctx := context.Background()
	start := o.StartSession(phase.ModeUniverse, nil, nil)

	res := o.ProcessMessage(ctx, start.SessionID, "Create a universe called Eldoria, a fantasy world")
	require.True(t, res.Success)
	require.NotNil(t, res.Intent)
	assert.Equal(t, perception.ActionCreate, res.Intent.Action)
	assert.Greater(t, res.Completeness, 0.0)

	sess, ok := o.Session(start.SessionID)
	require.True(t, ok)
	assert.Equal(t, "Eldoria", sess.Extracted["name"].Value)
	assert.Equal(t, "fantasy", sess.Extracted["theme"].Value)

	t.Run("free text folds in through fallback extraction", func(t *testing.T) {
		res := o.ProcessMessage(ctx, start.SessionID, "It is about ancient ruins and forgotten magic")
		require.True(t, res.Success)
		assert.Contains(t, sess.Extracted, "description")
	})

	t.Run("advance leaves the concept phase", func(t *testing.T) {
		res := o.AdvancePhase(ctx, start.SessionID)
		require.True(t, res.Success)
		assert.NotEqual(t, "concept", res.CreationPhase)
	})
}

func TestClarificationFlow(t *testing.T) {
	o := newTestOrchestrator(t, DefaultOptions())
	ctx := context.Background()
	start := o.StartSession(phase.ModeUniverse, nil, nil)

	res := o.ProcessMessage(ctx, start.SessionID, "Quiero crear un universo")
	require.True(t, res.Success)
	require.NotNil(t, res.Intent)
	assert.True(t, res.Intent.NeedsClarification)
	assert.NotEmpty(t, res.Questions)

	sess, ok := o.Session(start.SessionID)
	require.True(t, ok)
	assert.Equal(t, "es", sess.Language)
	assert.Equal(t, 1, sess.ClarificationRounds)
}

func TestConfirmBeforeReviewAdvances(t *testing.T) {
	o := newTestOrchestrator(t, DefaultOptions())
	ctx := context.Background()
	start := o.StartSession(phase.ModeUniverse, nil, nil)

	res := o.ProcessMessage(ctx, start.SessionID, "yes")
	require.True(t, res.Success)
	assert.Equal(t, "details", res.CreationPhase)
}

func TestQueryAndUnsupportedActions(t *testing.T) {
	o := newTestOrchestrator(t, DefaultOptions())
	ctx := context.Background()
	start := o.StartSession(phase.ModeUniverse, nil, nil)

	t.Run("query on an empty session", func(t *testing.T) {
		res := o.ProcessMessage(ctx, start.SessionID, "what do we have so far?")
		require.True(t, res.Success)
		assert.Contains(t, res.Message, "Nothing has been defined")
	})

	t.Run("delete is refused", func(t *testing.T) {
		res := o.ProcessMessage(ctx, start.SessionID, "delete the universe")
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "not supported")
	})

	t.Run("cancel with no history is a no-op", func(t *testing.T) {
		res := o.ProcessMessage(ctx, start.SessionID, "cancel that")
		require.True(t, res.Success)
		assert.Contains(t, res.Message, "nothing was changed")
	})
}

func TestGenerateFinalEntity(t *testing.T) {
	ctx := context.Background()

	t.Run("refuses without a name", func(t *testing.T) {
		o := newTestOrchestrator(t, DefaultOptions())
		start := o.StartSession(phase.ModeUniverse, nil, nil)

		res := o.GenerateFinalEntity(ctx, start.SessionID)
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "name")
	})

	t.Run("character needs a universe", func(t *testing.T) {
		o := newTestOrchestrator(t, DefaultOptions())
		start := o.StartSession(phase.ModeCharacter, nil, nil)
		seedField(t, o, start.SessionID, "name", "Kira")

		res := o.GenerateFinalEntity(ctx, start.SessionID)
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "universe")
	})

	t.Run("synthesizes defaults under collected fields", func(t *testing.T) {
		o := newTestOrchestrator(t, DefaultOptions())
		start := o.StartSession(phase.ModeUniverse, nil, nil)
		seedField(t, o, start.SessionID, "name", "Eldoria")
		seedField(t, o, start.SessionID, "description", "A high fantasy realm of old")
		seedField(t, o, start.SessionID, "theme", "fantasy")

		res := o.GenerateFinalEntity(ctx, start.SessionID)
		require.True(t, res.Success)
		assert.Equal(t, PhaseReviewing, res.Phase)
		assert.Equal(t, phase.ReviewPhaseID, res.CreationPhase)
		assert.Empty(t, res.Errors)

		require.NotNil(t, res.Entity)
		name, _ := res.Entity.GetString("name")
		assert.Equal(t, "Eldoria", name)
		magic, ok := res.Entity.Get("magicLevel")
		require.True(t, ok, "schema default applied")
		assert.Equal(t, float64(5), magic)

		t.Run("undo rolls the generation back", func(t *testing.T) {
			undone := o.Undo(start.SessionID)
			require.True(t, undone.Success)
			assert.Empty(t, undone.Entity)

			redone := o.Redo(start.SessionID)
			require.True(t, redone.Success)
			name, _ := redone.Entity.GetString("name")
			assert.Equal(t, "Eldoria", name)
		})
	})
}

func TestApplyQuickEdit(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing to edit before generation", func(t *testing.T) {
		o := newTestOrchestrator(t, DefaultOptions())
		start := o.StartSession(phase.ModeUniverse, nil, nil)

		res := o.ApplyQuickEdit(ctx, start.SessionID, "set it to blah")
		assert.False(t, res.Success)
	})

	t.Run("edit after generation", func(t *testing.T) {
		o := newTestOrchestrator(t, DefaultOptions())
		start := o.StartSession(phase.ModeUniverse, nil, nil)
		seedField(t, o, start.SessionID, "name", "Eldoria")
		seedField(t, o, start.SessionID, "description", "A high fantasy realm of old")
		seedField(t, o, start.SessionID, "theme", "fantasy")
		require.True(t, o.GenerateFinalEntity(ctx, start.SessionID).Success)

		res := o.ApplyQuickEdit(ctx, start.SessionID, `change the name: "Mistfall"`)
		require.True(t, res.Success)
		assert.Equal(t, PhaseAdjusting, res.Phase)
		require.NotNil(t, res.Diff)
		assert.NotEmpty(t, res.Diff.Changes)

		name, _ := res.Entity.GetString("name")
		assert.Equal(t, "Mistfall", name)

		sess, ok := o.Session(start.SessionID)
		require.True(t, ok)
		assert.Equal(t, "Mistfall", sess.Extracted["name"].Value, "extraction map tracks the edit")

		t.Run("confirm finishes the session", func(t *testing.T) {
			res := o.ProcessMessage(ctx, start.SessionID, "perfect")
			require.True(t, res.Success)
			assert.Equal(t, PhaseConfirmed, res.Phase)
			assert.NotNil(t, res.Entity)
		})
	})
}

func TestExpireSessions(t *testing.T) {
	opts := DefaultOptions()
	opts.SessionTimeout = time.Minute
	o := newTestOrchestrator(t, opts)

	start := o.StartSession(phase.ModeUniverse, nil, nil)
	assert.Zero(t, o.ExpireSessions(time.Now()))

	removed := o.ExpireSessions(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 1, removed)
	_, ok := o.Session(start.SessionID)
	assert.False(t, ok)

	t.Run("zero timeout disables expiry", func(t *testing.T) {
		opts := DefaultOptions()
		opts.SessionTimeout = 0
		o := newTestOrchestrator(t, opts)
		o.StartSession(phase.ModeUniverse, nil, nil)
		assert.Zero(t, o.ExpireSessions(time.Now().Add(time.Hour)))
	})
}

func TestRunExpirySweep(t *testing.T) {
	opts := DefaultOptions()
	opts.SessionTimeout = time.Millisecond
	o := newTestOrchestrator(t, opts)
	start := o.StartSession(phase.ModeUniverse, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		o.RunExpirySweep(ctx, time.Millisecond)
	}()

	assert.Eventually(t, func() bool {
		_, ok := o.Session(start.SessionID)
		return !ok
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestConcurrentSessions(t *testing.T) {
	o := newTestOrchestrator(t, DefaultOptions())
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := o.StartSession(phase.ModeUniverse, nil, nil)
			res := o.ProcessMessage(ctx, start.SessionID, "Create a universe called Eldoria, a fantasy world")
			assert.True(t, res.Success)
		}()
	}
	wg.Wait()
	assert.Equal(t, n, o.ActiveSessionCount())
}
