/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package santa

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identitySource never moves anything, so every candidate is all fixed points.
type identitySource struct {
	calls int
}

func (s *identitySource) IntN(n int) int {
	s.calls++

	return n - 1
}

// scriptedSource replays values in order, then falls back to 0.
type scriptedSource struct {
	values []int
}

func (s *scriptedSource) IntN(n int) int {
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[0]
	s.values = s.values[1:]

	return v % n
}

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Errorf(format string, v ...any) {
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func roster(names ...string) []Participant {
	out := make([]Participant, len(names))
	for i, name := range names {
		out[i] = Participant{ID: fmt.Sprintf("%d", i+1), Name: name}
	}

	return out
}

func requireDerangement(t *testing.T, participants []Participant, assignments []Assignment) {
	t.Helper()

	require.Len(t, assignments, len(participants))

	receivers := make(map[string]int, len(assignments))
	for i, a := range assignments {
		require.Equal(t, participants[i], a.Giver, "giver order must follow input order")
		require.NotEqual(t, a.Giver.ID, a.Receiver.ID, "%s drew themselves", a.Giver.Name)
		require.False(t, a.Revealed)
		receivers[a.Receiver.ID]++
	}

	require.Len(t, receivers, len(participants))
	for _, p := range participants {
		require.Equal(t, 1, receivers[p.ID], "%s must receive exactly once", p.Name)
	}
}

func TestGenerateProducesDerangement(t *testing.T) {
	for _, n := range []int{2, 3, 4, 6, 10, 25, 50} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			names := make([]string, n)
			for i := range names {
				names[i] = fmt.Sprintf("P%d", i)
			}
			participants := roster(names...)

			for range 50 {
				assignments, err := Generate(participants)
				require.NoError(t, err)
				requireDerangement(t, participants, assignments)
			}
		})
	}
}

func TestGenerateRejectsSmallRosters(t *testing.T) {
	src := &identitySource{}
	g := NewGenerator(WithSource(src))

	for _, participants := range [][]Participant{nil, {}, roster("A")} {
		assignments, err := g.Generate(participants)
		require.Nil(t, assignments)
		require.ErrorIs(t, err, ErrInsufficientParticipants)
		require.ErrorIs(t, err, ErrGeneration)
	}

	assert.Zero(t, src.calls, "no shuffle should be attempted")
}

func TestGenerateTwoParticipantsSwaps(t *testing.T) {
	participants := roster("A", "B")

	// First shuffle keeps the order (A->A, B->B) and is rejected; the second swaps.
	src := &scriptedSource{values: []int{1, 0}}

	var attempts int
	g := NewGenerator(WithSource(src), WithObserver(func(n int, err error) {
		require.NoError(t, err)
		attempts = n
	}))

	assignments, err := g.Generate(participants)
	require.NoError(t, err)
	require.Equal(t, 2, attempts)

	require.Equal(t, "A", assignments[0].Giver.Name)
	require.Equal(t, "B", assignments[0].Receiver.Name)
	require.Equal(t, "B", assignments[1].Giver.Name)
	require.Equal(t, "A", assignments[1].Receiver.Name)
}

func TestGenerateThreeParticipantsIsACycle(t *testing.T) {
	participants := roster("A", "B", "C")

	valid := map[string]bool{
		"A>B B>C C>A": true,
		"A>C B>A C>B": true,
	}

	for range 200 {
		assignments, err := Generate(participants)
		require.NoError(t, err)

		key := fmt.Sprintf("%s>%s %s>%s %s>%s",
			assignments[0].Giver.Name, assignments[0].Receiver.Name,
			assignments[1].Giver.Name, assignments[1].Receiver.Name,
			assignments[2].Giver.Name, assignments[2].Receiver.Name,
		)
		require.True(t, valid[key], "unexpected pairing %q", key)
	}
}

func TestGenerateExhaustsAttempts(t *testing.T) {
	src := &identitySource{}
	log := &recordingLogger{}

	var observed int
	var observedErr error
	g := NewGenerator(
		WithSource(src),
		WithLogger(log),
		WithObserver(func(n int, err error) {
			observed = n
			observedErr = err
		}),
	)

	participants := roster("A", "B", "C", "D")

	assignments, err := g.Generate(participants)
	require.Nil(t, assignments)
	require.ErrorIs(t, err, ErrGenerationExhausted)
	require.ErrorIs(t, err, ErrGeneration)
	require.NotErrorIs(t, err, ErrInsufficientParticipants)

	// Each shuffle of four elements draws three indices.
	require.Equal(t, DefaultMaxAttempts*3, src.calls)
	require.Equal(t, DefaultMaxAttempts, observed)
	require.ErrorIs(t, observedErr, ErrGenerationExhausted)

	require.Len(t, log.lines, 1)
	require.Contains(t, log.lines[0], "after 1000 attempts")
}

func TestWithMaxAttempts(t *testing.T) {
	src := &identitySource{}
	g := NewGenerator(WithSource(src), WithMaxAttempts(5), WithLogger(&recordingLogger{}))
	require.Equal(t, 5, g.MaxAttempts())

	_, err := g.Generate(roster("A", "B"))
	require.ErrorIs(t, err, ErrGenerationExhausted)
	require.Equal(t, 5, src.calls)

	require.Equal(t, DefaultMaxAttempts, NewGenerator(WithMaxAttempts(0)).MaxAttempts())
	require.Equal(t, DefaultMaxAttempts, NewGenerator(WithMaxAttempts(-3)).MaxAttempts())
}

func TestGenerateLargeRosterWellUnderCeiling(t *testing.T) {
	names := make([]string, 50)
	for i := range names {
		names[i] = fmt.Sprintf("P%d", i)
	}

	var worst int
	g := NewGenerator(WithObserver(func(n int, err error) {
		require.NoError(t, err)
		worst = max(worst, n)
	}))

	for range 100 {
		_, err := g.Generate(roster(names...))
		require.NoError(t, err)
	}

	require.Less(t, worst, 100)
}

func TestGenerateLeavesInputUntouched(t *testing.T) {
	participants := roster("A", "B", "C", "D", "E")
	snapshot := append([]Participant(nil), participants...)

	g := NewGenerator(WithSource(rand.New(rand.NewPCG(7, 11))))

	first, err := g.Generate(participants)
	require.NoError(t, err)
	require.Equal(t, snapshot, participants)

	second, err := g.Generate(participants)
	require.NoError(t, err)
	require.Equal(t, snapshot, participants)

	requireDerangement(t, participants, first)
	requireDerangement(t, participants, second)

	first[0].Revealed = true
	require.False(t, second[0].Revealed)
}
