/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package santa

import (
	"errors"
	"fmt"

	"github.com/google/logger"
)

// DefaultMaxAttempts bounds the shuffle-and-reject loop.
const DefaultMaxAttempts = 1000

var (
	// ErrGeneration matches every generation failure.
	ErrGeneration = errors.New("unable to generate assignments")

	ErrInsufficientParticipants = fmt.Errorf("%w: fewer than %d participants", ErrGeneration, AbsoluteMinimum)
	ErrGenerationExhausted      = fmt.Errorf("%w: attempt limit reached", ErrGeneration)
)

// Logger receives the diagnostic emitted when the attempt limit is reached.
// *logger.Logger from github.com/google/logger satisfies it.
type Logger interface {
	Errorf(format string, v ...any)
}

type defaultLogger struct{}

func (defaultLogger) Errorf(format string, v ...any) {
	logger.Errorf(format, v...)
}

// Generator produces derangements of a participant list by repeatedly
// shuffling and rejecting candidates with a fixed point.
type Generator struct {
	src         Source
	maxAttempts int
	log         Logger
	observe     func(attempts int, err error)
}

type Option func(*Generator)

func WithSource(src Source) Option {
	return func(g *Generator) {
		g.src = src
	}
}

// WithMaxAttempts overrides DefaultMaxAttempts. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

func WithLogger(l Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.log = l
		}
	}
}

// WithObserver registers fn to be called once per Generate with the number of
// shuffles tried and the outcome.
func WithObserver(fn func(attempts int, err error)) Option {
	return func(g *Generator) {
		g.observe = fn
	}
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		src:         globalSource{},
		maxAttempts: DefaultMaxAttempts,
		log:         defaultLogger{},
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

func (g *Generator) MaxAttempts() int {
	return g.maxAttempts
}

// Generate assigns every participant a receiver other than themselves.
// On success the result has one assignment per participant, in input order.
// On failure it returns nil and an error matching ErrGeneration; no partial
// result is ever returned. participants is not modified.
func (g *Generator) Generate(participants []Participant) ([]Assignment, error) {
	if len(participants) < AbsoluteMinimum {
		g.report(0, ErrInsufficientParticipants)

		return nil, ErrInsufficientParticipants
	}

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		receivers := Shuffle(g.src, participants)

		if !isDerangement(participants, receivers) {
			continue
		}

		assignments := make([]Assignment, len(participants))
		for i, giver := range participants {
			assignments[i] = Assignment{
				Giver:    giver,
				Receiver: receivers[i],
			}
		}

		g.report(attempt, nil)

		return assignments, nil
	}

	g.log.Errorf("santa: no valid assignment for %d participants after %d attempts", len(participants), g.maxAttempts)
	g.report(g.maxAttempts, ErrGenerationExhausted)

	return nil, ErrGenerationExhausted
}

func (g *Generator) report(attempts int, err error) {
	if g.observe != nil {
		g.observe(attempts, err)
	}
}

func isDerangement(givers, receivers []Participant) bool {
	for i := range givers {
		if givers[i].ID == receivers[i].ID {
			return false
		}
	}

	return true
}

var defaultGenerator = NewGenerator()

// Generate runs the default generator: package-level randomness, 1000
// attempts, diagnostics to google/logger.
func Generate(participants []Participant) ([]Assignment, error) {
	return defaultGenerator.Generate(participants)
}
