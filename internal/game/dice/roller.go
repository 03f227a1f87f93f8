package dice

import (
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Timing bounds the staggered landing of the dice.
type Timing struct {
	// MinLand and MaxLand bound the random delay before each die lands.
	MinLand time.Duration
	MaxLand time.Duration
	// SafetyTimeout is how long Roll waits for every die before it gives up
	// and fabricates a score from the dice that did land.
	SafetyTimeout time.Duration
}

// DefaultTiming returns the standard landing window.
func DefaultTiming() Timing {
	return Timing{
		MinLand:       400 * time.Millisecond,
		MaxLand:       1200 * time.Millisecond,
		SafetyTimeout: 3 * time.Second,
	}
}

// Scheduler runs f once after d has elapsed. time.AfterFunc satisfies it
// after discarding the returned timer.
type Scheduler func(d time.Duration, f func())

func afterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

// Option configures a Roller.
type Option func(*Roller)

// WithScheduler replaces the timer used to land each die.
func WithScheduler(s Scheduler) Option {
	return func(r *Roller) { r.schedule = s }
}

// Roller throws the six binary dice with staggered landings and logs every
// throw.
type Roller struct {
	src      Source
	timing   Timing
	logger   *zap.Logger
	schedule Scheduler
}

type landing struct {
	index int
	value int
}

// NewRoller creates a Roller.
//
// Precondition: src and logger must be non-nil; timing.MinLand <= timing.MaxLand.
// Postcondition: a SafetyTimeout not longer than MaxLand is raised to
// MaxLand plus one second.
func NewRoller(src Source, timing Timing, logger *zap.Logger, opts ...Option) *Roller {
	if timing.MaxLand < timing.MinLand {
		timing.MaxLand = timing.MinLand
	}
	if timing.SafetyTimeout <= timing.MaxLand {
		timing.SafetyTimeout = timing.MaxLand + time.Second
	}
	r := &Roller{
		src:      src,
		timing:   timing,
		logger:   logger,
		schedule: afterFunc,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Timing returns the roller's landing window.
func (r *Roller) Timing() Timing {
	return r.timing
}

// Forced returns a copy of r whose next throws replay faces in order.
//
// Precondition: faces must come from ParseFaces.
func (r *Roller) Forced(faces []int) *Roller {
	c := *r
	c.src = NewFixedSource(faces...)
	return &c
}

// Roll throws NumDice dice. Each die lands after a random delay inside the
// timing window; onLand (which may be nil) is called once per landed die, in
// landing order, from the calling goroutine. Roll blocks until every die has
// landed or the safety timeout fires.
//
// Postcondition: Score is in [1, MaxScore]. When TimedOut is false,
// len(Dice) == NumDice and Score == Finalize(Sum()).
func (r *Roller) Roll(onLand func(index, value int)) Throw {
	landed := make(chan landing, NumDice)
	for i := range NumDice {
		value := r.src.Intn(2)
		r.schedule(r.delay(), func() {
			landed <- landing{index: i, value: value}
		})
	}

	safety := time.NewTimer(r.timing.SafetyTimeout)
	defer safety.Stop()

	throw := Throw{Dice: make([]int, 0, NumDice)}
	for len(throw.Dice) < NumDice {
		select {
		case l := <-landed:
			throw.Dice = append(throw.Dice, l.value)
			if onLand != nil {
				onLand(l.index, l.value)
			}
		case <-safety.C:
			throw.TimedOut = true
			sum := throw.Sum()
			if sum == 0 {
				sum = 4
			}
			throw.Score = Finalize(sum)
			r.logger.Warn("dice safety timeout",
				zap.Int("landed", len(throw.Dice)),
				zap.Ints("dice", throw.Dice),
				zap.Int("score", throw.Score),
			)
			return throw
		}
	}

	throw.Score = Finalize(throw.Sum())
	r.logger.Debug("dice roll",
		zap.Ints("dice", throw.Dice),
		zap.Int("sum", throw.Sum()),
		zap.Int("score", throw.Score),
		zap.Bool("bonus", IsBonus(throw.Score)),
	)
	return throw
}

func (r *Roller) delay() time.Duration {
	span := r.timing.MaxLand - r.timing.MinLand
	if span <= 0 {
		return r.timing.MinLand
	}
	return r.timing.MinLand + rand.N(span+1)
}
