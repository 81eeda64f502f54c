// Package bargein simulates realistic interruption behavior: the user
// cutting in on the system's response, one of the harder conversational
// scenarios to get right and therefore especially worth testing.
package bargein

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"voxharness/internal/clock"
	"voxharness/internal/model"
	"voxharness/internal/simulation/audio"
)

// pattern describes one named barge-in behavior.
type pattern struct {
	trigger           string
	minDelayMS        float64
	maxDelayMS        float64
	userSays          string
	audioTexts        []string
	isTrueInterrupt   bool
}

var patterns = map[string]pattern{
	"eager_interrupt": {
		trigger: "keyword_detected", minDelayMS: 100, maxDelayMS: 300, isTrueInterrupt: true,
	},
	"correction": {
		trigger: "incorrect_info", minDelayMS: 200, maxDelayMS: 500,
		userSays: "No no, I meant {correction}", isTrueInterrupt: true,
	},
	"impatient": {
		trigger: "response_duration > 5s", minDelayMS: 0, maxDelayMS: 100,
		userSays: "OK OK I got it, just tell me {question}", isTrueInterrupt: true,
	},
	"backchannel": {
		trigger: "periodic", audioTexts: []string{"mm-hmm", "right", "OK", "yeah"},
		isTrueInterrupt: false,
	},
}

// Simulator executes barge-in patterns against a running response stream.
type Simulator struct {
	clock *clock.Clock
	rng   *rand.Rand
}

// New creates a barge-in simulator paced against clk.
func New(clk *clock.Clock) *Simulator {
	return &Simulator{clock: clk, rng: rand.New(rand.NewSource(1))}
}

// Simulate executes the named pattern, optionally waiting on systemEvents
// for its trigger condition, and generates interruption audio from
// userAudio. correction/question fill the pattern's user_says template.
func (s *Simulator) Simulate(ctx context.Context, patternName string, systemEvents <-chan model.ResponseEvent, userAudio *audio.Stream, correction, question string) (model.InterruptEvent, error) {
	p, ok := patterns[patternName]
	if !ok {
		p = patterns["eager_interrupt"]
	}

	if err := s.waitTrigger(ctx, p.trigger, systemEvents); err != nil {
		return model.InterruptEvent{}, err
	}

	delayMS := p.minDelayMS + s.rng.Float64()*(p.maxDelayMS-p.minDelayMS)
	select {
	case <-time.After(time.Duration(delayMS * float64(time.Millisecond))):
	case <-ctx.Done():
		return model.InterruptEvent{}, ctx.Err()
	}

	userText := p.userSays
	if userText == "" && len(p.audioTexts) > 0 {
		userText = p.audioTexts[0]
	}
	userText = strings.NewReplacer("{correction}", correction, "{question}", question).Replace(userText)

	var samples []int16
	if userAudio != nil && userText != "" {
		ch, err := userAudio.Generate(ctx, userText, "", audio.Style{})
		if err == nil {
			for chunk := range ch {
				samples = append(samples, chunk.Samples...)
			}
		}
	}

	return model.InterruptEvent{
		Timestamp:       time.Time{}.Add(s.now()),
		Audio:           samples,
		IsTrueInterrupt: p.isTrueInterrupt,
	}, nil
}

func (s *Simulator) now() time.Duration {
	if s.clock == nil {
		return 0
	}
	return s.clock.Now()
}

// waitTrigger blocks until the trigger condition for a pattern is met: an
// event arriving on stream ("keyword_detected"), a randomized periodic
// delay ("periodic"), a numeric "field > Ns" expression, or immediately
// ("immediate", and "incorrect_info", whose condition is not detected from
// the stream).
func (s *Simulator) waitTrigger(ctx context.Context, trigger string, stream <-chan model.ResponseEvent) error {
	switch {
	case trigger == "immediate" || trigger == "" || trigger == "incorrect_info":
		return nil
	case trigger == "keyword_detected":
		if stream == nil {
			return nil
		}
		timeout := time.NewTimer(5 * time.Second)
		defer timeout.Stop()
		select {
		case <-stream:
		case <-timeout.C:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	case trigger == "periodic":
		delay := 2 + s.rng.Float64()*2
		select {
		case <-time.After(time.Duration(delay * float64(time.Second))):
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	case strings.Contains(trigger, ">"):
		parts := strings.SplitN(trigger, ">", 2)
		if len(parts) != 2 {
			return nil
		}
		secStr := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(parts[1]), "s"))
		seconds, err := strconv.ParseFloat(secStr, 64)
		if err != nil {
			return nil
		}
		select {
		case <-time.After(time.Duration(seconds * float64(time.Second))):
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	default:
		return fmt.Errorf("bargein: unknown trigger %q", trigger)
	}
}
