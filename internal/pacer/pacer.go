// Package pacer retries a transient-failing call with exponential
// backoff: a single decay/attack calculator sized for pacing calls
// against one WebDAV connection, not a zoo of per-provider variants.
package pacer

import (
	"sync"
	"time"
)

// Paced is the function signature retried by Call/CallNoRetry. It
// returns whether the call deserves a retry, and the error to surface
// (or return) otherwise.
type Paced func() (retry bool, err error)

// Pacer paces calls against a single backend connection,
// backing off on retryable errors and decaying the sleep time back down
// once calls start succeeding again.
type Pacer struct {
	mu            sync.Mutex
	minSleep      time.Duration
	maxSleep      time.Duration
	decayConstant uint
	retries       int
	sleepTime     time.Duration
	consecutive   uint
}

// Option configures a new Pacer.
type Option func(*Pacer)

// MinSleep sets the minimum time between calls.
func MinSleep(d time.Duration) Option { return func(p *Pacer) { p.minSleep = d; p.sleepTime = d } }

// MaxSleep sets the maximum time between calls.
func MaxSleep(d time.Duration) Option { return func(p *Pacer) { p.maxSleep = d } }

// DecayConstant sets how fast the sleep interval decays after a
// successful call; larger values decay more slowly.
func DecayConstant(c uint) Option { return func(p *Pacer) { p.decayConstant = c } }

// Retries sets how many attempts Call makes before giving up.
func Retries(n int) Option { return func(p *Pacer) { p.retries = n } }

// New returns a Pacer with conservative defaults (10ms/2s/decay 2,
// 10 retries), overridden by opts.
func New(opts ...Option) *Pacer {
	p := &Pacer{
		minSleep:      10 * time.Millisecond,
		maxSleep:      2 * time.Second,
		decayConstant: 2,
		retries:       10,
	}
	p.sleepTime = p.minSleep
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// calculate returns the next sleep duration: decay on success, double
// (the attack) on a retry, clamped to [minSleep, maxSleep].
func (p *Pacer) calculate(consecutiveRetries uint) time.Duration {
	sleepTime := p.sleepTime
	if consecutiveRetries == 0 {
		// decay
		if p.decayConstant > 0 {
			sleepTime = sleepTime - sleepTime/time.Duration(1<<p.decayConstant)
		} else {
			sleepTime = 0
		}
	} else {
		// attack
		sleepTime = sleepTime << consecutiveRetries
	}
	if sleepTime < p.minSleep {
		sleepTime = p.minSleep
	}
	if sleepTime > p.maxSleep {
		sleepTime = p.maxSleep
	}
	return sleepTime
}

func (p *Pacer) beginCall() {
	p.mu.Lock()
	sleep := p.calculate(0)
	p.mu.Unlock()
	if sleep > 0 {
		time.Sleep(sleep)
	}
}

func (p *Pacer) endCall(retry bool) {
	p.mu.Lock()
	if retry {
		p.consecutive++
		p.sleepTime = p.calculate(p.consecutive)
	} else {
		p.consecutive = 0
		p.sleepTime = p.calculate(0)
	}
	p.mu.Unlock()
}

// call retries fn up to maxTries times.
func (p *Pacer) call(fn Paced, maxTries int) error {
	var err error
	var retry bool
	for try := 1; try <= maxTries; try++ {
		p.beginCall()
		retry, err = fn()
		p.endCall(retry)
		if !retry {
			return err
		}
	}
	return err
}

// Call retries fn, backing off between attempts, up to the pacer's
// configured retry count.
func (p *Pacer) Call(fn Paced) error {
	return p.call(fn, p.retries)
}

// CallNoRetry pace-limits fn but never retries it: used for operations
// that aren't safe to repeat blindly, e.g. PUT with a non-seekable body.
func (p *Pacer) CallNoRetry(fn Paced) error {
	return p.call(fn, 1)
}
