// Package clockcheck warns when the local clock has drifted far enough
// to risk bogus "newer than shadow" comparisons in the reconciler. It
// checks drift with a plain HTTP HEAD request's Date response header
// rather than a full NTP exchange, since an advisory warning doesn't
// need NTP's precision.
package clockcheck

import (
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// MaxAcceptableSkew is the original system's 60-second threshold past
// which the reconciler's mtime comparisons become unreliable enough to
// warn about.
const MaxAcceptableSkew = 60 * time.Second

// DefaultTimeout bounds how long the clock check waits for a response
// before giving up with an error.
const DefaultTimeout = 5 * time.Second

// Result reports the measured skew and whether it exceeds the warning
// threshold.
type Result struct {
	Skew      time.Duration
	OutOfSync bool
}

// Check fetches the Date header from a HEAD request against url and
// compares it against the local clock. An unreachable server returns
// an error; the davsync driver logs it as a warning and otherwise
// proceeds.
func Check(url string) (Result, error) {
	client := &http.Client{Timeout: DefaultTimeout}
	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return Result{}, errors.Wrap(err, "build clock check request")
	}
	before := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, errors.Wrap(err, "reach clock check server")
	}
	defer resp.Body.Close()
	after := time.Now()

	dateHeader := resp.Header.Get("Date")
	if dateHeader == "" {
		return Result{}, errors.New("clock check response had no Date header")
	}
	serverTime, err := http.ParseTime(dateHeader)
	if err != nil {
		return Result{}, errors.Wrap(err, "parse Date header")
	}

	// Approximate network latency by splitting the round trip evenly;
	// good enough for a coarse 60-second threshold.
	roundTrip := after.Sub(before)
	localMidpoint := before.Add(roundTrip / 2)

	skew := localMidpoint.Sub(serverTime)
	if skew < 0 {
		skew = -skew
	}
	return Result{Skew: skew, OutOfSync: skew > MaxAcceptableSkew}, nil
}
