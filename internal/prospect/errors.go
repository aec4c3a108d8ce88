package prospect

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind classifies a search failure so callers branch on type instead of
// inspecting message text.
type Kind int

const (
	// KindTransport is a generic network or unclassified provider failure.
	KindTransport Kind = iota
	// KindConfig is a missing or invalid credential; never retried.
	KindConfig
	// KindContent is an empty or unusable model reply; never retried.
	KindContent
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindContent:
		return "content"
	default:
		return "transport"
	}
}

// Error is a classified, user-displayable search failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// QuotaError reports a rate-limit failure carrying the wait the API asked
// for. It is distinct from Error so callers can drive an automatic
// countdown-and-retry instead of a terminal display.
type QuotaError struct {
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s (retry in %s)", e.Message, e.RetryAfter)
}

func (e *QuotaError) Unwrap() error { return e.Err }

// IsQuota reports whether err is a quota/rate-limit failure.
func IsQuota(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

// KindOf returns the classification of err, defaulting to KindTransport
// for unclassified errors.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTransport
}

var retryInPattern = regexp.MustCompile(`retry in ([0-9]+(?:\.[0-9]+)?)\s*s`)

// ExtractRetryAfter pulls the server-suggested wait out of a quota error
// message ("... retry in 12.5s"), rounded up to whole seconds. Returns
// fallback when the message carries no usable delay.
func ExtractRetryAfter(msg string, fallback time.Duration) time.Duration {
	m := retryInPattern.FindStringSubmatch(strings.ToLower(msg))
	if m == nil {
		return fallback
	}
	secs, err := strconv.ParseFloat(m[1], 64)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(math.Ceil(secs)) * time.Second
}

func isQuotaMessage(msg string) bool {
	return strings.Contains(msg, "429") ||
		strings.Contains(strings.ToLower(msg), "quota") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

func isCredentialMessage(msg string) bool {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "api_key_invalid") {
		return true
	}
	if !strings.Contains(lower, "api key") {
		return false
	}
	for _, phrase := range []string{"not valid", "invalid", "not found", "expired", "missing"} {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Classify converts an outbound generation error into the typed taxonomy.
// Quota signals (429, "quota", RESOURCE_EXHAUSTED) become QuotaError with a
// retry-after extracted from the message or the given fallback; credential
// failures become KindConfig with remediation guidance; everything else
// degrades to KindTransport carrying the underlying message.
func Classify(err error, fallbackRetry time.Duration) error {
	if err == nil {
		return nil
	}
	msg := err.Error()

	switch {
	case isQuotaMessage(msg):
		return &QuotaError{
			Message:    "search quota exhausted",
			RetryAfter: ExtractRetryAfter(msg, fallbackRetry),
			Err:        err,
		}
	case isCredentialMessage(msg):
		return &Error{
			Kind:    KindConfig,
			Message: "generative API key is invalid or missing; set gemini.key in config.yaml or the LEADSCOUT_GEMINI_KEY environment variable",
			Err:     err,
		}
	default:
		return &Error{Kind: KindTransport, Message: msg, Err: err}
	}
}
