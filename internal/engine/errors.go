package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nulzo/vision-grader/internal/provider"
	"github.com/nulzo/vision-grader/internal/strategy"
)

type Kind string

const (
	KindConfigIncomplete Kind = "config_incomplete"
	KindStopped          Kind = "stopped"
	KindCacheInvalid     Kind = "cache_invalid"
	KindExhausted        Kind = "exhausted"
)

var (
	ErrConfigIncomplete = errors.New("configuration incomplete")
	ErrStopped          = errors.New("engine stopped")
	ErrCacheInvalid     = errors.New("cached strategy failed")
	ErrExhausted        = errors.New("all strategies failed")
)

var sentinels = map[Kind]error{
	KindConfigIncomplete: ErrConfigIncomplete,
	KindStopped:          ErrStopped,
	KindCacheInvalid:     ErrCacheInvalid,
	KindExhausted:        ErrExhausted,
}

// suggestions is checked in order when only the message is known.
var suggestions = []struct {
	code int
	text string
}{
	{404, "The API endpoint does not exist. Check that the URL is correct."},
	{401, "The API key is invalid or expired. Check that the key is correct."},
	{403, "API access was denied. Check the key's permissions or the account balance."},
	{429, "The API rate limit was hit. Try again later."},
	{500, "The API server had an internal error. Try again later."},
}

// ConnectionHint is appended to every failed connection test.
const ConnectionHint = "Check the API URL, key and model ID. The model must support vision and the account needs sufficient balance."

// Error is the only error type Call returns.
type Error struct {
	Kind       Kind
	Provider   provider.Tag
	Slot       strategy.Slot
	StatusCode int
	Message    string
	Hint       string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s, ok := sentinels[e.Kind]; ok {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Friendly renders the message shown to a person, with a suggestion when the
// failure maps to a known status code.
func (e *Error) Friendly() string {
	msg := e.Message
	if s := suggestionFor(e.StatusCode, msg); s != "" {
		msg += "\n\nSuggestion: " + s
	}
	if e.Hint != "" {
		msg += "\n\n" + e.Hint
	}
	return msg
}

func suggestionFor(status int, msg string) string {
	if status != 0 {
		for _, s := range suggestions {
			if s.code == status {
				return s.text
			}
		}
		return ""
	}
	for _, s := range suggestions {
		if strings.Contains(msg, strconv.Itoa(s.code)) {
			return s.text
		}
	}
	return ""
}

// KindOf returns the Kind of an engine error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Friendly renders any error for display.
func Friendly(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Friendly()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
