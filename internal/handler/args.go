package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"queuebot/internal/model"
	"queuebot/internal/queue"
)

// Argument parsing errors, shown to the operator as-is.
var (
	errUsageID       = errors.New("❌ Usage: /<command> <queue id>")
	errUsageComplete = errors.New("❌ Usage: /complete <queue id> [balance=..] [username=..] [password=..]")
	errUsagePage     = errors.New("❌ Usage: /page <number>")
)

// ParseQueueID parses a positive queue id.
func ParseQueueID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errUsageID
	}
	return id, nil
}

// ParseCompleteArgs parses "/complete <id> [key=value ...]".
func ParseCompleteArgs(args []string) (int64, model.Overrides, error) {
	var o model.Overrides
	if len(args) < 1 {
		return 0, o, errUsageComplete
	}

	id, err := ParseQueueID(args[0])
	if err != nil {
		return 0, o, errUsageComplete
	}

	for _, arg := range args[1:] {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return 0, o, fmt.Errorf("❌ Expected key=value, got %q", arg)
		}
		switch model.OverrideField(strings.ToLower(key)) {
		case model.FieldBalance:
			o.Balance = value
		case model.FieldUsername:
			o.Username = value
		case model.FieldPassword:
			o.Password = value
		default:
			return 0, o, fmt.Errorf("❌ Unknown field %q, use balance, username or password", key)
		}
	}
	return id, o, nil
}

// ParseFilter accepts a filter kind, with or without its "_game" suffix.
func ParseFilter(s string) (model.FilterKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range model.FilterKinds() {
		if string(k) == s || strings.TrimSuffix(string(k), "_game") == s {
			return k, nil
		}
	}

	names := make([]string, 0, len(model.FilterKinds()))
	for _, k := range model.FilterKinds() {
		names = append(names, strings.TrimSuffix(string(k), "_game"))
	}
	return "", fmt.Errorf("❌ Unknown filter %q, choose one of: %s", s, strings.Join(names, ", "))
}

// ParsePage parses a page number of 1 or greater.
func ParsePage(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, errUsagePage
	}
	return n, nil
}

// ParseSearch parses "/search [text] [status=..] [from=YYYY-MM-DD] [to=YYYY-MM-DD]".
// No arguments clears every ad hoc filter.
func ParseSearch(args []string) (queue.Query, error) {
	var q queue.Query
	var words []string

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			words = append(words, arg)
			continue
		}
		switch strings.ToLower(key) {
		case "status":
			q.Status = model.QueueStatus(strings.ToLower(value))
		case "from", "to":
			if _, err := time.Parse(time.DateOnly, value); err != nil {
				return queue.Query{}, fmt.Errorf("❌ Dates must look like 2024-01-31, got %q", value)
			}
			if strings.ToLower(key) == "from" {
				q.DateFrom = value
			} else {
				q.DateTo = value
			}
		default:
			words = append(words, arg)
		}
	}

	q.Search = strings.Join(words, " ")
	return q, nil
}
