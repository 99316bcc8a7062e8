package config

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// RuleSet maps a config key to a pipe-separated rule string.
// e.g. RuleSet{"server.port": "required|integer|between:1,65535"}
type RuleSet map[string]string

// ValidationErrors holds the failed rules, keyed by config key.
// JSON output: {"errors": {"server.port": ["msg1", "msg2"]}}
type ValidationErrors struct {
	Bag map[string][]string `json:"errors"`
}

func (e *ValidationErrors) add(key, msg string) {
	if e.Bag == nil {
		e.Bag = make(map[string][]string)
	}
	e.Bag[key] = append(e.Bag[key], msg)
}

// Has returns true if there are any errors.
func (e *ValidationErrors) Has() bool { return len(e.Bag) > 0 }

// First returns the first error for a key.
func (e *ValidationErrors) First(key string) string {
	if msgs, ok := e.Bag[key]; ok && len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func (e *ValidationErrors) Error() string {
	keys := make([]string, 0, len(e.Bag))
	for k := range e.Bag {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, strings.Join(e.Bag[k], "; "))
	}
	return "config: invalid configuration: " + strings.Join(msgs, "; ")
}

// Validate checks every key in rules against r. It returns a
// *ValidationErrors when any rule fails, or the resolver's own error if a
// lookup fails.
//
// Supported rules: required, sometimes, boolean, integer, numeric, duration,
// url, min:n, max:n, between:a,b, in:a,b,c, regex:pattern.
// Rules for a key stop at its first failure.
func Validate(r Resolver, rules RuleSet) error {
	errs := &ValidationErrors{}
	keys := make([]string, 0, len(rules))
	for k := range rules {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		value, present, err := r.Resolve(key)
		if err != nil {
			return err
		}
		for _, rule := range strings.Split(rules[key], "|") {
			rule = strings.TrimSpace(rule)
			if rule == "" {
				continue
			}
			// min:3 → name=min, param=3
			name, param, _ := strings.Cut(rule, ":")
			if !applyRule(errs, key, value, present, name, param) {
				break
			}
		}
	}
	if errs.Has() {
		return errs
	}
	return nil
}

// applyRule returns true if the rule passes and the next one should run.
func applyRule(errs *ValidationErrors, key, value string, present bool, rule, param string) bool {
	switch rule {
	case "required":
		if !present || strings.TrimSpace(value) == "" {
			errs.add(key, fmt.Sprintf("%s is required", key))
			return false
		}

	case "sometimes":
		// Skip the remaining rules if the key is absent.
		if !present {
			return false
		}

	case "boolean":
		if _, err := strconv.ParseBool(value); err != nil {
			errs.add(key, fmt.Sprintf("%s must be true or false", key))
			return false
		}

	case "integer":
		if _, err := strconv.Atoi(value); err != nil {
			errs.add(key, fmt.Sprintf("%s must be an integer", key))
			return false
		}

	case "numeric":
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			errs.add(key, fmt.Sprintf("%s must be a number", key))
			return false
		}

	case "duration":
		if _, err := time.ParseDuration(value); err != nil {
			errs.add(key, fmt.Sprintf("%s must be a duration such as 10s", key))
			return false
		}

	case "url":
		u, err := url.Parse(value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs.add(key, fmt.Sprintf("%s must be a valid URL", key))
			return false
		}

	case "min":
		n, _ := strconv.Atoi(param)
		if utf8.RuneCountInString(value) < n {
			errs.add(key, fmt.Sprintf("%s must be at least %d characters", key, n))
			return false
		}

	case "max":
		n, _ := strconv.Atoi(param)
		if utf8.RuneCountInString(value) > n {
			errs.add(key, fmt.Sprintf("%s may not be longer than %d characters", key, n))
			return false
		}

	case "between":
		lo, hi, ok := strings.Cut(param, ",")
		if !ok {
			break
		}
		min, _ := strconv.ParseFloat(strings.TrimSpace(lo), 64)
		max, _ := strconv.ParseFloat(strings.TrimSpace(hi), 64)
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < min || f > max {
			errs.add(key, fmt.Sprintf("%s must be between %s and %s", key, lo, hi))
			return false
		}

	case "in":
		allowed := strings.Split(param, ",")
		if !slices.ContainsFunc(allowed, func(a string) bool { return strings.TrimSpace(a) == value }) {
			errs.add(key, fmt.Sprintf("%s must be one of %s", key, param))
			return false
		}

	case "regex":
		re, err := regexp.Compile(param)
		if err != nil || !re.MatchString(value) {
			errs.add(key, fmt.Sprintf("%s format is invalid", key))
			return false
		}

	default:
		errs.add(key, fmt.Sprintf("unknown rule %q", rule))
		return false
	}

	return true
}
