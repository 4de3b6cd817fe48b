package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// AssertionError describes a failed expectation.
type AssertionError struct {
	Field    string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Field)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// CheckExpect compares a result with the expectations and returns one
// message per mismatch. Unset expectations are skipped.
func CheckExpect(result *Result, expect Expect) []string {
	var errs []error

	if expect.Executed != nil {
		errs = appendIfErr(errs, compareList("executed", expect.Executed, result.Executed))
	}
	if expect.Notified != nil {
		errs = appendIfErr(errs, compareList("notified", expect.Notified, result.Notified))
	}
	if expect.Resolved != nil {
		errs = appendIfErr(errs, compareList("resolved", expect.Resolved, result.ResolvedLabels()))
	}
	if expect.Pending != nil {
		errs = appendIfErr(errs, compareList("pending", expect.Pending, result.Pending))
	}
	if expect.Calls != nil {
		errs = appendIfErr(errs, compareList("calls", expect.Calls, result.Calls))
	}
	errs = append(errs, compareValues(expect.Values, result)...)
	if expect.Synced != nil && *expect.Synced != result.Synced {
		errs = append(errs, &AssertionError{
			Field:    "synced",
			Expected: fmt.Sprint(*expect.Synced),
			Actual:   fmt.Sprint(result.Synced),
		})
	}
	if expect.Live != nil && *expect.Live != result.Live {
		errs = append(errs, &AssertionError{
			Field:    "live",
			Expected: fmt.Sprint(*expect.Live),
			Actual:   fmt.Sprint(result.Live),
		})
	}

	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return msgs
}

func compareList[T comparable](field string, want, got []T) error {
	if slices.Equal(want, got) {
		return nil
	}
	return &AssertionError{
		Field:    field,
		Expected: fmt.Sprint(want),
		Actual:   fmt.Sprint(got),
	}
}

// compareValues checks resolved values by their printed form, so YAML
// integers match whatever integer type the command produced.
func compareValues(want map[string]any, result *Result) []error {
	labels := make([]string, 0, len(want))
	for label := range want {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var errs []error
	for _, label := range labels {
		got, ok := result.Value(label)
		if !ok {
			errs = append(errs, &AssertionError{
				Field:    "values." + label,
				Expected: fmt.Sprint(want[label]),
				Actual:   "not resolved",
			})
			continue
		}
		if fmt.Sprint(got) != fmt.Sprint(want[label]) {
			errs = append(errs, &AssertionError{
				Field:    "values." + label,
				Expected: fmt.Sprint(want[label]),
				Actual:   fmt.Sprint(got),
			})
		}
	}
	return errs
}

func appendIfErr(errs []error, err error) []error {
	if err != nil {
		return append(errs, err)
	}
	return errs
}
