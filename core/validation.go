// Copyright 2025 Energinet DataHub A/S
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"strings"
	"time"
)

// ValidationResult is the structured outcome of criteria validation.
// Invalid criteria carry a client-facing message describing which
// constraint failed; no stack traces, no internal detail.
type ValidationResult struct {
	Valid   bool
	Message string
}

// Valid returns a passing ValidationResult.
func ValidResult() ValidationResult {
	return ValidationResult{Valid: true}
}

// Accepted timestamp layouts for the search date range. The upstream
// clients send RFC 3339; date-only values are accepted for manual use.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseSearchDateTime parses a search date-range bound and converts it
// to a UTC instant.
func ParseSearchDateTime(value string) (time.Time, error) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrDateTimeParse, value)
}

// DateRange parses the mandatory inclusive date range of the criteria
// and returns both bounds as UTC instants.
func (c *SearchCriteria) DateRange() (from, to time.Time, err error) {
	from, err = ParseSearchDateTime(c.DateTimeFrom)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err = ParseSearchDateTime(c.DateTimeTo)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

// NormalizedProcessTypes returns the process-type set filter upper-cased.
func (c *SearchCriteria) NormalizedProcessTypes() []string {
	return normalizeSet(c.ProcessTypes, strings.ToUpper)
}

// NormalizedRsmNames returns the RSM-name set filter lower-cased.
func (c *SearchCriteria) NormalizedRsmNames() []string {
	return normalizeSet(c.RsmNames, strings.ToLower)
}

func normalizeSet(values []string, fn func(string) string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, fn(v))
	}
	return out
}

// ValidateSearchCriteria validates a SearchCriteria according to the
// search contract.
//
// Validation rules:
//   - DateTimeFrom and DateTimeTo must both be present and parseable
//
// Everything else is optional: absent filters contribute no constraint.
func ValidateSearchCriteria(c *SearchCriteria) ValidationResult {
	if c == nil {
		return ValidationResult{Message: "search criteria is nil"}
	}

	if _, _, err := c.DateRange(); err != nil {
		return ValidationResult{
			Message: fmt.Sprintf("date time parse error, from date: %q, to date: %q",
				c.DateTimeFrom, c.DateTimeTo),
		}
	}

	return ValidResult()
}
