package itemservice

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/starford/lagu/internal/apperr"
)

const maxTitleLen = 500

// normalizeTitle trims leading/trailing whitespace and collapses internal
// whitespace runs to a single space. Empty and over-length titles are
// rejected.
func normalizeTitle(title string) (string, error) {
	normalized := strings.Join(strings.Fields(title), " ")
	if normalized == "" {
		return "", fmt.Errorf("title must not be empty: %w", apperr.ErrInvalidRequest)
	}
	if utf8.RuneCountInString(normalized) > maxTitleLen {
		return "", fmt.Errorf("title exceeds %d characters: %w", maxTitleLen, apperr.ErrInvalidRequest)
	}
	return normalized, nil
}

// validateDate rejects values that are not real calendar dates. time.Parse
// is calendar-strict, so 2024-02-30 fails even though it matches the
// pattern.
func validateDate(date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid date %q: %w", date, apperr.ErrInvalidRequest)
	}
	return nil
}

// validateSessionID rejects explicit session ids that do not match the
// timestamp filename format, so caller-supplied ids always round-trip
// through the filename scheme.
func validateSessionID(id string) error {
	if _, err := time.Parse("2006-01-02-15.04.05.000", id); err != nil {
		return fmt.Errorf("invalid session id %q: %w", id, apperr.ErrInvalidRequest)
	}
	return nil
}

func validateDates(dates ...string) error {
	for _, d := range dates {
		if d == "" {
			continue
		}
		if err := validateDate(d); err != nil {
			return err
		}
	}
	return nil
}

// cleanTags trims each tag, drops empties, and deduplicates preserving
// first-seen order.
func cleanTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// mergeRelated deduplicates the union of the related lists, preserving
// first-seen order across them.
func mergeRelated(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, list := range lists {
		for _, ref := range list {
			ref = strings.TrimSpace(ref)
			if ref == "" {
				continue
			}
			if _, dup := seen[ref]; dup {
				continue
			}
			seen[ref] = struct{}{}
			out = append(out, ref)
		}
	}
	return out
}
