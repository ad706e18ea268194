package slug

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// MaxLength is the longest slug stored for faculties and syllabus rows.
const MaxLength = 100

var (
	reNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
	reValid    = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// Make folds s to [a-z0-9-]: lowercase, strip diacritics, collapse every
// other run of characters into one hyphen and trim hyphens at both ends.
// The result may be empty.
func Make(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}

	out := reNonAlnum.ReplaceAllString(b.String(), "-")
	out = strings.Trim(out, "-")

	if len(out) > MaxLength {
		out = strings.Trim(out[:MaxLength], "-")
	}
	return out
}

// IsValid reports whether s only contains lowercase letters, digits and hyphens.
func IsValid(s string) bool {
	return reValid.MatchString(s)
}

// EnsureUnique returns base, or base with a "-2", "-3"... suffix, such that
// no row in table has it in column (compared case-insensitively).
func EnsureUnique(ctx context.Context, db *gorm.DB, table, column, base string) (string, error) {
	candidate := base
	for i := 2; i < 1000; i++ {
		var count int64
		err := db.WithContext(ctx).
			Table(table).
			Where(fmt.Sprintf("LOWER(%s) = ?", column), strings.ToLower(candidate)).
			Count(&count).Error
		if err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}

		suffix := fmt.Sprintf("-%d", i)
		trimmed := base
		if len(trimmed)+len(suffix) > MaxLength {
			trimmed = strings.Trim(trimmed[:MaxLength-len(suffix)], "-")
		}
		candidate = trimmed + suffix
	}
	return "", fmt.Errorf("no free slug for %q", base)
}
