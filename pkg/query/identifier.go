package query

import (
	"regexp"
	"strings"

	"github.com/lib/pq"

	"library-backend/pkg/apperror"
)

// identifierPattern: letters, digits, underscore, at most one dot separator
// ("column" hoặc "alias.column"). Must not start with a digit.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidateIdentifier is the only gate between configuration strings and SQL
// text. Column, table and alias names cannot be bound as parameters, so
// anything that does not match the allow-list is a configuration error.
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return apperror.Configuration("invalid SQL identifier %q", name)
	}
	return nil
}

// QuoteIdentifier validates name and returns it quoted part by part,
// e.g. b.stock → "b"."stock".
func QuoteIdentifier(name string) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", err
	}

	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = pq.QuoteIdentifier(part)
	}
	return strings.Join(parts, "."), nil
}

// QuoteSelectItem is QuoteIdentifier plus the two star forms allowed in a
// select list: "*" and "alias.*".
func QuoteSelectItem(item string) (string, error) {
	if item == "*" {
		return item, nil
	}
	if prefix, ok := strings.CutSuffix(item, ".*"); ok {
		quoted, err := QuoteIdentifier(prefix)
		if err != nil {
			return "", err
		}
		if strings.Contains(prefix, ".") {
			return "", apperror.Configuration("invalid select item %q", item)
		}
		return quoted + ".*", nil
	}
	return QuoteIdentifier(item)
}
