// Package validate holds the input predicates consulted before an
// account value is ever constructed. A failing predicate is a caller
// input problem, never a protocol error.
package validate

import "regexp"

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,30}$`)
	passwordRe = regexp.MustCompile(`^[\x21-\x7e]{6,64}$`)
	nicknameRe = regexp.MustCompile(`^[\x20-\x7e]{3,30}$`)
)

// Username accepts 3-30 word characters, dots, and dashes.
func Username(s string) bool { return usernameRe.MatchString(s) }

// Password accepts 6-64 printable non-space characters.
func Password(s string) bool { return passwordRe.MatchString(s) }

// Nickname accepts 3-30 printable characters, spaces allowed.
func Nickname(s string) bool { return nicknameRe.MatchString(s) }
