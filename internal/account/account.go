// Package account provides the domain operations on a voice server's
// account list: login handshake, enumeration, existence checks, and
// creation with duplicate protection.
package account

import "fmt"

// UserType is the server-side account class.
type UserType int

const (
	TypeNone UserType = iota
	TypeDefault
	TypeAdmin
)

func (t UserType) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeDefault:
		return "default"
	case TypeAdmin:
		return "admin"
	default:
		return fmt.Sprintf("usertype(%d)", int(t))
	}
}

// ParseUserType maps a config/CLI word to a user type.
func ParseUserType(s string) (UserType, error) {
	switch s {
	case "none", "":
		return TypeNone, nil
	case "default":
		return TypeDefault, nil
	case "admin":
		return TypeAdmin, nil
	default:
		return TypeNone, fmt.Errorf("account: unknown user type %q", s)
	}
}

// Rights is the server's permission bitmask.
type Rights uint32

const (
	RightChannelJoin Rights = 1 << iota
	RightChannelCreate
	RightChannelAdmin
	RightVoiceSend
	RightTextSend
)

// DefaultRights is what a self-registered account gets.
const DefaultRights = RightChannelJoin | RightVoiceSend | RightTextSend

// Account is an immutable account value, both the caller's own session
// identity and any remote account under management. Field validity is
// the constructor's caller's responsibility (see internal/validate).
type Account struct {
	Username string
	Password string
	Nickname string
	Type     UserType
	Rights   Rights
}
