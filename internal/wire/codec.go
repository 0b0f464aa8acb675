package wire

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrReservedParam is returned by Encode when the caller supplies a
// parameter named "id". The id is allocated by the session transport
// and appended by Encode itself; a caller-supplied one is a bug in the
// caller, not a runtime protocol condition.
var ErrReservedParam = errors.New("wire: parameter name \"id\" is reserved")

// DecodeError reports a line that does not match the protocol grammar.
type DecodeError struct {
	Line   string
	Pos    int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("wire: decode %q at %d: %s", e.Line, e.Pos, e.Reason)
}

// Encode renders a command as one wire line:
//
//	name param1=value1 ... id=<id>\r\n
//
// Booleans render bare, integers decimal, lists bracketed, strings
// double-quoted with backslash escaping.
func Encode(cmd Command, id uint64) (string, error) {
	var sb strings.Builder
	sb.WriteString(cmd.Name)
	for _, p := range cmd.Params {
		if p.Name == "id" {
			return "", fmt.Errorf("%w (command %q)", ErrReservedParam, cmd.Name)
		}
		sb.WriteByte(' ')
		sb.WriteString(p.Name)
		sb.WriteByte('=')
		p.Value.render(&sb)
	}
	sb.WriteString(" id=")
	sb.WriteString(strconv.FormatUint(id, 10))
	sb.WriteString("\r\n")
	return sb.String(), nil
}

// DecodeLine parses one reply line into a command. The first token is
// the command name; each following token is a name=value pair. Value
// types are inferred by an ordered grammar match: boolean, integer,
// integer list, quoted string. A token matching none of the four is a
// hard *DecodeError rather than a silently partial command.
func DecodeLine(line string) (Command, error) {
	line = strings.TrimRight(line, "\r\n")
	d := &decoder{line: line}

	name := d.takeWord()
	if name == "" {
		return Command{}, d.fail("empty command name")
	}
	cmd := Command{Name: name}

	for !d.done() {
		if err := d.expect(' '); err != nil {
			return Command{}, err
		}
		pname := d.takeUntil('=')
		if pname == "" {
			return Command{}, d.fail("empty parameter name")
		}
		if err := d.expect('='); err != nil {
			return Command{}, err
		}
		v, err := d.value()
		if err != nil {
			return Command{}, err
		}
		cmd.Params = append(cmd.Params, Param{Name: pname, Value: v})
	}
	return cmd, nil
}

// DecodeReply splits a reply block on line terminators and decodes each
// non-empty line in order. Order matters downstream: the last command
// of a block carries the success/failure verdict.
func DecodeReply(raw string) ([]Command, error) {
	var cmds []Command
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		cmd, err := DecodeLine(line)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

type decoder struct {
	line string
	pos  int
}

func (d *decoder) done() bool { return d.pos >= len(d.line) }

func (d *decoder) fail(reason string) error {
	return &DecodeError{Line: d.line, Pos: d.pos, Reason: reason}
}

func (d *decoder) expect(c byte) error {
	if d.done() || d.line[d.pos] != c {
		return d.fail(fmt.Sprintf("expected %q", string(c)))
	}
	d.pos++
	return nil
}

// takeWord consumes up to the next space.
func (d *decoder) takeWord() string {
	start := d.pos
	for !d.done() && d.line[d.pos] != ' ' {
		d.pos++
	}
	return d.line[start:d.pos]
}

// takeUntil consumes up to (not including) the stop byte or a space.
func (d *decoder) takeUntil(stop byte) string {
	start := d.pos
	for !d.done() && d.line[d.pos] != stop && d.line[d.pos] != ' ' {
		d.pos++
	}
	return d.line[start:d.pos]
}

// value applies the ordered grammar match at the current position.
func (d *decoder) value() (Value, error) {
	if d.done() {
		return Value{}, d.fail("missing value")
	}
	switch c := d.line[d.pos]; {
	case c == '[':
		return d.intList()
	case c == '"':
		return d.quotedString()
	default:
		word := d.takeWord()
		if word == "true" {
			return Bool(true), nil
		}
		if word == "false" {
			return Bool(false), nil
		}
		n, err := strconv.ParseInt(word, 10, 64)
		if err != nil {
			d.pos -= len(word)
			return Value{}, d.fail(fmt.Sprintf("unrecognized value token %q", word))
		}
		return Int(n), nil
	}
}

func (d *decoder) intList() (Value, error) {
	d.pos++ // consume '['
	vs := []int64{}
	if !d.done() && d.line[d.pos] == ']' {
		d.pos++
		return IntList(vs...), nil
	}
	for {
		start := d.pos
		for !d.done() && d.line[d.pos] != ',' && d.line[d.pos] != ']' {
			d.pos++
		}
		if d.done() {
			return Value{}, d.fail("unterminated integer list")
		}
		n, err := strconv.ParseInt(d.line[start:d.pos], 10, 64)
		if err != nil {
			d.pos = start
			return Value{}, d.fail("malformed integer in list")
		}
		vs = append(vs, n)
		if d.line[d.pos] == ']' {
			d.pos++
			return IntList(vs...), nil
		}
		d.pos++ // consume ','
	}
}

func (d *decoder) quotedString() (Value, error) {
	d.pos++ // consume opening quote
	var sb strings.Builder
	for !d.done() {
		c := d.line[d.pos]
		switch c {
		case '\\':
			if d.pos+1 >= len(d.line) {
				return Value{}, d.fail("dangling escape")
			}
			d.pos++
			sb.WriteByte(d.line[d.pos])
		case '"':
			d.pos++
			return String(sb.String()), nil
		default:
			sb.WriteByte(c)
		}
		d.pos++
	}
	return Value{}, d.fail("unterminated string")
}
