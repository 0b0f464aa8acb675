// Package wire implements the vendor's line-oriented tag=value admin
// protocol: encoding commands to wire lines and decoding reply lines
// back into typed commands. It performs no I/O.
package wire

// Param is one name=value pair. Order within a command is significant
// and preserved through encode/decode.
type Param struct {
	Name  string
	Value Value
}

// Command is one protocol message, either outbound (request) or one
// decoded line of a reply block.
type Command struct {
	Name   string
	Params []Param
}

// NewCommand builds a command with the given parameters in order.
func NewCommand(name string, params ...Param) Command {
	return Command{Name: name, Params: params}
}

// P is shorthand for building a parameter.
func P(name string, v Value) Param { return Param{Name: name, Value: v} }

// Get returns the first parameter with the given name.
func (c Command) Get(name string) (Value, bool) {
	for _, p := range c.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return Value{}, false
}

// GetInt returns the named parameter as an integer, if present and typed so.
func (c Command) GetInt(name string) (int64, bool) {
	v, ok := c.Get(name)
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

// GetString returns the named parameter as a string, if present and typed so.
func (c Command) GetString(name string) (string, bool) {
	v, ok := c.Get(name)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// Equal reports deep equality of two commands, including parameter order.
func (c Command) Equal(o Command) bool {
	if c.Name != o.Name || len(c.Params) != len(o.Params) {
		return false
	}
	for i := range c.Params {
		if c.Params[i].Name != o.Params[i].Name || !c.Params[i].Value.Equal(o.Params[i].Value) {
			return false
		}
	}
	return true
}
