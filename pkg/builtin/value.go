package builtin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/calvinalkan/fdio/pkg/fileio"
)

// Value is a script value: nil, bool, int, string, *Object or *Class.
type Value = any

// Object is an instance of IO or one of its subclasses. The handle is nil
// until initialize has run.
type Object struct {
	class  *Class
	handle *fileio.Handle
}

// Class returns the object's class.
func (o *Object) Class() *Class {
	return o.class
}

// Handle returns the descriptor state behind the object, nil before
// initialize.
func (o *Object) Handle() *fileio.Handle {
	return o.handle
}

// Truthy reports whether v counts as true in a condition: everything but
// nil and false.
func Truthy(v Value) bool {
	return v != nil && v != false
}

// ToS renders v the way to_s does.
func ToS(v Value) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return Inspect(v)
	}
}

// Inspect renders v the way inspect does.
func Inspect(v Value) string {
	switch v := v.(type) {
	case nil:
		return "nil"
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case string:
		return inspectString(v)
	case *Class:
		return v.Name()
	case *Object:
		if v.handle == nil || v.handle.Closed() {
			return fmt.Sprintf("#<%s:(closed)>", v.class.Name())
		}

		return fmt.Sprintf("#<%s:fd %d>", v.class.Name(), v.handle.Fileno())
	default:
		return fmt.Sprintf("#<%T>", v)
	}
}

func inspectString(s string) string {
	var b strings.Builder

	b.WriteByte('"')

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case 0x1b:
			b.WriteString(`\e`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, `\x%02X`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}

	b.WriteByte('"')

	return b.String()
}

// typeName is the class name used in argument errors.
func typeName(v Value) string {
	switch v := v.(type) {
	case nil:
		return "nil"
	case bool:
		if v {
			return "true"
		}

		return "false"
	case int:
		return "Integer"
	case string:
		return "String"
	case *Class:
		if v.module {
			return "Module"
		}

		return "Class"
	case *Object:
		return v.class.Name()
	default:
		return fmt.Sprintf("%T", v)
	}
}
