package builtin

import "fmt"

// Scan unpacks args according to format, one target per specifier:
//
//	i  *int      integer
//	S  *string   string
//	o  *Value    any value
//	b  *bool     truthiness of any value
//	*  *[]Value  all remaining arguments
//	|  marks the following specifiers as optional
//
// Optional targets keep their value when the argument is missing. A nil
// passed for an optional i or S also leaves the target alone, so callers
// set defaults before scanning. Arity mismatches raise ArgumentError, type
// mismatches TypeError.
func Scan(args []Value, format string, targets ...any) error {
	required, optional, rest := arity(format)

	if len(args) < required || (!rest && len(args) > required+optional) {
		return raise("ArgumentError", "wrong number of arguments (given %d, expected %s)",
			len(args), expected(required, optional, rest))
	}

	ti, ai := 0, 0
	opt := false

	for _, verb := range format {
		if verb == '|' {
			opt = true

			continue
		}

		target := targets[ti]
		ti++

		if verb == '*' {
			*target.(*[]Value) = append([]Value(nil), args[ai:]...)
			ai = len(args)

			continue
		}

		if ai >= len(args) {
			continue
		}

		arg := args[ai]
		ai++

		switch verb {
		case 'i':
			if arg == nil && opt {
				continue
			}

			n, ok := arg.(int)
			if !ok {
				return raise("TypeError", "no implicit conversion of %s into Integer", typeName(arg))
			}

			*target.(*int) = n
		case 'S':
			if arg == nil && opt {
				continue
			}

			s, ok := arg.(string)
			if !ok {
				return raise("TypeError", "no implicit conversion of %s into String", typeName(arg))
			}

			*target.(*string) = s
		case 'o':
			*target.(*Value) = arg
		case 'b':
			*target.(*bool) = Truthy(arg)
		default:
			panic(fmt.Sprintf("builtin: unknown scan specifier %q", verb))
		}
	}

	return nil
}

func arity(format string) (required, optional int, rest bool) {
	opt := false

	for _, verb := range format {
		switch {
		case verb == '|':
			opt = true
		case verb == '*':
			rest = true
		case opt:
			optional++
		default:
			required++
		}
	}

	return required, optional, rest
}

func expected(required, optional int, rest bool) string {
	switch {
	case rest:
		return fmt.Sprintf("%d+", required)
	case optional > 0:
		return fmt.Sprintf("%d..%d", required, required+optional)
	default:
		return fmt.Sprint(required)
	}
}
