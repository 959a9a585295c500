// Package assert panics on constructor preconditions that only a
// programming mistake can violate.
package assert

import (
	"fmt"
	"reflect"
)

// NotNil panics on nil, including typed nil pointers stored in an interface.
func NotNil(value any) {
	if value == nil {
		panic("assert: unexpected nil value")
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		if v.IsNil() {
			panic(fmt.Sprintf("assert: unexpected nil %s", v.Type()))
		}
	}
}

func NotEmptyStr(str string) {
	if str == "" {
		panic("assert: unexpected empty string")
	}
}

func NotNegative(n int) {
	if n < 0 {
		panic(fmt.Sprintf("assert: unexpected negative number %d", n))
	}
}
