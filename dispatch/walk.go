package dispatch

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/BX-D/bridge/validate"
	"github.com/BX-D/bridge/wireval"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// resolve walks keyChain from root property-by-property and returns the
// final value, for an await request.
func resolve(root any, keyChain []string) (any, error) {
	cur := reflect.ValueOf(root)
	for _, key := range keyChain {
		next, err := step(cur, key)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	if !cur.IsValid() {
		return nil, nil
	}
	return cur.Interface(), nil
}

// invokeChain walks all but the last key chain segment to find the
// receiver, then invokes the final segment as a method with args — for
// a call or construct request. An empty key chain means root itself is
// the callable: this is how a bare wrapped function (e.g. a callback
// argument re-exported on its own sub-channel) gets called, since it was
// never reached through a Get.
func invokeChain(root any, keyChain []string, args []any) (any, error) {
	if len(keyChain) == 0 {
		receiver := deref(reflect.ValueOf(root))
		if !receiver.IsValid() || receiver.Kind() != reflect.Func {
			return nil, newFault(TypeError, "root value is not callable")
		}
		return invokeValue(receiver, "<callback>", args)
	}
	cur := reflect.ValueOf(root)
	for _, key := range keyChain[:len(keyChain)-1] {
		next, err := step(cur, key)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return invoke(cur, keyChain[len(keyChain)-1], args)
}

// step resolves one property of cur, rejecting reserved key substrings
// the same way validate.Request does on the envelope as a whole — this
// is a second, independent check at the point where reflection actually
// touches the value.
func step(cur reflect.Value, key string) (reflect.Value, error) {
	if err := validate.Key(key); err != nil {
		return reflect.Value{}, &Fault{Kind: UnsafeKeyError, Err: err}
	}
	cur = deref(cur)
	if !cur.IsValid() {
		return reflect.Value{}, newFault(MissingPropertyError, "cannot read property %q of nil", key)
	}
	switch cur.Kind() {
	case reflect.Struct:
		if f := cur.FieldByName(key); f.IsValid() {
			if sf, ok := cur.Type().FieldByName(key); ok && sf.PkgPath != "" {
				return reflect.Value{}, newFault(MissingPropertyError, "property %q is not exported", key)
			}
			return f, nil
		}
		if m := cur.MethodByName(key); m.IsValid() {
			return m, nil
		}
		if cur.CanAddr() {
			if m := cur.Addr().MethodByName(key); m.IsValid() {
				return m, nil
			}
		}
		return reflect.Value{}, newFault(MissingPropertyError, "no property %q", key)
	case reflect.Map:
		v := cur.MapIndex(reflect.ValueOf(key))
		if !v.IsValid() {
			return reflect.Value{}, newFault(MissingPropertyError, "no key %q", key)
		}
		if v.Kind() == reflect.Interface {
			v = v.Elem()
		}
		return v, nil
	default:
		return reflect.Value{}, newFault(MissingPropertyError, "cannot read property %q of %s", key, cur.Kind())
	}
}

func deref(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// invoke resolves methodName on receiver (or, if receiver is itself a
// func value — the keyChain pointed straight at a wrapped callback —
// calls it directly) and runs it with args, coercing each argument to
// the method's declared parameter type.
func invoke(receiver reflect.Value, methodName string, args []any) (result any, err error) {
	if err := validate.Key(methodName); err != nil {
		return nil, &Fault{Kind: UnsafeKeyError, Err: err}
	}
	receiver = deref(receiver)
	if !receiver.IsValid() {
		return nil, newFault(MissingPropertyError, "cannot call %q on nil", methodName)
	}

	var method reflect.Value
	switch {
	case receiver.Kind() == reflect.Func:
		method = receiver
	case receiver.Kind() == reflect.Struct:
		if f := receiver.FieldByName(methodName); f.IsValid() && f.Kind() == reflect.Func {
			if sf, ok := receiver.Type().FieldByName(methodName); ok && sf.PkgPath == "" {
				method = f
			}
		}
		if !method.IsValid() {
			method = receiver.MethodByName(methodName)
		}
		if !method.IsValid() && receiver.CanAddr() {
			method = receiver.Addr().MethodByName(methodName)
		}
		if !method.IsValid() {
			return nil, newFault(MissingPropertyError, "no method %q", methodName)
		}
	default:
		method = receiver.MethodByName(methodName)
		if !method.IsValid() && receiver.CanAddr() {
			method = receiver.Addr().MethodByName(methodName)
		}
		if !method.IsValid() {
			return nil, newFault(MissingPropertyError, "no method %q", methodName)
		}
	}

	return invokeValue(method, methodName, args)
}

// invokeValue calls a resolved, callable reflect.Value with args,
// coercing each argument to the method's declared parameter type. name
// is used only to label errors — for the empty-key-chain case there is
// no property name, and invokeChain passes a placeholder.
func invokeValue(method reflect.Value, name string, args []any) (result any, err error) {
	mt := method.Type()
	if !mt.IsVariadic() && len(args) != mt.NumIn() {
		return nil, newFault(TypeError, "%s expects %d arguments, got %d", name, mt.NumIn(), len(args))
	}
	if mt.IsVariadic() && len(args) < mt.NumIn()-1 {
		return nil, newFault(TypeError, "%s expects at least %d arguments, got %d", name, mt.NumIn()-1, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		want := mt.In(i)
		if mt.IsVariadic() && i >= mt.NumIn()-1 {
			want = mt.In(mt.NumIn() - 1).Elem()
		}
		v, cerr := coerce(a, want)
		if cerr != nil {
			return nil, newFault(TypeError, "argument %d of %s: %s", i, name, cerr)
		}
		in[i] = v
	}

	defer func() {
		if r := recover(); r != nil {
			err = newFault(UserError, "panic calling %q: %v", name, r)
		}
	}()
	return unpackResults(method.Call(in))
}

// unpackResults applies the same (value, error) / (error) / (value)
// conventions the rest of the Go ecosystem uses for fallible calls.
func unpackResults(out []reflect.Value) (any, error) {
	if len(out) == 0 {
		return nil, nil
	}
	last := out[len(out)-1]
	if last.Type().Implements(errType) {
		if !last.IsNil() {
			return nil, newFault(UserError, "%s", last.Interface().(error).Error())
		}
		out = out[:len(out)-1]
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	default:
		vals := make([]any, len(out))
		for i, v := range out {
			vals[i] = v.Interface()
		}
		return vals, nil
	}
}

// coerce adapts a decoded wire argument (typically a JSON-shaped any:
// float64, string, bool, []any, map[string]any, or nil) to the
// reflect.Type a method parameter actually declares.
func coerce(v any, want reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(want), nil
	}
	if want.Kind() == reflect.Func {
		if callable, ok := v.(wireval.Callable); ok {
			return makeRemoteFunc(callable, want), nil
		}
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(want) {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(want) {
		switch want.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64, reflect.String:
			return rv.Convert(want), nil
		}
	}
	if want.Kind() == reflect.Struct || want.Kind() == reflect.Ptr || want.Kind() == reflect.Slice || want.Kind() == reflect.Map {
		raw, merr := json.Marshal(v)
		if merr == nil {
			target := reflect.New(want)
			if json.Unmarshal(raw, target.Interface()) == nil {
				return target.Elem(), nil
			}
		}
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", v, want)
}

// makeRemoteFunc adapts a wrapped callback argument to the concrete Go
// func type an exposed method's signature declares, so business code can
// call it exactly like any other Go function — the server-side decode
// that installs a sub-proxy underneath it stays invisible from inside
// the handler.
func makeRemoteFunc(callable wireval.Callable, want reflect.Type) reflect.Value {
	return reflect.MakeFunc(want, func(in []reflect.Value) []reflect.Value {
		args := make([]any, len(in))
		for i, a := range in {
			args[i] = a.Interface()
		}
		result, err := callable.CallRemote(args)
		return packRemoteResult(result, err, want)
	})
}

// packRemoteResult shapes a CallRemote result/error pair into the output
// values want's signature requires, coercing each value slot the same
// way an ordinary argument is coerced and zeroing anything it can't fill.
func packRemoteResult(result any, callErr error, want reflect.Type) []reflect.Value {
	numOut := want.NumOut()
	out := make([]reflect.Value, numOut)
	hasErrOut := numOut > 0 && want.Out(numOut-1) == errType
	valueOuts := numOut
	if hasErrOut {
		valueOuts--
	}

	if callErr != nil {
		for i := 0; i < valueOuts; i++ {
			out[i] = reflect.Zero(want.Out(i))
		}
		if hasErrOut {
			out[numOut-1] = reflect.ValueOf(callErr)
		}
		return out
	}

	results := []any{result}
	if valueOuts > 1 {
		if arr, ok := result.([]any); ok {
			results = arr
		}
	}
	for i := 0; i < valueOuts; i++ {
		var v any
		if i < len(results) {
			v = results[i]
		}
		cv, cerr := coerce(v, want.Out(i))
		if cerr != nil {
			cv = reflect.Zero(want.Out(i))
		}
		out[i] = cv
	}
	if hasErrOut {
		out[numOut-1] = reflect.Zero(errType)
	}
	return out
}
