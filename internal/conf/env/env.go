// Package env contains a function to load configuration from environment.
package env

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// Unmarshaler can be implemented to override the unmarshaling process.
type Unmarshaler interface {
	UnmarshalEnv(prefix string, v string) error
}

func envHasAtLeastAKeyWithPrefix(env map[string]string, prefix string) bool {
	for key := range env {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

func loadEnvInternal(env map[string]string, prefix string, rv reflect.Value) error {
	if rv.Kind() == reflect.Pointer {
		if !envHasAtLeastAKeyWithPrefix(env, prefix) {
			return nil
		}
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return loadEnvInternal(env, prefix, rv.Elem())
	}

	if u, ok := rv.Addr().Interface().(Unmarshaler); ok {
		if ev, ok := env[prefix]; ok {
			err := u.UnmarshalEnv(prefix, ev)
			if err != nil {
				return fmt.Errorf("%s: %w", prefix, err)
			}
		}
		return nil
	}

	switch rv.Kind() {
	case reflect.String:
		if ev, ok := env[prefix]; ok {
			rv.SetString(ev)
		}
		return nil

	case reflect.Int, reflect.Int32, reflect.Int64:
		if ev, ok := env[prefix]; ok {
			iv, err := strconv.ParseInt(ev, 10, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", prefix, err)
			}
			rv.SetInt(iv)
		}
		return nil

	case reflect.Uint, reflect.Uint32, reflect.Uint64:
		if ev, ok := env[prefix]; ok {
			iv, err := strconv.ParseUint(ev, 10, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", prefix, err)
			}
			rv.SetUint(iv)
		}
		return nil

	case reflect.Float64:
		if ev, ok := env[prefix]; ok {
			fv, err := strconv.ParseFloat(ev, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", prefix, err)
			}
			rv.SetFloat(fv)
		}
		return nil

	case reflect.Bool:
		if ev, ok := env[prefix]; ok {
			switch strings.ToLower(ev) {
			case "yes", "true":
				rv.SetBool(true)

			case "no", "false":
				rv.SetBool(false)

			default:
				return fmt.Errorf("%s: invalid value '%s'", prefix, ev)
			}
		}
		return nil

	case reflect.Struct:
		rt := rv.Type()

		for i := 0; i < rt.NumField(); i++ {
			jsonTag := strings.Split(rt.Field(i).Tag.Get("json"), ",")[0]

			// load only public fields
			if jsonTag == "" || jsonTag == "-" {
				continue
			}

			err := loadEnvInternal(env, prefix+"_"+strings.ToUpper(jsonTag), rv.Field(i))
			if err != nil {
				return err
			}
		}
		return nil

	case reflect.Slice:
		switch rv.Type().Elem().Kind() {
		case reflect.String:
			if ev, ok := env[prefix]; ok {
				if ev == "" {
					rv.Set(reflect.MakeSlice(rv.Type(), 0, 0))
				} else {
					vals := strings.Split(ev, ",")
					sv := reflect.MakeSlice(rv.Type(), len(vals), len(vals))
					for i, v := range vals {
						sv.Index(i).SetString(v)
					}
					rv.Set(sv)
				}
			}
			return nil

		case reflect.Struct:
			if ev, ok := env[prefix]; ok && ev == "" { // special case: empty list
				rv.Set(reflect.MakeSlice(rv.Type(), 0, 0))
				return nil
			}

			for i := 0; ; i++ {
				itemPrefix := prefix + "_" + strconv.FormatInt(int64(i), 10)
				if !envHasAtLeastAKeyWithPrefix(env, itemPrefix+"_") {
					break
				}

				// existing items are patched, missing ones are appended
				if i >= rv.Len() {
					rv.Set(reflect.Append(rv, reflect.Zero(rv.Type().Elem())))
				}

				err := loadEnvInternal(env, itemPrefix, rv.Index(i))
				if err != nil {
					return err
				}
			}
			return nil
		}
	}

	return fmt.Errorf("unsupported type: %v", rv.Type())
}

func loadWithEnv(env map[string]string, prefix string, v any) error {
	return loadEnvInternal(env, prefix, reflect.ValueOf(v).Elem())
}

func envToMap() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		tmp := strings.SplitN(kv, "=", 2)
		env[tmp[0]] = tmp[1]
	}
	return env
}

// Load loads the configuration from the environment.
func Load(prefix string, v any) error {
	return loadWithEnv(envToMap(), prefix, v)
}
