package config

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Environ renders every option as a FORMULALAB_* variable so a child process
// calling FromEnv rebuilds the same configuration.
//
// Keys follow the koanf tags with "__" as the nesting separator. Slices are
// comma-joined and durations use time.Duration notation. A nil section is
// left out and falls back to its defaults in the child.
func (c *Config) Environ() []string {
	vars := map[string]string{}
	flatten(reflect.ValueOf(c).Elem(), "", vars)

	out := make([]string, 0, len(vars))
	for key, value := range vars {
		out = append(out, EnvPrefix+key+"="+value)
	}
	sort.Strings(out)
	return out
}

func flatten(v reflect.Value, prefix string, vars map[string]string) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("koanf")
		if tag == "" || tag == "-" || !field.IsExported() {
			continue
		}
		key := prefix + strings.ToUpper(tag)

		fv := v.Field(i)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}
		if fv.Kind() == reflect.Struct {
			flatten(fv, key+"__", vars)
			continue
		}
		vars[key] = formatValue(fv)
	}
}

func formatValue(v reflect.Value) string {
	if v.Type() == durationType {
		return time.Duration(v.Int()).String()
	}

	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case reflect.Slice:
		parts := make([]string, v.Len())
		for i := range parts {
			parts[i] = formatValue(v.Index(i))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v.Interface())
	}
}
