package store

import "time"

// Field accessors used by the domain packages when decoding documents. Each
// returns the zero value when the field is missing or has a different type.

func (d Document) String(field string) string {
	v, _ := d.Data[field].(string)
	return v
}

func (d Document) Bool(field string) bool {
	v, _ := d.Data[field].(bool)
	return v
}

func (d Document) Strings(field string) []string {
	switch v := d.Data[field].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (d Document) Time(field string) (time.Time, bool) {
	switch v := d.Data[field].(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v != nil {
			return *v, true
		}
	}
	return time.Time{}, false
}

func (d Document) Map(field string) map[string]interface{} {
	v, _ := d.Data[field].(map[string]interface{})
	return v
}
