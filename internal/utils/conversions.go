package utils

// ToStringSlice keeps the string elements of a decoded JSON array, the shape
// list-valued user metadata arrives in.
func ToStringSlice(values any) []string {
	switch vs := values.(type) {
	case []string:
		return append([]string(nil), vs...)
	case []any:
		out := make([]string, 0, len(vs))
		for _, v := range vs {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
