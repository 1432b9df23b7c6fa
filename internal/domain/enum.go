package domain

import "fmt"

func enumName(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("unknown(%d)", i)
	}
	return names[i]
}

func marshalEnum(names []string, i int, kind string) ([]byte, error) {
	if i < 0 || i >= len(names) {
		return nil, marshalErr(kind, i)
	}
	return []byte(names[i]), nil
}

func parseEnum(names []string, name, kind string) (int, error) {
	for i, n := range names {
		if n == name {
			return i, nil
		}
	}
	return 0, parseErr(kind, name)
}

func marshalErr(kind string, i int) error {
	return fmt.Errorf("invalid %s %d", kind, i)
}

func parseErr(kind, name string) error {
	return fmt.Errorf("unknown %s %q", kind, name)
}
