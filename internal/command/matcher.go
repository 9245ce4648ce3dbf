package command

import (
	"fmt"
	"slices"
)

// Argv matches a Command by executable and arguments, ignoring Timeout.
// It satisfies gomock.Matcher so tests can script a Runner by invocation.
type Argv []string

func (a Argv) Matches(x interface{}) bool {
	c, ok := x.(Command)
	if !ok || len(a) == 0 {
		return false
	}

	return c.Path == a[0] && slices.Equal(c.Args, []string(a[1:]))
}

func (a Argv) String() string {
	return fmt.Sprintf("command %q", []string(a))
}
