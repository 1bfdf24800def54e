package gen

import (
	"strings"

	. "gopkg.in/check.v1"
)

type containsChecker struct {
	*CheckerInfo
}

// Contains checks that the obtained string holds the expected substring.
var Contains Checker = &containsChecker{
	&CheckerInfo{Name: "Contains", Params: []string{"obtained", "substring"}},
}

func (checker *containsChecker) Check(params []any, names []string) (result bool, error string) {
	obtained, ok := params[0].(string)
	if !ok {
		return false, "obtained value is not a string"
	}
	substring, ok := params[1].(string)
	if !ok {
		return false, "substring is not a string"
	}
	return strings.Contains(obtained, substring), ""
}
