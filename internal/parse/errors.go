package parse

import "fmt"

// Expected formats shown to the user on a failed parse.
const (
	ExpectedDate     = "a date like YYYY-MM-DD or DD/MM/YYYY (or today/tomorrow)"
	ExpectedDateTime = "a date and time like YYYY-MM-DD HH:MM or DD/MM/YYYY HH:MM"
	ExpectedQuantity = "a whole number, e.g. 123456"
	ExpectedCurrency = "an amount with at most two decimals, e.g. 120.50"
)

// Error reports input that could not be parsed and the format that
// would have been accepted.
type Error struct {
	Input    string
	Expected string
}

func (e *Error) Error() string {
	return fmt.Sprintf("cannot parse %q: expected %s", e.Input, e.Expected)
}
