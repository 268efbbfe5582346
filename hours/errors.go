package hours

import "errors"

var (
	errNoMatch  = errors.New("no place matched the search")
	errNoPeriod = errors.New("no opening period for the target weekday")
)
