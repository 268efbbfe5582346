package conflict

import "fmt"

type errStatus int

func (e errStatus) Error() string { return fmt.Sprintf("model service returned status %d", int(e)) }
