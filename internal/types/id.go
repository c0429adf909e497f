// README: Common identifier type used across modules.
package types

type ID string

func (id ID) String() string { return string(id) }
