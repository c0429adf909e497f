// README: Actor identifies who performs a mutation; threaded explicitly, never ambient.
package types

type Role string

const (
	RoleDriver     Role = "driver"
	RoleDispatcher Role = "dispatcher"
	RoleAdmin      Role = "admin"
	RoleSystem     Role = "system"
)

type Actor struct {
	ID   ID
	Role Role
}

// CanOverride reports whether the actor may bypass the transition adjacency
// check (administrative definitive-return escape hatch).
func (a Actor) CanOverride() bool {
	return a.Role == RoleAdmin
}
