package models

// Role decides which commands an operator may issue.
type Role string

const (
	// RoleAdmin is the installer: resync, broker provisioning and accounts.
	RoleAdmin Role = "admin"
	// RoleOperator drives the cooler: target, power and status.
	RoleOperator Role = "operator"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleOperator }

// Permits reports whether r may issue commands of kind k. Force commands
// overwrite the shadow without pressing anything and broker changes can cut
// the controller off, so both are admin only.
func (r Role) Permits(k CommandKind) bool {
	switch k {
	case CommandInitTarget, CommandInitPower, CommandResetConfig, CommandProvisionBroker:
		return r == RoleAdmin
	default:
		return r.Valid()
	}
}

// Operator is an HTTP API account.
type Operator struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	Role         Role   `json:"role"`
	PasswordHash string `json:"-"`
}

// Identity is what a verified access token carries. The zero value is an
// anonymous caller.
type Identity struct {
	OperatorID int
	Role       Role
}
