package terminal

import (
	"fmt"

	"brigade/internal/models"
)

// Role is the job a display terminal performs.
type Role int

const (
	RoleKitchen Role = iota
	RolePickup
	RoleFront
	RoleRecall
)

type profile struct {
	name  string
	query models.ListQuery
	// dropOn removes an order from the local list once it reaches this status.
	dropOn models.OrderStatus
	// readyTap is what tapping a ready item moves it to. Empty means ignore the tap.
	readyTap models.OrderStatus
}

var profiles = map[Role]profile{
	RoleKitchen: {
		name:   "kitchen",
		query:  models.ListQuery{Status: string(models.StatusPending)},
		dropOn: models.StatusReady,
	},
	RolePickup: {
		name:     "pickup",
		query:    models.ListQuery{Status: string(models.StatusReady), Status2: string(models.StatusPending)},
		dropOn:   models.StatusFulfilled,
		readyTap: models.StatusFulfilled,
	},
	RoleFront: {
		name:     "front",
		query:    models.ListQuery{Status: string(models.StatusPending)},
		readyTap: models.StatusReady,
	},
	RoleRecall: {
		name:     "recall",
		query:    models.ListQuery{Status: models.ListAll, OrderBy: "updated_at"},
		readyTap: models.StatusReady,
	},
}

func (r Role) String() string {
	if p, ok := profiles[r]; ok {
		return p.name
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Query is the list filter the role refreshes with.
func (r Role) Query() models.ListQuery {
	return profiles[r].query
}

// ParseRole maps a role name to its Role.
func ParseRole(name string) (Role, error) {
	for r, p := range profiles {
		if p.name == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown terminal role %q", name)
}
