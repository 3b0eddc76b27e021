package services

import "github.com/Kariqs/farmart-api/models"

// Caller is the authenticated identity an operation runs on behalf of.
type Caller struct {
	ID   uint
	Role models.Role
}

func (c Caller) IsBuyer() bool  { return c.Role == models.RoleBuyer }
func (c Caller) IsFarmer() bool { return c.Role == models.RoleFarmer }

func RequireBuyer(caller Caller) error {
	if !caller.IsBuyer() {
		return AccessDenied("Only buyers can perform this action")
	}
	return nil
}

func RequireFarmer(caller Caller) error {
	if !caller.IsFarmer() {
		return AccessDenied("Only farmers can perform this action")
	}
	return nil
}

// authorizeOrder checks that caller is related to order: the buying account,
// or a farmer owning at least one line of it.
func authorizeOrder(caller Caller, order *models.Order) error {
	switch caller.Role {
	case models.RoleBuyer:
		if order.BuyerID == caller.ID {
			return nil
		}
	case models.RoleFarmer:
		if order.HasFarmer(caller.ID) {
			return nil
		}
	}
	return AccessDenied("You do not have access to this order")
}
