package entities

import "sort"

// roleDistributions is keyed by total character count: human players plus
// the one AI adversary, which always holds the shapeshifter seat. Harder
// roles only enter the table as the table grows.
var roleDistributions = map[int][]Role{
	3: {RoleShapeshifter, RoleSeer, RoleVillager},
	4: {RoleShapeshifter, RoleSeer, RoleHealer, RoleVillager},
	5: {RoleShapeshifter, RoleSeer, RoleHealer, RoleHunter, RoleVillager},
	6: {RoleShapeshifter, RoleSeer, RoleHealer, RoleHunter, RoleVillager, RoleVillager},
	7: {RoleShapeshifter, RoleSeer, RoleHealer, RoleHunter, RoleBodyguard, RoleVillager, RoleVillager},
	8: {RoleShapeshifter, RoleSeer, RoleHealer, RoleHunter, RoleBodyguard, RoleJester, RoleDrunk, RoleVillager},
}

// RoleDistribution returns the role list for the given total character
// count, or false when no game of that size is defined. The slice is a
// fresh copy; callers may reorder or rewrite it.
func RoleDistribution(total int) ([]Role, bool) {
	roles, ok := roleDistributions[total]
	if !ok {
		return nil, false
	}
	out := make([]Role, len(roles))
	copy(out, roles)
	return out, true
}

// SupportedTotals lists the character counts with a defined distribution,
// in ascending order.
func SupportedTotals() []int {
	totals := make([]int, 0, len(roleDistributions))
	for total := range roleDistributions {
		totals = append(totals, total)
	}
	sort.Ints(totals)
	return totals
}
