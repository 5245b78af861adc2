package access

import "strings"

// TopRole is the highest-privileged canonical role. Its all-true
// profile is a fixed override, not configuration, so an edited
// permission store can never lock administrators out.
const TopRole = "admin"

// roleAliases folds historical labels onto canonical role keys. The
// identity store has accumulated years of casing and naming variants;
// lookups go through foldRole so "Team Lead", "TEAMLEAD" and
// "team-lead" all land on the same key.
var roleAliases = map[string]string{
	"admin":           TopRole,
	"administrator":   TopRole,
	"superadmin":      TopRole,
	"super_admin":     TopRole,
	"manager":         "manager",
	"project_manager": "manager",
	"pm":              "manager",
	"team_lead":       "team_lead",
	"teamlead":        "team_lead",
	"lead":            "team_lead",
	"developer":       "developer",
	"dev":             "developer",
	"engineer":        "developer",
	"tester":          "tester",
	"qa":              "tester",
	"qa_engineer":     "tester",
	"viewer":          "viewer",
	"guest":           "viewer",
	"observer":        "viewer",
}

// roleLevels ranks canonical roles for relative comparisons only. A
// level is never an absolute permission source; unranked roles are 0.
var roleLevels = map[string]int{
	TopRole:     100,
	"manager":   70,
	"team_lead": 50,
	"developer": 40,
	"tester":    30,
	"viewer":    20,
}

func foldRole(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

// NormalizeRole maps a free-form role label to its canonical key.
// Total and pure: unmapped labels pass through unchanged.
func NormalizeRole(label string) string {
	if canonical, ok := roleAliases[foldRole(label)]; ok {
		return canonical
	}
	return label
}

// LevelOf returns the hierarchy rank for a role label, falling back
// from the canonical key to the raw label to zero. Never errors;
// absence degrades to the lowest trust level.
func LevelOf(label string) int {
	if lvl, ok := roleLevels[NormalizeRole(label)]; ok {
		return lvl
	}
	if lvl, ok := roleLevels[label]; ok {
		return lvl
	}
	return 0
}

// IsTopRole reports whether a label normalizes to the top role.
func IsTopRole(label string) bool {
	return NormalizeRole(label) == TopRole
}
