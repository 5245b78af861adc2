package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Capability names a single boolean permission in a profile.
type Capability string

const (
	CapCreate             Capability = "create"
	CapEdit               Capability = "edit"
	CapDelete             Capability = "delete"
	CapComment            Capability = "comment"
	CapAssign             Capability = "assign"
	CapChangeStatus       Capability = "changeStatus"
	CapArchive            Capability = "archive"
	CapViewReports        Capability = "viewReports"
	CapManageProjects     Capability = "manageProjects"
	CapExport             Capability = "export"
	CapAccessSettings     Capability = "accessSettings"
	CapManageTaskSettings Capability = "manageTaskSettings"
	CapViewAll            Capability = "viewAll"
)

// View scopes control the breadth of tasks a role may see.
const (
	ScopeAll          = "all"
	ScopeProject      = "project"
	ScopeAssignedOnly = "assigned_only"
)

// PermissionProfile is the typed form of a role's capability set.
// A zero value is the most restrictive profile: everything false,
// assigned-only visibility.
type PermissionProfile struct {
	Create             bool   `yaml:"create" json:"create"`
	Edit               bool   `yaml:"edit" json:"edit"`
	Delete             bool   `yaml:"delete" json:"delete"`
	Comment            bool   `yaml:"comment" json:"comment"`
	Assign             bool   `yaml:"assign" json:"assign"`
	ChangeStatus       bool   `yaml:"change_status" json:"change_status"`
	Archive            bool   `yaml:"archive" json:"archive"`
	ViewReports        bool   `yaml:"view_reports" json:"view_reports"`
	ManageProjects     bool   `yaml:"manage_projects" json:"manage_projects"`
	Export             bool   `yaml:"export" json:"export"`
	AccessSettings     bool   `yaml:"access_settings" json:"access_settings"`
	ManageTaskSettings bool   `yaml:"manage_task_settings" json:"manage_task_settings"`
	ViewAll            bool   `yaml:"view_all" json:"view_all"`
	ViewScope          string `yaml:"view_scope" json:"view_scope"`
}

// Allows reports whether the profile grants a capability. Unknown
// capabilities are false, never an error.
func (p PermissionProfile) Allows(c Capability) bool {
	switch c {
	case CapCreate:
		return p.Create
	case CapEdit:
		return p.Edit
	case CapDelete:
		return p.Delete
	case CapComment:
		return p.Comment
	case CapAssign:
		return p.Assign
	case CapChangeStatus:
		return p.ChangeStatus
	case CapArchive:
		return p.Archive
	case CapViewReports:
		return p.ViewReports
	case CapManageProjects:
		return p.ManageProjects
	case CapExport:
		return p.Export
	case CapAccessSettings:
		return p.AccessSettings
	case CapManageTaskSettings:
		return p.ManageTaskSettings
	case CapViewAll:
		return p.ViewAll
	}
	return false
}

// FullProfile is the implicit all-true profile the top role receives
// without consulting the store.
func FullProfile() PermissionProfile {
	return PermissionProfile{
		Create: true, Edit: true, Delete: true, Comment: true,
		Assign: true, ChangeStatus: true, Archive: true,
		ViewReports: true, ManageProjects: true, Export: true,
		AccessSettings: true, ManageTaskSettings: true, ViewAll: true,
		ViewScope: ScopeAll,
	}
}

// MinimalProfile is the fallback when no profile resolves.
func MinimalProfile() PermissionProfile {
	return PermissionProfile{ViewScope: ScopeAssignedOnly}
}

// Gamification holds the scorer's lookup tables and multipliers.
// The early/on-time/late ratio thresholds are fixed in the scorer;
// only percentages and caps are configurable.
type Gamification struct {
	BaseXP             int            `yaml:"base_xp" json:"base_xp"`
	DefaultScore       int            `yaml:"default_score" json:"default_score"`
	TypeScores         map[string]int `yaml:"type_scores" json:"type_scores"`
	PriorityScores     map[string]int `yaml:"priority_scores" json:"priority_scores"`
	TimeBased          bool           `yaml:"time_based" json:"time_based"`
	EarlyBonusPercent  float64        `yaml:"early_bonus_percent" json:"early_bonus_percent"`
	MaxBonusPercent    float64        `yaml:"max_bonus_percent" json:"max_bonus_percent"`
	OnTimeBonusPercent float64        `yaml:"on_time_bonus_percent" json:"on_time_bonus_percent"`
	LatePenaltyPercent float64        `yaml:"late_penalty_percent" json:"late_penalty_percent"`
	MaxPenaltyPercent  float64        `yaml:"max_penalty_percent" json:"max_penalty_percent"`
}

// Workflow holds the state machine's automation switches.
type Workflow struct {
	AutoTestingSubtask bool   `yaml:"auto_testing_subtask" json:"auto_testing_subtask"`
	TestingTaskType    string `yaml:"testing_task_type" json:"testing_task_type"`
	// DefaultTesterRef is a participant reference, possibly virtual
	// (see directory.ParseRef). Empty leaves the clone unassigned.
	DefaultTesterRef string `yaml:"default_tester_ref" json:"default_tester_ref"`
}

// AutomationRule reassigns overdue tasks to a target participant.
type AutomationRule struct {
	Threshold int    `yaml:"threshold" json:"threshold"`
	Unit      string `yaml:"unit" json:"unit" enum:"hours,days"`
	// Scope is "all" or a participant reference restricting the rule
	// to tasks currently assigned to that participant.
	Scope     string `yaml:"scope" json:"scope"`
	TargetRef string `yaml:"target_ref" json:"target_ref"`
	Action    string `yaml:"action" json:"action" enum:"assign"`
}

// Duration converts the threshold and unit into a time.Duration.
func (r AutomationRule) Duration() time.Duration {
	if r.Unit == "days" {
		return time.Duration(r.Threshold) * 24 * time.Hour
	}
	return time.Duration(r.Threshold) * time.Hour
}

// Settings models the mutable configuration blob stored per org.
type Settings struct {
	Permissions     map[string]PermissionProfile `yaml:"permissions" json:"permissions"`
	Gamification    Gamification                 `yaml:"gamification" json:"gamification"`
	Workflow        Workflow                     `yaml:"workflow" json:"workflow"`
	AutomationRules []AutomationRule             `yaml:"automation_rules" json:"automation_rules"`
}

// Validate ensures the settings meet required structure.
func (s *Settings) Validate() error {
	for role, p := range s.Permissions {
		if role == "" {
			return fmt.Errorf("settings.permissions contains empty role key")
		}
		switch p.ViewScope {
		case ScopeAll, ScopeProject, ScopeAssignedOnly:
		default:
			return fmt.Errorf("role %s has invalid view_scope %q", role, p.ViewScope)
		}
	}
	if s.Gamification.BaseXP < 0 {
		return fmt.Errorf("gamification.base_xp must not be negative")
	}
	for _, pct := range []struct {
		name  string
		value float64
	}{
		{"early_bonus_percent", s.Gamification.EarlyBonusPercent},
		{"max_bonus_percent", s.Gamification.MaxBonusPercent},
		{"on_time_bonus_percent", s.Gamification.OnTimeBonusPercent},
		{"late_penalty_percent", s.Gamification.LatePenaltyPercent},
		{"max_penalty_percent", s.Gamification.MaxPenaltyPercent},
	} {
		if pct.value < 0 || pct.value > 100 {
			return fmt.Errorf("gamification.%s must be between 0 and 100", pct.name)
		}
	}
	if s.Workflow.TestingTaskType == "" {
		return fmt.Errorf("workflow.testing_task_type is required")
	}
	for i, r := range s.AutomationRules {
		if r.Threshold <= 0 {
			return fmt.Errorf("automation_rules[%d].threshold must be positive", i)
		}
		if r.Unit != "hours" && r.Unit != "days" {
			return fmt.Errorf("automation_rules[%d].unit must be hours or days", i)
		}
		if r.TargetRef == "" {
			return fmt.Errorf("automation_rules[%d].target_ref is required", i)
		}
		if r.Scope == "" {
			return fmt.Errorf("automation_rules[%d].scope must be \"all\" or a participant ref", i)
		}
		if r.Action != "assign" {
			return fmt.Errorf("automation_rules[%d].action must be assign", i)
		}
	}
	return nil
}

// Default returns the seed settings used on first access.
func Default() *Settings {
	return &Settings{
		Permissions: map[string]PermissionProfile{
			"manager": {
				Create: true, Edit: true, Delete: true, Comment: true,
				Assign: true, ChangeStatus: true, Archive: true,
				ViewReports: true, ManageProjects: true, Export: true,
				ManageTaskSettings: true, ViewAll: true,
				ViewScope: ScopeAll,
			},
			"team_lead": {
				Create: true, Edit: true, Comment: true, Assign: true,
				ChangeStatus: true, ViewReports: true, Export: true,
				ViewScope: ScopeProject,
			},
			"developer": {
				Create: true, Edit: true, Comment: true,
				ChangeStatus: true,
				ViewScope:    ScopeAssignedOnly,
			},
			"tester": {
				Create: true, Edit: true, Comment: true,
				ChangeStatus: true,
				ViewScope:    ScopeProject,
			},
			"viewer": {
				Comment:   true,
				ViewScope: ScopeAssignedOnly,
			},
		},
		Gamification: Gamification{
			BaseXP:       10,
			DefaultScore: 10,
			TypeScores: map[string]int{
				"feature": 20,
				"bug":     15,
				"testing": 10,
				"chore":   5,
			},
			PriorityScores: map[string]int{
				"critical": 25,
				"high":     15,
				"medium":   10,
				"low":      5,
			},
			TimeBased:          true,
			EarlyBonusPercent:  20,
			MaxBonusPercent:    50,
			OnTimeBonusPercent: 10,
			LatePenaltyPercent: 15,
			MaxPenaltyPercent:  50,
		},
		Workflow: Workflow{
			AutoTestingSubtask: true,
			TestingTaskType:    "testing",
		},
	}
}

// FromYAML parses and validates settings from raw YAML bytes.
func FromYAML(data []byte) (*Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("invalid settings yaml: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// FromFile reads YAML settings from the given path.
func FromFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// ToYAML serializes settings for export.
func (s *Settings) ToYAML() ([]byte, error) {
	return yaml.Marshal(s)
}
