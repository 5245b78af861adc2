package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default settings must validate: %v", err)
	}
}

func TestValidateRejectsBadViewScope(t *testing.T) {
	s := Default()
	p := s.Permissions["developer"]
	p.ViewScope = "galaxy"
	s.Permissions["developer"] = p
	err := s.Validate()
	if err == nil || !strings.Contains(err.Error(), "view_scope") {
		t.Fatalf("expected a view_scope error, got %v", err)
	}
}

func TestValidateRejectsBadRules(t *testing.T) {
	cases := []struct {
		name string
		rule AutomationRule
	}{
		{"zero threshold", AutomationRule{Threshold: 0, Unit: "hours", Scope: "all", TargetRef: "p-1", Action: "assign"}},
		{"bad unit", AutomationRule{Threshold: 1, Unit: "weeks", Scope: "all", TargetRef: "p-1", Action: "assign"}},
		{"missing target", AutomationRule{Threshold: 1, Unit: "hours", Scope: "all", Action: "assign"}},
		{"missing scope", AutomationRule{Threshold: 1, Unit: "hours", TargetRef: "p-1", Action: "assign"}},
		{"bad action", AutomationRule{Threshold: 1, Unit: "hours", Scope: "all", TargetRef: "p-1", Action: "delete"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Default()
			s.AutomationRules = []AutomationRule{tc.rule}
			if err := s.Validate(); err == nil {
				t.Fatalf("expected validation to fail")
			}
		})
	}
}

func TestValidateRejectsMissingTestingType(t *testing.T) {
	s := Default()
	s.Workflow.TestingTaskType = ""
	if err := s.Validate(); err == nil {
		t.Fatalf("expected validation to fail")
	}
}

func TestRuleDuration(t *testing.T) {
	r := AutomationRule{Threshold: 3, Unit: "hours"}
	if got := r.Duration(); got != 3*time.Hour {
		t.Fatalf("expected 3h, got %v", got)
	}
	r = AutomationRule{Threshold: 2, Unit: "days"}
	if got := r.Duration(); got != 48*time.Hour {
		t.Fatalf("expected 48h, got %v", got)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	s := Default()
	s.Workflow.DefaultTesterRef = "virtual:qa"
	s.AutomationRules = []AutomationRule{{
		Threshold: 48, Unit: "hours", Scope: "all", TargetRef: "virtual:lead", Action: "assign",
	}}
	data, err := s.ToYAML()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := FromYAML(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.Gamification.BaseXP != s.Gamification.BaseXP {
		t.Fatalf("base_xp lost in round trip")
	}
	if got.Workflow.DefaultTesterRef != "virtual:qa" {
		t.Fatalf("default_tester_ref lost in round trip")
	}
	if len(got.AutomationRules) != 1 || got.AutomationRules[0].Threshold != 48 {
		t.Fatalf("automation rules lost in round trip: %+v", got.AutomationRules)
	}
	if !got.Permissions["manager"].ViewAll {
		t.Fatalf("manager profile lost in round trip")
	}
}

func TestFromYAMLRejectsInvalid(t *testing.T) {
	_, err := FromYAML([]byte("permissions:\n  developer:\n    view_scope: galaxy\n"))
	if err == nil {
		t.Fatalf("expected invalid settings to be rejected")
	}
}
