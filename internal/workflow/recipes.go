// Package workflow provides the workflow engine: recipe selection,
// sequential step execution through the agent runner, and cooperative
// pause/resume/cancel of in-flight executions.
package workflow

import "github.com/arbiter-dev/arbiter/internal/models"

// recipes maps each workflow tier to its fixed ordered list of agent
// steps.
var recipes = map[models.Workflow][]string{
	models.WorkflowQuick:   {"coder", "reviewer"},
	models.WorkflowFeature: {"planner", "coder", "reviewer"},
	models.WorkflowMethod:  {"analyst", "planner", "architect", "coder", "reviewer"},
	models.WorkflowEnterprise: {
		"analyst", "planner", "architect", "security",
		"coder", "reviewer", "ux", "docs",
	},
}

// Recipe returns the ordered agent steps for a workflow tier.
func Recipe(w models.Workflow) []string {
	return append([]string(nil), recipes[w]...)
}

// Recommend selects a workflow tier from the declared scope and
// complexity. Bugfix and hotfix work always gets the cheapest tier
// regardless of complexity; greenfield work gets the heaviest planning
// tier unless it is enterprise-grade.
func Recommend(scope models.Scope, complexity models.Complexity) models.Workflow {
	switch scope {
	case models.ScopeBugfix, models.ScopeHotfix:
		return models.WorkflowQuick
	case models.ScopeFeature:
		switch complexity {
		case models.ComplexitySimple:
			return models.WorkflowQuick
		case models.ComplexityEnterprise:
			return models.WorkflowEnterprise
		default:
			return models.WorkflowFeature
		}
	case models.ScopeGreenfield:
		if complexity == models.ComplexityEnterprise {
			return models.WorkflowEnterprise
		}
		return models.WorkflowMethod
	default:
		return models.WorkflowFeature
	}
}
