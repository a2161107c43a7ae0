// Package router classifies free-text requests into a target subsystem.
package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arbiter-dev/arbiter/internal/models"
)

// ActionClarify is returned when no target clears the confidence
// threshold; the caller should ask a follow-up question instead of
// dispatching.
const ActionClarify = "clarify"

// Context carries optional session state into a routing call.
type Context struct {
	// CurrentTarget is the subsystem the session is already talking to.
	// A leading candidate matching it gets the continuity bonus.
	CurrentTarget models.Target
}

// Router scores weighted keyword patterns per target subsystem.
type Router struct {
	config *Config
}

// NewRouter creates a router. A nil config falls back to the defaults.
func NewRouter(cfg *Config) *Router {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Router{config: cfg}
}

// Route classifies text into a target subsystem with a confidence in
// [0,1]. Ties are broken by the declaration order of targets in the
// config, so routing is deterministic.
func (r *Router) Route(text string, ctx *Context) models.RouteResult {
	lower := strings.ToLower(text)

	var (
		best        models.Target
		bestScore   float64
		bestAction  string
		bestMatched []string
	)

	for _, rules := range r.config.Targets {
		score := 0.0
		action := ""
		actionWeight := 0.0
		var matched []string

		for _, p := range rules.Patterns {
			if !containsPhrase(lower, strings.ToLower(p.Phrase)) {
				continue
			}
			score += p.Weight
			matched = append(matched, p.Phrase)
			if p.Weight > actionWeight && p.Action != "" {
				action = p.Action
				actionWeight = p.Weight
			}
		}

		// Strictly greater keeps the first declared target on ties.
		if score > bestScore {
			best = rules.Target
			bestScore = score
			bestAction = action
			bestMatched = matched
		}
	}

	confidence := bestScore
	if confidence > 1.0 {
		confidence = 1.0
	}

	if ctx != nil && ctx.CurrentTarget != "" && ctx.CurrentTarget == best {
		confidence += r.config.ContextBonus
		if confidence > 1.0 {
			confidence = 1.0
		}
	}

	if confidence < r.config.Threshold {
		return models.RouteResult{
			Target:     models.TargetMeta,
			Action:     ActionClarify,
			Confidence: confidence,
			Reasoning:  "no target cleared the confidence threshold",
		}
	}

	if bestAction == "" {
		bestAction = r.config.defaultAction(best)
	}

	sort.Strings(bestMatched)
	return models.RouteResult{
		Target:     best,
		Action:     bestAction,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("matched patterns: %s", strings.Join(bestMatched, ", ")),
	}
}

// containsPhrase checks if text contains phrase as whole words. Multi-word
// phrases use simple substring containment.
func containsPhrase(text, phrase string) bool {
	if strings.Contains(phrase, " ") {
		return strings.Contains(text, phrase)
	}

	for _, word := range strings.Fields(text) {
		cleaned := strings.Trim(word, ".,;:!?\"'()[]{}")
		if cleaned == phrase {
			return true
		}
	}
	return false
}
