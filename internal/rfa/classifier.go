package rfa

import (
	"strings"

	"uniondash/backend/internal/domain"
)

// Classifier maps fine-grained product sub-families to the coarse family
// buckets tripartite rules are written against ("freinage", "filtre", ...).
// Matching is case-insensitive substring containment, and rule order is the
// tie-break: the first family whose list matches wins, so overlapping
// substrings across families resolve deterministically by declaration order.
type Classifier struct {
	rules []domain.FamilyRule
}

func NewClassifier(rules []domain.FamilyRule) *Classifier {
	kept := make([]domain.FamilyRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Family == "" || len(rule.SubFamilies) == 0 {
			continue
		}
		kept = append(kept, rule)
	}
	return &Classifier{rules: kept}
}

// Classify returns the family bucket for a sub-family label. Many
// sub-families are covered by no tripartite family at all; that is a normal
// miss, reported through ok=false.
func (c *Classifier) Classify(subFamily string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(subFamily))
	if needle == "" {
		return "", false
	}

	for _, rule := range c.rules {
		for _, candidate := range rule.SubFamilies {
			if strings.Contains(needle, strings.ToLower(candidate)) {
				return rule.Family, true
			}
		}
	}
	return "", false
}
