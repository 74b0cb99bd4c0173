package extractor

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/operator-framework/deployfix/pkg/deployfix"
)

// RuleKind enumerates the affinity blocks constraints are read from.
type RuleKind int

const (
	PodAffinityRule RuleKind = iota
	PodAntiAffinityRule
	NodeAffinityRule
)

// RuleKinds lists every RuleKind in extraction order.
var RuleKinds = []RuleKind{PodAffinityRule, PodAntiAffinityRule, NodeAffinityRule}

func (k RuleKind) String() string {
	switch k {
	case PodAffinityRule:
		return "podAffinity"
	case PodAntiAffinityRule:
		return "podAntiAffinity"
	case NodeAffinityRule:
		return "nodeAffinity"
	}
	return fmt.Sprintf("RuleKind(%d)", int(k))
}

// extract reads the hard (required during scheduling) rules of kind k.
// Preferred rules never produce constraints.
func (k RuleKind) extract(affinity *corev1.Affinity, source deployfix.Identifier, provenance deployfix.Provenance) ([]deployfix.Constraint, error) {
	switch k {
	case PodAffinityRule:
		if affinity.PodAffinity == nil {
			return nil, nil
		}
		return podAffinityTerms(affinity.PodAffinity.RequiredDuringSchedulingIgnoredDuringExecution, source, deployfix.Requires, deployfix.PodAffinity, provenance)
	case PodAntiAffinityRule:
		if affinity.PodAntiAffinity == nil {
			return nil, nil
		}
		return podAffinityTerms(affinity.PodAntiAffinity.RequiredDuringSchedulingIgnoredDuringExecution, source, deployfix.Excludes, deployfix.PodAntiAffinity, provenance)
	case NodeAffinityRule:
		if affinity.NodeAffinity == nil {
			return nil, nil
		}
		return nodeSelector(affinity.NodeAffinity.RequiredDuringSchedulingIgnoredDuringExecution, source, provenance)
	}
	return nil, fmt.Errorf("unknown rule kind %d", int(k))
}

// podAffinityTerms relates source to every value listed by an In
// expression. The expression key is not interpreted: values name
// workloads. A term without matchExpressions, or an In expression
// without values, is malformed.
func podAffinityTerms(terms []corev1.PodAffinityTerm, source deployfix.Identifier, relation deployfix.Relation, category deployfix.Category, provenance deployfix.Provenance) ([]deployfix.Constraint, error) {
	var constraints []deployfix.Constraint
	for i, term := range terms {
		if term.LabelSelector == nil {
			return nil, fmt.Errorf("requiredDuringSchedulingIgnoredDuringExecution[%d] has no labelSelector", i)
		}
		if len(term.LabelSelector.MatchExpressions) == 0 {
			return nil, fmt.Errorf("requiredDuringSchedulingIgnoredDuringExecution[%d].labelSelector has no matchExpressions", i)
		}
		for j, expr := range term.LabelSelector.MatchExpressions {
			if expr.Operator != metav1.LabelSelectorOpIn {
				continue
			}
			if len(expr.Values) == 0 {
				return nil, fmt.Errorf("requiredDuringSchedulingIgnoredDuringExecution[%d].labelSelector.matchExpressions[%d] has no values", i, j)
			}
			for _, value := range expr.Values {
				constraints = append(constraints, deployfix.Constraint{
					Source:     source,
					Target:     deployfix.Identifier(value),
					Relation:   relation,
					Category:   category,
					Provenance: provenance,
				})
			}
		}
	}
	return constraints, nil
}

// nodeSelector turns node label expressions into key=value entities:
// In requires them, NotIn excludes them. Operators without values
// (Exists, DoesNotExist) are ignored; a term without matchExpressions
// is malformed.
func nodeSelector(selector *corev1.NodeSelector, source deployfix.Identifier, provenance deployfix.Provenance) ([]deployfix.Constraint, error) {
	if selector == nil {
		return nil, nil
	}
	if len(selector.NodeSelectorTerms) == 0 {
		return nil, fmt.Errorf("requiredDuringSchedulingIgnoredDuringExecution has no nodeSelectorTerms")
	}

	var constraints []deployfix.Constraint
	for i, term := range selector.NodeSelectorTerms {
		if len(term.MatchExpressions) == 0 {
			return nil, fmt.Errorf("nodeSelectorTerms[%d] has no matchExpressions", i)
		}
		for j, expr := range term.MatchExpressions {
			if len(expr.Values) == 0 {
				continue
			}
			if expr.Key == "" {
				return nil, fmt.Errorf("nodeSelectorTerms[%d].matchExpressions[%d] has values but no key", i, j)
			}
			var relation deployfix.Relation
			var category deployfix.Category
			switch expr.Operator {
			case corev1.NodeSelectorOpIn:
				relation, category = deployfix.Requires, deployfix.NodeAffinity
			case corev1.NodeSelectorOpNotIn:
				relation, category = deployfix.Excludes, deployfix.NodeAntiAffinity
			default:
				continue
			}
			for _, value := range expr.Values {
				constraints = append(constraints, deployfix.Constraint{
					Source:     source,
					Target:     deployfix.NodeLabelIdentifier(expr.Key, value),
					Relation:   relation,
					Category:   category,
					Provenance: provenance,
				})
			}
		}
	}
	return constraints, nil
}
