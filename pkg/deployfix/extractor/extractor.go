package extractor

import (
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/operator-framework/deployfix/pkg/deployfix"
)

const (
	// DeploymentKind is the only kind of document constraints are
	// extracted from.
	DeploymentKind = "Deployment"
	// DefaultLabelKey is the pod template label naming a workload.
	DefaultLabelKey = "app"
)

// Document is an already deserialized manifest together with its
// locator.
type Document struct {
	Source string
	Index  int
	Object map[string]interface{}
}

func (d Document) Provenance() deployfix.Provenance {
	return deployfix.Provenance{Source: d.Source, Index: d.Index}
}

// SkipError reports why every constraint of a document was discarded.
type SkipError struct {
	Provenance deployfix.Provenance
	Reason     string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skipping document %s: %s", e.Provenance, e.Reason)
}

func skip(doc Document, format string, args ...interface{}) *SkipError {
	return &SkipError{Provenance: doc.Provenance(), Reason: fmt.Sprintf(format, args...)}
}

// Extractor turns Deployment manifests into Constraints. It holds no
// state besides its configuration and is safe for concurrent use.
type Extractor struct {
	labelKey string
}

type Option func(e *Extractor)

// WithLabelKey sets the pod template label whose value identifies a
// workload.
func WithLabelKey(key string) Option {
	return func(e *Extractor) {
		e.labelKey = key
	}
}

func New(options ...Option) *Extractor {
	e := &Extractor{labelKey: DefaultLabelKey}
	for _, option := range options {
		option(e)
	}
	if e.labelKey == "" {
		e.labelKey = DefaultLabelKey
	}
	return e
}

// Parse returns the constraints declared by doc. Malformed or partially
// specified documents yield no constraints at all.
func (e *Extractor) Parse(doc Document) []deployfix.Constraint {
	constraints, err := e.Extract(doc)
	if err != nil {
		return nil
	}
	return constraints
}

// ParseAll concatenates the constraints of every document, in order.
func (e *Extractor) ParseAll(docs []Document) []deployfix.Constraint {
	var constraints []deployfix.Constraint
	for _, doc := range docs {
		constraints = append(constraints, e.Parse(doc)...)
	}
	return constraints
}

// Extract is Parse with a diagnostic: when a document is discarded the
// returned error is a *SkipError describing why. Documents of another
// kind are not skips, they simply declare nothing.
func (e *Extractor) Extract(doc Document) ([]deployfix.Constraint, error) {
	_, constraints, err := e.declaration(doc)
	return constraints, err
}

// Workload returns the identifier a well-formed Deployment declares,
// whether or not it constrains anything.
func (e *Extractor) Workload(doc Document) (deployfix.Identifier, bool) {
	id, _, err := e.declaration(doc)
	return id, err == nil && id != ""
}

func (e *Extractor) declaration(doc Document) (deployfix.Identifier, []deployfix.Constraint, error) {
	if kind, _ := doc.Object["kind"].(string); kind != DeploymentKind {
		return "", nil, nil
	}

	var deployment appsv1.Deployment
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(doc.Object, &deployment); err != nil {
		return "", nil, skip(doc, "malformed deployment: %v", err)
	}

	label := deployment.Spec.Template.Labels[e.labelKey]
	if label == "" {
		return "", nil, skip(doc, "deployment %q has no %q label in spec.template.metadata.labels", deployment.Name, e.labelKey)
	}
	source := deployfix.Identifier(label)

	affinity := deployment.Spec.Template.Spec.Affinity
	if affinity == nil {
		return source, nil, nil
	}

	var constraints []deployfix.Constraint
	for _, kind := range RuleKinds {
		cs, err := kind.extract(affinity, source, doc.Provenance())
		if err != nil {
			return "", nil, skip(doc, "%s: %v", kind, err)
		}
		constraints = append(constraints, cs...)
	}
	return source, constraints, nil
}
