package features

import (
	"vetml/internal/domain/schema"
	"vetml/internal/metrics"
	"vetml/pkg/logger"
)

// Reconciler projects engineered features onto a classifier's schema
type Reconciler struct {
	log *logger.Logger
}

// NewReconciler creates a reconciler
func NewReconciler(log *logger.Logger) *Reconciler {
	return &Reconciler{log: log.Component("schema_reconciler")}
}

// Reconcile builds a vector with exactly the schema's length and order.
// Numeric columns are cast to float, categorical ones to text. Columns the
// engineer did not produce are filled with 0 or "" and returned as missing.
// Extra engineered features are dropped.
func (r *Reconciler) Reconcile(species string, feats Set, s *schema.Schema) (*schema.Vector, []string) {
	values := make([]schema.Value, s.Len())
	var missing []string

	for i := 0; i < s.Len(); i++ {
		f := s.At(i)
		v, ok := feats[f.Name]
		switch {
		case !ok && f.Kind == schema.KindCategorical:
			values[i] = schema.Text("")
			missing = append(missing, f.Name)
		case !ok:
			values[i] = schema.Number(0)
			missing = append(missing, f.Name)
		case f.Kind == schema.KindCategorical:
			values[i] = schema.Text(v.AsText())
		default:
			values[i] = schema.Number(v.AsFloat())
		}
	}

	if len(missing) > 0 {
		r.log.Debugw("Synthesized missing features",
			"species", species,
			"count", len(missing),
			"features", missing,
		)
		metrics.RecordMissingFeatures(species, len(missing))
	}

	return &schema.Vector{Schema: s, Values: values}, missing
}
