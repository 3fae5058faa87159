package troupe

import "sort"

// ──────────────────────────────────────────────
// Framework Blender — context-weighted mix of behavioral frameworks
// ──────────────────────────────────────────────

// FrameworkBlender resolves persona blend rules against the closed
// framework registry once at construction. Decide never dispatches on
// framework ID strings.
type FrameworkBlender struct {
	frameworks map[string]*Framework
}

func newFrameworkBlender(frameworks map[string]*Framework) *FrameworkBlender {
	return &FrameworkBlender{frameworks: frameworks}
}

// Blend returns the weighted framework set for the persona in the given
// conversational context: the base framework at full weight plus the
// configured secondaries. Weights are independent dials clamped to [0,1];
// they are not normalized. Ordering is weight descending, then framework
// ID, so composition is deterministic.
func (b *FrameworkBlender) Blend(p *Persona, context ContextClass) WeightedFrameworkSet {
	var set WeightedFrameworkSet
	seen := make(map[string]bool)

	if base, ok := b.frameworks[p.BaseFramework]; ok {
		set = append(set, WeightedFramework{Framework: base, Weight: 1.0})
		seen[base.ID] = true
	}

	for _, rule := range p.BlendRules[context] {
		fw, ok := b.frameworks[rule.FrameworkID]
		if !ok || seen[fw.ID] {
			continue
		}
		w := clamp01(rule.Weight)
		if w == 0 {
			continue
		}
		set = append(set, WeightedFramework{Framework: fw, Weight: w})
		seen[fw.ID] = true
	}

	sort.SliceStable(set, func(i, j int) bool {
		if set[i].Weight != set[j].Weight {
			return set[i].Weight > set[j].Weight
		}
		return set[i].Framework.ID < set[j].Framework.ID
	})
	return set
}
