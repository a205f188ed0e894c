package predict

import (
	"fmt"
	"sort"

	"glaucomaml/features"
)

// Contract describes how labels of one model variant are presented.
type Contract struct {
	// Template formats multi-class results; it receives the label.
	Template string
	// NegativeLabel switches to binary interpretation: a label equal to it
	// gets NegativeSentence, anything else PositiveSentence.
	NegativeLabel    string
	NegativeSentence string
	PositiveSentence string
	// Labels overrides the artifact's decode table when set.
	Labels []string
}

// Interpret returns the human-readable sentence for a label.
func (c Contract) Interpret(label string) string {
	if c.NegativeLabel != "" {
		if label == c.NegativeLabel {
			return c.NegativeSentence
		}
		return c.PositiveSentence
	}
	if c.Template == "" {
		return label
	}
	return fmt.Sprintf(c.Template, label)
}

// Variant pairs an input layout with its label contract. A deployment serves
// exactly one variant, matching its model artifact.
type Variant struct {
	Name     string
	Layout   features.Layout
	Contract Contract
}

const (
	VariantGlaucomaType      = "glaucoma_type"
	VariantGlaucomaDetection = "glaucoma_detection"

	NegativeSentence = "No signs of glaucoma were detected for this patient."
	PositiveSentence = "Signs of glaucoma were detected; refer the patient for a full ophthalmological examination."
)

var variants = map[string]func() Variant{
	VariantGlaucomaType: func() Variant {
		return Variant{
			Name:   VariantGlaucomaType,
			Layout: features.GlaucomaTypeLayout(),
			Contract: Contract{
				Template: "The predicted glaucoma type is: %s",
			},
		}
	},
	VariantGlaucomaDetection: func() Variant {
		return Variant{
			Name:   VariantGlaucomaDetection,
			Layout: features.GlaucomaDetectionLayout(),
			Contract: Contract{
				NegativeLabel:    "No Glaucoma",
				NegativeSentence: NegativeSentence,
				PositiveSentence: PositiveSentence,
			},
		}
	},
}

// LookupVariant returns a fresh copy of a named variant.
func LookupVariant(name string) (Variant, error) {
	build, ok := variants[name]
	if !ok {
		return Variant{}, fmt.Errorf("unknown variant %q (known: %v)", name, VariantNames())
	}
	return build(), nil
}

// VariantNames lists the known variants in sorted order.
func VariantNames() []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
