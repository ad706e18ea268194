package model

// Promotion is the academic-level label attached to a syllabus
type Promotion string

const (
	PromotionBac1    Promotion = "Bac1"
	PromotionBac2    Promotion = "Bac2"
	PromotionBac3    Promotion = "Bac3"
	PromotionMaster1 Promotion = "Master1"
	PromotionMaster2 Promotion = "Master2"
	PromotionMaster3 Promotion = "Master3"
	PromotionMaster4 Promotion = "Master4"
)

// Promotions lists the canonical labels in display order.
var Promotions = []Promotion{
	PromotionBac1,
	PromotionBac2,
	PromotionBac3,
	PromotionMaster1,
	PromotionMaster2,
	PromotionMaster3,
	PromotionMaster4,
}

// LegacyPromotions maps the older L1/L2/L3 labels onto the canonical set.
var LegacyPromotions = map[string]Promotion{
	"L1": PromotionBac1,
	"L2": PromotionBac2,
	"L3": PromotionBac3,
}

// IsValid reports whether p is one of the canonical promotions
func (p Promotion) IsValid() bool {
	for _, known := range Promotions {
		if p == known {
			return true
		}
	}
	return false
}

// Rank is the position of p in Promotions, or len(Promotions) when unknown.
func (p Promotion) Rank() int {
	for i, known := range Promotions {
		if p == known {
			return i
		}
	}
	return len(Promotions)
}

// NormalizePromotion accepts canonical and legacy labels.
func NormalizePromotion(s string) (Promotion, bool) {
	if p := Promotion(s); p.IsValid() {
		return p, true
	}
	if p, ok := LegacyPromotions[s]; ok {
		return p, true
	}
	return "", false
}
