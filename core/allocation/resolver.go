package allocation

import (
	"strings"

	"github.com/Effec77/aidflow/core/model"
)

// Resolver maps free-text resource names onto the closed Category enum using a
// fixed token table. Lookup order is exact token first, then substring.
type Resolver struct {
	exact  map[string]model.Category
	tokens []tokenRule
}

type tokenRule struct {
	token    string
	category model.Category
}

// NewResolver builds the default resolver table.
func NewResolver() *Resolver {
	exact := map[string]model.Category{
		"medical_kit":  model.CategoryMedical,
		"first_aid":    model.CategoryMedical,
		"medicine":     model.CategoryMedical,
		"bandage":      model.CategoryMedical,
		"oxygen":       model.CategoryMedical,
		"stretcher":    model.CategoryMedical,
		"food_packet":  model.CategoryFood,
		"ration":       model.CategoryFood,
		"meal":         model.CategoryFood,
		"baby_food":    model.CategoryFood,
		"tent":         model.CategoryShelter,
		"blanket":      model.CategoryShelter,
		"tarpaulin":    model.CategoryShelter,
		"sleeping_bag": model.CategoryShelter,
		"generator":    model.CategoryEquipment,
		"torch":        model.CategoryEquipment,
		"rope":         model.CategoryEquipment,
		"boat":         model.CategoryEquipment,
		"shovel":       model.CategoryEquipment,
		"water_bottle": model.CategoryWater,
		"water_tank":   model.CategoryWater,
		"purifier":     model.CategoryWater,
	}
	// Substring rules, checked in order. More specific tokens come first so
	// "water_purification_tablet" resolves to water, not medical.
	tokens := []tokenRule{
		{"water", model.CategoryWater},
		{"medic", model.CategoryMedical},
		{"med", model.CategoryMedical},
		{"aid", model.CategoryMedical},
		{"food", model.CategoryFood},
		{"ration", model.CategoryFood},
		{"shelter", model.CategoryShelter},
		{"tent", model.CategoryShelter},
		{"blanket", model.CategoryShelter},
		{"equip", model.CategoryEquipment},
		{"tool", model.CategoryEquipment},
	}
	return &Resolver{exact: exact, tokens: tokens}
}

// Normalize canonicalizes a resource name for matching.
func Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

// Resolve returns the category for a resource name. The second return is
// false when no rule matches.
func (r *Resolver) Resolve(name string) (model.Category, bool) {
	n := Normalize(name)
	if c, ok := r.exact[n]; ok {
		return c, true
	}
	for _, rule := range r.tokens {
		if strings.Contains(n, rule.token) {
			return rule.category, true
		}
	}
	return "", false
}

// ResolveRequirement fills in a requirement's category when the intake left it
// empty or invalid. Explicit valid categories always win.
func (r *Resolver) ResolveRequirement(req model.ResourceRequirement) model.ResourceRequirement {
	if req.Category.Valid() {
		return req
	}
	if c, ok := r.Resolve(req.Name); ok {
		req.Category = c
	}
	return req
}
