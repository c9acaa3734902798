package predictionservice

import (
	"strings"

	"vetml/internal/domain/diagnosis"
)

// Baseline conditions per species when no model can answer
var heuristicTable = map[diagnosis.Species][]diagnosis.Prediction{
	diagnosis.SpeciesDog: {
		{Disease: "Canine Parvovirus", Probability: 0.22},
		{Disease: "Kennel Cough", Probability: 0.20},
		{Disease: "Gastroenteritis", Probability: 0.18},
		{Disease: "Otitis Externa", Probability: 0.15},
		{Disease: "Allergic Dermatitis", Probability: 0.12},
	},
	diagnosis.SpeciesCat: {
		{Disease: "Feline Upper Respiratory Infection", Probability: 0.24},
		{Disease: "Feline Lower Urinary Tract Disease", Probability: 0.20},
		{Disease: "Chronic Kidney Disease", Probability: 0.17},
		{Disease: "Gastroenteritis", Probability: 0.15},
		{Disease: "Dental Disease", Probability: 0.12},
	},
	diagnosis.SpeciesChicken: {
		{Disease: "Coccidiosis", Probability: 0.24},
		{Disease: "Newcastle Disease", Probability: 0.20},
		{Disease: "Infectious Bronchitis", Probability: 0.18},
		{Disease: "Marek's Disease", Probability: 0.15},
		{Disease: "Mite Infestation", Probability: 0.12},
	},
	diagnosis.SpeciesFish: {
		{Disease: "Ich (White Spot Disease)", Probability: 0.25},
		{Disease: "Fin Rot", Probability: 0.22},
		{Disease: "Swim Bladder Disorder", Probability: 0.18},
		{Disease: "Fungal Infection", Probability: 0.15},
		{Disease: "Dropsy", Probability: 0.10},
	},
	diagnosis.SpeciesHamster: {
		{Disease: "Wet Tail", Probability: 0.25},
		{Disease: "Respiratory Infection", Probability: 0.20},
		{Disease: "Dental Overgrowth", Probability: 0.17},
		{Disease: "Skin Mites", Probability: 0.15},
		{Disease: "Diabetes", Probability: 0.10},
	},
	diagnosis.SpeciesRabbit: {
		{Disease: "Gastrointestinal Stasis", Probability: 0.25},
		{Disease: "Dental Disease", Probability: 0.20},
		{Disease: "Snuffles (Pasteurellosis)", Probability: 0.18},
		{Disease: "Ear Mites", Probability: 0.14},
		{Disease: "Urinary Sludge", Probability: 0.11},
	},
	diagnosis.SpeciesSnake: {
		{Disease: "Respiratory Infection", Probability: 0.26},
		{Disease: "Mite Infestation", Probability: 0.20},
		{Disease: "Scale Rot", Probability: 0.18},
		{Disease: "Infectious Stomatitis", Probability: 0.15},
		{Disease: "Dysecdysis", Probability: 0.12},
	},
	diagnosis.SpeciesTurtle: {
		{Disease: "Respiratory Infection", Probability: 0.25},
		{Disease: "Shell Rot", Probability: 0.20},
		{Disease: "Vitamin A Deficiency", Probability: 0.18},
		{Disease: "Metabolic Bone Disease", Probability: 0.15},
		{Disease: "Aural Abscess", Probability: 0.12},
	},
}

var genericHeuristic = []diagnosis.Prediction{
	{Disease: "General Infection", Probability: 0.30},
	{Disease: "Parasitic Infestation", Probability: 0.20},
	{Disease: "Nutritional Deficiency", Probability: 0.20},
	{Disease: "Stress-related Condition", Probability: 0.15},
}

// Label fragments of infectious or inflammatory conditions
var feverSensitive = []string{
	"infect", "itis", "virus", "viral", "bacteri", "parvo", "distemper",
	"cough", "newcastle", "snuffles", "pasteur", "rot", "abscess",
}

const (
	feverBoost   = 1.5
	boostCeiling = 0.95
)

// Heuristic returns the static ranked list for a species. With fever present
// infectious and inflammatory entries are boosted and the list re-ranked.
// The result is a fresh slice on every call.
func Heuristic(species diagnosis.Species, fever bool) []diagnosis.Prediction {
	base, ok := heuristicTable[species]
	if !ok {
		base = genericHeuristic
	}

	out := make([]diagnosis.Prediction, len(base))
	copy(out, base)

	if fever {
		for i := range out {
			if isFeverSensitive(out[i].Disease) {
				boosted := out[i].Probability * feverBoost
				if boosted > boostCeiling {
					boosted = boostCeiling
				}
				out[i].Probability = boosted
			}
		}
	}
	sortPredictions(out)
	return out
}

func isFeverSensitive(label string) bool {
	l := strings.ToLower(label)
	for _, frag := range feverSensitive {
		if strings.Contains(l, frag) {
			return true
		}
	}
	return false
}
