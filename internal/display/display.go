// Package display provides human-readable names for machine codes.
//
// Rule: code is for machines, words are for humans.
// Use these functions in CLI output, reports, figure legends and docs.
// Keep raw codes for JSON fields, file names, map keys, and comparisons.
package display

import (
	"image/color"
	"strconv"
	"strings"
)

// --- Voter models ---

var voterModels = map[string]string{
	"slate_pl":  "Impulsive",
	"slate_bt":  "Deliberative",
	"cambridge": "Cambridge",
}

// VoterModel returns the legend name for a voter model code.
// Unknown codes are returned as-is.
func VoterModel(code string) string {
	if name, ok := voterModels[code]; ok {
		return name
	}
	return code
}

// VoterModelWithCode returns "Impulsive (slate_pl)" format.
func VoterModelWithCode(code string) string {
	if name, ok := voterModels[code]; ok {
		return name + " (" + code + ")"
	}
	return code
}

var modelColors = map[string]color.RGBA{
	"cambridge": {R: 0xE3, G: 0x26, B: 0x36, A: 0xFF},
	"slate_bt":  {R: 0xFF, G: 0xBF, B: 0x00, A: 0xFF},
	"slate_pl":  {R: 0x8D, G: 0xB6, B: 0x00, A: 0xFF},
}

// fallback palette for models without an assigned color.
var palette = []color.RGBA{
	{R: 0x1F, G: 0x77, B: 0xB4, A: 0xFF},
	{R: 0x94, G: 0x67, B: 0xBD, A: 0xFF},
	{R: 0x17, G: 0xBE, B: 0xCF, A: 0xFF},
}

// ModelColor returns the histogram fill color for a voter model. Unknown
// models get a stable color derived from their code.
func ModelColor(code string) color.RGBA {
	if c, ok := modelColors[code]; ok {
		return c
	}
	sum := 0
	for _, r := range code {
		sum += int(r)
	}
	return palette[sum%len(palette)]
}

// --- Election methods ---

var methods = map[string]string{
	"plurality": "Plurality",
	"stv":       "Single Transferable Vote",
}

// ElectionMethod returns the long name for "Plurality" or "STV".
func ElectionMethod(code string) string {
	if name, ok := methods[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

// --- Pipeline stages ---

var stages = map[string]string{
	"settings":  "Bloc parameters",
	"profiles":  "Ballot profiles",
	"elections": "Elections",
	"summarize": "Summary",
}

// Stage returns the human-readable name for a stage code.
func Stage(code string) string {
	if name, ok := stages[code]; ok {
		return name
	}
	return code
}

// --- Settings resolution ---

var matches = map[string]string{
	"exact":   "exact name",
	"pattern": "pattern fallback",
	"sole":    "sole-file fallback",
}

// SettingsMatch describes how a row's settings file was found.
func SettingsMatch(code string) string {
	if name, ok := matches[code]; ok {
		return name
	}
	return code
}

// Configuration returns "4 districts x 2 winners" for report headings.
func Configuration(n, winners int) string {
	return strconv.Itoa(n) + plural(n, " district", " districts") + " x " + strconv.Itoa(winners) + plural(winners, " winner", " winners")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
