// Package models holds the static Code Assist model catalog and the
// derivation rules for variant suffixes (spec.md 4.6).
package models

import (
	"sort"
	"strings"
)

// Descriptor is a static catalog entry. Variants are derived, never stored.
type Descriptor struct {
	Name              string
	Version           string
	DisplayName       string
	Description       string
	InputTokenLimit   int
	OutputTokenLimit  int
	SupportsStreaming bool
	Temperature       float64
	MaxTemperature    float64
	TopP              float64
	TopK              int
}

// BaseModels is the static catalog taken from the upstream Code Assist
// deployment; names are bare (no "models/" prefix — that's applied by the
// HTTP handlers per surface).
var BaseModels = []Descriptor{
	{Name: "gemini-2.5-pro-preview-03-25", Version: "001", DisplayName: "Gemini 2.5 Pro Preview 03-25", Description: "Preview version of Gemini 2.5 Pro from May 6th", InputTokenLimit: 1048576, OutputTokenLimit: 65535, SupportsStreaming: true, Temperature: 1.0, MaxTemperature: 2.0, TopP: 0.95, TopK: 64},
	{Name: "gemini-2.5-pro-preview-05-06", Version: "001", DisplayName: "Gemini 2.5 Pro Preview 05-06", Description: "Preview version of Gemini 2.5 Pro from May 6th", InputTokenLimit: 1048576, OutputTokenLimit: 65535, SupportsStreaming: true, Temperature: 1.0, MaxTemperature: 2.0, TopP: 0.95, TopK: 64},
	{Name: "gemini-2.5-pro-preview-06-05", Version: "001", DisplayName: "Gemini 2.5 Pro Preview 06-05", Description: "Preview version of Gemini 2.5 Pro from June 5th", InputTokenLimit: 1048576, OutputTokenLimit: 65535, SupportsStreaming: true, Temperature: 1.0, MaxTemperature: 2.0, TopP: 0.95, TopK: 64},
	{Name: "gemini-2.5-pro", Version: "001", DisplayName: "Gemini 2.5 Pro", Description: "Advanced multimodal model with enhanced capabilities", InputTokenLimit: 1048576, OutputTokenLimit: 65535, SupportsStreaming: true, Temperature: 1.0, MaxTemperature: 2.0, TopP: 0.95, TopK: 64},
	{Name: "gemini-2.5-flash-preview-05-20", Version: "001", DisplayName: "Gemini 2.5 Flash Preview 05-20", Description: "Preview version of Gemini 2.5 Flash from May 20th", InputTokenLimit: 1048576, OutputTokenLimit: 65535, SupportsStreaming: true, Temperature: 1.0, MaxTemperature: 2.0, TopP: 0.95, TopK: 64},
	{Name: "gemini-2.5-flash-preview-04-17", Version: "001", DisplayName: "Gemini 2.5 Flash Preview 04-17", Description: "Preview version of Gemini 2.5 Flash from April 17th", InputTokenLimit: 1048576, OutputTokenLimit: 65535, SupportsStreaming: true, Temperature: 1.0, MaxTemperature: 2.0, TopP: 0.95, TopK: 64},
	{Name: "gemini-2.5-flash", Version: "001", DisplayName: "Gemini 2.5 Flash", Description: "Fast and efficient multimodal model with latest improvements", InputTokenLimit: 1048576, OutputTokenLimit: 65535, SupportsStreaming: true, Temperature: 1.0, MaxTemperature: 2.0, TopP: 0.95, TopK: 64},
	{Name: "gemini-2.5-flash-image-preview", Version: "001", DisplayName: "Gemini 2.5 Flash Image Preview", Description: "Gemini 2.5 Flash Image Preview", InputTokenLimit: 32768, OutputTokenLimit: 32768, SupportsStreaming: true, Temperature: 1.0, MaxTemperature: 2.0, TopP: 0.95, TopK: 64},
	{Name: "gemini-3-pro-preview", Version: "001", DisplayName: "Gemini 3.0 Pro Preview 11-2025", Description: "Preview version of Gemini 3.0 Pro from November 2025", InputTokenLimit: 1048576, OutputTokenLimit: 65535, SupportsStreaming: true, Temperature: 1.0, MaxTemperature: 2.0, TopP: 0.95, TopK: 64},
	{Name: "gemini-3-flash-preview", Version: "001", DisplayName: "Gemini 3.0 Flash Preview", Description: "Preview version of Gemini 3.0 Flash", InputTokenLimit: 1048576, OutputTokenLimit: 65535, SupportsStreaming: true, Temperature: 1.0, MaxTemperature: 2.0, TopP: 0.95, TopK: 64},
}

// BaseByName returns the base descriptor for a given bare model name.
func BaseByName(name string) (Descriptor, bool) {
	for _, d := range BaseModels {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// supportsThinking is the "gemini-2.5-flash" / "gemini-2.5-pro" /
// "gemini-3-pro" family test the -nothinking/-maxthinking suffixes are
// restricted to (spec.md 4.6).
func supportsThinking(base string) bool {
	return strings.Contains(base, "gemini-2.5-flash") ||
		strings.Contains(base, "gemini-2.5-pro") ||
		strings.Contains(base, "gemini-3-pro")
}

// supportsSearch is every base except the image-preview model, which has no
// text generation surface to attach googleSearch to.
func supportsSearch(base string) bool {
	return !strings.Contains(base, "gemini-2.5-flash-image")
}

// Catalog returns the base list plus every valid variant name, sorted.
func Catalog() []string {
	names := make([]string, 0, len(BaseModels)*4)
	for _, d := range BaseModels {
		names = append(names, d.Name)
		if supportsSearch(d.Name) {
			names = append(names, d.Name+"-search")
		}
		if supportsThinking(d.Name) {
			names = append(names, d.Name+"-nothinking", d.Name+"-maxthinking")
			// Combined search+thinking variants are only generated for the
			// 2.5 flash/pro family upstream, never for gemini-3-pro.
			if supportsSearch(d.Name) && !strings.Contains(d.Name, "gemini-3-pro") {
				names = append(names, d.Name+"-search-nothinking", d.Name+"-search-maxthinking")
			}
		}
	}
	sort.Strings(names)
	return names
}
