package domain

import (
	"slices"
	"strings"
	"unicode"
)

// WorkerName is the unique key of a worker in the registry.
type WorkerName string

// Known workers. The registry accepts any non-empty name; these are the ones
// the default rule table and task templates know about.
const (
	WorkerWeather    WorkerName = "weather"
	WorkerMarket     WorkerName = "market"
	WorkerKnowledge  WorkerName = "knowledge"
	WorkerImage      WorkerName = "image"
	WorkerFertilizer WorkerName = "fertilizer"
	WorkerVideo      WorkerName = "video"
)

// TagMedia marks workers that consume the conversation attachment.
const TagMedia = "media"

var workerTitles = map[WorkerName]string{
	WorkerWeather:    "Weather",
	WorkerMarket:     "Market prices",
	WorkerKnowledge:  "Knowledge base",
	WorkerImage:      "Image diagnosis",
	WorkerFertilizer: "Fertilizer advice",
	WorkerVideo:      "Videos",
}

// KnownWorkers returns the built-in worker names in a stable order.
func KnownWorkers() []WorkerName {
	return []WorkerName{
		WorkerWeather,
		WorkerMarket,
		WorkerKnowledge,
		WorkerImage,
		WorkerFertilizer,
		WorkerVideo,
	}
}

func (n WorkerName) String() string {
	return string(n)
}

// Title is the human readable heading used when answers are merged.
func (n WorkerName) Title() string {
	if t, ok := workerTitles[n]; ok {
		return t
	}
	s := strings.ReplaceAll(string(n), "_", " ")
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// WorkerDescriptor describes a worker to the classifiers.
// Everything but Healthy is fixed once the worker is registered.
type WorkerDescriptor struct {
	Name    WorkerName `json:"name"`
	Summary string     `json:"summary"`
	Tags    []string   `json:"tags,omitempty"`
	Healthy bool       `json:"healthy"`
}

// HasTag reports whether the descriptor carries the given tag (case-insensitive).
func (d WorkerDescriptor) HasTag(tag string) bool {
	return slices.ContainsFunc(d.Tags, func(t string) bool {
		return strings.EqualFold(t, tag)
	})
}

// Clone returns a copy that shares no slices with d.
func (d WorkerDescriptor) Clone() WorkerDescriptor {
	d.Tags = slices.Clone(d.Tags)
	return d
}
