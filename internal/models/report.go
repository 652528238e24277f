// Package models holds the data records exchanged between the analysis
// pipeline and its outputs.
package models

import (
	"uncertaintymap/pkg/mapping"
	"uncertaintymap/pkg/plane"
	"uncertaintymap/pkg/raymarch"
)

// Report is written as report.yaml at the end of a run
type Report struct {
	Volume  VolumeSummary   `yaml:"volume"`
	Planes  []PlaneResult   `yaml:"planes"`
	Mapping *MappingSummary `yaml:"mapping,omitempty"`
	Texture *TextureSummary `yaml:"texture,omitempty"`

	// Outputs lists the files written by the run
	Outputs []string `yaml:"outputs"`
}

// VolumeSummary describes the analysed grid
type VolumeSummary struct {
	Source   string     `yaml:"source"`
	Dims     [3]int     `yaml:"dims"`
	NonZero  int        `yaml:"nonZero"`
	Min      float64    `yaml:"min"`
	Max      float64    `yaml:"max"`
	Mean     float64    `yaml:"mean"`
	Origin   [3]float64 `yaml:"origin"`
	Spacing  [3]float64 `yaml:"spacing"`
	Slices   int        `yaml:"slices,omitempty"`
	Filename string     `yaml:"firstSlice,omitempty"`
}

// PlaneResult is the outcome of one plane fitter
type PlaneResult struct {
	Fitter   string      `yaml:"fitter"`
	Plane    plane.Plane `yaml:"plane"`
	Goodness float64     `yaml:"goodness"`

	// History holds the best goodness after each random-search iteration
	History []float64 `yaml:"history,omitempty"`

	// Points is the number of points fed to the SVD fit
	Points int    `yaml:"points,omitempty"`
	Error  string `yaml:"error,omitempty"`
}

// MappingSummary describes a surface mapping run
type MappingSummary struct {
	Registration mapping.Registration `yaml:"registration"`
	Accumulation raymarch.Policy      `yaml:"accumulation"`
	Scaling      mapping.Scaling      `yaml:"scaling"`
	Palette      mapping.Palette      `yaml:"palette"`

	Vertices  int              `yaml:"vertices"`
	EmptyRays int              `yaml:"emptyRays"`
	Legend    mapping.Range    `yaml:"legend"`
	Intensity IntensitySummary `yaml:"intensity"`
}

// TextureSummary describes the spherical texture
type TextureSummary struct {
	Width     int              `yaml:"width"`
	Height    int              `yaml:"height"`
	Legend    mapping.Range    `yaml:"legend"`
	Intensity IntensitySummary `yaml:"intensity"`
}

// IntensitySummary holds statistics over the finite intensities
type IntensitySummary struct {
	Count  int     `yaml:"count"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
	Mean   float64 `yaml:"mean"`
	StdDev float64 `yaml:"stdDev"`
	Median float64 `yaml:"median"`
}
