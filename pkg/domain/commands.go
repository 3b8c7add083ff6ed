package domain

import "time"

type CommandBuild struct {
	WorkDir      string
	SetName      string
	Timeout      time.Duration
	FetchRate    float64
	// FetchRateSet is true when --rate was given, so that 0 can lift a configured limit.
	FetchRateSet bool
	Offline      bool
	NoSort       bool
}

type CommandFetch struct {
	WorkDir      string
	Timeout      time.Duration
	FetchRate    float64
	FetchRateSet bool
	Names        []string
}

type CommandSources struct{}

type CommandUpload struct {
	Manifest string
	DryRun   bool
}

type CommandMatch struct {
	WorkDir string
	SetName string
	Names   []string
}
