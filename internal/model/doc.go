package model

// Package model defines domain data structures shared by the service: download
// jobs and their snapshots, the job state machine, extraction requests and the
// declarative options handed to the extraction engine.
