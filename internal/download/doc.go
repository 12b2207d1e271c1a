package download

// Package download implements the asynchronous job pipeline: request
// validation, the options handed to the extraction engine, a fixed-size worker
// pool, the job registry and the manager that ties them together and maps
// engine outcomes onto job state.
