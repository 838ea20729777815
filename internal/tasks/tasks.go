package tasks

// Defines constants for task types used in Asynq.

const (
	// TypeTilesetAnalysis is the task type for analyzing every tile in a tileset.
	TypeTilesetAnalysis = "analysis:tileset"
)
