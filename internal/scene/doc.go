// Package scene defines the data contract that flows between pipeline
// stages: the Scene record, ordered versioned scene sets, checkpoint edits,
// and the export serializations.
package scene
